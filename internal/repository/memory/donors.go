package memory

import (
	"context"
	"sort"
	"sync"

	"bloodlink-backend/internal/apperror"
	"bloodlink-backend/internal/models"
	"bloodlink-backend/internal/repository"
	"bloodlink-backend/pkg/geo"
)

type DonorStore struct {
	mu     sync.RWMutex
	donors map[string]models.Donor
	order  []string
}

func NewDonorStore() *DonorStore {
	return &DonorStore{donors: make(map[string]models.Donor)}
}

var _ repository.DonorStore = (*DonorStore)(nil)

func (s *DonorStore) Upsert(_ context.Context, donor *models.Donor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.donors {
		if donor.UserID != "" && existing.UserID == donor.UserID {
			donor.ID = id
			donor.CreatedAt = existing.CreatedAt
			s.donors[id] = *donor
			return nil
		}
	}
	s.donors[donor.ID] = *donor
	s.order = append(s.order, donor.ID)
	return nil
}

func (s *DonorStore) GetByID(_ context.Context, id string) (*models.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.donors[id]
	if !ok {
		return nil, apperror.NotFound("donor", id)
	}
	return &d, nil
}

func (s *DonorStore) GetByUserID(_ context.Context, userID string) (*models.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.donors {
		if d.UserID == userID {
			return &d, nil
		}
	}
	return nil, apperror.NotFound("donor", userID)
}

// ListVisible returns matches in insertion order, like the gorm store's created_at ordering.
func (s *DonorStore) ListVisible(_ context.Context, box geo.Box) ([]models.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Donor{}
	for _, id := range s.order {
		d := s.donors[id]
		if !d.IsAvailable || !d.VisibilityPublic || !d.HasLocation() {
			continue
		}
		if !box.Contains(d.GeoPoint()) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *DonorStore) GetByIDs(_ context.Context, ids []string) ([]models.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Donor{}
	for _, id := range ids {
		if d, ok := s.donors[id]; ok {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
