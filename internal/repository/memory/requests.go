package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"bloodlink-backend/internal/apperror"
	"bloodlink-backend/internal/models"
	"bloodlink-backend/internal/repository"
	"bloodlink-backend/pkg/geo"
)

type BloodRequestStore struct {
	mu   sync.RWMutex
	reqs map[string]models.BloodRequest
}

func NewBloodRequestStore() *BloodRequestStore {
	return &BloodRequestStore{reqs: make(map[string]models.BloodRequest)}
}

var _ repository.BloodRequestStore = (*BloodRequestStore)(nil)

func (s *BloodRequestStore) Create(_ context.Context, req *models.BloodRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs[req.ID] = *req
	return nil
}

func (s *BloodRequestStore) GetByID(_ context.Context, id string) (*models.BloodRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reqs[id]
	if !ok {
		return nil, apperror.NotFound("blood request", id)
	}
	return &r, nil
}

func (s *BloodRequestStore) ListActive(_ context.Context, box geo.Box) ([]models.BloodRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.BloodRequest{}
	for _, r := range s.reqs {
		if r.Status != models.RequestActive || !r.HasLocation() || !box.Contains(r.GeoPoint()) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *BloodRequestStore) GetByIDs(_ context.Context, ids []string) ([]models.BloodRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.BloodRequest{}
	for _, id := range ids {
		if r, ok := s.reqs[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *BloodRequestStore) UpdateStatus(_ context.Context, id string, expected, next models.RequestStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reqs[id]
	if !ok {
		return apperror.NotFound("blood request", id)
	}
	if r.Status != expected {
		return repository.ErrStaleStatus
	}
	r.Status = next
	s.reqs[id] = r
	return nil
}

func (s *BloodRequestStore) ListExpired(_ context.Context, now time.Time) ([]models.BloodRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.BloodRequest{}
	for _, r := range s.reqs {
		if r.Status == models.RequestActive && r.NeededBy != nil && r.NeededBy.Before(now) {
			out = append(out, r)
		}
	}
	return out, nil
}
