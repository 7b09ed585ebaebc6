package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"bloodlink-backend/internal/apperror"
	"bloodlink-backend/internal/models"
	"bloodlink-backend/internal/repository"
	"bloodlink-backend/pkg/geo"
)

type HospitalStore struct {
	mu        sync.RWMutex
	hospitals map[string]models.Hospital
}

func NewHospitalStore() *HospitalStore {
	return &HospitalStore{hospitals: make(map[string]models.Hospital)}
}

var _ repository.HospitalStore = (*HospitalStore)(nil)

func (s *HospitalStore) Create(_ context.Context, hospital *models.Hospital) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.hospitals[hospital.ID]; exists {
		return fmt.Errorf("hospital %s: %w", hospital.ID, repository.ErrDuplicate)
	}
	if hospital.ApplicationID != "" {
		for _, h := range s.hospitals {
			if h.ApplicationID == hospital.ApplicationID {
				return fmt.Errorf("hospital for application %s: %w", hospital.ApplicationID, repository.ErrDuplicate)
			}
		}
	}
	s.hospitals[hospital.ID] = *hospital
	return nil
}

func (s *HospitalStore) GetByID(_ context.Context, id string) (*models.Hospital, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hospitals[id]
	if !ok || !h.IsActive {
		return nil, apperror.NotFound("hospital", id)
	}
	return &h, nil
}

func (s *HospitalStore) GetByApplicationID(_ context.Context, applicationID string) (*models.Hospital, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, h := range s.hospitals {
		if h.ApplicationID == applicationID {
			return &h, nil
		}
	}
	return nil, apperror.NotFound("hospital", applicationID)
}

func (s *HospitalStore) List(_ context.Context) ([]models.Hospital, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Hospital{}
	for _, h := range s.hospitals {
		if h.IsActive {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *HospitalStore) ListByIDs(ctx context.Context, ids []string) ([]models.Hospital, error) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	all, _ := s.List(ctx)
	out := []models.Hospital{}
	for _, h := range all {
		if _, ok := want[h.ID]; ok {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *HospitalStore) UpdateLocation(_ context.Context, id string, point geo.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hospitals[id]
	if !ok || !h.IsActive {
		return apperror.NotFound("hospital", id)
	}
	lat, lng := point.Latitude, point.Longitude
	h.Latitude, h.Longitude = &lat, &lng
	s.hospitals[id] = h
	return nil
}
