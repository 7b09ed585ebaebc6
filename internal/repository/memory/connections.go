package memory

import (
	"context"
	"sort"
	"sync"

	"bloodlink-backend/internal/apperror"
	"bloodlink-backend/internal/models"
	"bloodlink-backend/internal/repository"
)

type ConnectionStore struct {
	mu    sync.Mutex
	conns map[string]models.DonationConnection
}

func NewConnectionStore() *ConnectionStore {
	return &ConnectionStore{conns: make(map[string]models.DonationConnection)}
}

var _ repository.ConnectionStore = (*ConnectionStore)(nil)

func (s *ConnectionStore) Create(_ context.Context, conn *models.DonationConnection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn.ID] = *conn
	return nil
}

func (s *ConnectionStore) GetByID(_ context.Context, id string) (*models.DonationConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conns[id]
	if !ok {
		return nil, apperror.NotFound("connection", id)
	}
	return &c, nil
}

func (s *ConnectionStore) FindPending(_ context.Context, donorID, requestID string) (*models.DonationConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		if c.DonorID == donorID && c.BloodRequestID == requestID && c.Status == models.ConnectionPending {
			return &c, nil
		}
	}
	return nil, nil
}

func (s *ConnectionStore) ListByHospital(_ context.Context, hospitalID string, status models.ConnectionStatus) ([]models.DonationConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.DonationConnection{}
	for _, c := range s.conns {
		if c.HospitalID == hospitalID && c.Status == status {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Resolve is a compare-and-swap on pending status.
func (s *ConnectionStore) Resolve(_ context.Context, id string, res models.Resolution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conns[id]
	if !ok || c.Status != models.ConnectionPending {
		return repository.ErrStaleStatus
	}
	res.Apply(&c)
	s.conns[id] = c
	return nil
}
