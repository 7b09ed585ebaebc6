package memory

import (
	"context"
	"sync"

	"bloodlink-backend/internal/apperror"
	"bloodlink-backend/internal/models"
	"bloodlink-backend/internal/repository"
)

type UserStore struct {
	mu      sync.RWMutex
	users   map[string]models.User
	byEmail map[string]string
	tokens  map[string]models.RefreshToken
}

func NewUserStore() *UserStore {
	return &UserStore{
		users:   make(map[string]models.User),
		byEmail: make(map[string]string),
		tokens:  make(map[string]models.RefreshToken),
	}
}

var _ repository.UserStore = (*UserStore)(nil)

func (s *UserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[user.Email]; exists {
		return apperror.Validation("email", "an account with this email already exists")
	}
	s.users[user.ID] = *user
	s.byEmail[user.Email] = user.ID
	return nil
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, apperror.NotFound("user", email)
	}
	u := s.users[id]
	return &u, nil
}

func (s *UserStore) FindByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return &u, nil
}

func (s *UserStore) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.TokenHash] = *token
	return nil
}

func (s *UserStore) FindRefreshTokenByHash(_ context.Context, hash string) (*models.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[hash]
	if !ok || t.Revoked {
		return nil, apperror.NotFound("refresh token", "")
	}
	t.User = s.users[t.UserID]
	return &t, nil
}

func (s *UserStore) RevokeRefreshTokenByHash(_ context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[hash]; ok {
		t.Revoked = true
		s.tokens[hash] = t
	}
	return nil
}

type UserHospitalStore struct {
	mu    sync.RWMutex
	links map[string]map[string]struct{}
}

func NewUserHospitalStore() *UserHospitalStore {
	return &UserHospitalStore{links: make(map[string]map[string]struct{})}
}

var _ repository.UserHospitalStore = (*UserHospitalStore)(nil)

func (s *UserHospitalStore) Assign(_ context.Context, userID, hospitalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.links[userID] == nil {
		s.links[userID] = make(map[string]struct{})
	}
	s.links[userID][hospitalID] = struct{}{}
	return nil
}

func (s *UserHospitalStore) HospitalsForUser(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []string{}
	for id := range s.links[userID] {
		out = append(out, id)
	}
	return out, nil
}

func (s *UserHospitalStore) HasAccess(_ context.Context, userID, hospitalID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.links[userID][hospitalID]
	return ok, nil
}
