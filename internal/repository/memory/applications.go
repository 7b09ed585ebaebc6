// Package memory provides in-memory implementations of the repository interfaces.
// They back unit tests and local runs without MySQL and honor the same
// conditional-update semantics as the gorm repositories.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"bloodlink-backend/internal/apperror"
	"bloodlink-backend/internal/models"
	"bloodlink-backend/internal/repository"
)

type ApplicationStore struct {
	mu    sync.RWMutex
	apps  map[string]models.Application
	audit []models.AuditEntry
}

func NewApplicationStore() *ApplicationStore {
	return &ApplicationStore{apps: make(map[string]models.Application)}
}

var _ repository.ApplicationStore = (*ApplicationStore)(nil)

func (s *ApplicationStore) Create(_ context.Context, app *models.Application, entry *models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apps[app.ID] = cloneApplication(*app)
	s.audit = append(s.audit, *entry)
	return nil
}

func (s *ApplicationStore) GetByID(_ context.Context, id string) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[id]
	if !ok {
		return nil, apperror.NotFound("application", id)
	}
	out := cloneApplication(app)
	return &out, nil
}

func (s *ApplicationStore) ListByStatus(_ context.Context, status models.ApplicationStatus, search string) ([]models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	term := strings.ToLower(strings.TrimSpace(search))
	out := []models.Application{}
	for _, app := range s.apps {
		if app.Status != status {
			continue
		}
		if term != "" && !matchesSearch(app, term) {
			continue
		}
		out = append(out, cloneApplication(app))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func matchesSearch(app models.Application, term string) bool {
	for _, field := range []string{app.HospitalName, app.City, app.OfficialPhone, app.RepPhone} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func (s *ApplicationStore) UpdateStatus(_ context.Context, id string, expected models.ApplicationStatus, change models.StatusChange, entry *models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok || app.Status != expected {
		return repository.ErrStaleStatus
	}
	change.Apply(&app)
	s.apps[id] = app
	s.audit = append(s.audit, *entry)
	return nil
}

func (s *ApplicationStore) ConsumeTempPassword(_ context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok {
		return "", apperror.NotFound("application", id)
	}
	if app.TempPasswordHash == nil {
		return "", nil
	}
	hash := *app.TempPasswordHash
	app.TempPasswordHash = nil
	s.apps[id] = app
	return hash, nil
}

func (s *ApplicationStore) LinkProvisioned(_ context.Context, id, hospitalID string, userID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok {
		return apperror.NotFound("application", id)
	}
	hid := hospitalID
	app.HospitalID = &hid
	if userID != nil {
		uid := *userID
		app.UserID = &uid
	}
	s.apps[id] = app
	return nil
}

func (s *ApplicationStore) ListAudit(_ context.Context, applicationID string) ([]models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.AuditEntry{}
	// iterate backwards so equal timestamps still come out newest first
	for i := len(s.audit) - 1; i >= 0; i-- {
		e := s.audit[i]
		if applicationID == "" || e.ApplicationID == applicationID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func cloneApplication(app models.Application) models.Application {
	if app.Documents != nil {
		docs := make([]models.Document, len(app.Documents))
		copy(docs, app.Documents)
		app.Documents = docs
	}
	return app
}
