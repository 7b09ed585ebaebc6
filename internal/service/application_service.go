package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"bloodlink-backend/internal/apperror"
	"bloodlink-backend/internal/metrics"
	"bloodlink-backend/internal/models"
	"bloodlink-backend/internal/notify"
	"bloodlink-backend/internal/repository"
	"bloodlink-backend/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Registration is the public hospital registration form.
type Registration struct {
	RepFirstName string
	RepLastName  string
	RepRole      string
	RepPhone     string
	RepEmail     string

	HospitalName    string
	HospitalType    models.HospitalType
	OfficialPhone   string
	EmergencyNumber string
	Address         string
	City            string
	State           string
	Zip             string

	Password  string
	Documents []models.Document
}

// validate checks mandatory fields in a fixed order so the first missing one is reported.
func (r *Registration) validate() error {
	required := []struct {
		field string
		value string
	}{
		{"rep_first_name", r.RepFirstName},
		{"hospital_name", r.HospitalName},
		{"city", r.City},
		{"rep_email", r.RepEmail},
		{"password", r.Password},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return apperror.MissingField(f.field)
		}
	}

	license := models.Application{Documents: r.Documents}
	if !license.HasLicenseDocument() {
		return apperror.Validation("documents.license", "a license document URL is required")
	}

	if _, err := mail.ParseAddress(r.RepEmail); err != nil {
		return apperror.Validation("rep_email", "email address is not valid")
	}
	if !utils.PasswordStrongEnough(r.Password) {
		return apperror.Validation("password", "password needs at least 8 characters including a letter and a digit")
	}
	if r.HospitalType != "" && !r.HospitalType.Valid() {
		return apperror.Validation("hospital_type", "hospital type must be one of government, private, blood-bank, ngo")
	}
	for _, d := range r.Documents {
		if d.Kind != models.DocumentLicense && d.Kind != models.DocumentProof {
			return apperror.Validation("documents.kind", "document kind must be license or proof")
		}
	}
	return nil
}

// ApplicationService owns the hospital application lifecycle and its audit trail.
type ApplicationService struct {
	apps       repository.ApplicationStore
	notifier   notify.Notifier
	metrics    *metrics.Metrics
	adminEmail string
	log        *zap.Logger
	now        Clock
}

func NewApplicationService(apps repository.ApplicationStore, notifier notify.Notifier, m *metrics.Metrics, adminEmail string, log *zap.Logger) *ApplicationService {
	return &ApplicationService{
		apps:       apps,
		notifier:   notifier,
		metrics:    m,
		adminEmail: adminEmail,
		log:        log.Named("applications"),
		now:        utcNow,
	}
}

// Submit stores a new pending application and its submitted audit entry.
func (s *ApplicationService) Submit(ctx context.Context, reg Registration) (string, error) {
	if err := reg.validate(); err != nil {
		return "", err
	}

	hash, err := utils.HashPassword(reg.Password)
	if err != nil {
		return "", err
	}

	now := s.now()
	app := &models.Application{
		ID:               uuid.NewString(),
		RepFirstName:     strings.TrimSpace(reg.RepFirstName),
		RepLastName:      strings.TrimSpace(reg.RepLastName),
		RepRole:          reg.RepRole,
		RepPhone:         reg.RepPhone,
		RepEmail:         strings.ToLower(strings.TrimSpace(reg.RepEmail)),
		HospitalName:     strings.TrimSpace(reg.HospitalName),
		HospitalType:     reg.HospitalType,
		OfficialPhone:    reg.OfficialPhone,
		EmergencyNumber:  reg.EmergencyNumber,
		Address:          reg.Address,
		City:             strings.TrimSpace(reg.City),
		State:            reg.State,
		Zip:              reg.Zip,
		Documents:        reg.Documents,
		TempPasswordHash: &hash,
		Status:           models.ApplicationPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	entry := &models.AuditEntry{
		ID:              uuid.NewString(),
		ApplicationID:   app.ID,
		Action:          models.AuditSubmitted,
		ResultingStatus: models.ApplicationPending,
		CreatedAt:       now,
	}

	if err := s.apps.Create(ctx, app, entry); err != nil {
		return "", err
	}
	s.metrics.IncSubmitted()
	s.log.Info("application submitted",
		zap.String("applicationId", app.ID),
		zap.String("city", app.City))

	data := applicationData(app)
	notifyQuietly(ctx, s.notifier, s.log, app.RepEmail, notify.ApplicationReceived, data)
	notifyQuietly(ctx, s.notifier, s.log, s.adminEmail, notify.ApplicationReceived, data)
	return app.ID, nil
}

func (s *ApplicationService) Get(ctx context.Context, id string) (*models.Application, error) {
	return s.apps.GetByID(ctx, id)
}

// ListByStatus lists applications in status, newest first, optionally filtered by search.
func (s *ApplicationService) ListByStatus(ctx context.Context, status models.ApplicationStatus, search string) ([]models.Application, error) {
	if !status.Valid() {
		return nil, apperror.Validation("status", "status must be one of pending, approved, rejected, info_requested")
	}
	return s.apps.ListByStatus(ctx, status, strings.TrimSpace(search))
}

// SetStatus applies an admin review action. The write is conditional on the
// status read here, so of two concurrent reviews only one can succeed.
func (s *ApplicationService) SetStatus(ctx context.Context, id string, action models.ReviewAction, actorID, notes string) (*models.Application, error) {
	if actorID == "" {
		return nil, apperror.MissingField("actor_id")
	}
	notes = strings.TrimSpace(notes)
	if action == models.ActionReject && notes == "" {
		return nil, apperror.Validation("notes", "a rejection reason is required")
	}

	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	tr, err := models.ApplyReview(app, action)
	if err != nil {
		return nil, err
	}

	now := s.now()
	actor := actorID
	change := models.StatusChange{Transition: tr, ActorID: &actor, Notes: notes, At: now}
	entry := &models.AuditEntry{
		ID:              uuid.NewString(),
		ApplicationID:   app.ID,
		ActorID:         &actor,
		Action:          tr.Audit,
		Notes:           notes,
		ResultingStatus: tr.ResultingStatus,
		CreatedAt:       now,
	}

	err = s.apps.UpdateStatus(ctx, app.ID, tr.From, change, entry)
	if errors.Is(err, repository.ErrStaleStatus) {
		current, gerr := s.apps.GetByID(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		return nil, apperror.InvalidTransition("application", id, string(current.Status), string(action))
	}
	if err != nil {
		return nil, err
	}

	change.Apply(app)
	s.metrics.IncTransition(string(action))
	s.log.Info("application reviewed",
		zap.String("applicationId", app.ID),
		zap.String("actorId", actorID),
		zap.String("action", string(action)),
		zap.String("status", string(app.Status)))

	data := applicationData(app)
	switch tr.Audit {
	case models.AuditRejected:
		data["reason"] = notes
		notifyQuietly(ctx, s.notifier, s.log, app.RepEmail, notify.ApplicationRejected, data)
	case models.AuditInfoRequested:
		data["notes"] = notes
		notifyQuietly(ctx, s.notifier, s.log, app.RepEmail, notify.ApplicationInfoRequested, data)
	}
	return app, nil
}

// AuditTrail returns audit entries newest first; all entries when applicationID is empty.
func (s *ApplicationService) AuditTrail(ctx context.Context, applicationID string) ([]models.AuditEntry, error) {
	return s.apps.ListAudit(ctx, applicationID)
}

func applicationData(app *models.Application) map[string]string {
	return map[string]string{
		"applicationId": app.ID,
		"hospitalName":  app.HospitalName,
		"repFirstName":  app.RepFirstName,
		"city":          app.City,
	}
}
