package service

import (
	"context"
	"errors"

	"bloodlink-backend/internal/apperror"
	"bloodlink-backend/internal/metrics"
	"bloodlink-backend/internal/models"
	"bloodlink-backend/internal/notify"
	"bloodlink-backend/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	StepHospital = "create_hospital"
	StepAccount  = "create_account"
	StepLink     = "link_application"
)

const (
	noticeComplete = "Hospital approved and staff account created."
	noticeNoLogin  = "Hospital approved but account creation failed; an administrator must create the staff account manually."
	noticeSpent    = "Hospital approved but account creation failed after the one-time password was used; an administrator must create the staff account manually and issue a new password."
)

// StepOutcome reports one provisioning sub-step.
type StepOutcome struct {
	Step    string `json:"step"`
	OK      bool   `json:"ok"`
	Skipped bool   `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`

	// CredentialConsumed marks a failed account step that still used up the
	// one-time password; retries will report CredentialMissing.
	CredentialConsumed bool `json:"credential_consumed,omitempty"`
}

// ProvisionResult is returned whenever a hospital exists after the run.
// Partial is set when a later step failed; Warning carries that failure
// (CredentialMissing when no one-time password was stored).
type ProvisionResult struct {
	ApplicationID string        `json:"application_id"`
	HospitalID    string        `json:"hospital_id"`
	UserID        *string       `json:"user_id"`
	Notice        string        `json:"notice"`
	Partial       bool          `json:"partial"`
	Steps         []StepOutcome `json:"steps"`
	Warning       error         `json:"-"`

	credentialSpent bool
}

func (r *ProvisionResult) record(step string, err error) {
	out := StepOutcome{Step: step, OK: err == nil}
	if err != nil {
		out.Error = err.Error()
		r.Partial = true
		if r.Warning == nil {
			r.Warning = err
		}
	}
	r.Steps = append(r.Steps, out)
}

func (r *ProvisionResult) skip(step string) {
	r.Steps = append(r.Steps, StepOutcome{Step: step, OK: true, Skipped: true})
}

// ProvisioningService turns an approved application into a hospital and a staff login.
type ProvisioningService struct {
	apps      repository.ApplicationStore
	hospitals repository.HospitalStore
	accounts  AccountProvisioner
	notifier  notify.Notifier
	metrics   *metrics.Metrics
	log       *zap.Logger
	now       Clock
}

func NewProvisioningService(
	apps repository.ApplicationStore,
	hospitals repository.HospitalStore,
	accounts AccountProvisioner,
	notifier notify.Notifier,
	m *metrics.Metrics,
	log *zap.Logger,
) *ProvisioningService {
	return &ProvisioningService{
		apps:      apps,
		hospitals: hospitals,
		accounts:  accounts,
		notifier:  notifier,
		metrics:   m,
		log:       log.Named("provisioning"),
		now:       utcNow,
	}
}

// ProvisionFromApproved creates the hospital first, then the staff account, then
// links both to the application. Only a failure to create the hospital aborts the
// run; later failures leave a partial result. Retrying reuses an already linked
// hospital and skips the account once one is linked.
func (s *ProvisioningService) ProvisionFromApproved(ctx context.Context, applicationID, adminID string) (*ProvisionResult, error) {
	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != models.ApplicationApproved {
		return nil, apperror.PreconditionFailed("application " + app.ID + " must be approved before provisioning (current status: " + string(app.Status) + ")")
	}

	log := s.log.With(zap.String("applicationId", app.ID), zap.String("actorId", adminID))
	result := &ProvisionResult{ApplicationID: app.ID}

	hospital, created, err := s.ensureHospital(ctx, app, adminID)
	if err != nil {
		log.Error("hospital creation failed", zap.Error(err))
		s.metrics.IncProvisioning("failed")
		return nil, err
	}
	result.HospitalID = hospital.ID
	if created {
		result.record(StepHospital, nil)
	} else {
		result.skip(StepHospital)
	}

	if app.UserID != nil {
		result.UserID = app.UserID
		result.skip(StepAccount)
	} else {
		userID, consumed, err := s.createAccount(ctx, app, hospital.ID)
		if err != nil {
			log.Warn("staff account not created", zap.Error(err), zap.Bool("credentialConsumed", consumed))
		} else {
			result.UserID = &userID
		}
		result.record(StepAccount, err)
		if err != nil && consumed {
			result.Steps[len(result.Steps)-1].CredentialConsumed = true
			result.credentialSpent = true
		}
	}

	if err := s.apps.LinkProvisioned(ctx, app.ID, hospital.ID, result.UserID); err != nil {
		log.Error("linking application failed", zap.Error(err))
		result.record(StepLink, err)
	} else {
		result.record(StepLink, nil)
	}

	switch {
	case result.UserID != nil:
		result.Notice = noticeComplete
	case result.credentialSpent:
		result.Notice = noticeSpent
	default:
		result.Notice = noticeNoLogin
	}

	outcome := "complete"
	if result.Partial {
		outcome = "partial"
	}
	s.metrics.IncProvisioning(outcome)
	log.Info("application provisioned",
		zap.String("hospitalId", hospital.ID),
		zap.Bool("partial", result.Partial))

	data := applicationData(app)
	data["notice"] = result.Notice
	notifyQuietly(ctx, s.notifier, log, app.RepEmail, notify.ApplicationApproved, data)
	return result, nil
}

func (s *ProvisioningService) ensureHospital(ctx context.Context, app *models.Application, adminID string) (*models.Hospital, bool, error) {
	existing, err := s.hospitals.GetByApplicationID(ctx, app.ID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, false, err
	}

	verifiedBy := app.VerifiedBy
	if verifiedBy == nil && adminID != "" {
		verifiedBy = &adminID
	}
	verifiedAt := app.VerifiedAt
	if verifiedAt == nil {
		now := s.now()
		verifiedAt = &now
	}

	hospital := &models.Hospital{
		ID:                 uuid.NewString(),
		ApplicationID:      app.ID,
		Name:               app.HospitalName,
		Type:               app.HospitalType,
		Phone:              app.OfficialPhone,
		ContactEmail:       app.RepEmail,
		EmergencyNumber:    app.EmergencyNumber,
		Address:            app.Address,
		City:               app.City,
		State:              app.State,
		Zip:                app.Zip,
		VerificationStatus: models.ApplicationApproved,
		VerifiedAt:         verifiedAt,
		VerifiedBy:         verifiedBy,
		IsActive:           true,
	}
	if doc, ok := app.Document(models.DocumentLicense); ok {
		hospital.LicenseDocumentURL = doc.URL
	}
	if doc, ok := app.Document(models.DocumentProof); ok {
		hospital.ProofDocumentURL = doc.URL
	}

	if err := s.hospitals.Create(ctx, hospital); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, false, err
		}
		// a concurrent run created it first
		existing, err := s.hospitals.GetByApplicationID(ctx, app.ID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	return hospital, true, nil
}

// createAccount consumes the one-time password hash before using it, so the
// credential cannot be reused by a concurrent or retried run. consumed reports
// whether a stored hash was used up, including when account creation then fails.
func (s *ProvisioningService) createAccount(ctx context.Context, app *models.Application, hospitalID string) (userID string, consumed bool, err error) {
	hash, err := s.apps.ConsumeTempPassword(ctx, app.ID)
	if err != nil {
		return "", false, err
	}
	if hash == "" {
		return "", false, apperror.CredentialMissing(app.ID)
	}
	userID, err = s.accounts.CreateAccount(ctx, AccountRequest{
		Email:        app.RepEmail,
		PasswordHash: hash,
		FirstName:    app.RepFirstName,
		LastName:     app.RepLastName,
		Phone:        app.RepPhone,
		HospitalID:   hospitalID,
	})
	return userID, true, err
}
