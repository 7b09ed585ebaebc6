package models

import (
	"time"

	"bloodlink-backend/internal/apperror"
)

// ApplicationStatus is the review state of a hospital application.
type ApplicationStatus string

const (
	ApplicationPending       ApplicationStatus = "pending"
	ApplicationApproved      ApplicationStatus = "approved"
	ApplicationRejected      ApplicationStatus = "rejected"
	ApplicationInfoRequested ApplicationStatus = "info_requested"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationPending, ApplicationApproved, ApplicationRejected, ApplicationInfoRequested:
		return true
	}
	return false
}

// ReviewAction is an admin decision on an application.
type ReviewAction string

const (
	ActionApprove     ReviewAction = "approve"
	ActionReject      ReviewAction = "reject"
	ActionRequestInfo ReviewAction = "request_info"
)

// AuditAction is the verb recorded in the application audit log.
type AuditAction string

const (
	AuditSubmitted     AuditAction = "submitted"
	AuditApproved      AuditAction = "approved"
	AuditRejected      AuditAction = "rejected"
	AuditInfoRequested AuditAction = "info_requested"
)

// Transition is the outcome of applying a ReviewAction to an application.
type Transition struct {
	From            ApplicationStatus
	To              ApplicationStatus
	Audit           AuditAction
	ResultingStatus ApplicationStatus
}

// ApplyReview is the single source of legal application transitions.
// Approved is terminal. Requesting info leaves the visible status unchanged
// but is logged as info_requested.
func ApplyReview(app *Application, action ReviewAction) (Transition, error) {
	from := app.Status
	if from == ApplicationApproved {
		return Transition{}, apperror.InvalidTransition("application", app.ID, string(from), string(action))
	}

	switch action {
	case ActionApprove:
		if !app.HasLicenseDocument() {
			err := apperror.InvalidTransition("application", app.ID, string(from), string(action))
			err.Field = "documents.license"
			err.Message = "cannot approve application without a license document"
			return Transition{}, err
		}
		return Transition{From: from, To: ApplicationApproved, Audit: AuditApproved, ResultingStatus: ApplicationApproved}, nil
	case ActionReject:
		return Transition{From: from, To: ApplicationRejected, Audit: AuditRejected, ResultingStatus: ApplicationRejected}, nil
	case ActionRequestInfo:
		return Transition{From: from, To: from, Audit: AuditInfoRequested, ResultingStatus: ApplicationInfoRequested}, nil
	}
	return Transition{}, apperror.Validation("action", "unknown review action "+string(action))
}

// HospitalType classifies the applying institution.
type HospitalType string

const (
	HospitalGovernment HospitalType = "government"
	HospitalPrivate    HospitalType = "private"
	HospitalBloodBank  HospitalType = "blood-bank"
	HospitalNGO        HospitalType = "ngo"
)

func (t HospitalType) Valid() bool {
	switch t {
	case HospitalGovernment, HospitalPrivate, HospitalBloodBank, HospitalNGO:
		return true
	}
	return false
}

// DocumentKind distinguishes uploaded application documents.
type DocumentKind string

const (
	DocumentLicense DocumentKind = "license"
	DocumentProof   DocumentKind = "proof"
)

// Document references an uploaded file; bytes live in document storage.
type Document struct {
	Kind        DocumentKind `json:"kind"`
	FileName    string       `json:"file_name"`
	URL         string       `json:"url"`
	StoragePath string       `json:"storage_path"`
}

// Application represents the hospital_applications table
// A registration waiting for admin review; never deleted
type Application struct {
	ID string `gorm:"primaryKey;size:36" json:"id"`

	// Representative
	RepFirstName string `gorm:"size:100;not null" json:"rep_first_name"`
	RepLastName  string `gorm:"size:100" json:"rep_last_name"`
	RepRole      string `gorm:"size:100" json:"rep_role"`
	RepPhone     string `gorm:"size:30" json:"rep_phone"`
	RepEmail     string `gorm:"size:255;not null;index" json:"rep_email"`

	// Hospital
	HospitalName    string       `gorm:"size:255;not null" json:"hospital_name"`
	HospitalType    HospitalType `gorm:"size:20" json:"hospital_type"`
	OfficialPhone   string       `gorm:"size:30" json:"official_phone"`
	EmergencyNumber string       `gorm:"size:30" json:"emergency_number"`
	Address         string       `gorm:"type:text" json:"address"`
	City            string       `gorm:"size:100;not null;index" json:"city"`
	State           string       `gorm:"size:100" json:"state"`
	Zip             string       `gorm:"size:20" json:"zip"`

	Documents []Document `gorm:"serializer:json;type:json" json:"documents"`

	// Bcrypt hash of the password chosen at registration; cleared when provisioning consumes it
	TempPasswordHash *string `gorm:"size:255" json:"-"`

	Status          ApplicationStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	CreatedAt       time.Time         `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	VerifiedAt      *time.Time        `json:"verified_at,omitempty"`
	VerifiedBy      *string           `gorm:"size:36" json:"verified_by,omitempty"`
	RejectionDate   *time.Time        `json:"rejection_date,omitempty"`
	RejectionReason *string           `gorm:"type:text" json:"rejection_reason,omitempty"`

	HospitalID *string `gorm:"size:36;index" json:"hospital_id,omitempty"`
	UserID     *string `gorm:"size:36" json:"user_id,omitempty"`
}

// TableName specifies the table name for Application model
func (Application) TableName() string {
	return "hospital_applications"
}

// Document returns the first document of the given kind.
func (a *Application) Document(kind DocumentKind) (Document, bool) {
	for _, d := range a.Documents {
		if d.Kind == kind && d.URL != "" {
			return d, true
		}
	}
	return Document{}, false
}

func (a *Application) HasLicenseDocument() bool {
	_, ok := a.Document(DocumentLicense)
	return ok
}

// StatusChange is the column set written by a review transition.
type StatusChange struct {
	Transition Transition
	ActorID    *string
	Notes      string
	At         time.Time
}

// Apply mutates a copy of the application the same way the store's conditional update does.
func (c StatusChange) Apply(app *Application) {
	app.Status = c.Transition.To
	app.UpdatedAt = c.At
	switch c.Transition.Audit {
	case AuditApproved:
		at := c.At
		app.VerifiedAt = &at
		app.VerifiedBy = c.ActorID
		app.RejectionDate = nil
		app.RejectionReason = nil
	case AuditRejected:
		at := c.At
		notes := c.Notes
		app.RejectionDate = &at
		app.RejectionReason = &notes
	}
}

// Columns returns the gorm update map for this change.
func (c StatusChange) Columns() map[string]interface{} {
	cols := map[string]interface{}{
		"status":     c.Transition.To,
		"updated_at": c.At,
	}
	switch c.Transition.Audit {
	case AuditApproved:
		cols["verified_at"] = c.At
		cols["verified_by"] = c.ActorID
		cols["rejection_date"] = nil
		cols["rejection_reason"] = nil
	case AuditRejected:
		cols["rejection_date"] = c.At
		cols["rejection_reason"] = c.Notes
	}
	return cols
}
