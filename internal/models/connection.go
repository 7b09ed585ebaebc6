package models

import (
	"time"

	"bloodlink-backend/internal/apperror"
)

type ConnectionStatus string

const (
	ConnectionPending  ConnectionStatus = "pending"
	ConnectionAccepted ConnectionStatus = "accepted"
	ConnectionRejected ConnectionStatus = "rejected"
)

// NextConnectionStatus is the single source of legal connection transitions:
// pending -> accepted | rejected, both terminal.
func NextConnectionStatus(c *DonationConnection, accept bool) (ConnectionStatus, error) {
	action := "reject"
	if accept {
		action = "accept"
	}
	if c.Status != ConnectionPending {
		return "", apperror.InvalidTransition("connection", c.ID, string(c.Status), action)
	}
	if accept {
		return ConnectionAccepted, nil
	}
	return ConnectionRejected, nil
}

// DonationConnection represents the donation_connections table
// A donor's proposed pairing with a blood request, resolved once by hospital staff
type DonationConnection struct {
	ID                string           `gorm:"primaryKey;size:36" json:"id"`
	DonorID           string           `gorm:"size:36;not null;index" json:"donor_id"`
	BloodRequestID    string           `gorm:"size:36;not null;index" json:"blood_request_id"`
	HospitalID        string           `gorm:"size:36;not null;index" json:"hospital_id"`
	Status            ConnectionStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	VerifiedByStaffID *string          `gorm:"size:36" json:"verified_by_staff_id,omitempty"`
	VerifiedAt        *time.Time       `json:"verified_at,omitempty"`
	HospitalNotes     string           `gorm:"type:text" json:"hospital_notes,omitempty"`
	CreatedAt         time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// TableName specifies the table name for DonationConnection model
func (DonationConnection) TableName() string {
	return "donation_connections"
}

// Resolution is the column set written when staff resolve a connection.
type Resolution struct {
	Status  ConnectionStatus
	StaffID string
	Notes   string
	At      time.Time
}

func (r Resolution) Apply(c *DonationConnection) {
	staff := r.StaffID
	at := r.At
	c.Status = r.Status
	c.VerifiedByStaffID = &staff
	c.VerifiedAt = &at
	c.HospitalNotes = r.Notes
	c.UpdatedAt = r.At
}

func (r Resolution) Columns() map[string]interface{} {
	return map[string]interface{}{
		"status":               r.Status,
		"verified_by_staff_id": r.StaffID,
		"verified_at":          r.At,
		"hospital_notes":       r.Notes,
		"updated_at":           r.At,
	}
}

// ConnectionView is a connection joined with donor and request summaries.
type ConnectionView struct {
	DonationConnection
	Donor   *DonorSummary   `json:"donor,omitempty"`
	Request *RequestSummary `json:"request,omitempty"`
}
