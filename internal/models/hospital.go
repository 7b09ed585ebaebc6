package models

import (
	"time"

	"bloodlink-backend/pkg/geo"
)

// Hospital represents a verified institution, created only from an approved application
type Hospital struct {
	ID                 string            `gorm:"primaryKey;size:36" json:"id"`
	ApplicationID      string            `gorm:"size:36;uniqueIndex" json:"application_id"`
	Name               string            `gorm:"size:255;not null" json:"name"`
	Type               HospitalType      `gorm:"size:20" json:"type"`
	Phone              string            `gorm:"size:30" json:"phone"`
	ContactEmail       string            `gorm:"size:255" json:"contact_email,omitempty"`
	EmergencyNumber    string            `gorm:"size:30" json:"emergency_number"`
	Address            string            `gorm:"type:text" json:"address,omitempty"`
	City               string            `gorm:"size:100;index" json:"city,omitempty"`
	State              string            `gorm:"size:100" json:"state,omitempty"`
	Zip                string            `gorm:"size:20" json:"zip,omitempty"`
	Latitude           *float64          `json:"latitude,omitempty"`
	Longitude          *float64          `json:"longitude,omitempty"`
	VerificationStatus ApplicationStatus `gorm:"size:20;not null" json:"verification_status"`
	VerifiedAt         *time.Time        `json:"verified_at,omitempty"`
	VerifiedBy         *string           `gorm:"size:36" json:"verified_by,omitempty"`
	LicenseDocumentURL string            `gorm:"type:text" json:"license_document_url,omitempty"`
	ProofDocumentURL   string            `gorm:"type:text" json:"proof_document_url,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
	IsActive           bool              `gorm:"default:true" json:"is_active"`
}

// TableName specifies the table name for Hospital model
func (Hospital) TableName() string {
	return "hospitals"
}

// Location returns the hospital's coordinates if set.
func (h *Hospital) Location() (geo.Point, bool) {
	if h.Latitude == nil || h.Longitude == nil {
		return geo.Point{}, false
	}
	return geo.Point{Latitude: *h.Latitude, Longitude: *h.Longitude}, true
}
