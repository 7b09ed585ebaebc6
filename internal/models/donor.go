package models

import (
	"time"

	"bloodlink-backend/pkg/geo"
)

// BloodTypes lists the accepted ABO/Rh values.
var BloodTypes = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

func ValidBloodType(bt string) bool {
	for _, v := range BloodTypes {
		if v == bt {
			return true
		}
	}
	return false
}

// Donor represents the donors table
// Only public donors are visible to matching; contact details only when ShowContact is set
type Donor struct {
	ID               string     `gorm:"primaryKey;size:36" json:"id"`
	UserID           string     `gorm:"size:36;uniqueIndex" json:"user_id"`
	FirstName        string     `gorm:"size:100" json:"first_name"`
	LastName         string     `gorm:"size:100" json:"last_name"`
	BloodType        string     `gorm:"size:3;index" json:"blood_type"`
	City             string     `gorm:"size:100;index" json:"city"`
	Latitude         *float64   `gorm:"index:idx_donor_location" json:"latitude,omitempty"`
	Longitude        *float64   `gorm:"index:idx_donor_location" json:"longitude,omitempty"`
	// no default tags on the flags below: gorm would write the default in place of false
	IsAvailable      bool       `gorm:"not null" json:"is_available"`
	VisibilityPublic bool       `gorm:"not null" json:"visibility_public"`
	ShowContact      bool       `gorm:"not null" json:"show_contact"`
	Phone            string     `gorm:"size:30" json:"-"`
	Email            string     `gorm:"size:255" json:"-"`
	LastDonationAt   *time.Time `json:"last_donation_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Donor model
func (Donor) TableName() string {
	return "donors"
}

// GeoPoint implements geo.Locatable. Callers check HasLocation first.
func (d Donor) GeoPoint() geo.Point {
	if d.Latitude == nil || d.Longitude == nil {
		return geo.Point{}
	}
	return geo.Point{Latitude: *d.Latitude, Longitude: *d.Longitude}
}

func (d Donor) HasLocation() bool {
	return d.Latitude != nil && d.Longitude != nil
}

// DonorContact is only populated for donors who opted in.
type DonorContact struct {
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// DonorSummary is the public projection of a donor.
type DonorSummary struct {
	ID             string        `json:"id"`
	FirstName      string        `json:"first_name"`
	LastName       string        `json:"last_name"`
	BloodType      string        `json:"blood_type"`
	City           string        `json:"city"`
	LastDonationAt *time.Time    `json:"last_donation_at,omitempty"`
	Contact        *DonorContact `json:"contact"`
}

// Summary projects d, withholding contact details unless the donor opted in.
func (d Donor) Summary() DonorSummary {
	s := DonorSummary{
		ID:             d.ID,
		FirstName:      d.FirstName,
		LastName:       d.LastName,
		BloodType:      d.BloodType,
		City:           d.City,
		LastDonationAt: d.LastDonationAt,
	}
	if d.ShowContact {
		s.Contact = &DonorContact{Phone: d.Phone, Email: d.Email}
	}
	return s
}
