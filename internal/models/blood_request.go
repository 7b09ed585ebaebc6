package models

import (
	"time"

	"bloodlink-backend/pkg/geo"
)

// Urgency of a blood request. The ordering emergency > urgent > routine is for display only.
type Urgency string

const (
	UrgencyRoutine   Urgency = "routine"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyEmergency Urgency = "emergency"
)

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyRoutine, UrgencyUrgent, UrgencyEmergency:
		return true
	}
	return false
}

// Rank orders urgencies for display; higher is more urgent.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyEmergency:
		return 3
	case UrgencyUrgent:
		return 2
	case UrgencyRoutine:
		return 1
	}
	return 0
}

type RequestStatus string

const (
	RequestActive    RequestStatus = "active"
	RequestFulfilled RequestStatus = "fulfilled"
	RequestCancelled RequestStatus = "cancelled"
	RequestExpired   RequestStatus = "expired"
)

// BloodRequest represents the blood_requests table
type BloodRequest struct {
	ID          string        `gorm:"primaryKey;size:36" json:"id"`
	HospitalID  string        `gorm:"size:36;not null;index" json:"hospital_id"`
	BloodType   string        `gorm:"size:3;index" json:"blood_type"`
	UnitsNeeded int           `gorm:"default:1" json:"units_needed"`
	Urgency     Urgency       `gorm:"size:20;default:'routine'" json:"urgency"`
	Status      RequestStatus `gorm:"size:20;default:'active';index" json:"status"`
	City        string        `gorm:"size:100" json:"city"`
	Latitude    *float64      `json:"latitude,omitempty"`
	Longitude   *float64      `json:"longitude,omitempty"`
	Notes       string        `gorm:"type:text" json:"notes,omitempty"`
	NeededBy    *time.Time    `json:"needed_by,omitempty"`
	CreatedBy   string        `gorm:"size:36" json:"created_by"`
	CreatedAt   time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	Hospital *Hospital `gorm:"foreignKey:HospitalID" json:"hospital,omitempty"`
}

// TableName specifies the table name for BloodRequest model
func (BloodRequest) TableName() string {
	return "blood_requests"
}

func (r BloodRequest) GeoPoint() geo.Point {
	if r.Latitude == nil || r.Longitude == nil {
		return geo.Point{}
	}
	return geo.Point{Latitude: *r.Latitude, Longitude: *r.Longitude}
}

func (r BloodRequest) HasLocation() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// RequestSummary is the projection joined onto connection listings.
type RequestSummary struct {
	ID          string    `json:"id"`
	BloodType   string    `json:"blood_type"`
	UnitsNeeded int       `json:"units_needed"`
	Urgency     Urgency   `json:"urgency"`
	City        string    `json:"city"`
	CreatedAt   time.Time `json:"created_at"`
}

func (r BloodRequest) Summary() RequestSummary {
	return RequestSummary{
		ID:          r.ID,
		BloodType:   r.BloodType,
		UnitsNeeded: r.UnitsNeeded,
		Urgency:     r.Urgency,
		City:        r.City,
		CreatedAt:   r.CreatedAt,
	}
}
