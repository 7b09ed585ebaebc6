package models

import "time"

// UserHospital links hospital staff accounts to the hospital they work for
type UserHospital struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	UserID     string    `gorm:"size:36;not null;index" json:"user_id"`
	HospitalID string    `gorm:"size:36;not null;index" json:"hospital_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for UserHospital model
func (UserHospital) TableName() string {
	return "user_hospitals"
}
