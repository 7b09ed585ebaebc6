package models

import "time"

// AuditEntry represents the application_audit_log table
// Append-only record of every review action on an application
type AuditEntry struct {
	ID              string            `gorm:"primaryKey;size:36" json:"id"`
	ApplicationID   string            `gorm:"size:36;not null;index" json:"application_id"`
	ActorID         *string           `gorm:"size:36" json:"actor_id"` // nil means the system
	Action          AuditAction       `gorm:"size:30;not null" json:"action"`
	Notes           string            `gorm:"type:text" json:"notes"`
	ResultingStatus ApplicationStatus `gorm:"size:20;not null" json:"resulting_status"`
	CreatedAt       time.Time         `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for AuditEntry model
func (AuditEntry) TableName() string {
	return "application_audit_log"
}
