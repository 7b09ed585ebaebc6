package repository

import (
	"context"
	"errors"
	"strings"

	"bloodlink-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ApplicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepo(db *gorm.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

var _ ApplicationStore = (*ApplicationRepository)(nil)

// Create inserts the application together with its submitted audit entry
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application, entry *models.AuditEntry) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(app).Error; err != nil {
			return err
		}
		return tx.Create(entry).Error
	})
	return translate(err, "application", app.ID)
}

// GetByID retrieves an application by ID
func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*models.Application, error) {
	var app models.Application
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&app).Error
	if err != nil {
		return nil, translate(err, "application", id)
	}
	return &app, nil
}

// likeEscaper makes LIKE match the search term literally; MySQL escapes with a backslash by default
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListByStatus lists applications newest first, optionally matching search
// against hospital name, city or phone numbers
func (r *ApplicationRepository) ListByStatus(ctx context.Context, status models.ApplicationStatus, search string) ([]models.Application, error) {
	var apps []models.Application
	q := r.db.WithContext(ctx).Where("status = ?", status)
	if term := strings.TrimSpace(search); term != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
		q = q.Where(
			"LOWER(hospital_name) LIKE ? OR LOWER(city) LIKE ? OR LOWER(official_phone) LIKE ? OR LOWER(rep_phone) LIKE ?",
			like, like, like, like,
		)
	}
	err := q.Order("created_at DESC").Find(&apps).Error
	return apps, translate(err, "application", "")
}

// UpdateStatus performs a compare-and-swap on status and appends the audit entry
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id string, expected models.ApplicationStatus, change models.StatusChange, entry *models.AuditEntry) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Application{}).
			Where("id = ? AND status = ?", id, expected).
			Updates(change.Columns())
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStaleStatus
		}
		return tx.Create(entry).Error
	})
	if errors.Is(err, ErrStaleStatus) {
		return err
	}
	return translate(err, "application", id)
}

// ConsumeTempPassword reads and clears the one-time password hash under a row lock
func (r *ApplicationRepository) ConsumeTempPassword(ctx context.Context, id string) (string, error) {
	var hash string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var app models.Application
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "temp_password_hash").
			Where("id = ?", id).
			First(&app).Error; err != nil {
			return err
		}
		if app.TempPasswordHash == nil || *app.TempPasswordHash == "" {
			return nil
		}
		hash = *app.TempPasswordHash
		return tx.Model(&models.Application{}).
			Where("id = ?", id).
			Update("temp_password_hash", nil).Error
	})
	if err != nil {
		return "", translate(err, "application", id)
	}
	return hash, nil
}

// LinkProvisioned records the hospital and (optional) account created for the application
func (r *ApplicationRepository) LinkProvisioned(ctx context.Context, id, hospitalID string, userID *string) error {
	cols := map[string]interface{}{"hospital_id": hospitalID}
	if userID != nil {
		cols["user_id"] = *userID
	}
	err := r.db.WithContext(ctx).Model(&models.Application{}).
		Where("id = ?", id).
		Updates(cols).Error
	return translate(err, "application", id)
}

// ListAudit returns audit entries newest first, for one application or all when id is empty
func (r *ApplicationRepository) ListAudit(ctx context.Context, applicationID string) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	q := r.db.WithContext(ctx)
	if applicationID != "" {
		q = q.Where("application_id = ?", applicationID)
	}
	err := q.Order("created_at DESC").Find(&entries).Error
	return entries, translate(err, "audit entry", applicationID)
}
