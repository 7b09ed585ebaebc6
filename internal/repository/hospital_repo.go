package repository

import (
	"context"

	"bloodlink-backend/internal/models"
	"bloodlink-backend/pkg/geo"

	"gorm.io/gorm"
)

type HospitalRepository struct {
	db *gorm.DB
}

func NewHospitalRepo(db *gorm.DB) *HospitalRepository {
	return &HospitalRepository{db: db}
}

var _ HospitalStore = (*HospitalRepository)(nil)

// Create creates a new hospital
func (r *HospitalRepository) Create(ctx context.Context, hospital *models.Hospital) error {
	return translate(r.db.WithContext(ctx).Create(hospital).Error, "hospital", hospital.ID)
}

// GetByID retrieves an active hospital by ID
func (r *HospitalRepository) GetByID(ctx context.Context, id string) (*models.Hospital, error) {
	var hospital models.Hospital
	err := r.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&hospital).Error
	if err != nil {
		return nil, translate(err, "hospital", id)
	}
	return &hospital, nil
}

// GetByApplicationID finds the hospital provisioned from an application
func (r *HospitalRepository) GetByApplicationID(ctx context.Context, applicationID string) (*models.Hospital, error) {
	var hospital models.Hospital
	err := r.db.WithContext(ctx).Where("application_id = ?", applicationID).First(&hospital).Error
	if err != nil {
		return nil, translate(err, "hospital", applicationID)
	}
	return &hospital, nil
}

// List retrieves all active hospitals
func (r *HospitalRepository) List(ctx context.Context) ([]models.Hospital, error) {
	var hospitals []models.Hospital
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("name ASC").Find(&hospitals).Error
	return hospitals, translate(err, "hospital", "")
}

// ListByIDs retrieves the active hospitals among ids
func (r *HospitalRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Hospital, error) {
	var hospitals []models.Hospital
	if len(ids) == 0 {
		return hospitals, nil
	}
	err := r.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", ids, true).
		Order("name ASC").
		Find(&hospitals).Error
	return hospitals, translate(err, "hospital", "")
}

// UpdateLocation sets the hospital's coordinates
func (r *HospitalRepository) UpdateLocation(ctx context.Context, id string, point geo.Point) error {
	result := r.db.WithContext(ctx).Model(&models.Hospital{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{
			"latitude":  point.Latitude,
			"longitude": point.Longitude,
		})
	if result.Error != nil {
		return translate(result.Error, "hospital", id)
	}
	if result.RowsAffected == 0 {
		// unchanged coordinates also report zero rows; confirm the row exists
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
