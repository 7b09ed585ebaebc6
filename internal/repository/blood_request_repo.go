package repository

import (
	"context"
	"time"

	"bloodlink-backend/internal/models"
	"bloodlink-backend/pkg/geo"

	"gorm.io/gorm"
)

type BloodRequestRepository struct {
	db *gorm.DB
}

func NewBloodRequestRepo(db *gorm.DB) *BloodRequestRepository {
	return &BloodRequestRepository{db: db}
}

var _ BloodRequestStore = (*BloodRequestRepository)(nil)

func (r *BloodRequestRepository) Create(ctx context.Context, req *models.BloodRequest) error {
	return translate(r.db.WithContext(ctx).Omit("Hospital").Create(req).Error, "blood request", req.ID)
}

func (r *BloodRequestRepository) GetByID(ctx context.Context, id string) (*models.BloodRequest, error) {
	var req models.BloodRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, translate(err, "blood request", id)
	}
	return &req, nil
}

// ListActive retrieves active requests located in box, newest first
func (r *BloodRequestRepository) ListActive(ctx context.Context, box geo.Box) ([]models.BloodRequest, error) {
	var reqs []models.BloodRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", models.RequestActive).
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Where("latitude BETWEEN ? AND ?", box.MinLat, box.MaxLat).
		Where("longitude BETWEEN ? AND ?", box.MinLng, box.MaxLng).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, translate(err, "blood request", "")
}

func (r *BloodRequestRepository) GetByIDs(ctx context.Context, ids []string) ([]models.BloodRequest, error) {
	var reqs []models.BloodRequest
	if len(ids) == 0 {
		return reqs, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&reqs).Error
	return reqs, translate(err, "blood request", "")
}

// UpdateStatus moves a request from expected to next, failing with ErrStaleStatus on a lost race
func (r *BloodRequestRepository) UpdateStatus(ctx context.Context, id string, expected, next models.RequestStatus) error {
	result := r.db.WithContext(ctx).Model(&models.BloodRequest{}).
		Where("id = ? AND status = ?", id, expected).
		Update("status", next)
	if result.Error != nil {
		return translate(result.Error, "blood request", id)
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrStaleStatus
	}
	return nil
}

func (r *BloodRequestRepository) ListExpired(ctx context.Context, now time.Time) ([]models.BloodRequest, error) {
	var reqs []models.BloodRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND needed_by IS NOT NULL AND needed_by < ?", models.RequestActive, now).
		Find(&reqs).Error
	return reqs, translate(err, "blood request", "")
}
