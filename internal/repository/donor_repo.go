package repository

import (
	"context"

	"bloodlink-backend/internal/models"
	"bloodlink-backend/pkg/geo"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DonorRepository struct {
	db *gorm.DB
}

func NewDonorRepo(db *gorm.DB) *DonorRepository {
	return &DonorRepository{db: db}
}

var _ DonorStore = (*DonorRepository)(nil)

// Upsert creates the donor profile or updates it in place, keyed by user
func (r *DonorRepository) Upsert(ctx context.Context, donor *models.Donor) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"first_name", "last_name", "blood_type", "city", "latitude", "longitude",
			"is_available", "visibility_public", "show_contact", "phone", "email",
			"last_donation_at", "updated_at",
		}),
	}).Create(donor).Error
	return translate(err, "donor", donor.ID)
}

func (r *DonorRepository) GetByID(ctx context.Context, id string) (*models.Donor, error) {
	var donor models.Donor
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&donor).Error; err != nil {
		return nil, translate(err, "donor", id)
	}
	return &donor, nil
}

func (r *DonorRepository) GetByUserID(ctx context.Context, userID string) (*models.Donor, error) {
	var donor models.Donor
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&donor).Error; err != nil {
		return nil, translate(err, "donor", userID)
	}
	return &donor, nil
}

// ListVisible retrieves available public donors whose location falls in box
func (r *DonorRepository) ListVisible(ctx context.Context, box geo.Box) ([]models.Donor, error) {
	var donors []models.Donor
	err := r.db.WithContext(ctx).
		Where("is_available = ? AND visibility_public = ?", true, true).
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Where("latitude BETWEEN ? AND ?", box.MinLat, box.MaxLat).
		Where("longitude BETWEEN ? AND ?", box.MinLng, box.MaxLng).
		Order("created_at ASC").
		Find(&donors).Error
	return donors, translate(err, "donor", "")
}

func (r *DonorRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Donor, error) {
	var donors []models.Donor
	if len(ids) == 0 {
		return donors, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&donors).Error
	return donors, translate(err, "donor", "")
}
