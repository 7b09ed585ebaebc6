package repository

import (
	"context"

	"bloodlink-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserHospitalRepository struct {
	db *gorm.DB
}

func NewUserHospitalRepo(db *gorm.DB) *UserHospitalRepository {
	return &UserHospitalRepository{db: db}
}

var _ UserHospitalStore = (*UserHospitalRepository)(nil)

// Assign links a staff user to a hospital
func (r *UserHospitalRepository) Assign(ctx context.Context, userID, hospitalID string) error {
	userHospital := &models.UserHospital{
		ID:         uuid.NewString(),
		UserID:     userID,
		HospitalID: hospitalID,
	}
	// Use FirstOrCreate to avoid duplicate entries
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND hospital_id = ?", userID, hospitalID).
		FirstOrCreate(userHospital).Error
	return translate(err, "user hospital", userID)
}

// HospitalsForUser retrieves all hospital IDs a user belongs to
func (r *UserHospitalRepository) HospitalsForUser(ctx context.Context, userID string) ([]string, error) {
	var hospitalIDs []string
	err := r.db.WithContext(ctx).Model(&models.UserHospital{}).
		Where("user_id = ?", userID).
		Pluck("hospital_id", &hospitalIDs).Error
	return hospitalIDs, translate(err, "user hospital", userID)
}

// HasAccess checks if a user belongs to a specific hospital
func (r *UserHospitalRepository) HasAccess(ctx context.Context, userID, hospitalID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UserHospital{}).
		Where("user_id = ? AND hospital_id = ?", userID, hospitalID).
		Count(&count).Error
	return count > 0, translate(err, "user hospital", userID)
}
