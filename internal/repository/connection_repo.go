package repository

import (
	"context"
	"errors"

	"bloodlink-backend/internal/models"

	"gorm.io/gorm"
)

type ConnectionRepository struct {
	db *gorm.DB
}

func NewConnectionRepo(db *gorm.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

var _ ConnectionStore = (*ConnectionRepository)(nil)

func (r *ConnectionRepository) Create(ctx context.Context, conn *models.DonationConnection) error {
	return translate(r.db.WithContext(ctx).Create(conn).Error, "connection", conn.ID)
}

func (r *ConnectionRepository) GetByID(ctx context.Context, id string) (*models.DonationConnection, error) {
	var conn models.DonationConnection
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&conn).Error; err != nil {
		return nil, translate(err, "connection", id)
	}
	return &conn, nil
}

// FindPending returns the open connection between donor and request, or nil if none
func (r *ConnectionRepository) FindPending(ctx context.Context, donorID, requestID string) (*models.DonationConnection, error) {
	var conn models.DonationConnection
	err := r.db.WithContext(ctx).
		Where("donor_id = ? AND blood_request_id = ? AND status = ?", donorID, requestID, models.ConnectionPending).
		First(&conn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, "connection", "")
	}
	return &conn, nil
}

// ListByHospital lists a hospital's connections in status, newest first
func (r *ConnectionRepository) ListByHospital(ctx context.Context, hospitalID string, status models.ConnectionStatus) ([]models.DonationConnection, error) {
	var conns []models.DonationConnection
	err := r.db.WithContext(ctx).
		Where("hospital_id = ? AND status = ?", hospitalID, status).
		Order("created_at DESC").
		Find(&conns).Error
	return conns, translate(err, "connection", "")
}

// Resolve applies res only while the connection is pending; exactly one caller wins
func (r *ConnectionRepository) Resolve(ctx context.Context, id string, res models.Resolution) error {
	result := r.db.WithContext(ctx).Model(&models.DonationConnection{}).
		Where("id = ? AND status = ?", id, models.ConnectionPending).
		Updates(res.Columns())
	if result.Error != nil {
		return translate(result.Error, "connection", id)
	}
	if result.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}
