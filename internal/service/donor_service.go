package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"bloodlink-backend/internal/apperror"
	"bloodlink-backend/internal/models"
	"bloodlink-backend/internal/repository"
	"bloodlink-backend/pkg/geo"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DonorProfile is the editable part of a donor record.
type DonorProfile struct {
	FirstName        string
	LastName         string
	BloodType        string
	City             string
	Location         *geo.Point
	IsAvailable      bool
	VisibilityPublic bool
	ShowContact      bool
	Phone            string
	Email            string
	LastDonationAt   *time.Time
}

type DonorService struct {
	donors repository.DonorStore
	log    *zap.Logger
	now    Clock
}

func NewDonorService(donors repository.DonorStore, log *zap.Logger) *DonorService {
	return &DonorService{donors: donors, log: log.Named("donors"), now: utcNow}
}

// UpsertProfile creates or replaces the donor record owned by userID.
func (s *DonorService) UpsertProfile(ctx context.Context, userID string, p DonorProfile) (*models.Donor, error) {
	if userID == "" {
		return nil, apperror.MissingField("user_id")
	}
	if !models.ValidBloodType(p.BloodType) {
		return nil, apperror.Validation("blood_type", "blood type must be one of "+strings.Join(models.BloodTypes, ", "))
	}
	if strings.TrimSpace(p.City) == "" {
		return nil, apperror.MissingField("city")
	}
	if p.Location != nil {
		if err := validatePoint(*p.Location, "location"); err != nil {
			return nil, err
		}
	}
	if p.LastDonationAt != nil && p.LastDonationAt.After(s.now()) {
		return nil, apperror.Validation("last_donation_at", "last donation cannot be in the future")
	}

	now := s.now()
	donor := &models.Donor{
		ID:               uuid.NewString(),
		UserID:           userID,
		FirstName:        strings.TrimSpace(p.FirstName),
		LastName:         strings.TrimSpace(p.LastName),
		BloodType:        p.BloodType,
		City:             strings.TrimSpace(p.City),
		IsAvailable:      p.IsAvailable,
		VisibilityPublic: p.VisibilityPublic,
		ShowContact:      p.ShowContact,
		Phone:            strings.TrimSpace(p.Phone),
		Email:            strings.TrimSpace(p.Email),
		LastDonationAt:   p.LastDonationAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if p.Location != nil {
		lat, lng := p.Location.Latitude, p.Location.Longitude
		donor.Latitude, donor.Longitude = &lat, &lng
	}

	if err := s.donors.Upsert(ctx, donor); err != nil {
		return nil, err
	}
	s.log.Info("donor profile saved", zap.String("donorId", donor.ID), zap.Bool("public", donor.VisibilityPublic))
	return s.donors.GetByUserID(ctx, userID)
}

// Profile returns the caller's own full donor record, contact details included.
func (s *DonorService) Profile(ctx context.Context, userID string) (*models.Donor, error) {
	return s.donors.GetByUserID(ctx, userID)
}

// DonorIDForUser resolves the donor record behind a donor login.
func (s *DonorService) DonorIDForUser(ctx context.Context, userID string) (string, error) {
	d, err := s.donors.GetByUserID(ctx, userID)
	if errors.Is(err, apperror.ErrNotFound) {
		return "", apperror.PreconditionFailed("create a donor profile before offering to donate")
	}
	if err != nil {
		return "", err
	}
	return d.ID, nil
}
