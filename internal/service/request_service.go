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

type NewBloodRequest struct {
	BloodType   string
	UnitsNeeded int
	Urgency     models.Urgency
	Location    *geo.Point
	Notes       string
	NeededBy    *time.Time
}

// RequestService manages hospitals' blood requests.
type RequestService struct {
	requests  repository.BloodRequestStore
	hospitals repository.HospitalStore
	log       *zap.Logger
	now       Clock
}

func NewRequestService(requests repository.BloodRequestStore, hospitals repository.HospitalStore, log *zap.Logger) *RequestService {
	return &RequestService{requests: requests, hospitals: hospitals, log: log.Named("requests"), now: utcNow}
}

// Create opens an active request. Without an explicit location the hospital's
// coordinates are used; one of the two must exist for the request to be matchable.
func (s *RequestService) Create(ctx context.Context, hospitalID, createdBy string, in NewBloodRequest) (*models.BloodRequest, error) {
	if !models.ValidBloodType(in.BloodType) {
		return nil, apperror.Validation("blood_type", "blood type must be one of "+strings.Join(models.BloodTypes, ", "))
	}
	if in.UnitsNeeded <= 0 {
		in.UnitsNeeded = 1
	}
	if in.Urgency == "" {
		in.Urgency = models.UrgencyRoutine
	}
	if !in.Urgency.Valid() {
		return nil, apperror.Validation("urgency", "urgency must be one of routine, urgent, emergency")
	}

	hospital, err := s.hospitals.GetByID(ctx, hospitalID)
	if err != nil {
		return nil, err
	}

	point, ok := hospital.Location()
	if in.Location != nil {
		if err := validatePoint(*in.Location, "location"); err != nil {
			return nil, err
		}
		point, ok = *in.Location, true
	}
	if !ok {
		return nil, apperror.Validation("location", "set the hospital location or pass one with the request")
	}

	now := s.now()
	lat, lng := point.Latitude, point.Longitude
	req := &models.BloodRequest{
		ID:          uuid.NewString(),
		HospitalID:  hospital.ID,
		BloodType:   in.BloodType,
		UnitsNeeded: in.UnitsNeeded,
		Urgency:     in.Urgency,
		Status:      models.RequestActive,
		City:        hospital.City,
		Latitude:    &lat,
		Longitude:   &lng,
		Notes:       strings.TrimSpace(in.Notes),
		NeededBy:    in.NeededBy,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}
	s.log.Info("blood request created",
		zap.String("requestId", req.ID),
		zap.String("hospitalId", hospital.ID),
		zap.String("urgency", string(req.Urgency)))
	return req, nil
}

func (s *RequestService) Get(ctx context.Context, id string) (*models.BloodRequest, error) {
	return s.requests.GetByID(ctx, id)
}

// Close marks an active request fulfilled or cancelled.
func (s *RequestService) Close(ctx context.Context, id string, fulfilled bool) (*models.BloodRequest, error) {
	next := models.RequestCancelled
	if fulfilled {
		next = models.RequestFulfilled
	}
	err := s.requests.UpdateStatus(ctx, id, models.RequestActive, next)
	if errors.Is(err, repository.ErrStaleStatus) {
		current, gerr := s.requests.GetByID(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		return nil, apperror.InvalidTransition("blood request", id, string(current.Status), "close")
	}
	if err != nil {
		return nil, err
	}
	s.log.Info("blood request closed", zap.String("requestId", id), zap.String("status", string(next)))
	return s.requests.GetByID(ctx, id)
}
