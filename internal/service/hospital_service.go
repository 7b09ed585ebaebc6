package service

import (
	"context"

	"bloodlink-backend/internal/apperror"
	"bloodlink-backend/internal/models"
	"bloodlink-backend/internal/repository"
	"bloodlink-backend/pkg/geo"

	"go.uber.org/zap"
)

type HospitalService struct {
	hospitals   repository.HospitalStore
	memberships repository.UserHospitalStore
	log         *zap.Logger
}

func NewHospitalService(hospitals repository.HospitalStore, memberships repository.UserHospitalStore, log *zap.Logger) *HospitalService {
	return &HospitalService{
		hospitals:   hospitals,
		memberships: memberships,
		log:         log.Named("hospitals"),
	}
}

// CanAccess reports whether the user may act for hospitalID.
// Admins can access every hospital, staff only their own.
func (s *HospitalService) CanAccess(ctx context.Context, userID, role, hospitalID string) (bool, error) {
	switch role {
	case models.RoleAdmin:
		return true, nil
	case models.RoleHospitalStaff:
		return s.memberships.HasAccess(ctx, userID, hospitalID)
	}
	return false, nil
}

// List retrieves hospitals based on user role
// Admin users see all hospitals, staff see only assigned hospitals
func (s *HospitalService) List(ctx context.Context, userID, role string) ([]models.Hospital, error) {
	if role == models.RoleAdmin {
		return s.hospitals.List(ctx)
	}
	ids, err := s.memberships.HospitalsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.hospitals.ListByIDs(ctx, ids)
}

// Get retrieves a hospital by ID with access control
func (s *HospitalService) Get(ctx context.Context, id, userID, role string) (*models.Hospital, error) {
	if err := s.authorize(ctx, userID, role, id); err != nil {
		return nil, err
	}
	return s.hospitals.GetByID(ctx, id)
}

// UpdateLocation sets the coordinates used as the default for the hospital's blood requests.
func (s *HospitalService) UpdateLocation(ctx context.Context, id string, point geo.Point, userID, role string) (*models.Hospital, error) {
	if err := validatePoint(point, "location"); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, userID, role, id); err != nil {
		return nil, err
	}
	if err := s.hospitals.UpdateLocation(ctx, id, point); err != nil {
		return nil, err
	}
	s.log.Info("hospital location updated", zap.String("hospitalId", id), zap.String("actorId", userID))
	return s.hospitals.GetByID(ctx, id)
}

func (s *HospitalService) authorize(ctx context.Context, userID, role, hospitalID string) error {
	ok, err := s.CanAccess(ctx, userID, role, hospitalID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.Forbidden("you don't have permission to access this hospital")
	}
	return nil
}
