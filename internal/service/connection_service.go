package service

import (
	"context"
	"errors"
	"strings"

	"bloodlink-backend/internal/apperror"
	"bloodlink-backend/internal/metrics"
	"bloodlink-backend/internal/models"
	"bloodlink-backend/internal/notify"
	"bloodlink-backend/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ConnectionService runs the donor-offer workflow: pending -> accepted | rejected.
type ConnectionService struct {
	conns     repository.ConnectionStore
	donors    repository.DonorStore
	requests  repository.BloodRequestStore
	hospitals repository.HospitalStore
	notifier  notify.Notifier
	metrics   *metrics.Metrics
	log       *zap.Logger
	now       Clock
}

func NewConnectionService(
	conns repository.ConnectionStore,
	donors repository.DonorStore,
	requests repository.BloodRequestStore,
	hospitals repository.HospitalStore,
	notifier notify.Notifier,
	m *metrics.Metrics,
	log *zap.Logger,
) *ConnectionService {
	return &ConnectionService{
		conns:     conns,
		donors:    donors,
		requests:  requests,
		hospitals: hospitals,
		notifier:  notifier,
		metrics:   m,
		log:       log.Named("connections"),
		now:       utcNow,
	}
}

// Propose records a donor's offer for a blood request. Blood-type compatibility
// is left to hospital review. An open offer for the same pair is returned as is,
// with created=false.
func (s *ConnectionService) Propose(ctx context.Context, donorID, requestID, hospitalID string) (conn *models.DonationConnection, created bool, err error) {
	if donorID == "" {
		return nil, false, apperror.MissingField("donor_id")
	}
	if requestID == "" {
		return nil, false, apperror.MissingField("blood_request_id")
	}

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, false, err
	}
	if req.HospitalID == "" {
		return nil, false, apperror.NotFound("hospital for blood request", requestID)
	}
	if hospitalID != "" && hospitalID != req.HospitalID {
		return nil, false, apperror.Validation("hospital_id", "hospital does not match the blood request")
	}
	if req.Status != models.RequestActive {
		return nil, false, apperror.PreconditionFailed("blood request " + requestID + " is " + string(req.Status) + " and no longer accepts offers")
	}
	if _, err := s.donors.GetByID(ctx, donorID); err != nil {
		return nil, false, err
	}

	existing, err := s.conns.FindPending(ctx, donorID, requestID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	now := s.now()
	conn = &models.DonationConnection{
		ID:             uuid.NewString(),
		DonorID:        donorID,
		BloodRequestID: requestID,
		HospitalID:     req.HospitalID,
		Status:         models.ConnectionPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.conns.Create(ctx, conn); err != nil {
		return nil, false, err
	}
	s.metrics.IncProposed()
	s.log.Info("connection proposed",
		zap.String("connectionId", conn.ID),
		zap.String("donorId", donorID),
		zap.String("hospitalId", conn.HospitalID))

	if hospital, err := s.hospitals.GetByID(ctx, conn.HospitalID); err == nil {
		notifyQuietly(ctx, s.notifier, s.log, hospital.ContactEmail, notify.ConnectionProposed, map[string]string{
			"connectionId": conn.ID,
			"requestId":    req.ID,
			"bloodType":    req.BloodType,
		})
	}
	return conn, true, nil
}

func (s *ConnectionService) Get(ctx context.Context, id string) (*models.DonationConnection, error) {
	return s.conns.GetByID(ctx, id)
}

// ListPending returns the hospital's pending connections, newest first, joined
// with donor and request summaries.
func (s *ConnectionService) ListPending(ctx context.Context, hospitalID string) ([]models.ConnectionView, error) {
	conns, err := s.conns.ListByHospital(ctx, hospitalID, models.ConnectionPending)
	if err != nil {
		return nil, err
	}
	if len(conns) == 0 {
		return []models.ConnectionView{}, nil
	}

	donorIDs := make([]string, 0, len(conns))
	requestIDs := make([]string, 0, len(conns))
	for _, c := range conns {
		donorIDs = append(donorIDs, c.DonorID)
		requestIDs = append(requestIDs, c.BloodRequestID)
	}

	var donors []models.Donor
	var requests []models.BloodRequest
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		donors, err = s.donors.GetByIDs(gctx, donorIDs)
		return err
	})
	g.Go(func() error {
		var err error
		requests, err = s.requests.GetByIDs(gctx, requestIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	donorByID := make(map[string]models.DonorSummary, len(donors))
	for _, d := range donors {
		donorByID[d.ID] = d.Summary()
	}
	requestByID := make(map[string]models.RequestSummary, len(requests))
	for _, r := range requests {
		requestByID[r.ID] = r.Summary()
	}

	views := make([]models.ConnectionView, 0, len(conns))
	for _, c := range conns {
		v := models.ConnectionView{DonationConnection: c}
		if d, ok := donorByID[c.DonorID]; ok {
			v.Donor = &d
		}
		if r, ok := requestByID[c.BloodRequestID]; ok {
			v.Request = &r
		}
		views = append(views, v)
	}
	return views, nil
}

// Resolve accepts or rejects a pending connection. Only one resolution can ever
// succeed; later callers get InvalidTransition.
func (s *ConnectionService) Resolve(ctx context.Context, connectionID string, accept bool, staffID, notes string) (*models.DonationConnection, error) {
	if staffID == "" {
		return nil, apperror.MissingField("staff_id")
	}
	conn, err := s.conns.GetByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	next, err := models.NextConnectionStatus(conn, accept)
	if err != nil {
		return nil, err
	}

	res := models.Resolution{Status: next, StaffID: staffID, Notes: strings.TrimSpace(notes), At: s.now()}
	err = s.conns.Resolve(ctx, conn.ID, res)
	if errors.Is(err, repository.ErrStaleStatus) {
		current, gerr := s.conns.GetByID(ctx, connectionID)
		if gerr != nil {
			return nil, gerr
		}
		_, terr := models.NextConnectionStatus(current, accept)
		if terr == nil {
			terr = apperror.InvalidTransition("connection", connectionID, string(current.Status), string(next))
		}
		return nil, terr
	}
	if err != nil {
		return nil, err
	}

	res.Apply(conn)
	s.metrics.IncResolved(string(conn.Status))
	s.log.Info("connection resolved",
		zap.String("connectionId", conn.ID),
		zap.String("staffId", staffID),
		zap.String("status", string(conn.Status)))

	if donor, err := s.donors.GetByID(ctx, conn.DonorID); err == nil {
		notifyQuietly(ctx, s.notifier, s.log, donor.Email, notify.ConnectionResolved, map[string]string{
			"requestId": conn.BloodRequestID,
			"status":    string(conn.Status),
			"notes":     conn.HospitalNotes,
		})
	}
	return conn, nil
}
