package service

import (
	"context"
	"strings"
	"time"

	"bloodlink-backend/internal/apperror"
	"bloodlink-backend/internal/metrics"
	"bloodlink-backend/internal/models"
	"bloodlink-backend/internal/repository"
	"bloodlink-backend/pkg/geo"
)

type DonorFilter struct {
	BloodType string
	City      string
}

type RequestFilter struct {
	BloodType string
	Urgency   models.Urgency
}

// DonorMatch is a donor's public projection with its distance from the search center.
type DonorMatch struct {
	Donor      models.DonorSummary `json:"donor"`
	DistanceKm float64             `json:"distance_km"`
}

type RequestMatch struct {
	Request    models.BloodRequest `json:"request"`
	DistanceKm float64             `json:"distance_km"`
}

// MatchingService answers stateless proximity queries between donors and blood requests.
type MatchingService struct {
	donors      repository.DonorStore
	requests    repository.BloodRequestStore
	maxRadiusKm float64
	metrics     *metrics.Metrics
}

func NewMatchingService(donors repository.DonorStore, requests repository.BloodRequestStore, maxRadiusKm float64, m *metrics.Metrics) *MatchingService {
	return &MatchingService{
		donors:      donors,
		requests:    requests,
		maxRadiusKm: maxRadiusKm,
		metrics:     m,
	}
}

func (s *MatchingService) checkQuery(center geo.Point, radiusKm float64) error {
	if err := validatePoint(center, "center"); err != nil {
		return err
	}
	if radiusKm <= 0 {
		return apperror.Validation("radius", "radius must be greater than zero")
	}
	if s.maxRadiusKm > 0 && radiusKm > s.maxRadiusKm {
		return apperror.Validation("radius", "radius exceeds the maximum search radius")
	}
	return nil
}

// NearbyDonors returns available public donors within radiusKm of center,
// nearest first. Contact details appear only for donors who opted in.
func (s *MatchingService) NearbyDonors(ctx context.Context, center geo.Point, radiusKm float64, f DonorFilter) ([]DonorMatch, error) {
	if err := s.checkQuery(center, radiusKm); err != nil {
		return nil, err
	}
	if f.BloodType != "" && !models.ValidBloodType(f.BloodType) {
		return nil, apperror.Validation("blood_type", "unknown blood type "+f.BloodType)
	}
	start := time.Now()
	defer func() { s.metrics.ObserveMatching("donors", time.Since(start)) }()

	box, err := geo.BoundingBox(center, radiusKm)
	if err != nil {
		return nil, err
	}
	candidates, err := s.donors.ListVisible(ctx, box)
	if err != nil {
		return nil, err
	}

	inRange := make([]models.Donor, 0, len(candidates))
	for _, d := range candidates {
		// the store already filters these; re-checked so a store bug cannot leak private donors
		if !d.VisibilityPublic || !d.IsAvailable || !d.HasLocation() {
			continue
		}
		if f.BloodType != "" && d.BloodType != f.BloodType {
			continue
		}
		if f.City != "" && !strings.EqualFold(strings.TrimSpace(d.City), strings.TrimSpace(f.City)) {
			continue
		}
		ok, err := geo.IsWithinRadius(d.GeoPoint(), center, radiusKm)
		if err != nil || !ok {
			continue
		}
		inRange = append(inRange, d)
	}

	ranked, err := geo.SortByDistance(inRange, center)
	if err != nil {
		return nil, err
	}
	out := make([]DonorMatch, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, DonorMatch{Donor: r.Item.Summary(), DistanceKm: r.DistanceKm})
	}
	return out, nil
}

// NearbyRequests returns active blood requests within radiusKm of center, nearest first.
// Urgency is a filter only; it never changes the order.
func (s *MatchingService) NearbyRequests(ctx context.Context, center geo.Point, radiusKm float64, f RequestFilter) ([]RequestMatch, error) {
	if err := s.checkQuery(center, radiusKm); err != nil {
		return nil, err
	}
	if f.BloodType != "" && !models.ValidBloodType(f.BloodType) {
		return nil, apperror.Validation("blood_type", "unknown blood type "+f.BloodType)
	}
	if f.Urgency != "" && !f.Urgency.Valid() {
		return nil, apperror.Validation("urgency", "urgency must be one of routine, urgent, emergency")
	}
	start := time.Now()
	defer func() { s.metrics.ObserveMatching("requests", time.Since(start)) }()

	box, err := geo.BoundingBox(center, radiusKm)
	if err != nil {
		return nil, err
	}
	candidates, err := s.requests.ListActive(ctx, box)
	if err != nil {
		return nil, err
	}

	inRange := make([]models.BloodRequest, 0, len(candidates))
	for _, r := range candidates {
		if r.Status != models.RequestActive || !r.HasLocation() {
			continue
		}
		if f.BloodType != "" && r.BloodType != f.BloodType {
			continue
		}
		if f.Urgency != "" && r.Urgency != f.Urgency {
			continue
		}
		ok, err := geo.IsWithinRadius(r.GeoPoint(), center, radiusKm)
		if err != nil || !ok {
			continue
		}
		inRange = append(inRange, r)
	}

	ranked, err := geo.SortByDistance(inRange, center)
	if err != nil {
		return nil, err
	}
	out := make([]RequestMatch, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, RequestMatch{Request: r.Item, DistanceKm: r.DistanceKm})
	}
	return out, nil
}
