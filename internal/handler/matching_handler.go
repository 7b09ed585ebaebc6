package handler

import (
	"bloodlink-backend/internal/models"
	"bloodlink-backend/internal/service"
	"bloodlink-backend/pkg/geo"
	"bloodlink-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

type MatchingHandler struct {
	matching      *service.MatchingService
	defaultRadius float64
}

func NewMatchingHandler(matching *service.MatchingService, defaultRadiusKm float64) *MatchingHandler {
	return &MatchingHandler{matching: matching, defaultRadius: defaultRadiusKm}
}

type NearbyQuery struct {
	Lat       *float64 `form:"lat" binding:"required,latitude"`
	Lng       *float64 `form:"lng" binding:"required,longitude"`
	Radius    float64  `form:"radius" binding:"omitempty,gt=0"`
	BloodType string   `form:"bloodType" binding:"omitempty,bloodtype"`
}

type NearbyDonorsQuery struct {
	NearbyQuery
	City string `form:"city"`
}

type NearbyRequestsQuery struct {
	NearbyQuery
	Urgency string `form:"urgency" binding:"omitempty,urgency"`
}

func (q NearbyQuery) center() geo.Point {
	return geo.Point{Latitude: *q.Lat, Longitude: *q.Lng}
}

func (h *MatchingHandler) radius(q NearbyQuery) float64 {
	if q.Radius > 0 {
		return q.Radius
	}
	return h.defaultRadius
}

// NearbyDonors lists public donors around a point, nearest first
func (h *MatchingHandler) NearbyDonors(c *gin.Context) {
	var q NearbyDonorsQuery
	if !bindQuery(c, &q) {
		return
	}

	matches, err := h.matching.NearbyDonors(c.Request.Context(), q.center(), h.radius(q.NearbyQuery), service.DonorFilter{
		BloodType: q.BloodType,
		City:      q.City,
	})
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"donors": matches,
		"count":  len(matches),
	})
}

// NearbyRequests lists active blood requests around a point, nearest first
func (h *MatchingHandler) NearbyRequests(c *gin.Context) {
	var q NearbyRequestsQuery
	if !bindQuery(c, &q) {
		return
	}

	matches, err := h.matching.NearbyRequests(c.Request.Context(), q.center(), h.radius(q.NearbyQuery), service.RequestFilter{
		BloodType: q.BloodType,
		Urgency:   models.Urgency(q.Urgency),
	})
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"requests": matches,
		"count":    len(matches),
	})
}
