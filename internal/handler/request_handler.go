package handler

import (
	"time"

	"bloodlink-backend/internal/middleware"
	"bloodlink-backend/internal/models"
	"bloodlink-backend/internal/service"
	"bloodlink-backend/pkg/geo"
	"bloodlink-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	requests *service.RequestService
}

func NewRequestHandler(requests *service.RequestService) *RequestHandler {
	return &RequestHandler{requests: requests}
}

type CreateBloodRequest struct {
	BloodType   string     `json:"blood_type" binding:"required,bloodtype"`
	UnitsNeeded int        `json:"units_needed" binding:"omitempty,min=1"`
	Urgency     string     `json:"urgency" binding:"omitempty,urgency"`
	Latitude    *float64   `json:"latitude" binding:"required_with=Longitude,omitempty,latitude"`
	Longitude   *float64   `json:"longitude" binding:"required_with=Latitude,omitempty,longitude"`
	Notes       string     `json:"notes"`
	NeededBy    *time.Time `json:"needed_by"`
}

type CloseRequest struct {
	Fulfilled bool `json:"fulfilled"`
}

// Create opens a blood request for the hospital in the path (/hospitals/:id/requests)
func (h *RequestHandler) Create(c *gin.Context) {
	var req CreateBloodRequest
	if !bindJSON(c, &req) {
		return
	}
	in := service.NewBloodRequest{
		BloodType:   req.BloodType,
		UnitsNeeded: req.UnitsNeeded,
		Urgency:     models.Urgency(req.Urgency),
		Notes:       req.Notes,
		NeededBy:    req.NeededBy,
	}
	if req.Latitude != nil && req.Longitude != nil {
		in.Location = &geo.Point{Latitude: *req.Latitude, Longitude: *req.Longitude}
	}

	created, err := h.requests.Create(c.Request.Context(), c.Param("id"), middleware.UserID(c), in)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.CreatedResponse(c, created)
}

func (h *RequestHandler) Get(c *gin.Context) {
	req, err := h.requests.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, req)
}

// Close marks the request fulfilled or cancelled
func (h *RequestHandler) Close(c *gin.Context) {
	var req CloseRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	closed, err := h.requests.Close(c.Request.Context(), c.Param("id"), req.Fulfilled)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, closed)
}
