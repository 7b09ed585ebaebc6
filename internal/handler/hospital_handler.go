package handler

import (
	"bloodlink-backend/internal/middleware"
	"bloodlink-backend/internal/service"
	"bloodlink-backend/pkg/geo"
	"bloodlink-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

type HospitalHandler struct {
	hospitalService *service.HospitalService
}

func NewHospitalHandler(hospitalService *service.HospitalService) *HospitalHandler {
	return &HospitalHandler{
		hospitalService: hospitalService,
	}
}

type LocationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required,latitude"`
	Longitude *float64 `json:"longitude" binding:"required,longitude"`
}

// GetAllHospitals retrieves all hospitals accessible by the user
// Admin users see all hospitals, staff see only their own
func (h *HospitalHandler) GetAllHospitals(c *gin.Context) {
	hospitals, err := h.hospitalService.List(c.Request.Context(), middleware.UserID(c), middleware.Role(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"hospitals": hospitals,
		"count":     len(hospitals),
	})
}

// GetHospital retrieves a specific hospital by ID
func (h *HospitalHandler) GetHospital(c *gin.Context) {
	hospital, err := h.hospitalService.Get(c.Request.Context(), c.Param("id"), middleware.UserID(c), middleware.Role(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, hospital)
}

// UpdateLocation sets the hospital's coordinates
func (h *HospitalHandler) UpdateLocation(c *gin.Context) {
	var req LocationRequest
	if !bindJSON(c, &req) {
		return
	}

	point := geo.Point{Latitude: *req.Latitude, Longitude: *req.Longitude}
	hospital, err := h.hospitalService.UpdateLocation(c.Request.Context(), c.Param("id"), point, middleware.UserID(c), middleware.Role(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, hospital)
}
