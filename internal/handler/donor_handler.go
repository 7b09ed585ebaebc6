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

type DonorHandler struct {
	donors *service.DonorService
}

func NewDonorHandler(donors *service.DonorService) *DonorHandler {
	return &DonorHandler{donors: donors}
}

type DonorProfileRequest struct {
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	BloodType        string     `json:"blood_type" binding:"required,bloodtype"`
	City             string     `json:"city" binding:"required"`
	Latitude         *float64   `json:"latitude" binding:"required_with=Longitude,omitempty,latitude"`
	Longitude        *float64   `json:"longitude" binding:"required_with=Latitude,omitempty,longitude"`
	IsAvailable      *bool      `json:"is_available"`
	VisibilityPublic *bool      `json:"visibility_public"`
	ShowContact      bool       `json:"show_contact"`
	Phone            string     `json:"phone"`
	Email            string     `json:"email" binding:"omitempty,email"`
	LastDonationAt   *time.Time `json:"last_donation_at"`
}

func (r DonorProfileRequest) profile() service.DonorProfile {
	p := service.DonorProfile{
		FirstName:        r.FirstName,
		LastName:         r.LastName,
		BloodType:        r.BloodType,
		City:             r.City,
		IsAvailable:      true,
		VisibilityPublic: true,
		ShowContact:      r.ShowContact,
		Phone:            r.Phone,
		Email:            r.Email,
		LastDonationAt:   r.LastDonationAt,
	}
	if r.IsAvailable != nil {
		p.IsAvailable = *r.IsAvailable
	}
	if r.VisibilityPublic != nil {
		p.VisibilityPublic = *r.VisibilityPublic
	}
	if r.Latitude != nil && r.Longitude != nil {
		p.Location = &geo.Point{Latitude: *r.Latitude, Longitude: *r.Longitude}
	}
	return p
}

// UpsertMe creates or replaces the calling donor's profile
func (h *DonorHandler) UpsertMe(c *gin.Context) {
	var req DonorProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	donor, err := h.donors.UpsertProfile(c.Request.Context(), middleware.UserID(c), req.profile())
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, donorView(donor))
}

// GetMe returns the calling donor's own profile including contact details
func (h *DonorHandler) GetMe(c *gin.Context) {
	donor, err := h.donors.Profile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, donorView(donor))
}

// ownDonorView exposes the contact fields the model hides from JSON; only the owner sees them.
type ownDonorView struct {
	models.Donor
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

func donorView(d *models.Donor) ownDonorView {
	return ownDonorView{Donor: *d, Phone: d.Phone, Email: d.Email}
}
