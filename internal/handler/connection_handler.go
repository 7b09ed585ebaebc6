package handler

import (
	"bloodlink-backend/internal/middleware"
	"bloodlink-backend/internal/service"
	"bloodlink-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ConnectionHandler serves donor offers and their resolution by hospital staff.
type ConnectionHandler struct {
	connections *service.ConnectionService
	donors      *service.DonorService
}

func NewConnectionHandler(connections *service.ConnectionService, donors *service.DonorService) *ConnectionHandler {
	return &ConnectionHandler{connections: connections, donors: donors}
}

type ProposeRequest struct {
	BloodRequestID string `json:"blood_request_id" binding:"required"`
	HospitalID     string `json:"hospital_id"`
}

type ResolveRequest struct {
	Notes string `json:"notes"`
}

// Propose records the calling donor's offer for a blood request
func (h *ConnectionHandler) Propose(c *gin.Context) {
	var req ProposeRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	donorID, err := h.donors.DonorIDForUser(ctx, middleware.UserID(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	conn, created, err := h.connections.Propose(ctx, donorID, req.BloodRequestID, req.HospitalID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	if created {
		utils.CreatedResponse(c, conn)
		return
	}
	utils.SuccessResponse(c, conn)
}

// ListPending returns the hospital's pending offers with donor and request summaries
func (h *ConnectionHandler) ListPending(c *gin.Context) {
	views, err := h.connections.ListPending(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{
		"connections": views,
		"count":       len(views),
	})
}

func (h *ConnectionHandler) Accept(c *gin.Context) {
	h.resolve(c, true)
}

func (h *ConnectionHandler) Reject(c *gin.Context) {
	h.resolve(c, false)
}

func (h *ConnectionHandler) resolve(c *gin.Context, accept bool) {
	var req ResolveRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	conn, err := h.connections.Resolve(c.Request.Context(), c.Param("id"), accept, middleware.UserID(c), req.Notes)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, conn)
}
