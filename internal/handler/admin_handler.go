package handler

import (
	"errors"

	"bloodlink-backend/internal/apperror"
	"bloodlink-backend/internal/middleware"
	"bloodlink-backend/internal/models"
	"bloodlink-backend/internal/service"
	"bloodlink-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// AdminHandler exposes application review and hospital provisioning to admins.
type AdminHandler struct {
	applications *service.ApplicationService
	provisioning *service.ProvisioningService
}

func NewAdminHandler(applications *service.ApplicationService, provisioning *service.ProvisioningService) *AdminHandler {
	return &AdminHandler{
		applications: applications,
		provisioning: provisioning,
	}
}

type ListApplicationsQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=pending approved rejected info_requested"`
	Search string `form:"q"`
}

type ReviewRequest struct {
	Notes string `json:"notes"`
}

// ListApplications returns applications in a status, newest first
func (h *AdminHandler) ListApplications(c *gin.Context) {
	var q ListApplicationsQuery
	if !bindQuery(c, &q) {
		return
	}
	if q.Status == "" {
		q.Status = string(models.ApplicationPending)
	}

	apps, err := h.applications.ListByStatus(c.Request.Context(), models.ApplicationStatus(q.Status), q.Search)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"applications": apps,
		"count":        len(apps),
	})
}

func (h *AdminHandler) GetApplication(c *gin.Context) {
	app, err := h.applications.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, app)
}

// Approve approves the application and provisions its hospital and staff account.
// A provisioning failure after approval is reported alongside the approved application.
func (h *AdminHandler) Approve(c *gin.Context) {
	ctx := c.Request.Context()
	adminID := middleware.UserID(c)
	var req ReviewRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	app, err := h.applications.SetStatus(ctx, c.Param("id"), models.ActionApprove, adminID, req.Notes)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	result, err := h.provisioning.ProvisionFromApproved(ctx, app.ID, adminID)
	if err != nil {
		utils.SuccessResponse(c, gin.H{
			"application":  app,
			"provisioning": nil,
			"warning":      warningBody(err),
		})
		return
	}
	utils.SuccessResponse(c, provisionBody(app, result))
}

func (h *AdminHandler) Reject(c *gin.Context) {
	h.review(c, models.ActionReject)
}

func (h *AdminHandler) RequestInfo(c *gin.Context) {
	h.review(c, models.ActionRequestInfo)
}

func (h *AdminHandler) review(c *gin.Context, action models.ReviewAction) {
	var req ReviewRequest
	if !bindJSON(c, &req) {
		return
	}
	app, err := h.applications.SetStatus(c.Request.Context(), c.Param("id"), action, middleware.UserID(c), req.Notes)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, app)
}

// Provision reruns provisioning for an approved application, e.g. after a partial failure.
func (h *AdminHandler) Provision(c *gin.Context) {
	ctx := c.Request.Context()
	result, err := h.provisioning.ProvisionFromApproved(ctx, c.Param("id"), middleware.UserID(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	app, err := h.applications.Get(ctx, result.ApplicationID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, provisionBody(app, result))
}

// Audit returns the audit trail, for one application or for all when applicationId is empty
func (h *AdminHandler) Audit(c *gin.Context) {
	entries, err := h.applications.AuditTrail(c.Request.Context(), c.Query("applicationId"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}

func provisionBody(app *models.Application, result *service.ProvisionResult) gin.H {
	body := gin.H{
		"application":  app,
		"provisioning": result,
	}
	if result.Warning != nil {
		body["warning"] = warningBody(result.Warning)
	}
	return body
}

func warningBody(err error) gin.H {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		appErr = apperror.Upstream("provisioning", err)
	}
	body := gin.H{
		"code":      appErr.Code,
		"error":     appErr.Message,
		"retryable": appErr.Retryable,
	}
	if appErr.Field != "" {
		body["field"] = appErr.Field
	}
	if appErr.Details != "" {
		body["details"] = appErr.Details
	}
	return body
}
