package middleware

import (
	"context"
	"net/http"

	"bloodlink-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// HospitalAccessChecker decides whether a user may act for a hospital.
type HospitalAccessChecker interface {
	CanAccess(ctx context.Context, userID, role, hospitalID string) (bool, error)
}

// OwnerLookup resolves the hospital that owns a resource, e.g. a connection or blood request.
type OwnerLookup func(ctx context.Context, id string) (hospitalID string, err error)

// AccessControlMiddleware provides hospital-scoped access control
type AccessControlMiddleware struct {
	checker HospitalAccessChecker
}

// NewAccessControlMiddleware creates a new access control middleware
func NewAccessControlMiddleware(checker HospitalAccessChecker) *AccessControlMiddleware {
	return &AccessControlMiddleware{checker: checker}
}

// CheckHospitalAccess verifies user has access to the hospital specified in the path
// Expected path parameter: :hospital_id or :id
func (m *AccessControlMiddleware) CheckHospitalAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		hospitalID := c.Param("hospital_id")
		if hospitalID == "" {
			hospitalID = c.Param("id")
		}
		if hospitalID == "" {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid hospital ID")
			c.Abort()
			return
		}
		m.authorize(c, hospitalID)
	}
}

// CheckOwnedAccess verifies the user may act for the hospital owning the resource
// named by the param path parameter.
func (m *AccessControlMiddleware) CheckOwnedAccess(param string, lookup OwnerLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.requireUser(c) {
			return
		}
		hospitalID, err := lookup(c.Request.Context(), c.Param(param))
		if err != nil {
			utils.AppErrorResponse(c, err)
			c.Abort()
			return
		}
		m.authorize(c, hospitalID)
	}
}

func (m *AccessControlMiddleware) requireUser(c *gin.Context) bool {
	if UserID(c) == "" {
		utils.ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		c.Abort()
		return false
	}
	return true
}

func (m *AccessControlMiddleware) authorize(c *gin.Context, hospitalID string) {
	if !m.requireUser(c) {
		return
	}

	hasAccess, err := m.checker.CanAccess(c.Request.Context(), UserID(c), Role(c), hospitalID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to verify access")
		c.Abort()
		return
	}
	if !hasAccess {
		utils.ErrorResponse(c, http.StatusForbidden, "Access denied: you don't have permission to access this hospital")
		c.Abort()
		return
	}

	c.Next()
}
