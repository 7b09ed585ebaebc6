package utils

import (
	"errors"
	"net/http"

	"bloodlink-backend/internal/apperror"

	"github.com/gin-gonic/gin"
)

// SuccessResponse sends a standard success JSON response
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// CreatedResponse sends a 201 with the created resource
func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    data,
	})
}

// ErrorResponse sends a standard error JSON response
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error":   message,
	})
}

// MessageResponse sends a simple message response
func MessageResponse(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
	})
}

// StatusFor maps an error code to its HTTP status.
func StatusFor(code apperror.Code) int {
	switch code {
	case apperror.CodeValidation:
		return http.StatusBadRequest
	case apperror.CodeNotFound:
		return http.StatusNotFound
	case apperror.CodeInvalidTransition:
		return http.StatusConflict
	case apperror.CodePreconditionFailed:
		return http.StatusPreconditionFailed
	case apperror.CodeForbidden:
		return http.StatusForbidden
	case apperror.CodeUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case apperror.CodeCredentialMissing:
		return http.StatusOK
	}
	return http.StatusInternalServerError
}

// AppErrorResponse writes err using its taxonomy code; unknown errors become a 500
// without leaking internals.
func AppErrorResponse(c *gin.Context, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		_ = c.Error(err)
		ErrorResponse(c, http.StatusInternalServerError, "internal server error")
		return
	}

	body := gin.H{
		"success":   false,
		"code":      appErr.Code,
		"error":     appErr.Message,
		"retryable": appErr.Retryable,
	}
	if appErr.Field != "" {
		body["field"] = appErr.Field
	}
	if appErr.Details != "" && appErr.Code != apperror.CodeUpstreamUnavailable {
		body["details"] = appErr.Details
	}
	if appErr.Code == apperror.CodeUpstreamUnavailable {
		_ = c.Error(err)
	}
	c.JSON(StatusFor(appErr.Code), body)
}
