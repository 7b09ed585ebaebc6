package handler

import (
	"errors"
	"net/http"

	"bloodlink-backend/internal/service"
	"bloodlink-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

const refreshCookie = "refresh_token"

type AuthHandler struct {
	authService  *service.AuthService
	secureCookie bool
}

func NewAuthHandler(authService *service.AuthService, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		secureCookie: secureCookie,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterDonorRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Login handles user authentication
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	response, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		utils.ErrorResponse(c, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	h.setRefreshCookie(c, response.RefreshToken)
	utils.SuccessResponse(c, gin.H{
		"access_token": response.AccessToken,
		"user":         response.User,
	})
}

// Refresh generates a new access token from refresh token
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshCookie)
	if err != nil {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Refresh token not found")
		return
	}

	accessToken, err := h.authService.RefreshAccessToken(c.Request.Context(), refreshToken)
	if err != nil {
		utils.ErrorResponse(c, http.StatusUnauthorized, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"access_token": accessToken,
	})
}

// Logout revokes the refresh token
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshCookie)
	if err != nil {
		// If no cookie, just clear it and return success
		h.setRefreshCookie(c, "")
		utils.MessageResponse(c, "Logged out successfully")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), refreshToken); err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to logout")
		return
	}

	h.setRefreshCookie(c, "")
	utils.MessageResponse(c, "Logged out successfully")
}

// Register creates a donor account. Hospital staff accounts come from application approval.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterDonorRequest
	if !bindJSON(c, &req) {
		return
	}

	response, err := h.authService.RegisterDonor(c.Request.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	h.setRefreshCookie(c, response.RefreshToken)
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"access_token": response.AccessToken,
			"user":         response.User,
		},
	})
}

// setRefreshCookie stores the refresh token as an HttpOnly cookie; an empty value clears it.
func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	maxAge := int(utils.GetRefreshTokenExpiry().Seconds())
	if token == "" {
		maxAge = -1
	}
	c.SetCookie(refreshCookie, token, maxAge, "/", "", h.secureCookie, true)
}
