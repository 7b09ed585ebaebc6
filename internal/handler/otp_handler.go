package handler

import (
	"context"

	"bloodlink-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// OTPService sends and checks one-time phone codes.
type OTPService interface {
	Send(ctx context.Context, phone string) (string, error)
	Verify(ctx context.Context, phone, code string) (bool, error)
}

type OTPHandler struct {
	otp OTPService
}

func NewOTPHandler(otp OTPService) *OTPHandler {
	return &OTPHandler{otp: otp}
}

type SendOTPRequest struct {
	Phone string `json:"phone" binding:"required"`
}

type VerifyOTPRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required,numeric,len=6"`
}

func (h *OTPHandler) Send(c *gin.Context) {
	var req SendOTPRequest
	if !bindJSON(c, &req) {
		return
	}
	id, err := h.otp.Send(c.Request.Context(), req.Phone)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"otp_id": id})
}

func (h *OTPHandler) Verify(c *gin.Context) {
	var req VerifyOTPRequest
	if !bindJSON(c, &req) {
		return
	}
	ok, err := h.otp.Verify(c.Request.Context(), req.Phone, req.Code)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"verified": ok})
}
