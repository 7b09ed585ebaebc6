package handler

import (
	"context"
	"net/http"

	"bloodlink-backend/internal/metrics"
	"bloodlink-backend/internal/middleware"
	"bloodlink-backend/internal/models"
	"bloodlink-backend/internal/service"
	"bloodlink-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Services is everything the HTTP layer calls into.
type Services struct {
	Applications *service.ApplicationService
	Provisioning *service.ProvisioningService
	Matching     *service.MatchingService
	Connections  *service.ConnectionService
	Auth         *service.AuthService
	Hospitals    *service.HospitalService
	Donors       *service.DonorService
	Requests     *service.RequestService
}

// RouterOptions carries the non-service pieces of the router.
type RouterOptions struct {
	Application     *ApplicationHandler
	OTP             *OTPHandler
	RateLimiter     *middleware.RateLimiter
	Metrics         *metrics.Metrics
	DefaultRadiusKm float64
	SecureCookies   bool
	Health          func(ctx context.Context) error
}

// RegisterRoutes mounts every endpoint on r.
func RegisterRoutes(r *gin.Engine, svc Services, opts RouterOptions) {
	RegisterValidators()

	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	r.GET("/health", func(c *gin.Context) {
		if opts.Health != nil {
			if err := opts.Health(c.Request.Context()); err != nil {
				utils.ErrorResponse(c, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		utils.SuccessResponse(c, gin.H{
			"status":  "healthy",
			"service": "bloodlink-backend",
		})
	})

	authHandler := NewAuthHandler(svc.Auth, opts.SecureCookies)
	adminHandler := NewAdminHandler(svc.Applications, svc.Provisioning)
	hospitalHandler := NewHospitalHandler(svc.Hospitals)
	matchingHandler := NewMatchingHandler(svc.Matching, opts.DefaultRadiusKm)
	connectionHandler := NewConnectionHandler(svc.Connections, svc.Donors)
	donorHandler := NewDonorHandler(svc.Donors)
	requestHandler := NewRequestHandler(svc.Requests)
	acl := middleware.NewAccessControlMiddleware(svc.Hospitals)

	public := []gin.HandlerFunc{}
	if opts.RateLimiter != nil {
		public = append(public, opts.RateLimiter.Middleware())
	}
	limited := func(h gin.HandlerFunc) []gin.HandlerFunc {
		out := make([]gin.HandlerFunc, 0, len(public)+1)
		return append(append(out, public...), h)
	}

	auth := r.Group("/auth")
	{
		auth.POST("/register", limited(authHandler.Register)...)
		auth.POST("/login", limited(authHandler.Login)...)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", authHandler.Logout)
	}

	if opts.OTP != nil {
		otp := r.Group("/otp", public...)
		{
			otp.POST("/send", opts.OTP.Send)
			otp.POST("/verify", opts.OTP.Verify)
		}
	}

	if opts.Application != nil {
		r.POST("/applications", limited(opts.Application.Submit)...)
		r.POST("/documents", limited(opts.Application.Upload)...)
		r.GET("/applications/:id/documents", middleware.AuthMiddleware(), middleware.RequireAdmin(), opts.Application.ListDocuments)
	}

	admin := r.Group("/admin", middleware.AuthMiddleware(), middleware.RequireAdmin())
	{
		admin.GET("/applications", adminHandler.ListApplications)
		admin.GET("/applications/:id", adminHandler.GetApplication)
		admin.POST("/applications/:id/approve", adminHandler.Approve)
		admin.POST("/applications/:id/reject", adminHandler.Reject)
		admin.POST("/applications/:id/request-info", adminHandler.RequestInfo)
		admin.POST("/applications/:id/provision", adminHandler.Provision)
		admin.GET("/audit", adminHandler.Audit)
	}

	staff := middleware.RequireRole(models.RoleAdmin, models.RoleHospitalStaff)

	hospitals := r.Group("/hospitals", middleware.AuthMiddleware(), staff)
	{
		hospitals.GET("", hospitalHandler.GetAllHospitals)
		hospitals.GET("/:id", acl.CheckHospitalAccess(), hospitalHandler.GetHospital)
		hospitals.PATCH("/:id/location", acl.CheckHospitalAccess(), hospitalHandler.UpdateLocation)
		hospitals.POST("/:id/requests", acl.CheckHospitalAccess(), requestHandler.Create)
		hospitals.GET("/:id/connections", acl.CheckHospitalAccess(), connectionHandler.ListPending)
	}

	requestOwner := func(ctx context.Context, id string) (string, error) {
		req, err := svc.Requests.Get(ctx, id)
		if err != nil {
			return "", err
		}
		return req.HospitalID, nil
	}
	connectionOwner := func(ctx context.Context, id string) (string, error) {
		conn, err := svc.Connections.Get(ctx, id)
		if err != nil {
			return "", err
		}
		return conn.HospitalID, nil
	}

	requests := r.Group("/requests", middleware.AuthMiddleware())
	{
		requests.GET("/:id", requestHandler.Get)
		requests.PATCH("/:id/close", staff, acl.CheckOwnedAccess("id", requestOwner), requestHandler.Close)
	}

	match := r.Group("/match", middleware.AuthMiddleware())
	{
		match.GET("/donors", staff, matchingHandler.NearbyDonors)
		match.GET("/requests", matchingHandler.NearbyRequests)
	}

	donors := r.Group("/donors", middleware.AuthMiddleware(), middleware.RequireRole(models.RoleDonor))
	{
		donors.GET("/me", donorHandler.GetMe)
		donors.PUT("/me", donorHandler.UpsertMe)
	}

	connections := r.Group("/connections", middleware.AuthMiddleware())
	{
		connections.POST("", middleware.RequireRole(models.RoleDonor), connectionHandler.Propose)
		connections.POST("/:id/accept", staff, acl.CheckOwnedAccess("id", connectionOwner), connectionHandler.Accept)
		connections.POST("/:id/reject", staff, acl.CheckOwnedAccess("id", connectionOwner), connectionHandler.Reject)
	}
}
