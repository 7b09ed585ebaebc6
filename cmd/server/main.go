package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"bloodlink-backend/internal/config"
	"bloodlink-backend/internal/database"
	"bloodlink-backend/internal/handler"
	"bloodlink-backend/internal/logger"
	"bloodlink-backend/internal/metrics"
	"bloodlink-backend/internal/middleware"
	"bloodlink-backend/internal/notify"
	"bloodlink-backend/internal/otp"
	"bloodlink-backend/internal/repository"
	"bloodlink-backend/internal/service"
	"bloodlink-backend/internal/storage"
	"bloodlink-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	// 1. Load configuration
	cfg := config.LoadConfig()
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Initialize JWT utilities with config
	utils.InitJWT(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)

	// 3. Initialize database connection
	db, err := database.Connect(cfg, log)
	if err != nil {
		log.Fatal("database unavailable", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	// 4. Initialize repositories
	appRepo := repository.NewApplicationRepo(db)
	hospitalRepo := repository.NewHospitalRepo(db)
	userRepo := repository.NewUserRepo(db)
	userHospitalRepo := repository.NewUserHospitalRepo(db)
	donorRepo := repository.NewDonorRepo(db)
	requestRepo := repository.NewBloodRequestRepo(db)
	connectionRepo := repository.NewConnectionRepo(db)

	// 5. Collaborators: notifications, documents, OTP
	async := notify.NewAsync(buildNotifier(ctx, cfg, log), 256, log)
	go async.Start(ctx)

	documents := buildDocumentStore(ctx, cfg, log)
	otpService := buildOTP(ctx, cfg, rdb, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// 6. Initialize services
	services := handler.Services{
		Applications: service.NewApplicationService(appRepo, async, m, cfg.Notify.AdminEmail, log),
		Provisioning: service.NewProvisioningService(appRepo, hospitalRepo,
			service.NewLocalAccountProvisioner(userRepo, userHospitalRepo), async, m, log),
		Matching:    service.NewMatchingService(donorRepo, requestRepo, cfg.Matching.MaxRadiusKm, m),
		Connections: service.NewConnectionService(connectionRepo, donorRepo, requestRepo, hospitalRepo, async, m, log),
		Auth:        service.NewAuthService(userRepo, userHospitalRepo, log),
		Hospitals:   service.NewHospitalService(hospitalRepo, userHospitalRepo, log),
		Donors:      service.NewDonorService(donorRepo, log),
		Requests:    service.NewRequestService(requestRepo, hospitalRepo, log),
	}

	if err := services.Auth.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		log.Error("could not seed admin account", zap.Error(err))
	}

	// 7. Background workers
	worker := service.NewExpiryWorker(requestRepo, time.Minute, log)
	go worker.Start(ctx)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
	go limiter.Run(ctx)

	// 8. Setup Gin router
	gin.SetMode(cfg.Server.GinMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log), middleware.CORS(cfg))

	var verifier handler.PhoneVerifier
	if cfg.OTP.Required {
		verifier = otpService
	}
	handler.RegisterRoutes(r, services, handler.RouterOptions{
		Application:     handler.NewApplicationHandler(services.Applications, documents, verifier, cfg.AWS.DocumentURLTTL),
		OTP:             handler.NewOTPHandler(otpService),
		RateLimiter:     limiter,
		Metrics:         m,
		DefaultRadiusKm: cfg.Matching.DefaultRadiusKm,
		SecureCookies:   cfg.Server.GinMode == gin.ReleaseMode,
		Health: func(ctx context.Context) error {
			return pingDB(ctx, db)
		},
	})

	// 9. Serve until a shutdown signal arrives
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}

	select {
	case <-async.Done():
	case <-shutdownCtx.Done():
		log.Warn("notification queue not drained before shutdown")
	}
	log.Info("server exited")
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return database.Ping(ctx, db)
}

// buildNotifier sends email through SES when enabled, otherwise logs messages.
func buildNotifier(ctx context.Context, cfg *config.Config, log *zap.Logger) notify.Notifier {
	if !cfg.Notify.Enabled {
		log.Info("email notifications disabled; logging instead")
		return notify.NewLogNotifier(log)
	}
	client, err := notify.NewSESClient(ctx, cfg.AWS.Region)
	if err != nil {
		log.Error("SES client unavailable; logging notifications instead", zap.Error(err))
		return notify.NewLogNotifier(log)
	}
	return notify.NewEmailNotifier(client, cfg.AWS.SESFromEmail, log)
}

// buildDocumentStore uses S3 when a bucket is configured and process memory otherwise.
func buildDocumentStore(ctx context.Context, cfg *config.Config, log *zap.Logger) storage.DocumentStore {
	if cfg.AWS.S3Bucket == "" {
		log.Warn("S3_BUCKET not set; documents are kept in memory")
		return storage.NewMemoryStore("http://localhost:" + cfg.Server.Port + "/files")
	}
	client, presigner, err := storage.NewS3Clients(ctx, cfg.AWS.Region)
	if err != nil {
		log.Fatal("S3 client unavailable", zap.Error(err))
	}
	return storage.NewS3Store(client, presigner, cfg.AWS.S3Bucket, cfg.AWS.DocumentURLTTL)
}

func buildOTP(ctx context.Context, cfg *config.Config, rdb *redis.Client, log *zap.Logger) *otp.Service {
	client, err := otp.NewSNSClient(ctx, cfg.AWS.Region)
	if err != nil {
		log.Fatal("SNS client unavailable", zap.Error(err))
	}
	return otp.NewService(otp.NewRedisStore(rdb), otp.NewSNSSender(client, cfg.AWS.SNSSenderID), otp.Config{
		TTL:         cfg.OTP.TTL,
		VerifiedTTL: cfg.OTP.VerifiedTTL,
		MaxAttempts: cfg.OTP.MaxAttempts,
	}, log)
}
