package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database  DatabaseConfig
	JWT       JWTConfig
	Server    ServerConfig
	CORS      CORSConfig
	Log       LogConfig
	AWS       AWSConfig
	Redis     RedisConfig
	OTP       OTPConfig
	RateLimit RateLimitConfig
	Matching  MatchingConfig
	Notify    NotifyConfig
	Admin     AdminConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

type JWTConfig struct {
	AccessSecret       string
	RefreshSecret      string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

type ServerConfig struct {
	Port    string
	GinMode string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

type AWSConfig struct {
	Region         string
	SESFromEmail   string
	SNSSenderID    string
	S3Bucket       string
	DocumentURLTTL time.Duration
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type OTPConfig struct {
	Required    bool
	TTL         time.Duration
	MaxAttempts int
	VerifiedTTL time.Duration
}

type RateLimitConfig struct {
	PerSecond float64
	Burst     int
}

type MatchingConfig struct {
	DefaultRadiusKm float64
	MaxRadiusKm     float64
}

type NotifyConfig struct {
	Enabled    bool
	AdminEmail string
}

// AdminConfig seeds the first platform administrator.
type AdminConfig struct {
	Email    string
	Password string
}

func LoadConfig() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "3306"),
			User:     getEnv("DB_USER", "root"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "bloodlink"),
		},
		JWT: JWTConfig{
			AccessSecret:       getEnv("JWT_ACCESS_SECRET", "your-access-secret-key"),
			RefreshSecret:      getEnv("JWT_REFRESH_SECRET", "your-refresh-secret-key"),
			AccessTokenExpiry:  parseDuration(getEnv("ACCESS_TOKEN_EXPIRY", "15m"), 15*time.Minute),
			RefreshTokenExpiry: parseDuration(getEnv("REFRESH_TOKEN_EXPIRY", "168h"), 168*time.Hour),
		},
		Server: ServerConfig{
			Port:    getEnv("PORT", "8080"),
			GinMode: getEnv("GIN_MODE", "debug"),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		AWS: AWSConfig{
			Region:         getEnv("AWS_REGION", "us-east-1"),
			SESFromEmail:   getEnv("SES_FROM_EMAIL", "no-reply@bloodlink.local"),
			SNSSenderID:    getEnv("SNS_SENDER_ID", "BLOODLINK"),
			S3Bucket:       getEnv("S3_BUCKET", ""),
			DocumentURLTTL: parseDuration(getEnv("DOCUMENT_URL_TTL", "15m"), 15*time.Minute),
		},
		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		},
		OTP: OTPConfig{
			Required:    parseBool(getEnv("OTP_REQUIRED", "true"), true),
			TTL:         parseDuration(getEnv("OTP_TTL", "5m"), 5*time.Minute),
			MaxAttempts: parseInt(getEnv("OTP_MAX_ATTEMPTS", "5"), 5),
			VerifiedTTL: parseDuration(getEnv("OTP_VERIFIED_TTL", "30m"), 30*time.Minute),
		},
		RateLimit: RateLimitConfig{
			PerSecond: parseFloat(getEnv("RATE_LIMIT_RPS", "1"), 1),
			Burst:     parseInt(getEnv("RATE_LIMIT_BURST", "5"), 5),
		},
		Matching: MatchingConfig{
			DefaultRadiusKm: parseFloat(getEnv("MATCH_DEFAULT_RADIUS_KM", "25"), 25),
			MaxRadiusKm:     parseFloat(getEnv("MATCH_MAX_RADIUS_KM", "200"), 200),
		},
		Notify: NotifyConfig{
			Enabled:    parseBool(getEnv("NOTIFY_ENABLED", "false"), false),
			AdminEmail: getEnv("ADMIN_EMAIL", "admin@bloodlink.local"),
		},
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", "admin@bloodlink.local"),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
	}

	return config
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		fmt.Printf("Warning: Invalid duration format '%s', using default\n", s)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		fmt.Printf("Warning: Invalid integer '%s', using default\n", s)
		return fallback
	}
	return v
}

func parseFloat(s string, fallback float64) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		fmt.Printf("Warning: Invalid number '%s', using default\n", s)
		return fallback
	}
	return v
}

func parseBool(s string, fallback bool) bool {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fallback
	}
	return v
}

func parseList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
