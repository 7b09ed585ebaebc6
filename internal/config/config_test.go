package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DB_NAME", "")
	t.Setenv("OTP_REQUIRED", "")

	cfg := LoadConfig()

	assert.Equal(t, "bloodlink", cfg.Database.Database)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenExpiry)
	assert.True(t, cfg.OTP.Required)
	assert.Equal(t, 25.0, cfg.Matching.DefaultRadiusKm)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("OTP_REQUIRED", "false")
	t.Setenv("MATCH_MAX_RADIUS_KM", "80.5")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("ACCESS_TOKEN_EXPIRY", "not-a-duration")

	cfg := LoadConfig()

	assert.False(t, cfg.OTP.Required)
	assert.Equal(t, 80.5, cfg.Matching.MaxRadiusKm)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenExpiry)
}
