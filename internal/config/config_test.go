package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"unicms/backend/internal/config"
)

func TestLoad(t *testing.T) {
	os.Setenv("UNICMS_ADDR", ":9999")
	os.Setenv("UNICMS_DATA_DIR", "/tmp/unicms")
	os.Setenv("UNICMS_LOG_LEVEL", "debug")
	os.Setenv("UNICMS_JWT_SECRET", "test-secret")
	os.Setenv("UNICMS_JWT_EXPIRY", "2h")
	os.Setenv("UNICMS_BCRYPT_COST", "12")
	os.Setenv("UNICMS_RECAPTCHA_ENABLED", "true")
	defer func() {
		os.Unsetenv("UNICMS_ADDR")
		os.Unsetenv("UNICMS_DATA_DIR")
		os.Unsetenv("UNICMS_LOG_LEVEL")
		os.Unsetenv("UNICMS_JWT_SECRET")
		os.Unsetenv("UNICMS_JWT_EXPIRY")
		os.Unsetenv("UNICMS_BCRYPT_COST")
		os.Unsetenv("UNICMS_RECAPTCHA_ENABLED")
	}()

	cfg := config.Load()
	require.Equal(t, ":9999", cfg.Addr)
	require.Equal(t, "/tmp/unicms", cfg.DataDir)
	require.Contains(t, cfg.DBPath, "/tmp/unicms/unicms.db")
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "test-secret", cfg.JWTSecret)
	require.Equal(t, 2*time.Hour, cfg.JWTExpiry)
	require.Equal(t, 12, cfg.BcryptCost)
	require.True(t, cfg.RecaptchaEnabled)
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"UNICMS_ADDR", "UNICMS_DATA_DIR", "UNICMS_DB_PATH", "UNICMS_ENV",
		"UNICMS_JWT_EXPIRY", "UNICMS_BCRYPT_COST", "UNICMS_RECAPTCHA_ENABLED",
	} {
		os.Unsetenv(key)
	}

	cfg := config.Load()
	require.Equal(t, ":8080", cfg.Addr)
	require.Equal(t, "data", cfg.DataDir)
	require.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	require.False(t, cfg.RecaptchaEnabled)
	require.False(t, cfg.IsProduction())
}

func TestConfig_Directories(t *testing.T) {
	cfg := config.Config{DataDir: "/srv/unicms"}
	require.Equal(t, "/srv/unicms/images", cfg.ImagesDir())
	require.Equal(t, "/srv/unicms/temp_images", cfg.TempImagesDir())
	require.Equal(t, "/srv/unicms/temp_uploads", cfg.TempUploadsDir())
}

func TestConfig_IsProduction(t *testing.T) {
	require.True(t, config.Config{Env: "production"}.IsProduction())
	require.True(t, config.Config{Env: "PRODUCTION"}.IsProduction())
	require.False(t, config.Config{Env: "development"}.IsProduction())
	require.False(t, config.Config{Env: ""}.IsProduction())
}
