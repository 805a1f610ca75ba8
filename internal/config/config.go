package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	Addr      string
	Env       string
	DataDir   string
	DBPath    string
	StaticDir string

	JWTSecret  string
	JWTExpiry  time.Duration
	BcryptCost int

	RecaptchaEnabled bool
	RecaptchaSecret  string

	LogLevel string
}

// Load reads configuration from the environment, honoring a local .env file
// when present.
func Load() Config {
	_ = godotenv.Load()

	dataDir := getEnv("UNICMS_DATA_DIR", "./data")
	dbPath := getEnv("UNICMS_DB_PATH", filepath.Join(dataDir, "unicms.db"))

	return Config{
		Addr:      getEnv("UNICMS_ADDR", ":8080"),
		Env:       getEnv("UNICMS_ENV", "development"),
		DataDir:   filepath.Clean(dataDir),
		DBPath:    filepath.Clean(dbPath),
		StaticDir: getEnv("UNICMS_STATIC_DIR", detectStaticDir()),

		JWTSecret:  os.Getenv("UNICMS_JWT_SECRET"),
		JWTExpiry:  getDuration("UNICMS_JWT_EXPIRY", 24*time.Hour),
		BcryptCost: getInt("UNICMS_BCRYPT_COST", bcrypt.DefaultCost),

		RecaptchaEnabled: getBool("UNICMS_RECAPTCHA_ENABLED", false),
		RecaptchaSecret:  os.Getenv("UNICMS_RECAPTCHA_SECRET"),

		LogLevel: getEnv("UNICMS_LOG_LEVEL", "info"),
	}
}

// IsProduction reports whether test-bypass mechanisms must be disabled.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// ImagesDir is the permanent image directory.
func (c Config) ImagesDir() string { return filepath.Join(c.DataDir, "images") }

// TempImagesDir holds optimized images that have not been promoted yet.
func (c Config) TempImagesDir() string { return filepath.Join(c.DataDir, "temp_images") }

// TempUploadsDir is the raw multipart staging directory.
func (c Config) TempUploadsDir() string { return filepath.Join(c.DataDir, "temp_uploads") }

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}

func getBool(key string, fallback bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func detectStaticDir() string {
	candidates := []string{
		"./admin/dist",
		"../admin/dist",
	}
	for _, candidate := range candidates {
		indexPath := filepath.Join(candidate, "index.html")
		if info, err := os.Stat(indexPath); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return "./admin/dist"
}
