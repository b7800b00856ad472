package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the service
type Config struct {
	Port     string
	Env      string
	LogLevel string

	UsersFile string
	CookieKey string

	PreprocessorPath string
	ModelPath        string

	DatabasePath string

	R2Endpoint  string
	AWSRegion   string
	AWSAccessID string
	AWSSecret   string

	ServiceAccountFile string
	LoginSheetID       string
	LoginSheetTab      string

	// Login attempts allowed per IP per minute.
	LoginRateLimit int
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	// A missing .env is fine, variables may come from the environment.
	_ = godotenv.Load()

	rateLimit, err := strconv.Atoi(getEnv("LOGIN_RATE_LIMIT", "10"))
	if err != nil || rateLimit <= 0 {
		return nil, fmt.Errorf("LOGIN_RATE_LIMIT must be a positive integer, got %q", os.Getenv("LOGIN_RATE_LIMIT"))
	}

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		UsersFile:          getEnv("USERS_FILE", "allowed_users.yaml"),
		CookieKey:          os.Getenv("COOKIE_KEY"),
		PreprocessorPath:   getEnv("PREPROCESSOR_PATH", "artifacts/preprocessor_mov_pred_1.json"),
		ModelPath:          getEnv("MODEL_PATH", "artifacts/voting_classifier_mov_pred_1.json"),
		DatabasePath:       getEnv("DATABASE_PATH", "movie_app.db"),
		R2Endpoint:         os.Getenv("R2_ENDPOINT"),
		AWSRegion:          getEnv("AWS_REGION", "auto"),
		AWSAccessID:        os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecret:          os.Getenv("AWS_SECRET_ACCESS_KEY"),
		ServiceAccountFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
		LoginSheetID:       os.Getenv("LOGIN_SHEET_ID"),
		LoginSheetTab:      getEnv("LOGIN_SHEET_TAB", "movie_app"),
		LoginRateLimit:     rateLimit,
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SheetsEnabled reports whether login rows should go to the spreadsheet.
func (c *Config) SheetsEnabled() bool {
	return c.ServiceAccountFile != "" && c.LoginSheetID != ""
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
