package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Config holds the application configuration
type Config struct {
	DatabaseURL string
	Port        string
	JWTSecret   string

	// OTPDevMode echoes issued codes in the send-otp response. Never enable in production.
	OTPDevMode bool

	// DefaultInstitutionPassword is used when an institution is onboarded without a password.
	DefaultInstitutionPassword string

	UploadDir        string
	RedisURL         string
	CORSOrigins      []string
	LogLevel         string
	LogFormat        string
	OTPSweepSchedule string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:                       "5000",
		DefaultInstitutionPassword: "123456",
		UploadDir:                  "uploads",
		CORSOrigins:                []string{"*"},
		LogLevel:                   "info",
		LogFormat:                  "json",
		OTPSweepSchedule:           "@every 15m",
	}

	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	cfg.DatabaseURL = databaseURL

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	cfg.JWTSecret = jwtSecret

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	cfg.OTPDevMode = os.Getenv("OTP_DEV_MODE") == "true"

	if pw := os.Getenv("DEFAULT_INSTITUTION_PASSWORD"); pw != "" {
		cfg.DefaultInstitutionPassword = pw
	}
	if dir := os.Getenv("UPLOAD_DIR"); dir != "" {
		cfg.UploadDir = dir
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		cfg.LogLevel = strings.ToLower(lvl)
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.LogFormat = strings.ToLower(format)
	}
	if schedule := os.Getenv("OTP_SWEEP_SCHEDULE"); schedule != "" {
		cfg.OTPSweepSchedule = schedule
	}

	return cfg, nil
}

// MaskedDatabaseURL returns the DSN with the password replaced by ****.
func (c *Config) MaskedDatabaseURL() string {
	u, err := url.Parse(c.DatabaseURL)
	if err != nil {
		return "(invalid DATABASE_URL)"
	}
	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), "****")
		}
	}
	return u.String()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
