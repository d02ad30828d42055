package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// devSecret is only accepted when APP_ENV=development.
const devSecret = "dev-only-session-secret-change-me"

// Config holds the application configuration
type Config struct {
	Env  string
	Port string

	// Database connection string (DSN); built from DB_* parts when DATABASE_URL is empty
	DatabaseURL string

	Session SessionConfig

	// Directory holding the built web UI; served behind the route gate
	WebDir string

	// Directory for uploaded client documents
	UploadDir string

	// Max upload size in bytes for documents and brokerage files
	MaxUploadBytes int

	SMTP SMTPConfig

	// Login and OTP requests allowed per minute per client IP
	LoginRatePerMin int
	LoginBurst      int

	// Bootstrap super admin created on first start when no employee exists
	SeedAdminEmail    string
	SeedAdminPassword string
}

// SessionConfig controls the session cookie and token.
type SessionConfig struct {
	Secret       string
	TTL          time.Duration
	RenewAfter   time.Duration
	CookieSecure bool
}

// SMTPConfig configures OTP mail delivery. An empty Host disables sending.
type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Pass     string
	From     string
	Security string // starttls | ssl | none
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads configuration from environment variables with fallback defaults
func Load() (*Config, error) {
	cfg := &Config{
		Env:         strings.ToLower(getEnv("APP_ENV", "development")),
		Port:        getEnv("PORT", "3000"),
		DatabaseURL: DatabaseURL(),
		Session: SessionConfig{
			Secret:       getEnv("SESSION_SECRET", ""),
			TTL:          getEnvDuration("SESSION_TTL", 30*24*time.Hour),
			RenewAfter:   getEnvDuration("SESSION_RENEW_AFTER", 24*time.Hour),
			CookieSecure: getEnvBool("COOKIE_SECURE", false),
		},
		WebDir:         getEnv("WEB_DIR", "./web/dist"),
		UploadDir:      getEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadBytes: getEnvInt("MAX_UPLOAD_BYTES", 10*1024*1024),
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnv("SMTP_PORT", "587"),
			User:     getEnv("SMTP_USER", ""),
			Pass:     os.Getenv("SMTP_PASS"),
			From:     getEnv("SMTP_FROM", ""),
			Security: strings.ToLower(getEnv("SMTP_SECURITY", "starttls")),
		},
		LoginRatePerMin:   getEnvInt("LOGIN_RATE_PER_MIN", 10),
		LoginBurst:        getEnvInt("LOGIN_BURST", 5),
		SeedAdminEmail:    getEnv("SEED_ADMIN_EMAIL", ""),
		SeedAdminPassword: os.Getenv("SEED_ADMIN_PASSWORD"),
	}

	if cfg.Session.Secret == "" {
		if !cfg.IsDevelopment() {
			return nil, errors.New("SESSION_SECRET is required outside development")
		}
		cfg.Session.Secret = devSecret
	}
	if cfg.Session.TTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive, got %s", cfg.Session.TTL)
	}
	if cfg.Session.RenewAfter <= 0 || cfg.Session.RenewAfter >= cfg.Session.TTL {
		return nil, fmt.Errorf("SESSION_RENEW_AFTER must be between 0 and SESSION_TTL")
	}
	if cfg.LoginRatePerMin <= 0 || cfg.LoginBurst <= 0 {
		return nil, errors.New("LOGIN_RATE_PER_MIN and LOGIN_BURST must be positive")
	}

	return cfg, nil
}

// DatabaseURL returns DATABASE_URL, or a DSN built from the DB_* variables.
func DatabaseURL() string {
	if v := getEnv("DATABASE_URL", ""); v != "" {
		return v
	}
	return dsnFromParts()
}

func dsnFromParts() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=Asia/Kolkata",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_USER", "crm"),
		os.Getenv("DB_PASSWORD"),
		getEnv("DB_NAME", "crm"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_SSLMODE", "disable"),
	)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return fallback
}
