// Package config loads the application configuration from the environment.
//
// All tunables live in one explicit struct that main() loads once and
// injects into the components that need it — no package reads os.Getenv at
// request time. A .env file is honored when present (godotenv), which keeps
// local development close to how the process runs in production.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/sakif/auth-service/internal/auth"
	"github.com/sakif/auth-service/internal/mail"
)

// Config is the full set of environment-sourced settings.
type Config struct {
	Env  string // "local" or "production"
	Port int

	MongoURI string
	MongoDB  string

	JWTSecret   string
	BcryptCost  int
	CSRFAuthKey string

	CORSOrigin string
	AppBaseURL string // base for links put in emails, e.g. https://app.example.com

	RateLimit  int           // requests per client per window
	RateWindow time.Duration // fixed window length

	SMTP mail.Config
}

// IsProduction reports whether the process runs with production hardening
// (Secure cookies, CSRF cookie over HTTPS only).
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads the environment (and .env, if present) into a Config.
//
// MONGO_URI and JWT_SECRET are required; everything else has a default.
// Missing required keys fail startup rather than limping along to the
// first request.
func Load() (*Config, error) {
	// Absent .env is fine — in production everything comes from real env.
	_ = godotenv.Load()

	cfg := &Config{
		Env:         getenv("ENV", "local"),
		MongoURI:    os.Getenv("MONGO_URI"),
		MongoDB:     getenv("MONGO_DB", "authdb"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		CSRFAuthKey: os.Getenv("CSRF_AUTH_KEY"),
		CORSOrigin:  getenv("CORS_ORIGIN", "http://localhost:3000"),
		SMTP: mail.Config{
			Host: os.Getenv("SMTP_HOST"),
			User: os.Getenv("SMTP_USER"),
			Pass: os.Getenv("SMTP_PASS"),
			From: os.Getenv("SMTP_FROM"),
		},
	}

	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("config: MONGO_URI is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET is required")
	}
	if cfg.CSRFAuthKey == "" {
		// Falling back keeps single-secret deployments simple; set a
		// dedicated CSRF_AUTH_KEY to rotate them independently.
		cfg.CSRFAuthKey = cfg.JWTSecret
	}

	var err error
	if cfg.Port, err = getenvInt("PORT", 3000); err != nil {
		return nil, err
	}
	if cfg.BcryptCost, err = getenvInt("BCRYPT_COST", auth.DefaultCost); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = getenvInt("RATE_LIMIT", 100); err != nil {
		return nil, err
	}
	if cfg.SMTP.Port, err = getenvInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}

	window, err := getenvInt("RATE_WINDOW_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	cfg.RateWindow = time.Duration(window) * time.Second

	cfg.AppBaseURL = getenv("APP_BASE_URL", fmt.Sprintf("http://localhost:%d", cfg.Port))

	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer, got %q", key, v)
	}
	return n, nil
}
