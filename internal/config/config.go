// Package config loads server configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the full set of environment-derived settings for fleetd.
type Config struct {
	Port     string
	LogLevel string
	LogPretty bool
	BaseURL  string

	DatabaseURL string
	// AppDBRole/AdminDBRole let operators point the two pools at distinct
	// Postgres roles sharing one DATABASE_URL host/port/dbname.
	AppDBRole   string
	AdminDBRole string

	AdminToken string

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	ProposalTTLDefault  time.Duration
	SessionTTL          time.Duration
	SessionReapInterval time.Duration
	SessionBackend      string // "memory" | "redis"
	RedisAddr           string

	ChatBackendURL   string
	ChatBackendModel string
	ChatBackendAPIKey string
}

// Load reads configuration from the environment, applying conventional
// defaults: local Postgres, INFO logging, no pretty-printing.
func Load() *Config {
	return &Config{
		Port:      getenv("PORT", "8080"),
		LogLevel:  getenv("LOG_LEVEL", "INFO"),
		LogPretty: getenv("LOG_PRETTY", "false") == "true",
		BaseURL:   getenv("BASE_URL", "http://localhost:8080"),

		DatabaseURL: getenv("DATABASE_URL", "postgres://fleetintel@localhost:5432/fleetintel?sslmode=disable"),
		AppDBRole:   getenv("APP_DB_ROLE", "fleetintel_app"),
		AdminDBRole: getenv("ADMIN_DB_ROLE", "fleetintel_admin"),

		AdminToken: os.Getenv("ADMIN_TOKEN"),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: getenv("SMTP_PORT", "587"),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		SMTPFrom: getenv("SMTP_FROM", "no-reply@fleetintel.local"),

		ProposalTTLDefault:  getenvDuration("PROPOSAL_TTL_DEFAULT", 15*time.Minute),
		SessionTTL:          getenvDuration("SESSION_TTL", 30*time.Minute),
		SessionReapInterval: getenvDuration("SESSION_REAP_INTERVAL", 5*time.Minute),
		SessionBackend:      getenv("SESSION_BACKEND", "memory"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),

		ChatBackendURL:    getenv("CHAT_BACKEND_URL", "https://api.openai.com/v1/chat/completions"),
		ChatBackendModel:  getenv("CHAT_BACKEND_MODEL", "gpt-4o-mini"),
		ChatBackendAPIKey: os.Getenv("CHAT_BACKEND_API_KEY"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
