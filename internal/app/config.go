package app

import (
	"os"
	"strconv"
	"time"

	"github.com/tailortalk/server/internal/service"
	"github.com/tailortalk/server/pkg/jwtx"
)

type Config struct {
	Issuer string // Issuer claim for session tokens (default: tailortalk)

	GoogleClientID     string // Required: OAuth client id for the Google project
	GoogleClientSecret string // Required: OAuth client secret
	GoogleRedirectURL  string // Required: callback URL registered with Google

	MasterKey    string // Optional: master secret for encryption and signing (ephemeral random key if unset)
	DatabaseFile string // Optional: path to SQLite database file (default: ./tailortalk.db)

	SessionTTL         time.Duration // Session validity window (default: 24h)
	SessionRetention   time.Duration // How long expired sessions linger before purge (default: 72h)
	FlowStateTTL       time.Duration // How long a pending flow stays redeemable (default: 10m)
	TokenRefreshMargin time.Duration // Pre-expiry margin that triggers a refresh (default: 5m)
	ProviderTimeout    time.Duration // Deadline on calls to Google (default: 15s)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer: getEnvOrDefault("TAILORTALK_ISSUER", "tailortalk"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),

		MasterKey:    os.Getenv("AUTH_MASTER_KEY"),
		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "tailortalk.db"),

		SessionTTL:         getEnvDurationOrDefault("SESSION_TTL", jwtx.DefaultSessionTokenTTL),
		SessionRetention:   getEnvDurationOrDefault("SESSION_RETENTION", service.DefaultSessionRetention),
		FlowStateTTL:       getEnvDurationOrDefault("FLOW_STATE_TTL", service.DefaultStateTTL),
		TokenRefreshMargin: getEnvDurationOrDefault("TOKEN_REFRESH_MARGIN", service.DefaultRefreshMargin),
		ProviderTimeout:    getEnvDurationOrDefault("PROVIDER_TIMEOUT", service.DefaultProviderTimeout),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Duration strings like "1h", "30m", "90s".
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are taken as minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
