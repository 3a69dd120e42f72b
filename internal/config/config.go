// Package config loads application configuration from environment variables.
//
// Every field of Config corresponds to one env var. main.go loads an optional
// .env file (via godotenv) before calling Load, so local development can keep
// secrets out of the shell profile while production sets real env vars.
//
// MISSING OAUTH SECRETS ARE NOT FATAL:
// The login flow must answer with a `config_error` redirect when the 42
// credentials are absent (a browser mid-navigation can't parse a crash).
// Load therefore records what is missing instead of exiting; the auth handler
// checks OAuthConfigured() per request.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// Defaults used when the corresponding env var is unset.
const (
	DefaultPort    = 8080
	DefaultDBPath  = "data/praxis42.db"
	DefaultAppURL  = "http://localhost:8080"
	MinSecretChars = 16
)

// Config holds all runtime configuration values.
type Config struct {
	Port   int    // PORT — HTTP listen port
	DBPath string // DB_PATH — SQLite database file (":memory:" for tests)

	// Session signing
	JWTSecret string // JWT_SECRET — HMAC key for session credentials

	// 42 Network OAuth application credentials
	FortyTwoClientID     string // FORTYTWO_CLIENT_ID
	FortyTwoClientSecret string // FORTYTWO_CLIENT_SECRET
	FortyTwoCallbackURL  string // FORTYTWO_CALLBACK_URL — must match the app registration
	AppURL               string // APP_URL — client base URL for post-login redirects

	// Optional response cache for the 42 API proxy
	RedisURL string // REDIS_URL — empty disables caching
}

// Load reads configuration from the environment.
//
// It fails only on values that make the server unable to start at all
// (unparseable PORT, missing/short JWT_SECRET). OAuth credentials may be
// absent — see OAuthConfigured.
func Load() (Config, error) {
	cfg := Config{
		Port:                 DefaultPort,
		DBPath:               getenv("DB_PATH", DefaultDBPath),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		FortyTwoClientID:     os.Getenv("FORTYTWO_CLIENT_ID"),
		FortyTwoClientSecret: os.Getenv("FORTYTWO_CLIENT_SECRET"),
		AppURL:               getenv("APP_URL", DefaultAppURL),
		RedisURL:             os.Getenv("REDIS_URL"),
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("config: invalid PORT %q: %w", portStr, err)
		}
		cfg.Port = port
	}

	// The callback URL defaults to the app URL — the 42 app registration must
	// list the exact same value.
	cfg.FortyTwoCallbackURL = getenv("FORTYTWO_CALLBACK_URL",
		cfg.AppURL+"/auth/42/callback")

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("config: JWT_SECRET is required")
	}
	if len(cfg.JWTSecret) < MinSecretChars {
		return Config{}, fmt.Errorf("config: JWT_SECRET must be at least %d characters", MinSecretChars)
	}

	return cfg, nil
}

// OAuthConfigured reports whether the 42 OAuth credentials are present.
// When false the login endpoints answer with error=config_error instead of
// attempting an exchange that cannot succeed.
func (c Config) OAuthConfigured() bool {
	return c.FortyTwoClientID != "" && c.FortyTwoClientSecret != ""
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
