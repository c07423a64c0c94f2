package config

import (
	"time"

	"github.com/joho/godotenv"

	"tasktracker/internal/util"
)

// Config carries everything the binary needs at startup. Values come from the
// environment (with an optional .env file) and fall back to development
// defaults so the server runs out of the box.
type Config struct {
	Addr          string
	DBPath        string
	StaticDir     string
	JWTSecret     string
	AdminEmail    string
	AdminPassword string
	TokenTTL      time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in when present.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Addr:          util.EnvOrDefault("TRACKER_ADDR", ":8080"),
		DBPath:        util.EnvOrDefault("TRACKER_DB_PATH", "data/tracker.db"),
		StaticDir:     util.EnvOrDefault("TRACKER_STATIC_DIR", "web/dist"),
		JWTSecret:     util.EnvOrDefault("TRACKER_JWT_SECRET", "your_jwt_secret_key"),
		AdminEmail:    util.EnvOrDefault("TRACKER_ADMIN_EMAIL", "admin@company.com"),
		AdminPassword: util.EnvOrDefault("TRACKER_ADMIN_PASSWORD", "admin123"),
		TokenTTL:      24 * time.Hour,
	}

	if raw := util.EnvOrDefault("TRACKER_TOKEN_TTL", ""); raw != "" {
		if ttl, err := time.ParseDuration(raw); err == nil && ttl > 0 {
			cfg.TokenTTL = ttl
		}
	}

	return cfg
}
