// Package config loads the process configuration from the environment. A
// local .env file is honored for development; required values fail fast.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type HTTPConfig struct {
	Addr string
}

type Config struct {
	ServiceName string
	LogLevel    string
	AppEnv      string
	HTTP        HTTPConfig

	// Relational collaborator: movies, accounts.
	PostgresURL string
	// Document collaborator: ratings, comments, messages, users.
	MongoURI string
	MongoDB  string

	RedisAddr     string
	RedisPassword string
	NATSURL       string

	JWTSecret string
	JWTTTL    time.Duration
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ServiceName: envOr("SERVICE_NAME", "movie-platform"),
		LogLevel:    envOr("LOG_LEVEL", "info"),
		AppEnv:      envOr("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Addr: envOr("HTTP_ADDR", ":8080"),
		},
		PostgresURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		MongoURI:      strings.TrimSpace(os.Getenv("MONGO_URI")),
		MongoDB:       envOr("MONGO_DB", "movies"),
		RedisAddr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword: strings.TrimSpace(os.Getenv("REDIS_PASSWORD")),
		NATSURL:       strings.TrimSpace(os.Getenv("NATS_URL")),
		JWTSecret:     strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTTTL:        durationOr("JWT_TTL", time.Hour),
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	return cfg, nil
}

// IsProduction reports whether the process runs with production guarantees:
// persistent stores are required instead of in-memory fallbacks.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func envOr(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func durationOr(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
