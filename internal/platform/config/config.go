package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config captures everything main needs to wire the service.
type Config struct {
	Server   Server
	Database Database
	Redis    Redis
	Identity Identity
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	JWTSigningKey   string
	ShutdownTimeout time.Duration
}

// Database captures the PostgreSQL connection settings. An empty URL selects
// the in-memory stores. QueryTimeout bounds every single store call; without
// it a hung query pins the lifecycle locks for as long as the query hangs.
type Database struct {
	URL          string
	QueryTimeout time.Duration
}

// Redis captures the distributed lock backend settings. An empty URL selects
// the in-process locker.
type Redis struct {
	URL     string
	LockTTL time.Duration
}

// Identity captures the upstream identity system settings.
type Identity struct {
	BaseURL string
	Timeout time.Duration
}

// FromEnv builds the config from environment variables so main stays lean.
// A .env file, when present, is loaded first; real environment variables win.
func FromEnv() Config {
	_ = godotenv.Load()

	return Config{
		Server: Server{
			Addr:            envOr("DOMIO_ADDR", ":8080"),
			JWTSigningKey:   envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: Database{
			URL:          os.Getenv("DATABASE_URL"),
			QueryTimeout: envDuration("DB_QUERY_TIMEOUT", 5*time.Second),
		},
		Redis: Redis{
			URL:     os.Getenv("REDIS_URL"),
			LockTTL: envDuration("LOCK_TTL", 30*time.Second),
		},
		Identity: Identity{
			BaseURL: os.Getenv("IDENTITY_BASE_URL"),
			Timeout: envDuration("IDENTITY_TIMEOUT", 5*time.Second),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
