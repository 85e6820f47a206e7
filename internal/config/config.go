package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Postgres  PostgresConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Server    ServerConfig
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

type RedisConfig struct {
	URL          string
	StreamName   string
	StreamMaxLen int64
}

type AuthConfig struct {
	JWTSecret     string
	JWTExpiration time.Duration
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type ServerConfig struct {
	Host        string
	Port        string
	CORSOrigins string
}

func (s ServerConfig) CORSOriginList() []string {
	var origins []string
	for _, origin := range strings.Split(s.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

func Load() Config {
	return Config{
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:          getenv("REDIS_URL", "redis://localhost:6379"),
			StreamName:   getenv("EVENT_STREAM_NAME", "auditflow:events"),
			StreamMaxLen: getenvInt64("EVENT_STREAM_MAXLEN", 100000),
		},
		Auth: AuthConfig{
			JWTSecret:     os.Getenv("JWT_SECRET"),
			JWTExpiration: time.Duration(getenvInt64("JWT_EXPIRATION_MINUTES", 60)) * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Requests: int(getenvInt64("RATE_LIMIT_REQUESTS", 100)),
			Window:   time.Duration(getenvInt64("RATE_LIMIT_WINDOW", 60)) * time.Second,
		},
		Server: ServerConfig{
			Host:        getenv("API_HOST", "0.0.0.0"),
			Port:        getenv("API_PORT", "8000"),
			CORSOrigins: getenv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000"),
		},
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt64(key string, fallback int64) int64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
