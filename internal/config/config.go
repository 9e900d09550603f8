package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type AppConfig struct {
	HTTPAddr   string
	EventsAddr string
	// EventsOrigins are websocket origin patterns accepted besides same-host.
	EventsOrigins []string
	// RateLimit is API requests per second per client; negative disables.
	RateLimit int

	StoreBackend string
	RedisURL     string
	DatabaseURL  string
	QuizStoreKey string

	AutoPlayDelay     time.Duration
	DefaultSquareSize int
	MaxSessions       int
	SessionIdleTTL    time.Duration

	MessagesDir string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:          ":8080",
		EventsAddr:        ":8081",
		StoreBackend:      StoreMemory,
		QuizStoreKey:      "pgns",
		AutoPlayDelay:     500 * time.Millisecond,
		DefaultSquareSize: 100,
		MaxSessions:       256,
		SessionIdleTTL:    2 * time.Hour,
		RateLimit:         20,
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v, ok := os.LookupEnv("EVENTS_ADDR"); ok {
		// empty disables the websocket listener
		cfg.EventsAddr = strings.TrimSpace(v)
	}
	if v := strings.TrimSpace(os.Getenv("EVENTS_ORIGINS")); v != "" {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.EventsOrigins = append(cfg.EventsOrigins, p)
			}
		}
	}
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_PER_SEC")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("RATE_LIMIT_PER_SEC: invalid value %q", v)
		}
		cfg.RateLimit = n
	}

	if v := strings.TrimSpace(os.Getenv("STORE_BACKEND")); v != "" {
		cfg.StoreBackend = strings.ToLower(v)
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if v := strings.TrimSpace(os.Getenv("QUIZ_STORE_KEY")); v != "" {
		cfg.QuizStoreKey = v
	}

	if v := strings.TrimSpace(os.Getenv("AUTO_PLAY_DELAY_MS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("AUTO_PLAY_DELAY_MS: invalid value %q", v)
		}
		cfg.AutoPlayDelay = time.Duration(n) * time.Millisecond
	}
	if v := strings.TrimSpace(os.Getenv("DEFAULT_SQUARE_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DefaultSquareSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("MAX_SESSIONS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxSessions = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("SESSION_IDLE_TTL")); v != "" { // Go duration, e.g. 30m
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("SESSION_IDLE_TTL: %w", err)
		}
		cfg.SessionIdleTTL = d
	}
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	switch cfg.StoreBackend {
	case StoreMemory:
	case StoreRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required when STORE_BACKEND=redis")
		}
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	default:
		return nil, fmt.Errorf("STORE_BACKEND: unsupported backend %q", cfg.StoreBackend)
	}

	return cfg, nil
}
