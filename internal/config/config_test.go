package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "STORE_BACKEND", "AUTO_PLAY_DELAY_MS", "MAX_SESSIONS", "QUIZ_STORE_KEY", "SESSION_IDLE_TTL"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.StoreBackend != StoreMemory || cfg.QuizStoreKey != "pgns" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.AutoPlayDelay != 500*time.Millisecond || cfg.DefaultSquareSize != 100 {
		t.Fatalf("unexpected quiz defaults %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/2")
	t.Setenv("AUTO_PLAY_DELAY_MS", "0")
	t.Setenv("MAX_SESSIONS", "3")
	t.Setenv("EVENTS_ADDR", "")
	t.Setenv("EVENTS_ORIGINS", "localhost:3000, example.com ,")
	t.Setenv("RATE_LIMIT_PER_SEC", "-1")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreBackend != StoreRedis || cfg.AutoPlayDelay != 0 || cfg.MaxSessions != 3 || cfg.EventsAddr != "" {
		t.Fatalf("overrides not applied %+v", cfg)
	}
	if len(cfg.EventsOrigins) != 2 || cfg.EventsOrigins[1] != "example.com" || cfg.RateLimit != -1 {
		t.Fatalf("events/rate overrides not applied %+v", cfg)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]map[string]string{
		"redis without url":    {"STORE_BACKEND": "redis", "REDIS_URL": ""},
		"postgres without dsn": {"STORE_BACKEND": "postgres", "DATABASE_URL": ""},
		"unknown backend":      {"STORE_BACKEND": "sqlite"},
		"bad delay":            {"STORE_BACKEND": "", "AUTO_PLAY_DELAY_MS": "-5"},
		"bad rate limit":       {"STORE_BACKEND": "", "RATE_LIMIT_PER_SEC": "fast"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
