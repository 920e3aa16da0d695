package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Notify modes.
const (
	NotifyHTTP = "http"
	NotifyWS   = "ws"
	NotifyAuto = "auto"
)

type AppConfig struct {
	LevelName  string
	LevelDir   string
	MessageDir string

	RedisURL    string
	DatabaseURL string

	NotifyBaseURL string
	NotifyWSURL   string
	NotifyMode    string

	RenderOut string

	Seed               uint64
	SeedSet            bool
	SessionTTL         time.Duration
	ShuffleMaxAttempts int
}

// Load reads the environment. Every field is optional except that a notify
// mode needs its endpoint.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		LevelName:          "level1",
		NotifyMode:         NotifyAuto,
		SessionTTL:         time.Hour,
		ShuffleMaxAttempts: 200,
	}

	if v := env("LEVEL_NAME"); v != "" {
		cfg.LevelName = v
	}
	cfg.LevelDir = env("LEVEL_DIR")
	cfg.MessageDir = env("MESSAGE_DIR")

	cfg.RedisURL = env("REDIS_URL")
	cfg.DatabaseURL = env("DATABASE_URL")

	cfg.NotifyBaseURL = env("NOTIFY_BASE_URL")
	cfg.NotifyWSURL = env("NOTIFY_WS_URL")
	if v := strings.ToLower(env("NOTIFY_MODE")); v != "" {
		cfg.NotifyMode = v
	}

	cfg.RenderOut = env("RENDER_OUT")

	if v := env("SEED"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, errors.New("SEED must be an unsigned integer")
		}
		cfg.Seed = n
		cfg.SeedSet = true
	}
	if v := env("SESSION_TTL"); v != "" {
		// 초 단위 정수 또는 1h 같은 duration 둘 다 허용
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionTTL = time.Duration(n) * time.Second
		} else if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SessionTTL = d
		}
	}
	if v := env("SHUFFLE_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ShuffleMaxAttempts = n
		}
	}

	switch cfg.NotifyMode {
	case NotifyHTTP:
		if cfg.NotifyBaseURL == "" {
			return nil, errors.New("NOTIFY_BASE_URL is required for NOTIFY_MODE=http")
		}
	case NotifyWS:
		if cfg.NotifyWSURL == "" {
			return nil, errors.New("NOTIFY_WS_URL is required for NOTIFY_MODE=ws")
		}
	case NotifyAuto:
	default:
		return nil, errors.New("NOTIFY_MODE must be http, ws or auto")
	}

	return cfg, nil
}

// NotifyEnabled reports whether any presenter endpoint is configured.
func (c *AppConfig) NotifyEnabled() bool {
	return c.NotifyBaseURL != "" || c.NotifyWSURL != ""
}

func env(k string) string { return strings.TrimSpace(os.Getenv(k)) }
