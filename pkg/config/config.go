package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultBaseURL   = "http://localhost:8000/api"
	DefaultWatchCron = "*/5 * * * *"

	BackendBolt  = "bolt"
	BackendRedis = "redis"
)

type Config struct {
	BaseURL        string
	TrailingSlash  bool
	StatePath      string
	SessionBackend string // "bolt" or "redis"
	RedisAddr      string
	RedisDB        int
	RequestTimeout time.Duration // 0 = no client-side timeout
	WatchCron      string
	DebugAddr      string // optional local diagnostics listener
	LogLevel       string
}

// Load reads the given .env files (missing files are ignored) and then builds the config from the environment.
// Variables already present in the environment win over file values.
func Load(files ...string) (Config, error) {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}
	return FromEnv()
}

// Reload is Load for a running process: file values replace what the environment already holds,
// so edits to the .env file take effect.
func Reload(files ...string) (Config, error) {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Overload(f); err != nil {
			return Config{}, fmt.Errorf("failed to reload env file %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds the configuration from BB_* environment variables.
func FromEnv() (Config, error) {
	cfg := Config{
		BaseURL:        strings.TrimRight(firstNonEmpty(os.Getenv("BB_API_BASE_URL"), DefaultBaseURL), "/"),
		TrailingSlash:  parseBool(os.Getenv("BB_TRAILING_SLASH"), true),
		StatePath:      firstNonEmpty(os.Getenv("BB_STATE_PATH"), defaultStatePath()),
		SessionBackend: strings.ToLower(firstNonEmpty(os.Getenv("BB_SESSION_BACKEND"), BackendBolt)),
		RedisAddr:      firstNonEmpty(os.Getenv("BB_REDIS_ADDR"), "localhost:6379"),
		WatchCron:      firstNonEmpty(os.Getenv("BB_WATCH_CRON"), DefaultWatchCron),
		DebugAddr:      os.Getenv("BB_DEBUG_ADDR"),
		LogLevel:       firstNonEmpty(os.Getenv("LOG_LEVEL"), "INFO"),
	}

	if s := os.Getenv("BB_REDIS_DB"); s != "" {
		db, err := strconv.Atoi(s)
		if err != nil {
			return Config{}, fmt.Errorf("invalid BB_REDIS_DB %q: %w", s, err)
		}
		cfg.RedisDB = db
	}

	if s := os.Getenv("BB_REQUEST_TIMEOUT"); s != "" && s != "0" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return Config{}, fmt.Errorf("invalid BB_REQUEST_TIMEOUT %q: %w", s, err)
		}
		cfg.RequestTimeout = d
	}

	switch cfg.SessionBackend {
	case BackendBolt, BackendRedis:
	default:
		return Config{}, fmt.Errorf("unknown BB_SESSION_BACKEND %q (want bolt or redis)", cfg.SessionBackend)
	}

	return cfg, nil
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".badminton-buddy", "state.db")
	}
	return filepath.Join(home, ".badminton-buddy", "state.db")
}

func parseBool(s string, def bool) bool {
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return v
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
