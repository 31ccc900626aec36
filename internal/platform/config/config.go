// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// Config holds every tunable of the lodging server.
type Config struct {
	HTTPAddr string

	// Snapshot storage
	StoreDriver    string
	SQLitePath     string
	PostgresDSN    string
	DBMaxOpenConns int
	DBMaxIdleConns int
	RedisAddr      string
	RedisPrefix    string
	SaveRetries    int
	SaveBackoff    time.Duration

	// Broker
	NATSURL string

	// Timers
	RefreshInterval time.Duration
	NoticeTTL       time.Duration

	// Channel and buffer sizes
	FeedCapacity     int
	ClientSendBuffer int
}

// DefaultConfig returns the settings used when nothing is overridden.
func DefaultConfig() *Config {
	numCPU := runtime.NumCPU()

	return &Config{
		HTTPAddr: ":8080",

		StoreDriver:    DriverSQLite,
		SQLitePath:     "./data/lodging.db",
		DBMaxOpenConns: numCPU * 2,
		DBMaxIdleConns: numCPU,
		RedisAddr:      "localhost:6379",
		RedisPrefix:    "lodging",
		SaveRetries:    3,
		SaveBackoff:    200 * time.Millisecond,

		RefreshInterval: time.Minute, // remaining days re-rendered every minute
		NoticeTTL:       3 * time.Second,

		FeedCapacity:     256,
		ClientSendBuffer: 64,
	}
}

// Load reads the given .env files (default ".env"), then overlays the
// process environment on DefaultConfig. Missing .env files are ignored.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", f, err)
		}
	}

	cfg := DefaultConfig()
	p := &parser{}

	cfg.HTTPAddr = getEnv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", cfg.StoreDriver))
	cfg.SQLitePath = getEnv("SQLITE_PATH", cfg.SQLitePath)
	cfg.PostgresDSN = getEnv("POSTGRES_DSN", cfg.PostgresDSN)
	cfg.DBMaxOpenConns = p.int("DB_MAX_OPEN_CONNS", cfg.DBMaxOpenConns)
	cfg.DBMaxIdleConns = p.int("DB_MAX_IDLE_CONNS", cfg.DBMaxIdleConns)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPrefix = getEnv("REDIS_PREFIX", cfg.RedisPrefix)
	cfg.SaveRetries = p.int("SAVE_RETRIES", cfg.SaveRetries)
	cfg.SaveBackoff = p.duration("SAVE_BACKOFF", cfg.SaveBackoff)
	cfg.NATSURL = getEnv("NATS_URL", cfg.NATSURL)
	cfg.RefreshInterval = p.duration("REFRESH_INTERVAL", cfg.RefreshInterval)
	cfg.NoticeTTL = p.duration("NOTICE_TTL", cfg.NoticeTTL)
	cfg.FeedCapacity = p.int("FEED_CAPACITY", cfg.FeedCapacity)
	cfg.ClientSendBuffer = p.int("CLIENT_SEND_BUFFER", cfg.ClientSendBuffer)

	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverSQLite, DriverRedis, DriverMemory:
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.RefreshInterval <= 0 {
		return errors.New("REFRESH_INTERVAL must be positive")
	}
	if c.NoticeTTL <= 0 {
		return errors.New("NOTICE_TTL must be positive")
	}
	if c.SaveRetries < 0 {
		return errors.New("SAVE_RETRIES must not be negative")
	}
	if c.FeedCapacity < 1 || c.ClientSendBuffer < 1 {
		return errors.New("FEED_CAPACITY and CLIENT_SEND_BUFFER must be at least 1")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// parser keeps the first conversion error.
type parser struct {
	err error
}

func (p *parser) int(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return v
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return v
}

func (p *parser) fail(key, raw string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s=%q: %w", key, raw, err)
	}
}
