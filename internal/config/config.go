package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the lookscore server.
type Config struct {
	Server   ServerConfig
	Model    ModelConfig
	Jobs     JobsConfig
	Redis    RedisConfig
	Database DatabaseConfig
}

type ServerConfig struct {
	Port               int
	Env                string
	MaxRequestBytes    int64
	RateLimitPerMinute int
}

type ModelConfig struct {
	Provider          string
	Endpoint          string
	APIKey            string
	CallTimeout       time.Duration
	RequestsPerSecond float64
	Burst             int
}

type JobsConfig struct {
	Store         string
	TTL           time.Duration
	SweepInterval time.Duration
}

type RedisConfig struct {
	URL string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

const (
	ProviderHTTP = "http"
	ProviderMock = "mock"

	StoreMemory = "memory"
	StoreRedis  = "redis"
)

var validProviders = map[string]bool{
	ProviderHTTP: true,
	ProviderMock: true,
}

var validStores = map[string]bool{
	StoreMemory: true,
	StoreRedis:  true,
}

// Load reads configuration from environment variables and returns a validated Config.
// A .env file in the working directory is loaded first if present; variables
// already set in the environment take precedence over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:               envInt("LOOKSCORE_PORT", 8080),
			Env:                envString("LOOKSCORE_ENV", "development"),
			MaxRequestBytes:    int64(envInt("MAX_REQUEST_BYTES", 25<<20)),
			RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
		},
		Model: ModelConfig{
			Provider:          envString("MODEL_PROVIDER", ProviderHTTP),
			Endpoint:          os.Getenv("MODEL_ENDPOINT"),
			APIKey:            os.Getenv("MODEL_API_KEY"),
			CallTimeout:       envDurationSecs("MODEL_CALL_TIMEOUT_SECS", 120*time.Second),
			RequestsPerSecond: envFloat("MODEL_REQUESTS_PER_SECOND", 0),
			Burst:             envInt("MODEL_BURST", 1),
		},
		Jobs: JobsConfig{
			Store:         envString("JOB_STORE", StoreMemory),
			TTL:           envDuration("JOB_TTL", 30*time.Minute),
			SweepInterval: envDuration("JOB_SWEEP_INTERVAL", 0),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if !validProviders[c.Model.Provider] {
		return fmt.Errorf("MODEL_PROVIDER must be one of http, mock; got %q", c.Model.Provider)
	}
	if c.Model.Provider == ProviderHTTP {
		if c.Model.Endpoint == "" {
			return fmt.Errorf("MODEL_ENDPOINT is required when MODEL_PROVIDER is http")
		}
		if !strings.HasPrefix(c.Model.Endpoint, "http://") && !strings.HasPrefix(c.Model.Endpoint, "https://") {
			return fmt.Errorf("MODEL_ENDPOINT must start with http:// or https://, got %q", c.Model.Endpoint)
		}
	}
	if c.Model.RequestsPerSecond < 0 {
		return fmt.Errorf("MODEL_REQUESTS_PER_SECOND must not be negative")
	}
	if c.Model.Burst < 1 {
		return fmt.Errorf("MODEL_BURST must be at least 1")
	}

	if !validStores[c.Jobs.Store] {
		return fmt.Errorf("JOB_STORE must be one of memory, redis; got %q", c.Jobs.Store)
	}
	if c.Jobs.Store == StoreRedis && c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required when JOB_STORE is redis")
	}
	if c.Jobs.TTL <= 0 {
		return fmt.Errorf("JOB_TTL must be positive")
	}
	if c.Jobs.SweepInterval < 0 {
		return fmt.Errorf("JOB_SWEEP_INTERVAL must not be negative")
	}

	if c.Server.MaxRequestBytes <= 0 {
		return fmt.Errorf("MAX_REQUEST_BYTES must be positive")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
