package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Key-value store configuration (queue contents, locks, sweep guard)
	Store StoreConfig

	// Amazon affiliate/scraper configuration
	Amazon AmazonConfig

	// Queue and refresh configuration
	Queue QueueConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// StoreConfig selects and configures the key-value backend
type StoreConfig struct {
	Backend  string // "memory", "redis" or "postgres"
	RedisURL string
	Prefix   string
}

// AmazonConfig holds affiliate credentials and scraper endpoint settings
type AmazonConfig struct {
	AccessKey         string
	SecretKey         string
	PartnerTag        string
	ScraperURL        string
	RequestsPerSecond float64
	Timeout           time.Duration
	DefaultExpiry     time.Duration
}

// QueueConfig holds queue lock and refresh sweep settings
type QueueConfig struct {
	LockTimeout       time.Duration
	AmazonLockTimeout time.Duration
	RefreshWindow     time.Duration
	SweepInterval     time.Duration
	SweepLimit        int
	PollInterval      time.Duration
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Name:         getEnv("DB_NAME", "creations"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
		},
		Store: StoreConfig{
			Backend:  getEnv("KV_BACKEND", "postgres"),
			RedisURL: getEnv("REDIS_URL", ""),
			Prefix:   getEnv("KV_PREFIX", "creations:"),
		},
		Amazon: AmazonConfig{
			AccessKey:         getEnv("AMAZON_ACCESS_KEY", ""),
			SecretKey:         getEnv("AMAZON_SECRET_KEY", ""),
			PartnerTag:        getEnv("AMAZON_PARTNER_TAG", ""),
			ScraperURL:        getEnv("AMAZON_SCRAPER_URL", "https://scraper.example.com/v1/products"),
			RequestsPerSecond: getFloatEnv("AMAZON_REQUESTS_PER_SECOND", 1),
			Timeout:           getDurationEnv("AMAZON_TIMEOUT", 15*time.Second),
			DefaultExpiry:     getDurationEnv("AMAZON_DEFAULT_EXPIRY", 24*time.Hour),
		},
		Queue: QueueConfig{
			LockTimeout:       getDurationEnv("QUEUE_LOCK_TIMEOUT", 300*time.Second),
			AmazonLockTimeout: getDurationEnv("AMAZON_QUEUE_LOCK_TIMEOUT", 12*time.Hour),
			RefreshWindow:     getDurationEnv("AMAZON_REFRESH_WINDOW", 3*time.Hour),
			SweepInterval:     getDurationEnv("AMAZON_SWEEP_INTERVAL", time.Hour),
			SweepLimit:        getIntEnv("AMAZON_SWEEP_LIMIT", 50),
			PollInterval:      getDurationEnv("QUEUE_POLL_INTERVAL", 30*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	switch c.Store.Backend {
	case "memory", "postgres":
	case "redis":
		if c.Store.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when KV_BACKEND=redis")
		}
	default:
		return fmt.Errorf("KV_BACKEND must be one of: memory, redis, postgres")
	}
	if c.Queue.SweepLimit <= 0 {
		return fmt.Errorf("AMAZON_SWEEP_LIMIT must be positive")
	}
	if c.Queue.PollInterval <= 0 {
		return fmt.Errorf("QUEUE_POLL_INTERVAL must be positive")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Configured reports whether affiliate credentials are present.
// Without them every scraping path behaves as if no link were an Amazon link.
func (c *AmazonConfig) Configured() bool {
	return c.AccessKey != "" && c.SecretKey != "" && c.PartnerTag != ""
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
