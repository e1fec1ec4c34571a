package config

import (
	"fmt"
	"net"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Host string
	Port string

	// Paths handed to the headless ilastik invocation. Only the executable is
	// checked for existence, and only when the classifier is constructed; a bad
	// project path surfaces as a failed run.
	IlastikExecutable string
	IlastikProject    string

	RequestTimeout      time.Duration
	StackFetchTimeout   time.Duration
	SegmentationTimeout time.Duration
	MaxRequestBodySize  int64
	MaxWorkers          int

	AzureAccountName string
	AzureAccountKey  string
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// AzureConfigured reports whether Azure blob credentials were supplied.
func (c *Config) AzureConfigured() bool {
	return c.AzureAccountName != "" && c.AzureAccountKey != ""
}

func LoadFromEnv() (*Config, error) {
	// A local .env is optional; a missing file is not an error
	_ = godotenv.Load()

	cfg := &Config{
		Host:                getEnvOrDefault("HOST", "0.0.0.0"),
		Port:                getEnvOrDefault("PORT", "8080"),
		IlastikExecutable:   os.Getenv("ILASTIK_EXECUTABLE"),
		IlastikProject:      os.Getenv("ILASTIK_PROJECT"),
		RequestTimeout:      parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		StackFetchTimeout:   parseDurationOrDefault("STACK_FETCH_TIMEOUT", 15*time.Second),
		SegmentationTimeout: parseDurationOrDefault("SEGMENTATION_TIMEOUT", 10*time.Minute),
		MaxRequestBodySize:  parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 10*1024*1024), // 10MB
		MaxWorkers:          int(parseIntOrDefault("MAX_WORKERS", int64(runtime.NumCPU()))),
		AzureAccountName:    os.Getenv("AZURE_ACCOUNT_NAME"),
		AzureAccountKey:     os.Getenv("AZURE_ACCOUNT_KEY"),
	}

	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.IlastikExecutable == "" {
		return nil, fmt.Errorf("ILASTIK_EXECUTABLE is required")
	}
	if cfg.IlastikProject == "" {
		return nil, fmt.Errorf("ILASTIK_PROJECT is required")
	}
	if cfg.MaxRequestBodySize <= 0 {
		return nil, fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", cfg.MaxRequestBodySize)
	}
	if cfg.MaxWorkers <= 0 {
		return nil, fmt.Errorf("MAX_WORKERS must be > 0 (got %d)", cfg.MaxWorkers)
	}
	if cfg.RequestTimeout <= 0 || cfg.StackFetchTimeout <= 0 || cfg.SegmentationTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, segmentation=%s)",
			cfg.RequestTimeout, cfg.StackFetchTimeout, cfg.SegmentationTimeout)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
