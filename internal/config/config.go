package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// REST API
	APIURL      string
	HTTPTimeout time.Duration

	// Durable session
	SessionBackend string
	SQLiteDBPath   string

	// AMQP session signals; disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string

	// Dashboard
	DashboardRefresh time.Duration

	// Display and logging
	Locale   string
	LogLevel string

	// Reference server
	FakeAPIAddr      string
	FakeAPIJWTSecret string
	FakeAPIRateLimit int
}

func Load() *Config {
	return &Config{
		APIURL:      getEnv("BUDGETLY_API_URL", "http://localhost:8000"),
		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 0),

		SessionBackend: getEnv("SESSION_BACKEND", "sqlite"),
		SQLiteDBPath:   getEnv("SQLITE_DB_PATH", "./data/budgetly.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "budgetly.session"),

		DashboardRefresh: getEnvDuration("DASHBOARD_REFRESH", 5*time.Minute),

		Locale:   getEnv("BUDGETLY_LOCALE", "en-US"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		FakeAPIAddr:      getEnv("FAKEAPI_ADDR", ":8000"),
		FakeAPIJWTSecret: getEnv("FAKEAPI_JWT_SECRET", "dev-secret"),
		FakeAPIRateLimit: getEnvInt("FAKEAPI_AUTH_RATE_LIMIT", 60),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if parsedURL, err := url.Parse(c.APIURL); err != nil || c.APIURL == "" {
		errors = append(errors, fmt.Sprintf("invalid API URL '%s'", c.APIURL))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid API URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	} else if parsedURL.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid API URL '%s': missing host", c.APIURL))
	}

	if c.HTTPTimeout < 0 {
		errors = append(errors, fmt.Sprintf("invalid HTTP timeout %v: must not be negative", c.HTTPTimeout))
	}

	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.SessionBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid session backend '%s': must be one of %v", c.SessionBackend, validBackends))
	}

	if c.SessionBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if c.DashboardRefresh < 10*time.Second {
		errors = append(errors, fmt.Sprintf("invalid dashboard refresh %v: must be at least 10 seconds", c.DashboardRefresh))
	} else if c.DashboardRefresh > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid dashboard refresh %v: must be at most 24 hours", c.DashboardRefresh))
	}

	if c.FakeAPIRateLimit < 0 {
		errors = append(errors, fmt.Sprintf("invalid auth rate limit %d: must not be negative", c.FakeAPIRateLimit))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
