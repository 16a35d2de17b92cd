package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds everything budgetd reads from the environment.
type Config struct {
	// HTTP server
	Port string

	// Database; empty selects the in-memory backend.
	DatabaseURL string

	// Ledger currency (ISO 4217) used for all amounts.
	Currency string

	// Logging
	LogLevel  string
	LogFormat string

	// AMQP period-closed notifications; empty URL disables publishing.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Dev seed for local runs.
	DevSeed bool

	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment with defaults.
func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
		Currency:        strings.ToUpper(getEnv("CURRENCY", "PLN")),
		LogLevel:        getEnv("LOG_LEVEL", "INFO"),
		LogFormat:       strings.ToLower(getEnv("LOG_FORMAT", "json")),
		AMQPURL:         strings.TrimSpace(os.Getenv("AMQP_URL")),
		AMQPExchange:    getEnv("AMQP_EXCHANGE", "budgetd"),
		AMQPQueue:       getEnv("AMQP_QUEUE", "period_closed"),
		DevSeed:         getEnvBool("DEV_SEED", false),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// Validate returns an error describing every invalid setting.
func (c *Config) Validate() error {
	var problems []string
	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port %q: must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}
	if len(c.Currency) != 3 {
		problems = append(problems, fmt.Sprintf("invalid currency %q: expected a 3-letter ISO code", c.Currency))
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		problems = append(problems, fmt.Sprintf("invalid log format %q: must be json or text", c.LogFormat))
	}
	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	return v == "1" || v == "true" || v == "yes"
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
