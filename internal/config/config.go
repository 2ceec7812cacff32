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
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// Ledger engine
	LedgerOpTimeout  time.Duration
	StrictContinuity bool

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Obligation worker
	ObligationInterval time.Duration

	// Read-side cache
	BalanceCacheSize int
	BalanceCacheTTL  time.Duration
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/apargo.db"),

		LedgerOpTimeout:  getEnvDuration("LEDGER_OP_TIMEOUT", 10*time.Second),
		StrictContinuity: getEnvBool("STRICT_CONTINUITY", true),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "apargo"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		ObligationInterval: getEnvDuration("OBLIGATION_INTERVAL", 6*time.Hour),

		BalanceCacheSize: getEnvInt("BALANCE_CACHE_SIZE", 256),
		BalanceCacheTTL:  getEnvDuration("BALANCE_CACHE_TTL", 30*time.Second),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
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

	if c.LedgerOpTimeout < 0 {
		errors = append(errors, fmt.Sprintf("invalid ledger op timeout %v: must not be negative", c.LedgerOpTimeout))
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
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.ObligationInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid obligation interval %v: must be at least 1 minute", c.ObligationInterval))
	} else if c.ObligationInterval > 7*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid obligation interval %v: must be at most 7 days", c.ObligationInterval))
	}

	if c.BalanceCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid balance cache size %d: must be at least 1", c.BalanceCacheSize))
	}
	if c.BalanceCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid balance cache TTL %v: must be at least 1 second", c.BalanceCacheTTL))
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
