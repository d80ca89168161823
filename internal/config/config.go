// Package config handles loading and validating configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the console.
type Config struct {
	// Receiver endpoint
	ReceiverBaseURL string
	HTTPTimeout     time.Duration

	// Poll cadences. LivePollInterval is operator-adjustable at runtime
	// and zero means paused; the others are fixed for the process.
	LivePollInterval      time.Duration
	OldPollInterval       time.Duration
	ExecPollInterval      time.Duration
	PendingPollInterval   time.Duration
	PositionsPollInterval time.Duration

	// Live records older than this relative to the poll are dropped
	LiveMaxAge time.Duration

	// Dispatch reconciliation
	PendingTimeout time.Duration
	SweepInterval  time.Duration

	// Toast retention
	ToastPendingTTL  time.Duration
	ToastTerminalTTL time.Duration

	// Alert policy
	HideTTL   time.Duration // 0 keeps hidden triggers hidden until shown manually
	QuietFrom string        // HH:MM, empty disables the quiet window
	QuietTo   string

	// Lot size used when dispatching a trade from the dashboard
	DefaultTradeVolume float64

	// UI
	EnableTUI      bool
	UIRefreshRate  time.Duration
	DashboardTitle string

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables with fallback to .env file.
// Priority order: Environment variables > .env file > hardcoded defaults
func Load() (*Config, error) {
	// Attempt to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		// Receiver
		ReceiverBaseURL: getEnv("RECEIVER_URL", "http://127.0.0.1:5000"),
		HTTPTimeout:     time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 10)) * time.Second,

		// Polling
		LivePollInterval:      time.Duration(getEnvInt("LIVE_POLL_MS", 2000)) * time.Millisecond,
		OldPollInterval:       time.Duration(getEnvInt("OLD_POLL_SECONDS", 10)) * time.Second,
		ExecPollInterval:      time.Duration(getEnvInt("EXEC_POLL_MS", 1400)) * time.Millisecond,
		PendingPollInterval:   time.Duration(getEnvInt("PENDING_POLL_SECONDS", 3)) * time.Second,
		PositionsPollInterval: time.Duration(getEnvInt("POSITIONS_POLL_SECONDS", 1)) * time.Second,
		LiveMaxAge:            time.Duration(getEnvInt("LIVE_MAX_AGE_SEC", 10)) * time.Second,

		// Reconciliation
		PendingTimeout: time.Duration(getEnvInt("PENDING_TIMEOUT_MS", 8000)) * time.Millisecond,
		SweepInterval:  time.Duration(getEnvInt("SWEEP_INTERVAL_MS", 1000)) * time.Millisecond,

		// Toasts
		ToastPendingTTL:  time.Duration(getEnvInt("TOAST_PENDING_TTL_SEC", 30)) * time.Second,
		ToastTerminalTTL: time.Duration(getEnvInt("TOAST_TERMINAL_TTL_SEC", 6)) * time.Second,

		// Alert policy
		HideTTL:   time.Duration(getEnvInt("HIDE_TTL_MINUTES", 0)) * time.Minute,
		QuietFrom: getEnv("QUIET_FROM", ""),
		QuietTo:   getEnv("QUIET_TO", ""),

		// Dispatch
		DefaultTradeVolume: getEnvFloat("TRADE_VOLUME", 0.01),

		// UI
		EnableTUI:      getEnvBool("ENABLE_TUI", true),
		UIRefreshRate:  time.Duration(getEnvInt("UI_REFRESH_MS", 500)) * time.Millisecond,
		DashboardTitle: getEnv("DASHBOARD_TITLE", "Receiver Console"),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "INFO"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set and valid.
func (c *Config) Validate() error {
	if c.ReceiverBaseURL == "" {
		return fmt.Errorf("RECEIVER_URL is required")
	}

	if c.ExecPollInterval <= 0 {
		return fmt.Errorf("EXEC_POLL_MS must be positive")
	}

	if c.OldPollInterval <= 0 {
		return fmt.Errorf("OLD_POLL_SECONDS must be positive")
	}

	if c.PendingTimeout <= 0 {
		return fmt.Errorf("PENDING_TIMEOUT_MS must be positive")
	}

	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL_MS must be positive")
	}

	if c.UIRefreshRate <= 0 {
		return fmt.Errorf("UI_REFRESH_MS must be positive")
	}

	if (c.QuietFrom == "") != (c.QuietTo == "") {
		return fmt.Errorf("QUIET_FROM and QUIET_TO must be set together")
	}

	if c.DefaultTradeVolume <= 0 {
		return fmt.Errorf("TRADE_VOLUME must be positive")
	}

	return nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as an integer or returns a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat retrieves an environment variable as a float or returns a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvBool retrieves an environment variable as a boolean or returns a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
