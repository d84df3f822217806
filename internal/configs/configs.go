/*
Package configs is responsible for loading and parsing the application's configuration settings.

It configures the relay by reading operating system environment variables: the running
environment, listening port, log level, allowed WebSocket origins, per-connection queue
and frame limits, the timestamp layout stamped on envelopes, and the optional presence
audit database.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultPort is the port the reference client connects to.
	DefaultPort = 5000

	// DefaultSendQueueSize is the number of outbound frames buffered per connection.
	DefaultSendQueueSize = 256

	// DefaultTimeLayout renders server timestamps as two-digit hour and minute.
	DefaultTimeLayout = "15:04"
)

// AppConfig contains all configuration parameters required for the application to run.
// All configuration values are loaded from environment variables.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int
	LogLevel    string

	// Security Settings
	AllowedOrigins []string

	// Relay Settings
	SendQueueSize int

	// MaxFrameBytes caps one inbound frame; 0 means unlimited. File payloads are
	// base64-validated on the sender's read loop, which costs roughly 0.1s per MiB,
	// so an unbounded limit lets one sender stall its own connection for seconds.
	MaxFrameBytes int64
	TimeLayout    string

	// Presence Audit Settings
	DatabaseDSN string
}

// IsDevelopment reports whether the relay runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// Addr returns the listen address for the HTTP server.
func (c *AppConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// LoadConfig reads and parses the application configuration from environment variables.
// It provides default values for each configuration item and performs necessary type conversions and validation.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Server Settings ---
	cfg.Environment = getEnv("ENVIRONMENT", "development")

	port, err := getInt("PORT", DefaultPort)
	if err != nil {
		return nil, err
	}
	if port < 1024 || port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", port, 1024, 65535)
	}
	cfg.Port = port

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	// --- Security Settings ---
	cfg.AllowedOrigins = splitList(os.Getenv("ALLOWED_ORIGINS"))

	// --- Relay Settings ---
	queueSize, err := getInt("SEND_QUEUE_SIZE", DefaultSendQueueSize)
	if err != nil {
		return nil, err
	}
	if queueSize < 1 {
		return nil, fmt.Errorf("SEND_QUEUE_SIZE must be at least 1, got %d", queueSize)
	}
	cfg.SendQueueSize = queueSize

	maxFrame, err := getInt("MAX_FRAME_BYTES", 0)
	if err != nil {
		return nil, err
	}
	if maxFrame < 0 {
		return nil, fmt.Errorf("MAX_FRAME_BYTES cannot be negative, got %d", maxFrame)
	}
	cfg.MaxFrameBytes = int64(maxFrame)

	cfg.TimeLayout = getEnv("TIME_LAYOUT", DefaultTimeLayout)
	if time.Date(2000, 1, 1, 13, 4, 0, 0, time.UTC).Format(cfg.TimeLayout) == cfg.TimeLayout {
		return nil, fmt.Errorf("TIME_LAYOUT %q contains no time elements", cfg.TimeLayout)
	}

	// --- Presence Audit Settings ---
	// Empty disables the audit trail; the relay itself never needs a database.
	cfg.DatabaseDSN = os.Getenv("DATABASE_URL")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	out := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
