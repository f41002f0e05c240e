// Package config provides configuration loading from environment variables
// and defaults for the fleet console.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// GetEnv returns the value of key from the environment, or defaultValue if unset or empty.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return strings.TrimSpace(v)
	}
	return defaultValue
}

// GetEnvDuration returns the duration for key, or defaultValue if unset/invalid.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultValue
	}
	return d
}

// GetEnvInt returns the integer for key, or defaultValue if unset/invalid.
func GetEnvInt(key string, defaultValue int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return defaultValue
	}
	return n
}

// GetEnvFloat returns the float for key, or defaultValue if unset/invalid.
func GetEnvFloat(key string, defaultValue float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return defaultValue
	}
	return f
}

// ConsoleConfig holds configuration for the console process.
type ConsoleConfig struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration

	// Telemetry simulation
	TickInterval time.Duration
	Drift        float64

	// Command pipeline stage delays
	DispatchDelay       time.Duration
	AckDelay            time.Duration
	ProvisionStageDelay time.Duration
	DecryptDelay        time.Duration

	// State retention
	CommandLogLimit int
	TranscriptLimit int

	// Ambient capture
	TranscriptInterval time.Duration

	// Risk analysis service
	RiskAPIEndpoint string
	RiskAPIKey      string
	RiskAPITimeout  time.Duration

	// Optional catalog file overriding the built-in seed data
	CatalogPath string
}

// DefaultConsoleConfig returns console config from environment with defaults.
func DefaultConsoleConfig() ConsoleConfig {
	return ConsoleConfig{
		HTTPAddr:            GetEnv("HTTP_ADDR", ":8080"),
		ShutdownTimeout:     GetEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		TickInterval:        GetEnvDuration("TICK_INTERVAL", 3*time.Second),
		Drift:               GetEnvFloat("TELEMETRY_DRIFT", 0.00005),
		DispatchDelay:       GetEnvDuration("COMMAND_DISPATCH_DELAY", 800*time.Millisecond),
		AckDelay:            GetEnvDuration("COMMAND_ACK_DELAY", 1200*time.Millisecond),
		ProvisionStageDelay: GetEnvDuration("PROVISION_STAGE_DELAY", 1500*time.Millisecond),
		DecryptDelay:        GetEnvDuration("DECRYPT_DELAY", 2*time.Second),
		CommandLogLimit:     GetEnvInt("COMMAND_LOG_LIMIT", 20),
		TranscriptLimit:     GetEnvInt("TRANSCRIPT_LIMIT", 50),
		TranscriptInterval:  GetEnvDuration("TRANSCRIPT_INTERVAL", 3500*time.Millisecond),
		RiskAPIEndpoint:     GetEnv("RISK_API_ENDPOINT", ""),
		RiskAPIKey:          GetEnv("RISK_API_KEY", ""),
		RiskAPITimeout:      GetEnvDuration("RISK_API_TIMEOUT", 30*time.Second),
		CatalogPath:         GetEnv("CATALOG_PATH", ""),
	}
}
