/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// LockBackend selects how per-seller transitions are serialized.
type LockBackend string

const (
	LockLocal LockBackend = "local"
	LockRedis LockBackend = "redis"
)

// EventBusBackend selects how live events reach other instances.
type EventBusBackend string

const (
	EventBusMemory EventBusBackend = "memory"
	EventBusRedis  EventBusBackend = "redis"
	EventBusNATS   EventBusBackend = "nats"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment   string
	HTTPBind      string
	HTTPPort      int
	DBBackend     DatabaseBackend
	DBDSN         string
	JWTSigningKey string
	SecretKey     string // Shared key accepted in the "key" header by internal callers

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Multi-instance configuration
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	InstanceID        string
	LockBackend       LockBackend
	LockTTL           time.Duration
	LockWait          time.Duration
	EventBusBackend   EventBusBackend
	NATSURL           string
	NATSSubjectPrefix string

	// License service (gates Auction sessions)
	LicenseURL          string
	LicenseAPIKey       string
	LicenseRequiredTier string
	LicenseDefaultTier  string // Used when no license service is configured
	LicenseTimeout      time.Duration

	// Push notifications
	PushGatewayURL        string
	PushGatewaySecret     string
	NotificationWorkers   int
	NotificationQueueSize int

	// Runtime settings
	SettingsFile            string
	SettingsRefreshInterval time.Duration

	LegacyEnvWarnings []string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:   getEnvAny([]string{"TRENDYCART_ENV", "NODE_ENV"}, "development"),
		HTTPBind:      getEnvAny([]string{"TRENDYCART_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:      getEnvIntAny([]string{"TRENDYCART_HTTP_PORT", "PORT"}, 5000),
		DBBackend:     DatabaseBackend(getEnvAny([]string{"TRENDYCART_DB_BACKEND"}, string(DatabasePostgres))),
		DBDSN:         getEnvAny([]string{"TRENDYCART_DB_DSN"}, ""),
		JWTSigningKey: getEnvAny([]string{"TRENDYCART_JWT_SIGNING_KEY", "JWT_SECRET"}, ""),
		SecretKey:     getEnvAny([]string{"TRENDYCART_SECRET_KEY", "SECRET_KEY"}, ""),

		// Tracing configuration
		TracingEnabled:    getEnvBoolAny([]string{"TRENDYCART_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"TRENDYCART_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"TRENDYCART_TRACING_SAMPLE_RATE"}, 1.0),

		// Multi-instance configuration
		RedisAddr:         getEnvAny([]string{"TRENDYCART_REDIS_ADDR"}, "localhost:6379"),
		RedisPassword:     getEnvAny([]string{"TRENDYCART_REDIS_PASSWORD"}, ""),
		RedisDB:           getEnvIntAny([]string{"TRENDYCART_REDIS_DB"}, 0),
		InstanceID:        getEnvAny([]string{"TRENDYCART_INSTANCE_ID"}, ""),
		LockBackend:       LockBackend(getEnvAny([]string{"TRENDYCART_LOCK_BACKEND"}, string(LockLocal))),
		LockTTL:           getEnvDurationAny([]string{"TRENDYCART_LOCK_TTL"}, 10*time.Second),
		LockWait:          getEnvDurationAny([]string{"TRENDYCART_LOCK_WAIT"}, 3*time.Second),
		EventBusBackend:   EventBusBackend(getEnvAny([]string{"TRENDYCART_EVENTBUS_BACKEND"}, string(EventBusMemory))),
		NATSURL:           getEnvAny([]string{"TRENDYCART_NATS_URL"}, "nats://localhost:4222"),
		NATSSubjectPrefix: getEnvAny([]string{"TRENDYCART_NATS_SUBJECT_PREFIX"}, "trendycart.events"),

		// License service
		LicenseURL:          getEnvAny([]string{"TRENDYCART_LICENSE_URL"}, ""),
		LicenseAPIKey:       getEnvAny([]string{"TRENDYCART_LICENSE_API_KEY"}, ""),
		LicenseRequiredTier: getEnvAny([]string{"TRENDYCART_LICENSE_REQUIRED_TIER"}, "extended"),
		LicenseDefaultTier:  getEnvAny([]string{"TRENDYCART_LICENSE_DEFAULT_TIER"}, ""),
		LicenseTimeout:      getEnvDurationAny([]string{"TRENDYCART_LICENSE_TIMEOUT"}, 5*time.Second),

		// Push notifications
		PushGatewayURL:        getEnvAny([]string{"TRENDYCART_PUSH_GATEWAY_URL"}, ""),
		PushGatewaySecret:     getEnvAny([]string{"TRENDYCART_PUSH_GATEWAY_SECRET"}, ""),
		NotificationWorkers:   getEnvIntAny([]string{"TRENDYCART_NOTIFICATION_WORKERS"}, 4),
		NotificationQueueSize: getEnvIntAny([]string{"TRENDYCART_NOTIFICATION_QUEUE_SIZE"}, 256),

		// Runtime settings
		SettingsFile:            getEnvAny([]string{"TRENDYCART_SETTINGS_FILE"}, "./data/settings.yaml"),
		SettingsRefreshInterval: getEnvDurationAny([]string{"TRENDYCART_SETTINGS_REFRESH_INTERVAL"}, time.Minute),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.LockBackend != LockLocal && cfg.LockBackend != LockRedis {
		return nil, fmt.Errorf("unsupported lock backend %q", cfg.LockBackend)
	}

	if cfg.EventBusBackend != EventBusMemory && cfg.EventBusBackend != EventBusRedis && cfg.EventBusBackend != EventBusNATS {
		return nil, fmt.Errorf("unsupported event bus backend %q", cfg.EventBusBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("TRENDYCART_DB_DSN must be provided")
	}

	if cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("TRENDYCART_JWT_SIGNING_KEY or JWT_SECRET must be provided")
	}

	if cfg.NotificationWorkers < 1 {
		cfg.NotificationWorkers = 1
	}
	if cfg.NotificationQueueSize < 1 {
		cfg.NotificationQueueSize = 1
	}

	if strings.EqualFold(cfg.Environment, "production") {
		if cfg.PushGatewayURL != "" && cfg.PushGatewaySecret == "" {
			return nil, fmt.Errorf("TRENDYCART_PUSH_GATEWAY_SECRET is required when a push gateway is configured in production")
		}
	}
	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()

	return cfg, nil
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"NODE_ENV":    "use TRENDYCART_ENV",
		"JWT_SECRET":  "use TRENDYCART_JWT_SIGNING_KEY",
		"SECRET_KEY":  "use TRENDYCART_SECRET_KEY",
		"MONGODB_URI": "the document store was replaced; use TRENDYCART_DB_BACKEND and TRENDYCART_DB_DSN",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

// HTTPAddr returns the listen address for the HTTP server.
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPBind, c.HTTPPort)
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvDurationAny accepts Go duration strings ("30s") or a bare number of seconds.
func getEnvDurationAny(keys []string, def time.Duration) time.Duration {
	for _, k := range keys {
		v := strings.TrimSpace(os.Getenv(k))
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return def
}
