// Package config provides configuration for the proxy, from environment
// variables with an optional YAML file underneath.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the proxy.
type Config struct {
	// Database configuration
	DatabaseDSN string `yaml:"database_dsn"`

	// Authentication
	JWTSecret         string        `yaml:"jwt_secret"`
	JWTExpiry         time.Duration `yaml:"jwt_expiry"`
	APIKeyHeader      string        `yaml:"api_key_header"`
	AdminPasswordHash string        `yaml:"admin_password_hash"`

	// Server configuration
	ListenHost string `yaml:"listen_host"`
	ListenPort int    `yaml:"listen_port"`

	// Dispatch configuration
	HostPolicy     string   `yaml:"host_policy"`     // "rewrite" or "preserve"
	ReservedLabels []string `yaml:"reserved_labels"` // beyond the built-in set

	// TerminatorURL is the TLS terminator's management endpoint, used for
	// certificate cleanup on mapping deletion. Empty disables notifications.
	TerminatorURL string `yaml:"terminator_url"`

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Load reads configuration. Precedence, lowest to highest: built-in
// defaults, the YAML file named by DOMAINPROXY_CONFIG_FILE, environment
// variables.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("DOMAINPROXY_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithDefaults loads configuration without validating required fields,
// useful for testing.
func LoadWithDefaults() *Config {
	cfg := defaults()
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "development-secret-key-min-32-chars"
	}
	cfg.applyEnv()
	return cfg
}

func defaults() *Config {
	return &Config{
		DatabaseDSN:     "postgres://localhost:5432/domainproxy?sslmode=disable",
		JWTExpiry:       24 * time.Hour,
		APIKeyHeader:    "X-API-Key",
		ListenHost:      "0.0.0.0",
		ListenPort:      8080,
		HostPolicy:      "rewrite",
		ShutdownTimeout: 30 * time.Second,
	}
}

func (c *Config) applyEnv() {
	c.DatabaseDSN = getEnv("DATABASE_URL", c.DatabaseDSN)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTExpiry = getDurationEnv("JWT_EXPIRY", c.JWTExpiry)
	c.APIKeyHeader = getEnv("API_KEY_HEADER", c.APIKeyHeader)
	c.AdminPasswordHash = getEnv("ADMIN_PASSWORD_HASH", c.AdminPasswordHash)
	c.ListenHost = getEnv("LISTEN_HOST", c.ListenHost)
	c.ListenPort = getIntEnv("LISTEN_PORT", c.ListenPort)
	c.HostPolicy = getEnv("PROXY_HOST_POLICY", c.HostPolicy)
	c.TerminatorURL = getEnv("TERMINATOR_URL", c.TerminatorURL)
	c.ShutdownTimeout = getDurationEnv("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)

	if v := os.Getenv("RESERVED_LABELS"); v != "" {
		var labels []string
		for _, l := range strings.Split(v, ",") {
			if l = strings.TrimSpace(l); l != "" {
				labels = append(labels, l)
			}
		}
		c.ReservedLabels = labels
	}
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.HostPolicy != "rewrite" && c.HostPolicy != "preserve" {
		return fmt.Errorf("PROXY_HOST_POLICY must be rewrite or preserve, got %q", c.HostPolicy)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
