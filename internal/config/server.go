package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds the tanmiws server settings loaded from
// <home>/server.yaml. Zero values fall back to defaults at load time.
type ServerConfig struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr"`
	// APIKey, when set, is required in the X-API-Key header for all routes.
	APIKey string `yaml:"api_key"`
	// Store selects the persistence backend: "sqlite" (default) or "postgres".
	Store string `yaml:"store"`
	// PostgresDSN is used when Store is "postgres"; empty falls back to the
	// DATABASE_URL environment variable.
	PostgresDSN string `yaml:"postgres_dsn"`
	// MaxBodyBytes caps request body size.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
	// AllowSystemRuleBypass lets system-actor calls skip the rule
	// fingerprint gate. Off by default.
	AllowSystemRuleBypass bool `yaml:"allow_system_rule_bypass"`
	// WebhookURL, when set, receives change events as JSON POSTs.
	WebhookURL string `yaml:"webhook_url"`
}

// ServerConfigPath returns <home>/server.yaml.
func ServerConfigPath(home string) string {
	return filepath.Join(home, "server.yaml")
}

// LoadServerConfig loads the server config. A missing file yields defaults.
func LoadServerConfig(home string) (*ServerConfig, error) {
	cfg := &ServerConfig{}
	data, err := os.ReadFile(ServerConfigPath(home))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ServerConfigPath(home), err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// SaveServerConfig writes the server config to <home>/server.yaml.
func SaveServerConfig(home string, cfg *ServerConfig) error {
	if err := os.MkdirAll(home, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(ServerConfigPath(home), data, 0o644)
}

func (c *ServerConfig) applyDefaults() {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:7432"
	}
	if c.Store == "" {
		c.Store = "sqlite"
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 1 << 20
	}
}
