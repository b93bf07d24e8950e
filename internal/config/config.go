// Package config handles ectows configuration loading and validation.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"
)

// knownWeakSecrets is a blocklist of signing secrets that must never be used.
var knownWeakSecrets = map[string]bool{
	"changeme": true,
	"secret":   true,
}

// GenerateRandomSecret returns a cryptographically random 64-character hex
// string suitable for use as a token or signing secret.
func GenerateRandomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Config is the top-level configuration.
type Config struct {
	Server  ServerConfig  `json:"server"`
	Auth    AuthConfig    `json:"auth"`
	Logs    LogsConfig    `json:"logs,omitempty"`
	Session SessionConfig `json:"session,omitempty"`
	Logging LoggingConfig `json:"logging,omitempty"`
}

// ServerConfig defines the listener and tick settings.
type ServerConfig struct {
	Addr             string   `json:"addr"`                        // e.g. ":9000"
	StatusAddr       string   `json:"status_addr,omitempty"`       // status API; empty disables
	TickRate         int      `json:"tick_rate,omitempty"`         // ticks per second; default 60
	SendCapacity     int      `json:"send_capacity,omitempty"`     // queued bytes per connection; default 4000
	HandshakeTimeout Duration `json:"handshake_timeout,omitempty"` // default 10s
	IdleTimeout      Duration `json:"idle_timeout,omitempty"`      // 0 disables
}

// AuthConfig defines the accepted tokens.
type AuthConfig struct {
	UserTokens        []string `json:"user_tokens,omitempty"`
	AdminTokens       []string `json:"admin_tokens,omitempty"`
	SigningSecret     string   `json:"signing_secret,omitempty"`      // enables signed role tokens
	SignedTokenExpiry Duration `json:"signed_token_expiry,omitempty"` // default 24h
}

// LogsConfig bounds the operator log.
type LogsConfig struct {
	Capacity   int    `json:"capacity,omitempty"`    // default 10000
	MaxBacklog int    `json:"max_backlog,omitempty"` // default 1000
	TeeLevel   string `json:"tee_level,omitempty"`   // default "warn"; "off" disables
}

// SessionConfig defines per-connection limits.
type SessionConfig struct {
	CommandRate  float64 `json:"command_rate,omitempty"` // 0 = unlimited
	CommandBurst int     `json:"command_burst,omitempty"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `json:"level,omitempty"`
	Format string `json:"format,omitempty"` // "json" or "text"
}

// Duration is a JSON-friendly time.Duration.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case string:
		dur, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		d.Duration = dur
	case float64:
		d.Duration = time.Duration(val * float64(time.Second))
	default:
		return fmt.Errorf("invalid duration: %v", v)
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.TickRate < 0 || c.Server.TickRate > 1000 {
		return fmt.Errorf("server.tick_rate must be between 1 and 1000")
	}
	if c.Server.HandshakeTimeout.Duration < 0 || c.Server.IdleTimeout.Duration < 0 {
		return fmt.Errorf("server timeouts must not be negative")
	}
	if c.Auth.SigningSecret != "" && len(c.Auth.SigningSecret) < 32 {
		return fmt.Errorf("auth.signing_secret must be at least 32 characters")
	}
	if knownWeakSecrets[c.Auth.SigningSecret] {
		return fmt.Errorf("auth.signing_secret is a well-known weak secret, generate a new one")
	}
	for _, tok := range c.Auth.AdminTokens {
		if tok == "" {
			return fmt.Errorf("auth.admin_tokens must not contain empty tokens")
		}
	}
	if c.Logs.Capacity < 0 || c.Logs.MaxBacklog < 0 {
		return fmt.Errorf("logs.capacity and logs.max_backlog must not be negative")
	}
	if c.Logs.Capacity > 0 && c.Logs.MaxBacklog > c.Logs.Capacity {
		return fmt.Errorf("logs.max_backlog must not exceed logs.capacity")
	}
	if c.Logs.TeeLevel != "" && c.Logs.TeeLevel != "off" {
		if _, err := ParseLevel(c.Logs.TeeLevel); err != nil {
			return fmt.Errorf("logs.tee_level: %w", err)
		}
	}
	if c.Session.CommandRate < 0 {
		return fmt.Errorf("session.command_rate must not be negative")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.TickRate == 0 {
		c.Server.TickRate = 60
	}
	if c.Server.SendCapacity == 0 {
		c.Server.SendCapacity = 4000
	}
	if c.Server.HandshakeTimeout.Duration == 0 {
		c.Server.HandshakeTimeout.Duration = 10 * time.Second
	}
	if c.Auth.SignedTokenExpiry.Duration == 0 {
		c.Auth.SignedTokenExpiry.Duration = 24 * time.Hour
	}
	if c.Logs.Capacity == 0 {
		c.Logs.Capacity = max(10000, c.Logs.MaxBacklog)
	}
	if c.Logs.MaxBacklog == 0 {
		c.Logs.MaxBacklog = min(1000, c.Logs.Capacity)
	}
	if c.Logs.TeeLevel == "" {
		c.Logs.TeeLevel = "warn"
	}
	if c.Session.CommandRate > 0 && c.Session.CommandBurst == 0 {
		c.Session.CommandBurst = max(1, int(math.Ceil(c.Session.CommandRate)))
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown level %q", s)
}
