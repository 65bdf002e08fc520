// Package config loads the mazer YAML configuration file.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/m7alleus/mazer/internal/cave"
	"github.com/m7alleus/mazer/internal/database"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration shared by the mazer commands.
type Config struct {
	Generator cave.Config     `yaml:"generator"`
	Server    ServerConfig    `yaml:"server"`
	Database  database.Config `yaml:"database"`
	Export    ExportConfig    `yaml:"export"`
}

// ServerConfig holds settings for the websocket map service.
type ServerConfig struct {
	// Address is the listen address, e.g. ":4443".
	Address string `yaml:"address"`

	WebSocket   WebSocketConfig   `yaml:"websocket"`
	Connections ConnectionsConfig `yaml:"connections"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Limits      LimitsConfig      `yaml:"limits"`
}

// RateLimitConfig holds per-IP limits on generation requests.
type RateLimitConfig struct {
	// MaxRequests is the number of generate/replay requests allowed per window.
	// 0 disables rate limiting.
	MaxRequests int `yaml:"max_requests"`

	// WindowSeconds is the length of the sliding window.
	WindowSeconds int `yaml:"window_seconds"`
}

// ConnectionsConfig holds connection limit settings.
type ConnectionsConfig struct {
	// MaxPerIP is the maximum concurrent connections allowed from a single IP address.
	// 0 means unlimited (not recommended).
	MaxPerIP int `yaml:"max_per_ip"`

	// MaxTotal is the maximum total concurrent connections to the server.
	// 0 means unlimited.
	MaxTotal int `yaml:"max_total"`
}

// LimitsConfig bounds the maps clients may request.
type LimitsConfig struct {
	MaxWidth  int `yaml:"max_width"`
	MaxHeight int `yaml:"max_height"`
}

// WebSocketConfig holds WebSocket-specific settings.
type WebSocketConfig struct {
	// AllowedOrigins is a list of origins allowed to connect via WebSocket.
	// Empty list enforces same-origin policy.
	// Use "*" to allow all origins (not recommended for production).
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxMessageSize is the maximum inbound WebSocket message size in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`
}

// ExportConfig controls where exported maps are written.
type ExportConfig struct {
	Directory string `yaml:"directory"`
}

// DefaultConfig returns a Config with safe defaults.
func DefaultConfig() *Config {
	return &Config{
		Generator: cave.DefaultConfig(),
		Server: ServerConfig{
			Address: ":4443",
			WebSocket: WebSocketConfig{
				AllowedOrigins: []string{}, // Same-origin only by default
				MaxMessageSize: 4096,
			},
			Connections: ConnectionsConfig{
				MaxPerIP: 3,
				MaxTotal: 100,
			},
			RateLimit: RateLimitConfig{
				MaxRequests:   30,
				WindowSeconds: 60,
			},
			Limits: LimitsConfig{
				MaxWidth:  256,
				MaxHeight: 256,
			},
		},
		Database: database.DefaultConfig("data/mazer.db"),
		Export: ExportConfig{
			Directory: "data/maps",
		},
	}
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, returns default config.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil // Use defaults if file doesn't exist
		}
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := config.Generator.Validate(); err != nil {
		return DefaultConfig(), fmt.Errorf("invalid generator section in %s: %w", path, err)
	}

	return config, nil
}

// CheckSize reports whether a requested map fits within the limits.
// Zero limits mean unbounded.
func (l LimitsConfig) CheckSize(width, height int) error {
	if l.MaxWidth > 0 && width > l.MaxWidth {
		return fmt.Errorf("width %d exceeds limit %d", width, l.MaxWidth)
	}
	if l.MaxHeight > 0 && height > l.MaxHeight {
		return fmt.Errorf("height %d exceeds limit %d", height, l.MaxHeight)
	}
	return nil
}

// IsOriginAllowed checks if the given origin is allowed based on the config.
// Returns true if:
// - AllowedOrigins contains "*" (allow all)
// - AllowedOrigins contains the exact origin
// - AllowedOrigins is empty and origin matches the request host (same-origin)
func (c *WebSocketConfig) IsOriginAllowed(origin, requestHost string) bool {
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}

	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	return false
}

// isSameOrigin checks if the origin matches the request host (same-origin policy).
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true // No origin header means a non-browser client
	}

	// "http://localhost:3000" -> "localhost:3000"
	originHost := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		originHost = origin[idx+3:]
	}
	originHost = strings.TrimSuffix(originHost, "/")

	return originHost == requestHost
}
