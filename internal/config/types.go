package config

import (
	"time"

	"github.com/docshield/docshield/internal/audit"
	"github.com/docshield/docshield/internal/cache"
)

// Config represents the main configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Masking   MaskingConfig   `yaml:"masking" mapstructure:"masking"`
	Crypto    CryptoConfig    `yaml:"crypto" mapstructure:"crypto"`
	Files     FilesConfig     `yaml:"files" mapstructure:"files"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	WebSocket WebSocketConfig `yaml:"websocket" mapstructure:"websocket"`
	Audit     audit.Config    `yaml:"audit" mapstructure:"audit"`
	Cache     cache.Config    `yaml:"cache" mapstructure:"cache"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port         int             `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration   `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration   `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration   `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	RateLimit    RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// RateLimitConfig contains per-client request throttling settings
type RateLimitConfig struct {
	Enabled        bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMin int  `yaml:"requests_per_min" mapstructure:"requests_per_min"`
	Burst          int  `yaml:"burst" mapstructure:"burst"`
}

// MaskingConfig contains the default masking policy applied when a request
// does not override it. The pattern catalog itself is fixed at process start.
type MaskingConfig struct {
	DefaultMode          string `yaml:"default_mode" mapstructure:"default_mode"`
	PreserveChars        int    `yaml:"preserve_chars" mapstructure:"preserve_chars"`
	MaskChar             string `yaml:"mask_char" mapstructure:"mask_char"`
	EnableSmart          bool   `yaml:"enable_smart" mapstructure:"enable_smart"`
	PreserveEntitySuffix bool   `yaml:"preserve_entity_suffix" mapstructure:"preserve_entity_suffix"`
}

// CryptoConfig contains restore-payload encryption settings
type CryptoConfig struct {
	MinPasswordLength int `yaml:"min_password_length" mapstructure:"min_password_length"`
}

// FilesConfig contains upload handling limits
type FilesConfig struct {
	MaxFileSizeMB int `yaml:"max_file_size_mb" mapstructure:"max_file_size_mb"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
		Path     string `yaml:"path" mapstructure:"path"`
		MaxSize  int    `yaml:"max_size" mapstructure:"max_size"`
		MaxAge   int    `yaml:"max_age" mapstructure:"max_age"`
		Compress bool   `yaml:"compress" mapstructure:"compress"`
	} `yaml:"file" mapstructure:"file"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	Path           string        `yaml:"path" mapstructure:"path"`
	MaxConnections int           `yaml:"max_connections" mapstructure:"max_connections"`
	PingInterval   time.Duration `yaml:"ping_interval" mapstructure:"ping_interval"`
	Events         struct {
		BroadcastMasking     bool `yaml:"broadcast_masking" mapstructure:"broadcast_masking"`
		BroadcastRequests    bool `yaml:"broadcast_requests" mapstructure:"broadcast_requests"`
		BroadcastSystem      bool `yaml:"broadcast_system" mapstructure:"broadcast_system"`
		BroadcastConnections bool `yaml:"broadcast_connections" mapstructure:"broadcast_connections"`
	} `yaml:"events" mapstructure:"events"`
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:        true,
				RequestsPerMin: 120,
				Burst:          20,
			},
		},
		Masking: MaskingConfig{
			DefaultMode:          "full",
			PreserveChars:        1,
			MaskChar:             "*",
			EnableSmart:          true,
			PreserveEntitySuffix: true,
		},
		Crypto: CryptoConfig{
			MinPasswordLength: 6,
		},
		Files: FilesConfig{
			MaxFileSizeMB: 50,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		WebSocket: WebSocketConfig{
			Enabled:        true,
			Path:           "/ws",
			MaxConnections: 100,
			PingInterval:   54 * time.Second,
		},
		Audit: audit.Config{
			Enabled:      false,
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
		Cache: cache.Config{
			Enabled:        false,
			RedisURL:       "redis://localhost:6379/0",
			MaxConnections: 10,
			DefaultTTL:     time.Hour,
			KeyPrefix:      "docshield",
			RecentLimit:    50,
		},
	}
	cfg.WebSocket.Events.BroadcastMasking = true
	cfg.WebSocket.Events.BroadcastRequests = true
	cfg.WebSocket.Events.BroadcastSystem = true
	cfg.WebSocket.Events.BroadcastConnections = true
	return cfg
}
