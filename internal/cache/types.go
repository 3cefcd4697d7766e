package cache

import "time"

// OperationRecord is the text-free summary of one masking or restore
// operation kept for the dashboard. Original and masked content never enter
// the cache.
type OperationRecord struct {
	ID           string         `json:"id"`
	Operation    string         `json:"operation"` // mask_text, mask_document, restore
	Filename     string         `json:"filename,omitempty"`
	Keywords     int            `json:"keywords"`
	SmartMatches int            `json:"smart_matches"`
	Categories   map[string]int `json:"categories,omitempty"`
	DurationMS   float64        `json:"duration_ms"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Counters aggregates lifetime operation counts.
type Counters struct {
	MaskText     int64 `json:"mask_text"`
	MaskDocument int64 `json:"mask_document"`
	Restore      int64 `json:"restore"`
	SmartMatches int64 `json:"smart_matches"`
}

// Config contains cache configuration
type Config struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	RedisURL       string        `yaml:"redis_url" mapstructure:"redis_url"`
	MaxConnections int           `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns   int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DefaultTTL     time.Duration `yaml:"default_ttl" mapstructure:"default_ttl"`
	KeyPrefix      string        `yaml:"key_prefix" mapstructure:"key_prefix"`
	RecentLimit    int           `yaml:"recent_limit" mapstructure:"recent_limit"`
}
