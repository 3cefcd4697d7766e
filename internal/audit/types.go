package audit

import (
	"time"
)

// Record is one persisted masking or restore operation. Only metadata is
// stored; the audit trail never contains original or masked text.
type Record struct {
	ID           int64     `db:"id" json:"id"`
	OperationID  string    `db:"operation_id" json:"operation_id"`
	Operation    string    `db:"operation" json:"operation"`
	Filename     string    `db:"filename" json:"filename,omitempty"`
	Keywords     int       `db:"keywords" json:"keywords"`
	SmartMatches int       `db:"smart_matches" json:"smart_matches"`
	Categories   string    `db:"categories" json:"categories,omitempty"` // JSON map name->count
	DurationMS   float64   `db:"duration_ms" json:"duration_ms"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Stats represents audit trail statistics
type Stats struct {
	TotalOperations int64 `json:"total_operations"`
	TotalMasked     int64 `json:"total_masked"`
	TotalRestored   int64 `json:"total_restored"`
}

// Config contains database configuration
type Config struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}
