// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings for calls to the label API.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout (default 30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with every request
	// (e.g. "fda-label-loader/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// RetryConfig controls the retry gate wrapped around each page request.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts per request, including
	// the first (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// BaseDelay is the wait before the second attempt. It doubles for each
	// further attempt with no cap and no jitter (default 1s).
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay" mapstructure:"base_delay"`
}

// SourceConfig describes which label records are pulled and how.
type SourceConfig struct {
	// BaseURL is the label search endpoint.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Search is the openFDA filter expression sent as the search parameter.
	Search string `json:"search" yaml:"search" mapstructure:"search"`

	// PageSize is the limit sent with every page request (default 100).
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size"`

	// APIKey is an optional openFDA key for higher rate limits.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// RequestsPerMinute throttles page requests. Zero disables throttling.
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// Driver names a database/sql driver supported by the load sink.
type Driver string

const (
	DriverSQLServer Driver = "sqlserver"
	DriverPostgres  Driver = "postgres"
	DriverSQLite    Driver = "sqlite3"
)

// DatabaseConfig holds the destination database settings. The four
// credentials come from DB_SERVER, DB_NAME, DB_USER and DB_PASSWORD.
type DatabaseConfig struct {
	Driver   Driver `json:"driver" yaml:"driver" mapstructure:"driver"`
	Server   string `json:"server" yaml:"server" mapstructure:"server"`
	Name     string `json:"name" yaml:"name" mapstructure:"name"`
	User     string `json:"user" yaml:"user" mapstructure:"user"`
	Password string `json:"-" yaml:"-" mapstructure:"password"`

	// Table is the destination table (default "fda_drug_labels_safe").
	Table string `json:"table" yaml:"table" mapstructure:"table"`

	// FlushEvery hands buffered rows to the open load transaction every
	// FlushEvery pages. Zero inserts everything once at the end.
	FlushEvery int `json:"flush_every" yaml:"flush_every" mapstructure:"flush_every"`

	// ConnectTimeout bounds the initial connect and ping (default 30s).
	ConnectTimeout time.Duration `json:"connect_timeout" yaml:"connect_timeout" mapstructure:"connect_timeout"`
}

// LogConfig controls where and how verbosely the loader logs.
type LogConfig struct {
	// Dir receives one timestamped log file per run.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`
}

// PipelineConfig groups all settings for one loader run.
type PipelineConfig struct {
	HTTP     HTTPConfig     `json:"http" yaml:"http" mapstructure:"http"`
	Retry    RetryConfig    `json:"retry" yaml:"retry" mapstructure:"retry"`
	Source   SourceConfig   `json:"source" yaml:"source" mapstructure:"source"`
	Database DatabaseConfig `json:"database" yaml:"database" mapstructure:"database"`
	Log      LogConfig      `json:"log" yaml:"log" mapstructure:"log"`

	// ReportPath, when set, receives a YAML run report.
	ReportPath string `json:"report_path,omitempty" yaml:"report_path,omitempty" mapstructure:"report_path"`

	// MetricsPath, when set, receives the run's metrics in textfile format.
	MetricsPath string `json:"metrics_path,omitempty" yaml:"metrics_path,omitempty" mapstructure:"metrics_path"`
}
