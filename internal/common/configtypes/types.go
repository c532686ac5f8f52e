package configtypes

import (
	"github.com/edgecomet/loadstats/pkg/types"
)

// Log level constants
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Log format constants
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
	LogFormatText    = "text"
)

// StatsConfig is the configuration shared by the report and live tools
type StatsConfig struct {
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Redis   RedisConfig   `yaml:"redis"`
	Report  ReportConfig  `yaml:"report"`
	Live    LiveConfig    `yaml:"live"`
	Filter  FilterConfig  `yaml:"filter"`
}

// FilterConfig selects samples by label before aggregation.
// Patterns: exact, wildcard with *, ~regexp, ~*case-insensitive regexp.
type FilterConfig struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

type LogConfig struct {
	Level   string           `yaml:"level"`
	Console ConsoleLogConfig `yaml:"console"`
	File    FileLogConfig    `yaml:"file"`
}

type ConsoleLogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Format  string `yaml:"format"`
	Level   string `yaml:"level,omitempty"`
}

type FileLogConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Path     string         `yaml:"path"`
	Format   string         `yaml:"format"`
	Level    string         `yaml:"level,omitempty"`
	Rotation RotationConfig `yaml:"rotation"`
}

type RotationConfig struct {
	MaxSize    int  `yaml:"max_size"`
	MaxAge     int  `yaml:"max_age"`
	MaxBackups int  `yaml:"max_backups"`
	Compress   bool `yaml:"compress"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Listen    string `yaml:"listen"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// RedisConfig is optional; an empty Addr disables Redis entirely
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ReportConfig configures the batch summary report
type ReportConfig struct {
	Summarizers                 []string     `yaml:"summarizers"`
	UseAssertionMessage         *bool        `yaml:"use_assertion_message,omitempty"`
	IgnoreTransactionController bool         `yaml:"ignore_transaction_controller"`
	SuppressEmptyOverall        bool         `yaml:"suppress_empty_overall"`
	Output                      OutputConfig `yaml:"output"`
}

// AssertionMessageEnabled returns the effective use_assertion_message value (default true)
func (r ReportConfig) AssertionMessageEnabled() bool {
	return r.UseAssertionMessage == nil || *r.UseAssertionMessage
}

type OutputConfig struct {
	Format      string `yaml:"format"`      // yaml, json
	Path        string `yaml:"path"`        // empty writes to stdout
	Compression string `yaml:"compression"` // none, snappy, lz4
}

// LiveConfig configures the live aggregation run
type LiveConfig struct {
	RunName          string         `yaml:"run_name"` // prefix of generated run IDs
	KeyMode          string         `yaml:"key_mode"` // label, group_label
	Workers          int            `yaml:"workers"`  // 0 = number of CPUs
	SnapshotInterval types.Duration `yaml:"snapshot_interval"`
	Granularity      types.Duration `yaml:"granularity"`
	TopErrors        int            `yaml:"top_errors"`
	Publish          PublishConfig  `yaml:"publish"`
}

// PublishConfig configures snapshot publication to Redis
type PublishConfig struct {
	Enabled   bool           `yaml:"enabled"`
	KeyPrefix string         `yaml:"key_prefix"`
	TTL       types.Duration `yaml:"ttl"`
}
