package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edgecomet/loadstats/internal/common/configtypes"
	"github.com/edgecomet/loadstats/internal/common/yamlutil"
	"github.com/edgecomet/loadstats/internal/stats/filter"
	"github.com/edgecomet/loadstats/pkg/types"
)

// Defaults applied to fields left empty in the configuration file
const (
	DefaultMetricsListen    = ":9464"
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "loadstats"
	DefaultKeyMode          = "label"
	DefaultSnapshotInterval = 5 * time.Second
	DefaultGranularity      = time.Second
	DefaultTopErrors        = 5
	DefaultPublishPrefix    = "loadstats:"
	DefaultPublishTTL       = 10 * time.Minute
)

// DefaultSummarizers are run when report.summarizers is empty
var DefaultSummarizers = []string{"errors", "top5_errors_by_sampler"}

// ConfigManager loads and holds the tool configuration
type ConfigManager struct {
	config     *configtypes.StatsConfig
	configPath string
	logger     *zap.Logger
}

// NewConfigManager loads, defaults and validates the configuration at configPath
func NewConfigManager(configPath string, logger *zap.Logger) (*ConfigManager, error) {
	cm := &ConfigManager{
		configPath: configPath,
		logger:     logger,
	}

	if err := cm.LoadConfig(); err != nil {
		return nil, err
	}

	return cm, nil
}

// LoadConfig (re)reads the configuration file
func (cm *ConfigManager) LoadConfig() error {
	data, err := os.ReadFile(cm.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return err
	}

	cm.config = cfg

	cm.logger.Info("Configuration loaded",
		zap.String("path", cm.configPath),
		zap.Strings("summarizers", cfg.Report.Summarizers),
		zap.String("key_mode", cfg.Live.KeyMode))

	return nil
}

// GetConfig returns the loaded configuration
func (cm *ConfigManager) GetConfig() *configtypes.StatsConfig {
	return cm.config
}

// Parse decodes YAML configuration, applies defaults and validates it
func Parse(data []byte) (*configtypes.StatsConfig, error) {
	var cfg configtypes.StatsConfig
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with every default applied
func Default() *configtypes.StatsConfig {
	cfg := &configtypes.StatsConfig{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills empty fields
func ApplyDefaults(cfg *configtypes.StatsConfig) {
	// If both outputs are disabled (zero values), enable console by default
	if !cfg.Log.Console.Enabled && !cfg.Log.File.Enabled {
		cfg.Log.Console.Enabled = true
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = configtypes.LogLevelInfo
	}
	if cfg.Log.Console.Format == "" {
		cfg.Log.Console.Format = configtypes.LogFormatConsole
	}
	if cfg.Log.File.Format == "" {
		cfg.Log.File.Format = configtypes.LogFormatText
	}

	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = DefaultMetricsListen
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	if len(cfg.Report.Summarizers) == 0 {
		cfg.Report.Summarizers = append([]string(nil), DefaultSummarizers...)
	}
	if cfg.Report.Output.Format == "" {
		cfg.Report.Output.Format = types.FormatYAML
	}
	if cfg.Report.Output.Compression == "" {
		cfg.Report.Output.Compression = types.CompressionNone
	}

	if cfg.Live.KeyMode == "" {
		cfg.Live.KeyMode = DefaultKeyMode
	}
	if cfg.Live.SnapshotInterval <= 0 {
		cfg.Live.SnapshotInterval = types.Duration(DefaultSnapshotInterval)
	}
	if cfg.Live.Granularity <= 0 {
		cfg.Live.Granularity = types.Duration(DefaultGranularity)
	}
	if cfg.Live.TopErrors <= 0 {
		cfg.Live.TopErrors = DefaultTopErrors
	}
	if cfg.Live.Publish.KeyPrefix == "" {
		cfg.Live.Publish.KeyPrefix = DefaultPublishPrefix
	}
	if cfg.Live.Publish.TTL <= 0 {
		cfg.Live.Publish.TTL = types.Duration(DefaultPublishTTL)
	}
}

// Validate checks enumerated values and cross-field constraints
func Validate(cfg *configtypes.StatsConfig) error {
	var errs []string

	if !oneOf(cfg.Log.Level, configtypes.LogLevelDebug, configtypes.LogLevelInfo, configtypes.LogLevelWarn, configtypes.LogLevelError) {
		errs = append(errs, fmt.Sprintf("log.level: unsupported value %q", cfg.Log.Level))
	}
	if cfg.Log.File.Enabled && cfg.Log.File.Path == "" {
		errs = append(errs, "log.file.path: required when file logging is enabled")
	}

	if cfg.Metrics.Enabled {
		if err := configtypes.ValidateListenAddress(cfg.Metrics.Listen); err != nil {
			errs = append(errs, fmt.Sprintf("metrics.listen: %v", err))
		}
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			errs = append(errs, fmt.Sprintf("metrics.path: must start with '/', got %q", cfg.Metrics.Path))
		}
	}

	if !oneOf(cfg.Report.Output.Format, types.FormatYAML, types.FormatJSON) {
		errs = append(errs, fmt.Sprintf("report.output.format: unsupported value %q", cfg.Report.Output.Format))
	}
	if !oneOf(cfg.Report.Output.Compression, types.CompressionNone, types.CompressionSnappy, types.CompressionLZ4) {
		errs = append(errs, fmt.Sprintf("report.output.compression: unsupported value %q", cfg.Report.Output.Compression))
	}

	if cfg.Live.Workers < 0 {
		errs = append(errs, fmt.Sprintf("live.workers: must be >= 0, got %d", cfg.Live.Workers))
	}
	if cfg.Live.Publish.Enabled && cfg.Redis.Addr == "" {
		errs = append(errs, "live.publish.enabled: requires redis.addr")
	}
	if _, err := filter.New(cfg.Filter.Include, cfg.Filter.Exclude); err != nil {
		errs = append(errs, fmt.Sprintf("filter.%v", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

// GetConfigPath resolves path to an absolute path of an existing file
func GetConfigPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("config path cannot be empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path: %w", err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return "", fmt.Errorf("config file does not exist: %s", absPath)
	}

	return absPath, nil
}
