package logger

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/edgecomet/loadstats/internal/common/configtypes"
)

// DynamicLogger is a zap.Logger whose per-output levels can be changed after startup
type DynamicLogger struct {
	*zap.Logger
	outputs    []output
	configured configtypes.LogConfig
}

type output struct {
	name  string
	level zap.AtomicLevel
	// explicit is the per-output level from config, empty means "use global"
	explicit string
}

// Option customizes logger construction
type Option func(*options)

type options struct {
	console io.Writer
}

// WithConsoleWriter redirects console output, os.Stdout by default
func WithConsoleWriter(w io.Writer) Option {
	return func(o *options) {
		o.console = w
	}
}

// NewLogger builds a logger from cfg with one core per enabled output
func NewLogger(cfg configtypes.LogConfig, opts ...Option) (*DynamicLogger, error) {
	o := options{console: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	global := ParseLevel(cfg.Level)
	dl := &DynamicLogger{configured: cfg}
	var cores []zapcore.Core

	if cfg.Console.Enabled {
		out := output{name: "console", explicit: cfg.Console.Level}
		out.level = zap.NewAtomicLevelAt(effectiveLevel(out.explicit, global))
		dl.outputs = append(dl.outputs, out)
		cores = append(cores, zapcore.NewCore(encoderFor(cfg.Console.Format), zapcore.Lock(zapcore.AddSync(o.console)), out.level))
	}

	if cfg.File.Enabled {
		if cfg.File.Path == "" {
			return nil, fmt.Errorf("file.path must be specified when file logging is enabled")
		}
		out := output{name: "file", explicit: cfg.File.Level}
		out.level = zap.NewAtomicLevelAt(effectiveLevel(out.explicit, global))
		dl.outputs = append(dl.outputs, out)
		cores = append(cores, zapcore.NewCore(encoderFor(cfg.File.Format), rotatingWriter(cfg.File), out.level))
	}

	switch len(cores) {
	case 0:
		return nil, fmt.Errorf("at least one log output (console or file) must be enabled")
	case 1:
		dl.Logger = zap.New(cores[0])
	default:
		dl.Logger = zap.New(zapcore.NewTee(cores...))
	}

	return dl, nil
}

// NewLoggerWithStartupOverride keeps startup messages visible: outputs that would
// be quieter than INFO start at INFO until SwitchToConfiguredLevel is called.
func NewLoggerWithStartupOverride(cfg configtypes.LogConfig, opts ...Option) (*DynamicLogger, error) {
	dl, err := NewLogger(cfg, opts...)
	if err != nil {
		return nil, err
	}
	for i := range dl.outputs {
		if dl.outputs[i].level.Level() > zap.InfoLevel {
			dl.outputs[i].level.SetLevel(zap.InfoLevel)
		}
	}
	return dl, nil
}

// SwitchToConfiguredLevel restores the levels from the configuration
func (dl *DynamicLogger) SwitchToConfiguredLevel() {
	dl.Info("Switching logger to configured level", zap.String("level", dl.configured.Level))

	global := ParseLevel(dl.configured.Level)
	for i := range dl.outputs {
		dl.outputs[i].level.SetLevel(effectiveLevel(dl.outputs[i].explicit, global))
	}
}

// EnsureInfoLevelForShutdown lowers every output above INFO to INFO so the
// shutdown sequence is always logged
func (dl *DynamicLogger) EnsureInfoLevelForShutdown() {
	changed := false
	for i := range dl.outputs {
		if dl.outputs[i].level.Level() > zap.InfoLevel {
			dl.outputs[i].level.SetLevel(zap.InfoLevel)
			changed = true
		}
	}
	if changed {
		dl.Info("Switched to INFO level for shutdown visibility")
	}
}

// Level returns the current level of the named output ("console" or "file")
func (dl *DynamicLogger) Level(name string) (zapcore.Level, bool) {
	for _, out := range dl.outputs {
		if out.name == name {
			return out.level.Level(), true
		}
	}
	return zapcore.InvalidLevel, false
}

// ParseLevel maps a configured level name to a zap level, INFO when unknown
func ParseLevel(level string) zapcore.Level {
	switch level {
	case configtypes.LogLevelDebug:
		return zap.DebugLevel
	case configtypes.LogLevelWarn:
		return zap.WarnLevel
	case configtypes.LogLevelError:
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

func effectiveLevel(explicit string, global zapcore.Level) zapcore.Level {
	if explicit == "" {
		return global
	}
	return ParseLevel(explicit)
}

func encoderFor(format string) zapcore.Encoder {
	switch format {
	case configtypes.LogFormatJSON:
		return zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case configtypes.LogFormatText:
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	default:
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
}

func rotatingWriter(cfg configtypes.FileLogConfig) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.Rotation.MaxSize,
		MaxAge:     cfg.Rotation.MaxAge,
		MaxBackups: cfg.Rotation.MaxBackups,
		Compress:   cfg.Rotation.Compress,
	})
}

// NewDefaultLogger is the bootstrap logger used before the configuration is loaded
func NewDefaultLogger() (*DynamicLogger, error) {
	return NewLogger(configtypes.LogConfig{
		Level: configtypes.LogLevelDebug,
		Console: configtypes.ConsoleLogConfig{
			Enabled: true,
			Format:  configtypes.LogFormatConsole,
		},
	})
}
