package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/edgecomet/loadstats/internal/batch/report"
	"github.com/edgecomet/loadstats/internal/batch/summary"
	"github.com/edgecomet/loadstats/internal/common/config"
	"github.com/edgecomet/loadstats/internal/common/configtypes"
	logutil "github.com/edgecomet/loadstats/internal/common/logger"
	"github.com/edgecomet/loadstats/internal/replay"
	"github.com/edgecomet/loadstats/internal/stats/filter"
)

func main() {
	configPath := flag.String("c", "", "Path to configuration file (defaults apply when empty)")
	inputPath := flag.String("i", "", "Results file to summarize (.csv, optionally .snappy or .lz4)")
	outputPath := flag.String("o", "", "Report output path, overrides report.output.path")
	format := flag.String("f", "", "Report format (yaml, json), overrides report.output.format")
	flag.Parse()

	initialLogger, err := logutil.NewDefaultLogger()
	if err != nil {
		panic(err)
	}

	if *inputPath == "" {
		initialLogger.Fatal("Input results file is required (-i)")
	}

	cfg := loadConfig(*configPath, initialLogger)
	if *outputPath != "" {
		cfg.Report.Output.Path = *outputPath
	}
	if *format != "" {
		cfg.Report.Output.Format = *format
	}
	if err := config.Validate(cfg); err != nil {
		initialLogger.Fatal("Invalid configuration", zap.Error(err))
	}

	dynamicLogger, err := logutil.NewLoggerWithStartupOverride(cfg.Log)
	if err != nil {
		initialLogger.Fatal("Failed to create configured logger", zap.Error(err))
	}
	logger := dynamicLogger.Logger
	defer func() { _ = logger.Sync() }()

	logger.Info("Stats report starting",
		zap.String("input", *inputPath),
		zap.Strings("summarizers", cfg.Report.Summarizers),
		zap.String("format", cfg.Report.Output.Format))

	labelFilter, err := filter.New(cfg.Filter.Include, cfg.Filter.Exclude)
	if err != nil {
		logger.Fatal("Invalid label filter", zap.Error(err))
	}

	generator, err := report.NewGenerator(cfg.Report, summary.DefaultStrategies(), logger, report.WithFilter(labelFilter))
	if err != nil {
		logger.Fatal("Failed to create report generator", zap.Error(err))
	}

	reader, err := replay.Open(*inputPath, logger)
	if err != nil {
		logger.Fatal("Failed to open results file", zap.Error(err))
	}
	defer reader.Close()

	dynamicLogger.SwitchToConfiguredLevel()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rep, err := generator.Run(ctx, reader)
	if err != nil {
		dynamicLogger.EnsureInfoLevelForShutdown()
		logger.Fatal("Report generation failed", zap.Int("line", reader.Line()), zap.Error(err))
	}

	written, err := report.Write(rep, cfg.Report.Output, os.Stdout)
	if err != nil {
		logger.Fatal("Failed to write report", zap.Error(err))
	}

	dynamicLogger.EnsureInfoLevelForShutdown()
	if written != "" {
		logger.Info("Report written", zap.String("path", written), zap.Uint64("samples", rep.Samples))
	}
}

func loadConfig(path string, logger *logutil.DynamicLogger) *configtypes.StatsConfig {
	if path == "" {
		return config.Default()
	}

	logger.Info("Loading configuration", zap.String("path", path))
	absPath, err := config.GetConfigPath(path)
	if err != nil {
		logger.Fatal("Invalid config path", zap.Error(err))
	}
	configMgr, err := config.NewConfigManager(absPath, logger.Logger)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	return configMgr.GetConfig()
}
