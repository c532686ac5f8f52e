package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/edgecomet/loadstats/internal/batch/report"
	"github.com/edgecomet/loadstats/internal/common/config"
	"github.com/edgecomet/loadstats/internal/common/configtypes"
	logutil "github.com/edgecomet/loadstats/internal/common/logger"
	"github.com/edgecomet/loadstats/internal/common/metricsserver"
	"github.com/edgecomet/loadstats/internal/common/redis"
	"github.com/edgecomet/loadstats/internal/common/runid"
	"github.com/edgecomet/loadstats/internal/live/accumulator"
	"github.com/edgecomet/loadstats/internal/live/metrics"
	"github.com/edgecomet/loadstats/internal/live/publisher"
	"github.com/edgecomet/loadstats/internal/live/registry"
	"github.com/edgecomet/loadstats/internal/live/runner"
	"github.com/edgecomet/loadstats/internal/replay"
	"github.com/edgecomet/loadstats/internal/stats/classify"
	"github.com/edgecomet/loadstats/internal/stats/filter"
	"github.com/edgecomet/loadstats/internal/stats/table"
	"github.com/edgecomet/loadstats/pkg/types"
)

func main() {
	configPath := flag.String("c", "", "Path to configuration file (defaults apply when empty)")
	inputPath := flag.String("i", "-", "Results stream to follow, '-' reads stdin")
	outputPath := flag.String("o", "", "Final table output path, overrides report.output.path")
	flag.Parse()

	initialLogger, err := logutil.NewDefaultLogger()
	if err != nil {
		panic(err)
	}

	cfg := loadConfig(*configPath, initialLogger)
	if *outputPath != "" {
		cfg.Report.Output.Path = *outputPath
	}

	dynamicLogger, err := logutil.NewLoggerWithStartupOverride(cfg.Log)
	if err != nil {
		initialLogger.Fatal("Failed to create configured logger", zap.Error(err))
	}
	logger := dynamicLogger.Logger
	defer func() { _ = logger.Sync() }()

	stats := registry.New[accumulator.Stats](accumulator.SamplingFactory, logger,
		registry.WithRunIDs(runid.Generator(cfg.Live.RunName)))

	metricsCollector := metrics.NewMetricsCollector(cfg.Metrics.Namespace, stats.Snapshot, logger)
	snapshotRoute := metricsserver.Route{
		Path:    metrics.SnapshotPath,
		Handler: metrics.NewSnapshotHandler(stats.Snapshot, stats.RunID),
	}
	metricsServer, err := metricsserver.Start(cfg.Metrics, metricsCollector, logger, snapshotRoute)
	if err != nil {
		logger.Fatal("Failed to start metrics server", zap.Error(err))
	}

	labelFilter, err := filter.New(cfg.Filter.Include, cfg.Filter.Exclude)
	if err != nil {
		logger.Fatal("Invalid label filter", zap.Error(err))
	}
	options := []runner.Option{runner.WithMetrics(metricsCollector), runner.WithFilter(labelFilter)}

	if cfg.Live.Publish.Enabled {
		redisClient, err := redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		options = append(options, runner.WithPublisher(publisher.New(redisClient, cfg.Live.Publish, logger)))
	}

	classifyOpts := classify.Options{UseAssertionMessage: cfg.Report.AssertionMessageEnabled()}
	liveRunner, err := runner.New(cfg.Live, classifyOpts, stats, logger, options...)
	if err != nil {
		logger.Fatal("Failed to create live runner", zap.Error(err))
	}

	reader, err := openInput(*inputPath, logger)
	if err != nil {
		logger.Fatal("Failed to open results stream", zap.Error(err))
	}
	defer reader.Close()

	logger.Info("Stats live starting",
		zap.String("input", *inputPath),
		zap.String("key_mode", cfg.Live.KeyMode),
		zap.Int("workers", liveRunner.Workers()),
		zap.Bool("publish", cfg.Live.Publish.Enabled))

	dynamicLogger.SwitchToConfiguredLevel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		for sig := range sigCh {
			if sig == syscall.SIGHUP {
				logger.Info("Received SIGHUP, clearing statistics")
				liveRunner.Reset()
				continue
			}
			dynamicLogger.EnsureInfoLevelForShutdown()
			logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
			cancel()
			return
		}
	}()

	samples := make(chan *types.Sample, 4*liveRunner.Workers())
	go produce(ctx, reader, samples, logger)

	final, err := liveRunner.Run(ctx, samples)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Live run failed", zap.Error(err))
	}
	signal.Stop(sigCh)

	dynamicLogger.EnsureInfoLevelForShutdown()
	logger.Info("Shutting down gracefully...")

	rep := &report.Report{
		GeneratedAt: final.TakenAt,
		Samples:     uint64(stats.Overall().Count),
		Tables:      []*table.Table{final.Stats},
	}
	if written, err := report.Write(rep, cfg.Report.Output, os.Stdout); err != nil {
		logger.Error("Failed to write final statistics", zap.Error(err))
	} else if written != "" {
		logger.Info("Final statistics written", zap.String("path", written))
	}

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("Metrics server shutdown error", zap.Error(err))
		}
		shutdownCancel()
	}

	logger.Info("Stats live stopped", zap.String("run_id", final.RunID))
}

// produce reads samples until EOF or cancellation and closes out
func produce(ctx context.Context, reader *replay.Reader, out chan<- *types.Sample, logger *zap.Logger) {
	defer close(out)
	for {
		sample, err := reader.Next()
		if err == io.EOF {
			logger.Info("Results stream ended", zap.Int("lines", reader.Line()))
			return
		}
		if errors.Is(err, replay.ErrMalformedRecord) {
			logger.Warn("Skipping malformed result line", zap.Error(err))
			continue
		}
		if err != nil {
			logger.Error("Failed to read results stream", zap.Error(err))
			return
		}
		select {
		case out <- sample:
		case <-ctx.Done():
			return
		}
	}
}

func openInput(path string, logger *zap.Logger) (*replay.Reader, error) {
	if path == "-" {
		return replay.NewReader(os.Stdin, logger)
	}
	return replay.Open(path, logger)
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
