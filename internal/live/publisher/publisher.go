// Package publisher pushes live statistics tables to Redis so dashboards
// outside the process can follow a running test.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edgecomet/loadstats/internal/common/configtypes"
	"github.com/edgecomet/loadstats/internal/common/redis"
	"github.com/edgecomet/loadstats/internal/stats/table"
)

// Hash fields of a published snapshot
const (
	FieldTable     = "table"
	FieldRows      = "rows"
	FieldUpdatedAt = "updated_at"
)

// Store is the subset of the Redis client used for publication
type Store interface {
	HSetWithTTL(ctx context.Context, key string, fields map[string]interface{}, ttl time.Duration) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// Publisher writes snapshot tables under {prefix}snapshot:{runID}.
// When the run ID changes (the registry was cleared) the previous run's
// snapshot is removed, unless another process has taken over the latest key.
type Publisher struct {
	store  Store
	keys   *redis.KeyGenerator
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	lastRun string
}

// New creates a publisher from the publish configuration
func New(store Store, cfg configtypes.PublishConfig, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		store:  store,
		keys:   redis.NewKeyGenerator(cfg.KeyPrefix),
		ttl:    cfg.TTL.ToDuration(),
		logger: logger,
		now:    time.Now,
	}
}

// Publish stores t for runID and points the latest key at runID
func (p *Publisher) Publish(ctx context.Context, runID string, t *table.Table) error {
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	key := p.keys.SnapshotKey(runID)
	fields := map[string]interface{}{
		FieldTable:     string(body),
		FieldRows:      strconv.Itoa(t.Len()),
		FieldUpdatedAt: p.now().UTC().Format(time.RFC3339Nano),
	}
	if err := p.store.HSetWithTTL(ctx, key, fields, p.ttl); err != nil {
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}
	latestKey := p.keys.LatestKey()
	previous, err := p.store.Get(ctx, latestKey)
	if err != nil {
		return fmt.Errorf("failed to read latest run: %w", err)
	}
	if err := p.store.Set(ctx, latestKey, runID, p.ttl); err != nil {
		return fmt.Errorf("failed to update latest run: %w", err)
	}

	p.retire(ctx, runID, previous)

	p.logger.Debug("Published snapshot",
		zap.String("key", key),
		zap.Int("rows", t.Len()),
		zap.Int("bytes", len(body)))
	return nil
}

// retire deletes the snapshot of the run this publisher wrote before runID.
// previous is what the latest key held before this publish.
func (p *Publisher) retire(ctx context.Context, runID, previous string) {
	p.mu.Lock()
	last := p.lastRun
	p.lastRun = runID
	p.mu.Unlock()

	if last == "" || last == runID || previous != last {
		return
	}
	if err := p.store.Del(ctx, p.keys.SnapshotKey(last)); err != nil {
		p.logger.Warn("Failed to delete previous run snapshot",
			zap.String("run_id", last),
			zap.Error(err))
		return
	}
	p.logger.Info("Deleted previous run snapshot", zap.String("run_id", last))
}
