package redis

import "strings"

const (
	snapshotSegment = "snapshot"
	latestSegment   = "latest"
)

// KeyGenerator builds the Redis keys used for published snapshots
type KeyGenerator struct {
	prefix string
}

// NewKeyGenerator returns a generator for prefix, a trailing ':' is added when missing
func NewKeyGenerator(prefix string) *KeyGenerator {
	if prefix != "" && !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return &KeyGenerator{prefix: prefix}
}

// SnapshotKey is the hash holding the latest table of one run.
// Format: {prefix}snapshot:{runID}
func (kg *KeyGenerator) SnapshotKey(runID string) string {
	return kg.prefix + snapshotSegment + ":" + runID
}

// LatestKey stores the ID of the most recently published run
func (kg *KeyGenerator) LatestKey() string {
	return kg.prefix + latestSegment
}
