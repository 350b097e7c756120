package collector

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"MarketScreener/internal/model"
)

// SnapshotMode selects how capitalization snapshots are sourced during a run.
type SnapshotMode int

const (
	// SnapshotShared fetches one snapshot per run before dispatch.
	SnapshotShared SnapshotMode = iota
	// SnapshotPerTask fetches the snapshot as of each instrument's latest bar.
	SnapshotPerTask
)

func (m SnapshotMode) String() string {
	switch m {
	case SnapshotShared:
		return "shared"
	case SnapshotPerTask:
		return "per_task"
	}
	return fmt.Sprintf("SnapshotMode(%d)", int(m))
}

// ParseSnapshotMode parses a configuration value. Empty means shared.
func ParseSnapshotMode(s string) (SnapshotMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "shared":
		return SnapshotShared, nil
	case "per_task", "per-task", "pertask":
		return SnapshotPerTask, nil
	}
	return 0, fmt.Errorf("unknown snapshot mode %q", s)
}

// SnapshotCache deduplicates concurrent snapshot requests for the same date
// and keeps successful snapshots for the lifetime of the cache.
// Failures are not cached.
type SnapshotCache struct {
	Fetcher CapFetcher

	group singleflight.Group
	mu    sync.RWMutex
	byDay map[string]*model.CapSnapshot
}

// NewSnapshotCache creates a cache in front of f.
func NewSnapshotCache(f CapFetcher) *SnapshotCache {
	return &SnapshotCache{Fetcher: f, byDay: make(map[string]*model.CapSnapshot)}
}

// FetchCapSnapshot implements CapFetcher.
func (c *SnapshotCache) FetchCapSnapshot(ctx context.Context, asOf time.Time) (*model.CapSnapshot, error) {
	key := asOf.Format(dateLayout)

	c.mu.RLock()
	snap, ok := c.byDay[key]
	c.mu.RUnlock()
	if ok {
		return snap, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		c.mu.RLock()
		cached, ok := c.byDay[key]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}
		snap, err := c.Fetcher.FetchCapSnapshot(ctx, asOf)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.byDay[key] = snap
		c.mu.Unlock()
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.CapSnapshot), nil
}
