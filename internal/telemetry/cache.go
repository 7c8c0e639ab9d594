package telemetry

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/homewatt/internal/errors"
	"codeberg.org/mutker/homewatt/internal/logger"
	"golang.org/x/sync/singleflight"
)

// Cache wraps the fetch → merge → window → derive pipeline behind a TTL.
// A fresh snapshot is served without touching the source; an expired one
// triggers exactly one pipeline run shared by every concurrent caller
// (single-flight with waiters: callers arriving during a miss wait for
// the in-flight result rather than being served the stale snapshot).
//
// A failed run returns the deterministic all-zero fallback snapshot and
// leaves the stored snapshot and its timestamp untouched, so the next
// call retries instead of caching the failure.
type Cache struct {
	source Source
	cfg    Config

	group     singleflight.Group
	mu        sync.RWMutex
	snapshot  *Snapshot
	fetchedAt time.Time

	onRefresh func(*Snapshot)
	now       func() time.Time
}

func NewCache(cfg Config, source Source) (*Cache, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	return &Cache{
		source: source,
		cfg:    cfg,
		now:    time.Now,
	}, nil
}

// OnRefresh registers a hook invoked after every successful pipeline
// run, with the snapshot it produced. Must be set before the first
// Snapshot call.
func (c *Cache) OnRefresh(fn func(*Snapshot)) {
	c.onRefresh = fn
}

// Snapshot returns the cached aggregate, refreshing it when expired.
// It never returns nil.
func (c *Cache) Snapshot(_ context.Context) *Snapshot {
	if snap := c.fresh(); snap != nil {
		return snap
	}

	result, err, _ := c.group.Do("refresh", func() (any, error) {
		// A waiter that lost the race may arrive after the winning
		// run already stored its result.
		if snap := c.fresh(); snap != nil {
			return snap, nil
		}
		return c.refresh()
	})
	if err != nil {
		logger.Warn().Err(err).Msg("pipeline run failed, serving fallback snapshot")
		return c.fallback()
	}

	return result.(*Snapshot)
}

func (c *Cache) fresh() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.snapshot != nil && c.now().Sub(c.fetchedAt) < c.cfg.TTL {
		return c.snapshot
	}

	return nil
}

// refresh performs one full pipeline run. The fetch is bounded by the
// configured timeout and deliberately detached from any single caller's
// context: the run's result is shared by every waiter.
func (c *Cache) refresh() (*Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.FetchTimeout)
	defer cancel()

	state, err := c.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	now := c.now()
	records := Merge(state.Logs, c.cfg.Channels)
	recent := Window(records, c.cfg.Window, now)
	if len(recent) == 0 {
		recent = FallbackRecords(now, c.cfg.Channels)
	}

	stats, breakdown, alerts := Derive(records, recent, state.Flags, c.cfg.Channels)

	snapshot := &Snapshot{
		Records:   records,
		Recent:    recent,
		Breakdown: breakdown,
		Stats:     stats,
		Alerts:    alerts,
		FetchedAt: now,
	}

	c.mu.Lock()
	c.snapshot = snapshot
	c.fetchedAt = now
	c.mu.Unlock()

	logger.Debug().
		Int("records", len(records)).
		Int("recent", len(recent)).
		Float64("current_kw", stats.CurrentKW).
		Msg("snapshot refreshed")

	if c.onRefresh != nil {
		c.onRefresh(snapshot)
	}

	return snapshot, nil
}

// fallback builds the hardcoded all-zero snapshot served when a pipeline
// run fails. It is never stored.
func (c *Cache) fallback() *Snapshot {
	now := c.now()
	records := FallbackRecords(now, c.cfg.Channels)

	breakdown := make([]BreakdownEntry, 0, len(c.cfg.Channels))
	for _, ch := range c.cfg.Channels {
		breakdown = append(breakdown, BreakdownEntry{
			Channel:        ch.Name,
			Label:          ch.Label,
			Color:          ch.Color,
			KWh:            0,
			BenchmarkWatts: ch.BenchmarkWatts,
		})
	}

	return &Snapshot{
		Records:   records,
		Recent:    records,
		Breakdown: breakdown,
		Stats:     Stats{},
		Alerts:    nil,
		FetchedAt: now,
		Fallback:  true,
	}
}
