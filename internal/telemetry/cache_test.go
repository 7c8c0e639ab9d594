package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/mutker/homewatt/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu      sync.Mutex
	calls   int32
	state   *RawState
	err     error
	started chan struct{} // closed when the first Fetch begins
	release chan struct{} // when non-nil, Fetch blocks until closed
	once    sync.Once
}

func (f *fakeSource) Fetch(_ context.Context) (*RawState, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.started != nil {
		f.once.Do(func() { close(f.started) })
	}
	if f.release != nil {
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.state, nil
}

func (f *fakeSource) fetchCount() int32 {
	return atomic.LoadInt32(&f.calls)
}

func (f *fakeSource) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func newTestError() error {
	return errors.New().New(ErrFetchFailed)
}

func cacheTestConfig() Config {
	return Config{
		BaseURL:      "http://telemetry.test/state.json",
		FetchTimeout: time.Second,
		TTL:          30 * time.Second,
		Window:       24 * time.Hour,
		Channels: []Channel{
			{Name: "ac", Label: "Air Conditioner", BenchmarkWatts: 1500},
			{Name: "fan", Label: "Fan", BenchmarkWatts: 75},
		},
	}
}

func goodState() *RawState {
	return &RawState{
		Logs: map[string]RawLog{
			"ac":  {"2024-01-01_00-00": 500},
			"fan": {"2024-01-01_00-00": 50, "2024-01-01_00-01": 50},
		},
		Flags: StatusFlags{VentilationOn: true, MotionDetected: true},
	}
}

func newTestCache(t *testing.T, source Source, clock func() time.Time) *Cache {
	t.Helper()

	cache, err := NewCache(cacheTestConfig(), source)
	require.NoError(t, err)
	if clock != nil {
		cache.now = clock
	}
	return cache
}

func TestCacheServesFreshSnapshotWithoutRefetch(t *testing.T) {
	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)
	source := &fakeSource{state: goodState()}
	cache := newTestCache(t, source, func() time.Time { return current })

	first := cache.Snapshot(context.Background())
	require.NotNil(t, first)
	assert.EqualValues(t, 1, source.fetchCount())

	current = current.Add(10 * time.Second) // still inside the 30s TTL
	second := cache.Snapshot(context.Background())
	assert.Same(t, first, second)
	assert.Equal(t, first.FetchedAt, second.FetchedAt)
	assert.EqualValues(t, 1, source.fetchCount())
}

func TestCacheRefreshesAfterTTL(t *testing.T) {
	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)
	source := &fakeSource{state: goodState()}
	cache := newTestCache(t, source, func() time.Time { return current })

	first := cache.Snapshot(context.Background())
	current = current.Add(31 * time.Second)

	second := cache.Snapshot(context.Background())
	assert.NotSame(t, first, second)
	assert.EqualValues(t, 2, source.fetchCount())
	assert.True(t, second.FetchedAt.After(first.FetchedAt))
}

func TestCacheSingleFlight(t *testing.T) {
	source := &fakeSource{
		state:   goodState(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	cache := newTestCache(t, source, nil)

	const callers = 8
	results := make(chan *Snapshot, callers)
	for i := 0; i < callers; i++ {
		go func() {
			results <- cache.Snapshot(context.Background())
		}()
	}

	<-source.started
	// Give the remaining callers time to join the in-flight run
	time.Sleep(50 * time.Millisecond)
	close(source.release)

	var first *Snapshot
	for i := 0; i < callers; i++ {
		snap := <-results
		require.NotNil(t, snap)
		if first == nil {
			first = snap
		} else {
			assert.Same(t, first, snap)
		}
	}

	assert.EqualValues(t, 1, source.fetchCount(), "concurrent misses share one pipeline run")
}

func TestCacheFailureReturnsFallbackWithoutPoisoning(t *testing.T) {
	source := &fakeSource{state: goodState()}
	source.setErr(newTestError())

	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)
	cache := newTestCache(t, source, func() time.Time { return current })

	snap := cache.Snapshot(context.Background())
	require.NotNil(t, snap)
	assert.True(t, snap.Fallback)
	assert.Zero(t, snap.Stats.CurrentKW)
	assert.Zero(t, snap.Stats.PeakKW)
	require.Len(t, snap.Recent, 1)
	assert.Zero(t, snap.Recent[0].Total)

	// The failure is not cached: the stored snapshot stays empty and the
	// next call retries the fetch.
	assert.Nil(t, cache.fresh())
	source.setErr(nil)

	recovered := cache.Snapshot(context.Background())
	assert.False(t, recovered.Fallback)
	assert.EqualValues(t, 2, source.fetchCount())
}

func TestCacheFailureKeepsPriorSnapshotAndTimestamp(t *testing.T) {
	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)
	source := &fakeSource{state: goodState()}
	cache := newTestCache(t, source, func() time.Time { return current })

	good := cache.Snapshot(context.Background())
	require.False(t, good.Fallback)

	current = current.Add(31 * time.Second)
	source.setErr(newTestError())

	snap := cache.Snapshot(context.Background())
	assert.True(t, snap.Fallback)

	cache.mu.RLock()
	stored, storedAt := cache.snapshot, cache.fetchedAt
	cache.mu.RUnlock()
	assert.Same(t, good, stored, "a failed run never destroys the prior snapshot")
	assert.Equal(t, good.FetchedAt, storedAt, "a failed run never advances the cache timestamp")
}

func TestCacheOnRefreshHook(t *testing.T) {
	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)
	source := &fakeSource{state: goodState()}
	cache := newTestCache(t, source, func() time.Time { return current })

	var refreshed []*Snapshot
	cache.OnRefresh(func(s *Snapshot) { refreshed = append(refreshed, s) })

	first := cache.Snapshot(context.Background())
	cache.Snapshot(context.Background()) // cache hit, no hook

	require.Len(t, refreshed, 1)
	assert.Same(t, first, refreshed[0])

	source.setErr(newTestError())
	current = current.Add(31 * time.Second)
	cache.Snapshot(context.Background())
	assert.Len(t, refreshed, 1, "failed runs do not invoke the hook")
}

func TestCachePipelineOutput(t *testing.T) {
	source := &fakeSource{state: goodState()}
	cache := newTestCache(t, source, nil)

	snap := cache.Snapshot(context.Background())
	require.Len(t, snap.Records, 2)
	assert.InDelta(t, 550, snap.Records[0].Total, 0.001)
	assert.InDelta(t, 50, snap.Records[1].Total, 0.001)

	// The 2024 keys are far outside the trailing window, so the recent
	// sequence is the synthetic fallback record.
	require.Len(t, snap.Recent, 1)
	assert.Zero(t, snap.Recent[0].Total)
	assert.Zero(t, snap.Stats.CurrentKW)

	require.Len(t, snap.Breakdown, 2)
	// 500 watt-samples / 60 / 1000
	assert.InDelta(t, 0.008, snap.Breakdown[0].KWh, 0.0001)
	assert.InDelta(t, 0.002, snap.Breakdown[1].KWh, 0.0001)
}
