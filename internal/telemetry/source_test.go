package telemetry_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codeberg.org/mutker/homewatt/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sourceConfig(url string) telemetry.Config {
	cfg := telemetry.DefaultConfig()
	cfg.BaseURL = url
	cfg.FetchTimeout = 2 * time.Second
	cfg.Channels = testChannels()
	return cfg
}

func newTestSource(t *testing.T, handler http.HandlerFunc) telemetry.Source {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	source, err := telemetry.NewHTTPSource(sourceConfig(server.URL))
	require.NoError(t, err)
	return source
}

func TestHTTPSourceFetch(t *testing.T) {
	source := newTestSource(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"ac":  {"2024-01-01_00-00": 500, "2024-01-01_00-01": "410.5"},
			"fan": {"2024-01-01_00-00": 50},
			"status": {"manual_mode": true, "ventilation_on": true, "motion": false}
		}`))
	})

	state, err := source.Fetch(context.Background())
	require.NoError(t, err)

	require.Contains(t, state.Logs, "ac")
	assert.InDelta(t, 500, state.Logs["ac"]["2024-01-01_00-00"], 0.001)
	assert.InDelta(t, 410.5, state.Logs["ac"]["2024-01-01_00-01"], 0.001, "numeric strings are accepted")
	assert.InDelta(t, 50, state.Logs["fan"]["2024-01-01_00-00"], 0.001)

	assert.True(t, state.Flags.ManualMode)
	assert.True(t, state.Flags.VentilationOn)
	assert.False(t, state.Flags.MotionDetected)
}

func TestHTTPSourceCoercesMalformedValues(t *testing.T) {
	source := newTestSource(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{
			"ac":  {"2024-01-01_00-00": "garbage", "2024-01-01_00-01": null, "2024-01-01_00-02": -40},
			"fan": "not even an object"
		}`))
	})

	state, err := source.Fetch(context.Background())
	require.NoError(t, err)

	// Non-numeric and negative readings degrade to zero, not missing
	assert.Zero(t, state.Logs["ac"]["2024-01-01_00-00"])
	assert.Zero(t, state.Logs["ac"]["2024-01-01_00-01"])
	assert.Zero(t, state.Logs["ac"]["2024-01-01_00-02"])
	assert.Len(t, state.Logs["ac"], 3)

	// A channel that is not a log object degrades to an empty log
	assert.Empty(t, state.Logs["fan"])
}

func TestHTTPSourceTopLevelFlags(t *testing.T) {
	source := newTestSource(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"ac": {}, "manual_mode": true, "motion": true}`))
	})

	state, err := source.Fetch(context.Background())
	require.NoError(t, err)

	assert.True(t, state.Flags.ManualMode)
	assert.True(t, state.Flags.MotionDetected)
	assert.False(t, state.Flags.VentilationOn, "absent flags read as false")
}

func TestHTTPSourceMissingChannels(t *testing.T) {
	source := newTestSource(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	})

	state, err := source.Fetch(context.Background())
	require.NoError(t, err)

	require.Contains(t, state.Logs, "ac")
	require.Contains(t, state.Logs, "fan")
	assert.Empty(t, state.Logs["ac"])
	assert.Empty(t, state.Logs["fan"])
}

func TestHTTPSourceBadStatusCode(t *testing.T) {
	source := newTestSource(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	})

	_, err := source.Fetch(context.Background())
	require.Error(t, err)
}

func TestHTTPSourceMalformedPayload(t *testing.T) {
	source := newTestSource(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[1, 2, 3`))
	})

	_, err := source.Fetch(context.Background())
	require.Error(t, err)
}

func TestHTTPSourceUnreachable(t *testing.T) {
	cfg := sourceConfig("http://127.0.0.1:1/state.json")
	cfg.FetchTimeout = 500 * time.Millisecond

	source, err := telemetry.NewHTTPSource(cfg)
	require.NoError(t, err)

	_, err = source.Fetch(context.Background())
	require.Error(t, err)
}

func TestHTTPSourceRejectsInvalidConfig(t *testing.T) {
	_, err := telemetry.NewHTTPSource(telemetry.Config{})
	require.Error(t, err)
}
