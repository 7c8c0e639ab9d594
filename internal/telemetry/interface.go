package telemetry

import (
	"context"
	"time"
)

// Source retrieves the full raw state tree from the external telemetry
// store. One call returns everything: per-channel minute logs plus the
// household status flags. The store offers no range queries, so every
// refresh operates on the full history.
type Source interface {
	Fetch(ctx context.Context) (*RawState, error)
}

// Provider serves cached aggregate snapshots to the presentation layer.
// It never returns an error: a failed refresh yields the all-zero
// fallback snapshot instead.
type Provider interface {
	Snapshot(ctx context.Context) *Snapshot
}

// RawLog maps minute-granularity timestamp keys (YYYY-MM-DD_HH-MM) to
// power readings in watts. Non-numeric stored values are coerced to zero
// when the log is decoded.
type RawLog map[string]float64

// StatusFlags carries the household-level switches reported alongside
// the logs. Absent flags read as false.
type StatusFlags struct {
	ManualMode     bool
	VentilationOn  bool
	MotionDetected bool
}

// RawState is the decoded result of one telemetry fetch.
type RawState struct {
	Logs  map[string]RawLog
	Flags StatusFlags
}

// EnergyRecord is one merged sample slot: every configured channel is
// present (zero-filled when its log has no reading at this key) and
// Total is always the sum of the channel values.
type EnergyRecord struct {
	Key      string             `json:"key"`
	Channels map[string]float64 `json:"channels"`
	Total    float64            `json:"total"`
}

// BreakdownEntry is one channel's accumulated consumption over the full
// record sequence, together with its display metadata and the fixed
// reference wattage.
type BreakdownEntry struct {
	Channel        string  `json:"channel"`
	Label          string  `json:"label"`
	Color          string  `json:"color"`
	KWh            float64 `json:"kwh"`
	BenchmarkWatts float64 `json:"benchmark_watts"`
}

// Stats holds the scalar dashboard figures.
type Stats struct {
	CurrentKW      float64 `json:"current_kw"`
	PeakKW         float64 `json:"peak_kw"`
	ManualMode     bool    `json:"manual_mode"`
	SavingsPercent float64 `json:"savings_percent"`
}

type AlertLevel string

const (
	AlertWarning AlertLevel = "warning"
	AlertInfo    AlertLevel = "info"
)

// Alert is one rule-triggered dashboard entry. Alerts are re-evaluated
// on every pipeline run and are not deduplicated across runs.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Message string     `json:"message"`
}

// Snapshot is the complete cached aggregate served to consumers. It is
// immutable once built; the cache replaces it atomically.
type Snapshot struct {
	Records   []EnergyRecord   `json:"records"`
	Recent    []EnergyRecord   `json:"recent"`
	Breakdown []BreakdownEntry `json:"breakdown"`
	Stats     Stats            `json:"stats"`
	Alerts    []Alert          `json:"alerts"`
	FetchedAt time.Time        `json:"fetched_at"`
	Fallback  bool             `json:"fallback"`
}
