package history

import (
	"context"

	"codeberg.org/mutker/homewatt/internal/telemetry"
)

// Recorder persists the scalar outcome of successful pipeline runs so
// dashboards can chart consumption beyond the in-memory cache lifetime.
type Recorder interface {
	Record(ctx context.Context, snapshot *telemetry.Snapshot) error
	Close() error
}

// Repository defines the interface for history storage
type Repository interface {
	Store(ctx context.Context, snapshot *telemetry.Snapshot) error
	Close() error
}
