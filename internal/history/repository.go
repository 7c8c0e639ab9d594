package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	"codeberg.org/mutker/homewatt/internal/errors"
	"codeberg.org/mutker/homewatt/internal/logger"
	"codeberg.org/mutker/homewatt/internal/telemetry"

	_ "github.com/mattn/go-sqlite3"
)

type sqliteRepository struct {
	db *sql.DB
	mu sync.Mutex
}

func NewRepository(cfg Config) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	logger.Debug().Msgf("Initializing history repository at: %s", cfg.DBPath)

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	return &sqliteRepository{
		db: db,
	}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS snapshots (
            fetched_at INTEGER PRIMARY KEY,
            current_kw REAL,
            peak_kw REAL,
            record_count INTEGER,
            recent_count INTEGER,
            manual_mode INTEGER,
            alert_count INTEGER
        )
    `)
	return err
}

func (r *sqliteRepository) Store(ctx context.Context, snapshot *telemetry.Snapshot) error {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `
        INSERT INTO snapshots (
            fetched_at, current_kw, peak_kw,
            record_count, recent_count, manual_mode, alert_count
        ) VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(fetched_at) DO UPDATE SET
            current_kw = excluded.current_kw,
            peak_kw = excluded.peak_kw,
            record_count = excluded.record_count,
            recent_count = excluded.recent_count,
            manual_mode = excluded.manual_mode,
            alert_count = excluded.alert_count
    `,
		snapshot.FetchedAt.Unix(),
		snapshot.Stats.CurrentKW,
		snapshot.Stats.PeakKW,
		len(snapshot.Records),
		len(snapshot.Recent),
		boolToInt(snapshot.Stats.ManualMode),
		len(snapshot.Alerts),
	)
	if err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}

	return nil
}

func (r *sqliteRepository) Close() error {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.db.Close(); err != nil {
		return errFactory.Wrap(ErrStorageClose, err)
	}
	return nil
}
