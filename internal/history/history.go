package history

import (
	"context"

	"codeberg.org/mutker/homewatt/internal/errors"
	"codeberg.org/mutker/homewatt/internal/logger"
	"codeberg.org/mutker/homewatt/internal/telemetry"
)

type service struct {
	repo Repository
	cfg  Config
}

// No-op implementation
type noopRecorder struct{}

func NewService(cfg Config) (Recorder, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	// If history is disabled, return a no-op recorder
	if !cfg.Enabled {
		logger.Debug().Msg("Snapshot history disabled, using no-op recorder")
		return &noopRecorder{}, nil
	}

	repo, err := NewRepository(cfg)
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Str("db_path", cfg.DBPath).
		Msg("Snapshot history initialized")

	return &service{
		repo: repo,
		cfg:  cfg,
	}, nil
}

func (s *service) Record(ctx context.Context, snapshot *telemetry.Snapshot) error {
	errFactory := errors.New()

	if snapshot == nil {
		return errFactory.New(ErrInvalidSnapshot)
	}
	// Fallback snapshots are synthetic; recording them would pollute the
	// series with zeros that were never measured.
	if snapshot.Fallback {
		return nil
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		if err := s.repo.Store(ctx, snapshot); err != nil {
			return errFactory.Wrap(ErrRecordFailed, err)
		}
	}

	return nil
}

func (s *service) Close() error {
	errFactory := errors.New()

	if err := s.repo.Close(); err != nil {
		return errFactory.Wrap(ErrServiceShutdown, err)
	}
	return nil
}

func (*noopRecorder) Record(_ context.Context, _ *telemetry.Snapshot) error {
	return nil
}

func (*noopRecorder) Close() error {
	return nil
}
