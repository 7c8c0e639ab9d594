package telemetry

import (
	"time"

	"codeberg.org/mutker/homewatt/internal/errors"
)

const (
	defaultFetchTimeout = 10 * time.Second
	defaultTTL          = 45 * time.Second
	defaultWindow       = 24 * time.Hour
	defaultRetryCount   = 2
	defaultRetryWait    = 500 * time.Millisecond
)

// Channel is one monitored device channel: its key in the telemetry
// store plus display metadata and the fixed reference wattage.
type Channel struct {
	Name           string
	Label          string
	Color          string
	BenchmarkWatts float64
}

type Config struct {
	BaseURL      string
	FetchTimeout time.Duration
	TTL          time.Duration
	Window       time.Duration
	Channels     []Channel
}

func DefaultConfig() Config {
	return Config{
		FetchTimeout: defaultFetchTimeout,
		TTL:          defaultTTL,
		Window:       defaultWindow,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.BaseURL == "" {
		return errFactory.New(ErrInvalidURL)
	}
	if c.FetchTimeout <= 0 || c.TTL <= 0 || c.Window <= 0 {
		return errFactory.New(ErrInvalidConfig)
	}
	if len(c.Channels) == 0 {
		return errFactory.WithMessage(ErrInvalidConfig, "at least one channel is required")
	}

	return nil
}
