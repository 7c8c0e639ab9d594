package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"codeberg.org/mutker/homewatt/internal/errors"
	"github.com/go-resty/resty/v2"
)

// Well-known status keys in the raw state tree. The flags may sit inside
// a "status" object or at the top level; both deployed store layouts are
// accepted.
const (
	statusObjectKey   = "status"
	manualModeKey     = "manual_mode"
	ventilationOnKey  = "ventilation_on"
	motionDetectedKey = "motion"
)

type httpSource struct {
	client   *resty.Client
	url      string
	channels []Channel
}

// NewHTTPSource builds a Source that reads the raw state tree over HTTP.
func NewHTTPSource(cfg Config) (Source, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	client := resty.New().
		SetTimeout(cfg.FetchTimeout).
		SetRetryCount(defaultRetryCount).
		SetRetryWaitTime(defaultRetryWait).
		SetHeader("Accept", "application/json")

	return &httpSource{
		client:   client,
		url:      cfg.BaseURL,
		channels: cfg.Channels,
	}, nil
}

func (s *httpSource) Fetch(ctx context.Context) (*RawState, error) {
	errFactory := errors.New()

	resp, err := s.client.R().SetContext(ctx).Get(s.url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errFactory.Wrap(ErrFetchTimeout, err)
		}
		return nil, errFactory.Wrap(ErrFetchFailed, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, errFactory.WithData(ErrBadStatusCode, resp.StatusCode())
	}

	var tree map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body(), &tree); err != nil {
		return nil, errFactory.Wrap(ErrMalformedState, err)
	}

	return decodeState(tree, s.channels), nil
}

// decodeState maps the raw tree onto per-channel logs and status flags.
// Per-channel decode failures degrade to an empty log; per-sample
// non-numeric values degrade to zero. One bad entry never aborts the
// fetch.
func decodeState(tree map[string]json.RawMessage, channels []Channel) *RawState {
	state := &RawState{
		Logs: make(map[string]RawLog, len(channels)),
	}

	for _, ch := range channels {
		state.Logs[ch.Name] = decodeLog(tree[ch.Name])
	}

	flagSource := tree
	if raw, ok := tree[statusObjectKey]; ok {
		var status map[string]json.RawMessage
		if err := json.Unmarshal(raw, &status); err == nil {
			flagSource = status
		}
	}
	state.Flags = StatusFlags{
		ManualMode:     boolAt(flagSource, manualModeKey),
		VentilationOn:  boolAt(flagSource, ventilationOnKey),
		MotionDetected: boolAt(flagSource, motionDetectedKey),
	}

	return state
}

func decodeLog(raw json.RawMessage) RawLog {
	log := make(RawLog)
	if len(raw) == 0 {
		return log
	}

	var entries map[string]any
	if err := json.Unmarshal(raw, &entries); err != nil {
		return log
	}

	for key, value := range entries {
		log[key] = toWatts(value)
	}

	return log
}

// toWatts coerces a stored reading to watts; non-numeric values read as
// zero, never as missing.
func toWatts(value any) float64 {
	switch v := value.(type) {
	case float64:
		if v < 0 {
			return 0
		}
		return v
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed < 0 {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func boolAt(m map[string]json.RawMessage, key string) bool {
	raw, ok := m[key]
	if !ok {
		return false
	}

	var value bool
	if err := json.Unmarshal(raw, &value); err != nil {
		return false
	}

	return value
}
