package telemetry

import "codeberg.org/mutker/homewatt/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrorCode("telemetry_invalid_config")
	ErrInvalidURL    = errors.ErrorCode("telemetry_invalid_url")

	// Fetch Errors
	ErrFetchFailed    = errors.ErrorCode("telemetry_fetch_failed")
	ErrFetchTimeout   = errors.ErrorCode("telemetry_fetch_timeout")
	ErrBadStatusCode  = errors.ErrorCode("telemetry_bad_status_code")
	ErrMalformedState = errors.ErrorCode("telemetry_malformed_state")
)
