package api

import "codeberg.org/mutker/homewatt/internal/errors"

const (
	// Request Errors
	ErrInvalidPayload = errors.ErrorCode("api_invalid_payload")
)
