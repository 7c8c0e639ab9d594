package device

import "codeberg.org/mutker/homewatt/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrorCode("device_invalid_config")

	// Validation Errors
	ErrInvalidName = errors.ErrorCode("device_invalid_name")
	ErrUnknownType = errors.ErrorCode("device_unknown_type")

	// Store Errors
	ErrNotFound         = errors.ErrorCode("device_not_found")
	ErrWriteRejected    = errors.ErrorCode("device_write_rejected")
	ErrStoreUnavailable = errors.ErrorCode("device_store_unavailable")
)
