package history

import "codeberg.org/mutker/homewatt/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrorCode("history_invalid_config")
	ErrInvalidDBPath = errors.ErrorCode("history_invalid_db_path")

	// Recording Errors
	ErrInvalidSnapshot = errors.ErrorCode("history_invalid_snapshot")
	ErrRecordFailed    = errors.ErrorCode("history_record_failed")

	// Storage Errors
	ErrStorageAccess = errors.ErrorCode("history_storage_access_failed")
	ErrStorageInit   = errors.ErrorCode("history_storage_init_failed")
	ErrStorageClose  = errors.ErrorCode("history_storage_close_failed")

	// Operation Errors
	ErrOperationTimeout = errors.ErrorCode("history_operation_timeout")
	ErrServiceShutdown  = errors.ErrorCode("history_service_shutdown_failed")
)
