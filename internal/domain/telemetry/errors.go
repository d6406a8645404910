package telemetry

import "errors"

var (
	ErrDeviceNotFound = errors.New("device not found")
	ErrAlertNotFound  = errors.New("alert not found")

	// ErrBackendUnavailable is returned by a durable backend that failed its
	// health probe. The backend selector reacts to it by switching to the
	// fallback store.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrTransientIO wraps timeouts and connection failures of a selected backend.
	ErrTransientIO = errors.New("transient storage failure")
)
