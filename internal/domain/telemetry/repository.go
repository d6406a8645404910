package telemetry

import "context"

// DeviceRepository defines device persistence operations
type DeviceRepository interface {
	// GetAllDevices returns devices ordered by registration, most recent first.
	GetAllDevices(ctx context.Context) ([]*Device, error)
	// GetDeviceByID returns ErrDeviceNotFound when the id is unknown.
	GetDeviceByID(ctx context.Context, deviceID string) (*Device, error)
	// UpsertDevice creates or updates the device and stamps its last update.
	UpsertDevice(ctx context.Context, reg *DeviceRegistration) (*Device, error)
	// UpdateDeviceStatus is a no-op for unknown devices.
	UpdateDeviceStatus(ctx context.Context, deviceID string, status DeviceStatus) error
}

// ReadingRepository defines telemetry persistence operations
type ReadingRepository interface {
	// InsertReading appends to the device's bounded history.
	InsertReading(ctx context.Context, reading *Reading) error
	// GetReadingHistory returns readings newest first within the query range.
	GetReadingHistory(ctx context.Context, query *HistoryQuery) ([]*Reading, error)
	// GetLatestReadings returns the newest reading of every device that has one.
	GetLatestReadings(ctx context.Context) ([]*Reading, error)
}

// AlertRepository defines alert persistence operations
type AlertRepository interface {
	// InsertAlert always creates a new active alert.
	InsertAlert(ctx context.Context, deviceID string, alertType AlertType, severity Severity, message string) (*Alert, error)
	// GetAlerts returns alerts newest first.
	GetAlerts(ctx context.Context, filter *AlertFilter) ([]*Alert, error)
	// ResolveAlert marks the alert inactive. Unknown or already resolved ids are a no-op.
	ResolveAlert(ctx context.Context, alertID string) error
}

// Store is the full persistence capability. The durable and fallback
// backends both implement it and are interchangeable.
type Store interface {
	DeviceRepository
	ReadingRepository
	AlertRepository
}
