package ingestion

import (
	"context"

	"fleetpulse/internal/domain/telemetry"
)

//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

// Repository is the slice of the store the pipeline writes through.
type Repository interface {
	GetDeviceByID(ctx context.Context, deviceID string) (*telemetry.Device, error)
	UpsertDevice(ctx context.Context, reg *telemetry.DeviceRegistration) (*telemetry.Device, error)
	UpdateDeviceStatus(ctx context.Context, deviceID string, status telemetry.DeviceStatus) error
	InsertReading(ctx context.Context, reading *telemetry.Reading) error
	InsertAlert(ctx context.Context, deviceID string, alertType telemetry.AlertType, severity telemetry.Severity, message string) (*telemetry.Alert, error)
}
