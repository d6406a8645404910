package fleet

import (
	"context"
	"errors"
	"fmt"

	"fleetpulse/internal/domain/telemetry"
	"fleetpulse/internal/logger"
	appErrors "fleetpulse/pkg/errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Service implements the fleet read and alert management use cases.
type Service struct {
	store    telemetry.Store
	validate *validator.Validate
}

func NewService(store telemetry.Store) *Service {
	return &Service{store: store, validate: validator.New()}
}

func (s *Service) ListDevices(ctx context.Context) (*DeviceListResponse, error) {
	devices, err := s.store.GetAllDevices(ctx)
	if err != nil {
		return nil, s.internal("list devices", err)
	}
	return &DeviceListResponse{Devices: devices, Count: len(devices)}, nil
}

func (s *Service) GetDevice(ctx context.Context, deviceID string) (*telemetry.Device, error) {
	device, err := s.store.GetDeviceByID(ctx, deviceID)
	if errors.Is(err, telemetry.ErrDeviceNotFound) {
		return nil, appErrors.NotFound("Device not found", err)
	}
	if err != nil {
		return nil, s.internal("get device", err)
	}
	return device, nil
}

func (s *Service) History(ctx context.Context, req *HistoryRequest) (*HistoryResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeValidation, "Invalid history query", err)
	}
	if req.StartTime != nil && req.EndTime != nil && *req.StartTime > *req.EndTime {
		return nil, appErrors.BadRequest("startTime must not be after endTime", appErrors.ErrInvalidInput)
	}

	readings, err := s.store.GetReadingHistory(ctx, req.ToHistoryQuery())
	if err != nil {
		return nil, s.internal("get reading history", err)
	}
	return &HistoryResponse{DeviceID: req.DeviceID, Readings: readings, Count: len(readings)}, nil
}

func (s *Service) LatestReadings(ctx context.Context) ([]*telemetry.Reading, error) {
	readings, err := s.store.GetLatestReadings(ctx)
	if err != nil {
		return nil, s.internal("get latest readings", err)
	}
	return readings, nil
}

func (s *Service) ListAlerts(ctx context.Context, req *AlertFilterRequest) (*AlertListResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeValidation, "Invalid alert query", err)
	}

	alerts, err := s.store.GetAlerts(ctx, req.ToAlertFilter())
	if err != nil {
		return nil, s.internal("get alerts", err)
	}
	return &AlertListResponse{Alerts: alerts, Count: len(alerts)}, nil
}

// ResolveAlert marks an alert resolved. Unknown and already resolved ids
// succeed without effect.
func (s *Service) ResolveAlert(ctx context.Context, alertID string) error {
	if alertID == "" {
		return appErrors.BadRequest("alertId is required", appErrors.ErrMissingParameter)
	}
	if err := s.store.ResolveAlert(ctx, alertID); err != nil {
		return s.internal("resolve alert", err)
	}
	logger.Info("Alert resolved", zap.String("alert_id", alertID), zap.String("event", "alert_resolved"))
	return nil
}

// HandleAlertAction dispatches an action posted to the alerts collection.
func (s *Service) HandleAlertAction(ctx context.Context, req *AlertActionRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return appErrors.NewAppError(appErrors.CodeValidation, "Invalid alert action", err)
	}
	if req.Action != ActionResolve {
		return appErrors.BadRequest(fmt.Sprintf("Unsupported action %q", req.Action), appErrors.ErrInvalidAction)
	}
	return s.ResolveAlert(ctx, req.AlertID)
}

func (s *Service) internal(op string, err error) error {
	logger.Error("Fleet query failed", zap.String("operation", op), zap.Error(err))
	return appErrors.Internal("Internal server error", fmt.Errorf("%s: %w", op, err))
}
