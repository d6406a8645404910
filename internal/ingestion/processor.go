package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleetpulse/internal/broadcast"
	"fleetpulse/internal/domain/telemetry"
	"fleetpulse/internal/logger"

	"go.uber.org/zap"
)

// DefaultCooldown is the minimum reading-time gap between two alerts of the
// same device and type.
const DefaultCooldown = 60 * time.Second

// Result summarizes one accepted reading.
type Result struct {
	AlertsGenerated int                    `json:"alertsGenerated"`
	Status          telemetry.DeviceStatus `json:"status"`
	Alerts          []*telemetry.Alert     `json:"alerts,omitempty"`
}

// Pipeline validates readings, persists them, evaluates alerts and publishes
// the outcome. Work for one device is serialized; devices run in parallel.
type Pipeline struct {
	repo      Repository
	publisher broadcast.Publisher
	validator *Validator
	cooldown  *Cooldown
	locks     *KeyedMutex
	metrics   *MetricsTracker
	log       *zap.Logger
}

func NewPipeline(repo Repository, publisher broadcast.Publisher, cooldown time.Duration) *Pipeline {
	if publisher == nil {
		publisher = broadcast.Nop{}
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Pipeline{
		repo:      repo,
		publisher: publisher,
		validator: NewValidator(),
		cooldown:  NewCooldown(cooldown),
		locks:     NewKeyedMutex(),
		metrics:   NewMetricsTracker(),
		log:       logger.Component("ingestion"),
	}
}

// Ingest runs a candidate reading through the pipeline. Invalid payloads
// return a *ValidationError before anything is written.
func (p *Pipeline) Ingest(ctx context.Context, payload *ReadingPayload) (*Result, error) {
	started := time.Now()
	p.metrics.Update(func(m *IngestMetrics) { m.ReadingsReceived++ })

	if err := p.validator.ValidateReading(payload); err != nil {
		p.metrics.Update(func(m *IngestMetrics) { m.ReadingsRejected++ })
		return nil, err
	}
	reading := payload.ToReading()

	unlock := p.locks.Lock(reading.DeviceID)
	defer unlock()

	result, registered, err := p.process(ctx, reading)
	if err != nil {
		p.metrics.Update(func(m *IngestMetrics) { m.ReadingsFailed++ })
		p.log.Error("Failed to process reading", zap.String("device_id", reading.DeviceID), zap.Error(err))
		return nil, err
	}

	if registered != nil {
		p.publisher.PublishDeviceRegistered(registered)
	}
	p.publisher.PublishReading(reading)
	for _, a := range result.Alerts {
		p.publisher.PublishAlert(a)
	}

	p.metrics.Update(func(m *IngestMetrics) {
		m.ReadingsAccepted++
		m.AlertsGenerated += int64(result.AlertsGenerated)
	})
	p.metrics.observe(started)
	return result, nil
}

// process must be called with the device lock held.
func (p *Pipeline) process(ctx context.Context, reading *telemetry.Reading) (*Result, *telemetry.Device, error) {
	var registered *telemetry.Device

	_, err := p.repo.GetDeviceByID(ctx, reading.DeviceID)
	switch {
	case errors.Is(err, telemetry.ErrDeviceNotFound):
		registered, err = p.repo.UpsertDevice(ctx, &telemetry.DeviceRegistration{
			ID:   reading.DeviceID,
			Name: DefaultDeviceName(reading.DeviceID),
			Type: DefaultDeviceType,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("auto-register device: %w", err)
		}
		p.metrics.Update(func(m *IngestMetrics) { m.DevicesAutoRegistered++ })
		p.log.Info("Registered unknown device from telemetry", zap.String("device_id", reading.DeviceID))
	case err != nil:
		return nil, nil, fmt.Errorf("get device: %w", err)
	}

	if err := p.repo.InsertReading(ctx, reading); err != nil {
		return nil, nil, fmt.Errorf("insert reading: %w", err)
	}

	// The device shows its newest reading by timestamp, which an
	// out-of-order reading is not. Status follows what the device shows.
	current, err := p.repo.GetDeviceByID(ctx, reading.DeviceID)
	if err != nil {
		return nil, nil, fmt.Errorf("reload device: %w", err)
	}
	status := current.Metrics.DeriveStatus()
	if err := p.repo.UpdateDeviceStatus(ctx, reading.DeviceID, status); err != nil {
		return nil, nil, fmt.Errorf("update device status: %w", err)
	}
	if registered != nil {
		current.Status = status
		registered = current
	}

	result := &Result{Status: status}
	for _, draft := range Evaluate(reading) {
		if !p.cooldown.Allow(reading.DeviceID, draft.Type, reading.Timestamp) {
			p.metrics.Update(func(m *IngestMetrics) { m.AlertsSuppressed++ })
			continue
		}

		alert, err := p.repo.InsertAlert(ctx, reading.DeviceID, draft.Type, draft.Severity, draft.Message)
		if err != nil {
			// The reading stays accepted; the next breach may fire again.
			p.metrics.Update(func(m *IngestMetrics) { m.AlertsFailed++ })
			p.log.Warn("Failed to persist alert",
				zap.String("device_id", reading.DeviceID),
				zap.String("alert_type", string(draft.Type)),
				zap.Error(err))
			continue
		}

		p.cooldown.Record(reading.DeviceID, draft.Type, reading.Timestamp)
		result.Alerts = append(result.Alerts, alert)
	}
	result.AlertsGenerated = len(result.Alerts)

	return result, registered, nil
}

// RegisterDevice upserts a device and announces it.
func (p *Pipeline) RegisterDevice(ctx context.Context, req *RegisterDeviceRequest) (*telemetry.Device, error) {
	if err := p.validator.ValidateRegistration(req); err != nil {
		return nil, err
	}
	reg := req.ToRegistration()

	unlock := p.locks.Lock(reg.ID)
	defer unlock()

	device, err := p.repo.UpsertDevice(ctx, reg)
	if err != nil {
		p.log.Error("Failed to register device", zap.String("device_id", reg.ID), zap.Error(err))
		return nil, fmt.Errorf("upsert device: %w", err)
	}

	p.metrics.Update(func(m *IngestMetrics) { m.DevicesRegistered++ })
	p.publisher.PublishDeviceRegistered(device)
	return device, nil
}

// Metrics returns a snapshot of the pipeline counters.
func (p *Pipeline) Metrics() IngestMetrics {
	return p.metrics.Snapshot()
}
