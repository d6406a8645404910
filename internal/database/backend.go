// Package database selects the storage backend once per process and exposes
// it as a single telemetry.Store.
package database

import (
	"context"
	"sync"

	"fleetpulse/internal/config"
	"fleetpulse/internal/domain/telemetry"
	"fleetpulse/internal/infrastructure/database/postgres"
	"fleetpulse/internal/infrastructure/memory"
	"fleetpulse/internal/logger"

	"go.uber.org/zap"
)

type Mode string

const (
	ModeUnresolved Mode = "unresolved"
	ModeDurable    Mode = "durable"
	ModeFallback   Mode = "fallback"
)

// Durable is a backend that must pass a health probe before it is used.
type Durable interface {
	telemetry.Store
	Probe(ctx context.Context) error
	Close()
}

// Opener builds the durable backend. It must not block on the network.
type Opener func(ctx context.Context) (Durable, error)

// Backend resolves on first use. A durable backend that fails its probe is
// replaced by the fallback store for the rest of the process lifetime.
type Backend struct {
	open     Opener
	fallback func() telemetry.Store

	once    sync.Once
	mu      sync.RWMutex
	store   telemetry.Store
	durable Durable
	mode    Mode
}

var _ telemetry.Store = (*Backend)(nil)

// NewBackend returns a backend that tries open first. A nil open selects the
// fallback directly.
func NewBackend(open Opener, fallback func() telemetry.Store) *Backend {
	if fallback == nil {
		fallback = func() telemetry.Store {
			return memory.NewStore(memory.Options{Seed: memory.DemoRoster()})
		}
	}
	return &Backend{open: open, fallback: fallback, mode: ModeUnresolved}
}

// FromConfig wires the PostgreSQL opener when a database URL is configured.
func FromConfig(cfg *config.DatabaseConfig) *Backend {
	fallback := func() telemetry.Store {
		return memory.NewStore(memory.Options{
			HistoryCap: cfg.HistoryCap,
			AlertCap:   cfg.AlertCap,
			Seed:       memory.DemoRoster(),
		})
	}
	if !cfg.UseDurable() {
		return NewBackend(nil, fallback)
	}

	return NewBackend(func(ctx context.Context) (Durable, error) {
		db, err := postgres.NewDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return postgres.NewStore(db, cfg.HistoryCap, cfg.AlertCap), nil
	}, fallback)
}

func (b *Backend) resolve(ctx context.Context) telemetry.Store {
	b.once.Do(func() {
		// A cancelled request must not cause a permanent fallback.
		ctx := context.WithoutCancel(ctx)

		store, durable, mode := b.choose(ctx)
		b.mu.Lock()
		b.store, b.durable, b.mode = store, durable, mode
		b.mu.Unlock()
	})

	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.store
}

func (b *Backend) choose(ctx context.Context) (telemetry.Store, Durable, Mode) {
	if b.open == nil {
		logger.Info("No database configured, using in-memory store")
		return b.fallback(), nil, ModeFallback
	}

	d, err := b.open(ctx)
	if err != nil {
		logger.Warn("Durable backend unavailable, using in-memory store", zap.Error(err))
		return b.fallback(), nil, ModeFallback
	}
	if err := d.Probe(ctx); err != nil {
		d.Close()
		logger.Warn("Durable backend failed health probe, using in-memory store", zap.Error(err))
		return b.fallback(), nil, ModeFallback
	}

	logger.Info("Using durable backend")
	return d, d, ModeDurable
}

// Resolve forces backend selection and returns the selected mode.
func (b *Backend) Resolve(ctx context.Context) Mode {
	b.resolve(ctx)
	return b.Mode()
}

// Mode reports the selected backend, or ModeUnresolved before first use.
func (b *Backend) Mode() Mode {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.mode
}

// Health probes the durable backend. The fallback is always healthy.
func (b *Backend) Health(ctx context.Context) error {
	b.resolve(ctx)
	b.mu.RLock()
	d := b.durable
	b.mu.RUnlock()
	if d == nil {
		return nil
	}
	return d.Probe(ctx)
}

func (b *Backend) Close() {
	b.mu.RLock()
	d := b.durable
	b.mu.RUnlock()
	if d != nil {
		d.Close()
	}
}

func (b *Backend) GetAllDevices(ctx context.Context) ([]*telemetry.Device, error) {
	return b.resolve(ctx).GetAllDevices(ctx)
}

func (b *Backend) GetDeviceByID(ctx context.Context, deviceID string) (*telemetry.Device, error) {
	return b.resolve(ctx).GetDeviceByID(ctx, deviceID)
}

func (b *Backend) UpsertDevice(ctx context.Context, reg *telemetry.DeviceRegistration) (*telemetry.Device, error) {
	return b.resolve(ctx).UpsertDevice(ctx, reg)
}

func (b *Backend) UpdateDeviceStatus(ctx context.Context, deviceID string, status telemetry.DeviceStatus) error {
	return b.resolve(ctx).UpdateDeviceStatus(ctx, deviceID, status)
}

func (b *Backend) InsertReading(ctx context.Context, reading *telemetry.Reading) error {
	return b.resolve(ctx).InsertReading(ctx, reading)
}

func (b *Backend) GetReadingHistory(ctx context.Context, query *telemetry.HistoryQuery) ([]*telemetry.Reading, error) {
	return b.resolve(ctx).GetReadingHistory(ctx, query)
}

func (b *Backend) GetLatestReadings(ctx context.Context) ([]*telemetry.Reading, error) {
	return b.resolve(ctx).GetLatestReadings(ctx)
}

func (b *Backend) InsertAlert(ctx context.Context, deviceID string, alertType telemetry.AlertType, severity telemetry.Severity, message string) (*telemetry.Alert, error) {
	return b.resolve(ctx).InsertAlert(ctx, deviceID, alertType, severity, message)
}

func (b *Backend) GetAlerts(ctx context.Context, filter *telemetry.AlertFilter) ([]*telemetry.Alert, error) {
	return b.resolve(ctx).GetAlerts(ctx, filter)
}

func (b *Backend) ResolveAlert(ctx context.Context, alertID string) error {
	return b.resolve(ctx).ResolveAlert(ctx, alertID)
}
