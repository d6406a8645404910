package simulation

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"fleetpulse/internal/ingestion"
	"fleetpulse/internal/logger"

	"go.uber.org/zap"
)

const (
	DefaultInterval = 2 * time.Second

	// vehicleTimeout bounds one vehicle's ingestion within a tick.
	vehicleTimeout = 5 * time.Second
)

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	Interval time.Duration
	Roster   []VehicleSpec
	// Seed makes the vehicle model reproducible. Zero picks a random seed.
	Seed uint64
	Now  func() time.Time
}

// Status is the externally visible engine state.
type Status struct {
	IsRunning   bool `json:"isRunning"`
	DeviceCount int  `json:"deviceCount"`
}

// Engine drives a fixed fleet of simulated vehicles through the ingestion
// pipeline on a recurring tick.
type Engine struct {
	sink     ingestion.Ingestor
	interval time.Duration
	now      func() time.Time
	log      *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// tickMu serializes access to vehicles and rng across ticks.
	tickMu   sync.Mutex
	vehicles []*Vehicle
	rng      *rand.Rand
}

func NewEngine(sink ingestion.Ingestor, opts Options) *Engine {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if len(opts.Roster) == 0 {
		opts.Roster = DefaultRoster()
	}
	if opts.Seed == 0 {
		opts.Seed = rand.Uint64()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	vehicles := make([]*Vehicle, 0, len(opts.Roster))
	for _, spec := range opts.Roster {
		vehicles = append(vehicles, NewVehicle(spec, rng))
	}

	return &Engine{
		sink:     sink,
		interval: opts.Interval,
		now:      opts.Now,
		log:      logger.Component("simulation"),
		vehicles: vehicles,
		rng:      rng,
	}
}

// Start registers every vehicle and begins ticking. It is a no-op while the
// engine is running. The tick loop outlives ctx; use Stop to end it.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return nil
	}

	e.register(ctx)

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel
	e.running = true

	e.wg.Add(1)
	go e.loop(loopCtx)

	e.log.Info("Simulation started",
		zap.Int("devices", len(e.vehicles)),
		zap.Duration("interval", e.interval))
	return nil
}

func (e *Engine) register(ctx context.Context) {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	for _, v := range e.vehicles {
		if _, err := e.sink.RegisterDevice(ctx, v.Registration()); err != nil {
			e.log.Error("Failed to register simulated device",
				zap.String("device_id", v.Spec.ID),
				zap.Error(err))
		}
	}
}

// Stop cancels the pending tick without waiting for an in-flight one.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}
	e.cancel()
	e.cancel = nil
	e.running = false
	e.log.Info("Simulation stopped")
}

// Shutdown stops the engine and waits for in-flight ticks to finish or ctx
// to expire.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.Stop()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{IsRunning: e.running, DeviceCount: len(e.vehicles)}
}

func (e *Engine) loop(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

// tick advances every vehicle once. Cancellation is checked between
// vehicles; a vehicle already being ingested runs to completion.
func (e *Engine) tick(ctx context.Context) {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	for _, v := range e.vehicles {
		if ctx.Err() != nil {
			return
		}
		v.Step(e.rng)
		e.send(ctx, v)
	}
}

func (e *Engine) send(ctx context.Context, v *Vehicle) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), vehicleTimeout)
	defer cancel()

	result, err := e.sink.Ingest(ctx, v.Reading(e.now()))
	if err != nil {
		e.log.Warn("Simulation tick failed for device",
			zap.String("device_id", v.Spec.ID),
			zap.Error(err))
		return
	}
	if result.AlertsGenerated > 0 {
		e.log.Debug("Simulated reading raised alerts",
			zap.String("device_id", v.Spec.ID),
			zap.Int("alerts", result.AlertsGenerated))
	}
}
