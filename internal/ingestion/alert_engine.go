package ingestion

import (
	"fmt"
	"sync"
	"time"

	"fleetpulse/internal/domain/telemetry"
)

// Alert thresholds. Speed and temperature fire above, fuel below.
const (
	SpeedMedium       = 70.0
	SpeedHigh         = 80.0
	TemperatureMedium = 80.0
	TemperatureHigh   = 85.0
	FuelMedium        = 15.0
	FuelHigh          = 5.0
)

// AlertDraft is an alert the evaluator wants to raise, before cooldown and persistence.
type AlertDraft struct {
	Type     telemetry.AlertType
	Severity telemetry.Severity
	Message  string
}

// Evaluate maps a reading to at most one alert per metric family. When both
// tiers of a metric are breached only the high tier fires.
func Evaluate(r *telemetry.Reading) []AlertDraft {
	var drafts []AlertDraft
	m := r.Metrics

	switch {
	case m.Speed > SpeedHigh:
		drafts = append(drafts, AlertDraft{telemetry.AlertSpeed, telemetry.SeverityHigh,
			fmt.Sprintf("Device %s speed %.1f mph exceeds %.0f mph", r.DeviceID, m.Speed, SpeedHigh)})
	case m.Speed > SpeedMedium:
		drafts = append(drafts, AlertDraft{telemetry.AlertSpeed, telemetry.SeverityMedium,
			fmt.Sprintf("Device %s speed %.1f mph exceeds %.0f mph", r.DeviceID, m.Speed, SpeedMedium)})
	}

	switch {
	case m.Temperature > TemperatureHigh:
		drafts = append(drafts, AlertDraft{telemetry.AlertTemperature, telemetry.SeverityHigh,
			fmt.Sprintf("Device %s temperature %.1f°F exceeds %.0f°F", r.DeviceID, m.Temperature, TemperatureHigh)})
	case m.Temperature > TemperatureMedium:
		drafts = append(drafts, AlertDraft{telemetry.AlertTemperature, telemetry.SeverityMedium,
			fmt.Sprintf("Device %s temperature %.1f°F exceeds %.0f°F", r.DeviceID, m.Temperature, TemperatureMedium)})
	}

	switch {
	case m.Fuel < FuelHigh:
		drafts = append(drafts, AlertDraft{telemetry.AlertFuel, telemetry.SeverityHigh,
			fmt.Sprintf("Device %s fuel critically low at %.1f%%", r.DeviceID, m.Fuel)})
	case m.Fuel < FuelMedium:
		drafts = append(drafts, AlertDraft{telemetry.AlertFuel, telemetry.SeverityMedium,
			fmt.Sprintf("Device %s fuel low at %.1f%%", r.DeviceID, m.Fuel)})
	}

	return drafts
}

type cooldownKey struct {
	deviceID  string
	alertType telemetry.AlertType
}

// Cooldown remembers the reading timestamp of the last accepted alert per
// (device, type). It is process-local and starts empty.
type Cooldown struct {
	mu     sync.Mutex
	window int64
	last   map[cooldownKey]int64
}

func NewCooldown(window time.Duration) *Cooldown {
	return &Cooldown{
		window: window.Milliseconds(),
		last:   make(map[cooldownKey]int64),
	}
}

// Allow reports whether an alert of this type for the device may fire at ts.
// Distance is measured in reading time in either direction.
func (c *Cooldown) Allow(deviceID string, alertType telemetry.AlertType, ts int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, ok := c.last[cooldownKey{deviceID, alertType}]
	if !ok {
		return true
	}
	diff := ts - prev
	if diff < 0 {
		diff = -diff
	}
	return diff >= c.window
}

// Record marks an accepted firing.
func (c *Cooldown) Record(deviceID string, alertType telemetry.AlertType, ts int64) {
	c.mu.Lock()
	c.last[cooldownKey{deviceID, alertType}] = ts
	c.mu.Unlock()
}
