// Package broadcast fans ingested readings, registrations and alerts out to
// connected subscribers. Delivery is best effort and at most once.
package broadcast

import (
	"fleetpulse/internal/domain/telemetry"
)

type Event string

const (
	EventTelemetry        Event = "telemetry-update"
	EventDeviceRegistered Event = "device-registered"
	EventAlert            Event = "alert"
)

// GeneralChannel receives every event.
const GeneralChannel = "fleet"

// DeviceChannel receives telemetry and alert events of one device.
func DeviceChannel(deviceID string) string {
	return "device:" + deviceID
}

// Envelope is the wire form of an event.
type Envelope struct {
	Event   Event  `json:"event"`
	Channel string `json:"channel"`
	Payload any    `json:"payload"`
}

// Publisher is implemented by every event sink.
type Publisher interface {
	PublishReading(reading *telemetry.Reading)
	PublishDeviceRegistered(device *telemetry.Device)
	PublishAlert(alert *telemetry.Alert)
}

// Fanout forwards each event to all of its publishers in order.
type Fanout []Publisher

func (f Fanout) PublishReading(reading *telemetry.Reading) {
	for _, p := range f {
		p.PublishReading(reading)
	}
}

func (f Fanout) PublishDeviceRegistered(device *telemetry.Device) {
	for _, p := range f {
		p.PublishDeviceRegistered(device)
	}
}

func (f Fanout) PublishAlert(alert *telemetry.Alert) {
	for _, p := range f {
		p.PublishAlert(alert)
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) PublishReading(*telemetry.Reading)         {}
func (Nop) PublishDeviceRegistered(*telemetry.Device) {}
func (Nop) PublishAlert(*telemetry.Alert)             {}

// envelopes returns the general envelope and, for device-scoped events,
// the device envelope.
func envelopes(event Event, deviceID string, payload any) []Envelope {
	out := []Envelope{{Event: event, Channel: GeneralChannel, Payload: payload}}
	if event != EventDeviceRegistered && deviceID != "" {
		out = append(out, Envelope{Event: event, Channel: DeviceChannel(deviceID), Payload: payload})
	}
	return out
}
