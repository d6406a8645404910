package ingestion

import (
	"encoding/json"

	"fleetpulse/internal/domain/telemetry"
	"fleetpulse/pkg/utils"
)

// LocationPayload is the wire form of a location. Pointers distinguish a
// missing coordinate from zero.
type LocationPayload struct {
	Lat *float64 `json:"lat" validate:"required,min=-90,max=90"`
	Lng *float64 `json:"lng" validate:"required,min=-180,max=180"`
}

type MetricsPayload struct {
	Temperature *float64 `json:"temperature" validate:"required,min=-50,max=200"`
	Speed       *float64 `json:"speed" validate:"required,min=0,max=200"`
	Fuel        *float64 `json:"fuel" validate:"required,min=0,max=100"`
	Humidity    *float64 `json:"humidity,omitempty" validate:"omitempty,min=0,max=100"`
}

// ReadingPayload is a candidate reading as submitted over HTTP or MQTT.
type ReadingPayload struct {
	DeviceID  string           `json:"deviceId" validate:"required,max=128,deviceid"`
	Timestamp *float64         `json:"timestamp" validate:"required,gt=0,epochms"`
	Location  *LocationPayload `json:"location" validate:"required"`
	Metrics   *MetricsPayload  `json:"metrics" validate:"required"`
}

// RegisterDeviceRequest is the body of a device registration.
type RegisterDeviceRequest struct {
	DeviceID string           `json:"deviceId" validate:"required,max=128,deviceid"`
	Name     string           `json:"name" validate:"max=255"`
	Type     string           `json:"type" validate:"max=100"`
	Location *LocationPayload `json:"location"`
	Metrics  *MetricsPayload  `json:"metrics"`
}

func (l *LocationPayload) toLocation() telemetry.Location {
	return telemetry.Location{Lat: *l.Lat, Lng: *l.Lng}
}

func (m *MetricsPayload) toMetrics() telemetry.Metrics {
	metrics := telemetry.Metrics{
		Temperature: *m.Temperature,
		Speed:       *m.Speed,
		Fuel:        *m.Fuel,
	}
	if m.Humidity != nil {
		h := *m.Humidity
		metrics.Humidity = &h
	}
	return metrics
}

// ToReading converts a validated payload. The device id is normalized the
// same way as on registration. Speed, fuel and humidity are clamped.
func (p *ReadingPayload) ToReading() *telemetry.Reading {
	return &telemetry.Reading{
		DeviceID:  utils.SanitizeIdentifier(p.DeviceID),
		Timestamp: int64(*p.Timestamp),
		Location:  p.Location.toLocation(),
		Metrics:   p.Metrics.toMetrics().Clamped(),
	}
}

// ToRegistration converts a validated request, applying name and type defaults.
// Location and metrics are passed on only when both are present.
func (r *RegisterDeviceRequest) ToRegistration() *telemetry.DeviceRegistration {
	id := utils.SanitizeIdentifier(r.DeviceID)
	reg := &telemetry.DeviceRegistration{
		ID:   id,
		Name: utils.SanitizeLabel(r.Name),
		Type: utils.SanitizeLabel(r.Type),
	}
	if reg.Name == "" {
		reg.Name = DefaultDeviceName(id)
	}
	if reg.Type == "" {
		reg.Type = DefaultDeviceType
	}
	if r.Location != nil && r.Metrics != nil {
		loc := r.Location.toLocation()
		m := r.Metrics.toMetrics().Clamped()
		reg.Location = &loc
		reg.Metrics = &m
	}
	return reg
}

const DefaultDeviceType = "unknown"

func DefaultDeviceName(deviceID string) string {
	return "Device " + deviceID
}

// ParseReading decodes a reading payload from raw JSON.
func ParseReading(payload []byte) (*ReadingPayload, error) {
	var msg ReadingPayload
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, DecodeError(err)
	}
	return &msg, nil
}

// ParseRegistration decodes a registration request from raw JSON.
func ParseRegistration(payload []byte) (*RegisterDeviceRequest, error) {
	var msg RegisterDeviceRequest
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, DecodeError(err)
	}
	return &msg, nil
}
