package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"fleetpulse/internal/domain/telemetry"
	"fleetpulse/internal/ingestion"
)

// Publisher is the broker connection the MQTT sink writes to.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTTSink publishes simulated telemetry to the broker topics the server's
// MQTT ingestion subscribes to. The topic patterns use a single "+" level
// which is replaced by the device id.
type MQTTSink struct {
	client         Publisher
	telemetryTopic string
	registerTopic  string
	qos            byte
}

var _ ingestion.Ingestor = (*MQTTSink)(nil)

func NewMQTTSink(client Publisher, telemetryTopic, registerTopic string, qos byte) *MQTTSink {
	return &MQTTSink{
		client:         client,
		telemetryTopic: telemetryTopic,
		registerTopic:  registerTopic,
		qos:            qos,
	}
}

// Ingest publishes the reading. Alerts are evaluated by the server, so the
// result carries no counts.
func (s *MQTTSink) Ingest(_ context.Context, payload *ingestion.ReadingPayload) (*ingestion.Result, error) {
	if err := s.publish(s.telemetryTopic, payload.DeviceID, payload); err != nil {
		return nil, err
	}
	return &ingestion.Result{}, nil
}

func (s *MQTTSink) RegisterDevice(_ context.Context, req *ingestion.RegisterDeviceRequest) (*telemetry.Device, error) {
	if s.registerTopic == "" {
		// The server auto-registers devices on their first reading.
		return &telemetry.Device{ID: req.DeviceID, Name: req.Name, Type: req.Type}, nil
	}
	if err := s.publish(s.registerTopic, req.DeviceID, req); err != nil {
		return nil, err
	}
	return &telemetry.Device{ID: req.DeviceID, Name: req.Name, Type: req.Type}, nil
}

func (s *MQTTSink) publish(pattern, deviceID string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	topic := TopicFor(pattern, deviceID)
	if err := s.client.Publish(topic, s.qos, false, data); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// TopicFor substitutes deviceID for the single-level wildcard in pattern.
func TopicFor(pattern, deviceID string) string {
	levels := strings.Split(pattern, "/")
	for i, level := range levels {
		if level == "+" {
			levels[i] = deviceID
			break
		}
	}
	return strings.Join(levels, "/")
}
