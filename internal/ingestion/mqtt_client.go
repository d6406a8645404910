package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"fleetpulse/internal/domain/telemetry"
	"fleetpulse/internal/logger"
	pkgmqtt "fleetpulse/pkg/mqtt"

	"go.uber.org/zap"
)

const mqttHandleTimeout = 10 * time.Second

// Ingestor is what MQTT messages are handed to.
type Ingestor interface {
	Ingest(ctx context.Context, payload *ReadingPayload) (*Result, error)
	RegisterDevice(ctx context.Context, req *RegisterDeviceRequest) (*telemetry.Device, error)
}

// Subscriber is the broker connection the ingestion client drives.
type Subscriber interface {
	Connect() error
	Subscribe(topic string, qos byte, handler pkgmqtt.MessageHandler) error
	Unsubscribe(topics ...string) error
	Disconnect()
}

// MQTTIngestionConfig describes the topics and MQTT connection parameters.
type MQTTIngestionConfig struct {
	ClientConfig   *pkgmqtt.Config
	TelemetryTopic string
	RegisterTopic  string
	QoS            byte
}

// MQTTIngestionClient wires MQTT messages into the ingestion pipeline.
type MQTTIngestionClient struct {
	cfg      *MQTTIngestionConfig
	client   Subscriber
	ingestor Ingestor
	log      *zap.Logger

	mu            sync.Mutex
	started       bool
	subscriptions []string
}

// NewMQTTIngestionClient builds a new MQTT client for ingestion.
func NewMQTTIngestionClient(cfg *MQTTIngestionConfig, ingestor Ingestor) (*MQTTIngestionClient, error) {
	if cfg == nil || cfg.ClientConfig == nil {
		return nil, errors.New("mqtt ingestion config is not configured")
	}
	return newMQTTIngestionClient(cfg, pkgmqtt.NewClient(cfg.ClientConfig), ingestor)
}

func newMQTTIngestionClient(cfg *MQTTIngestionConfig, client Subscriber, ingestor Ingestor) (*MQTTIngestionClient, error) {
	if ingestor == nil {
		return nil, errors.New("ingestor is required")
	}
	return &MQTTIngestionClient{
		cfg:      cfg,
		client:   client,
		ingestor: ingestor,
		log:      logger.Component("mqtt-ingestion"),
	}, nil
}

// Start establishes the MQTT connection and subscribes to the topics.
func (c *MQTTIngestionClient) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return nil
	}

	type subscription struct {
		topic   string
		handler pkgmqtt.MessageHandler
	}

	subs := []subscription{}
	if c.cfg.TelemetryTopic != "" {
		subs = append(subs, subscription{
			topic:   c.cfg.TelemetryTopic,
			handler: c.handleTelemetryMessage,
		})
	}
	if c.cfg.RegisterTopic != "" {
		subs = append(subs, subscription{
			topic:   c.cfg.RegisterTopic,
			handler: c.handleRegisterMessage,
		})
	}

	if len(subs) == 0 {
		return errors.New("no MQTT topics configured for ingestion")
	}

	if err := c.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	for _, sub := range subs {
		if err := c.client.Subscribe(sub.topic, c.cfg.QoS, sub.handler); err != nil {
			c.client.Disconnect()
			c.subscriptions = nil
			return fmt.Errorf("subscribe failed for topic %s: %w", sub.topic, err)
		}
		c.subscriptions = append(c.subscriptions, sub.topic)
		c.log.Info("Listening for MQTT messages", zap.String("topic", sub.topic))
	}

	c.started = true
	return nil
}

// Stop unsubscribes and disconnects from the broker.
func (c *MQTTIngestionClient) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return
	}

	if len(c.subscriptions) > 0 {
		if err := c.client.Unsubscribe(c.subscriptions...); err != nil {
			c.log.Warn("Failed to unsubscribe from MQTT topics", zap.Error(err))
		}
	}

	c.client.Disconnect()
	c.started = false
	c.subscriptions = nil
}

// handleTelemetryMessage decodes a reading and hands it to the pipeline. A
// payload without deviceId takes it from the topic wildcard.
func (c *MQTTIngestionClient) handleTelemetryMessage(topic string, payload []byte) {
	msg, err := ParseReading(payload)
	if err != nil {
		c.log.Warn("Invalid telemetry payload", zap.String("topic", topic), zap.Error(err))
		return
	}
	if msg.DeviceID == "" {
		msg.DeviceID = DeviceFromTopic(c.cfg.TelemetryTopic, topic)
	}

	ctx, cancel := context.WithTimeout(context.Background(), mqttHandleTimeout)
	defer cancel()

	result, err := c.ingestor.Ingest(ctx, msg)
	if err != nil {
		c.log.Warn("Rejected MQTT telemetry", zap.String("topic", topic), zap.Error(err))
		return
	}
	c.log.Debug("Ingested MQTT telemetry",
		zap.String("device_id", msg.DeviceID),
		zap.Int("alerts", result.AlertsGenerated))
}

// handleRegisterMessage decodes a registration and upserts the device.
func (c *MQTTIngestionClient) handleRegisterMessage(topic string, payload []byte) {
	req, err := ParseRegistration(payload)
	if err != nil {
		c.log.Warn("Invalid registration payload", zap.String("topic", topic), zap.Error(err))
		return
	}
	if req.DeviceID == "" {
		req.DeviceID = DeviceFromTopic(c.cfg.RegisterTopic, topic)
	}

	ctx, cancel := context.WithTimeout(context.Background(), mqttHandleTimeout)
	defer cancel()

	if _, err := c.ingestor.RegisterDevice(ctx, req); err != nil {
		c.log.Warn("Rejected MQTT registration", zap.String("topic", topic), zap.Error(err))
	}
}

// DeviceFromTopic returns the topic level matched by the single-level
// wildcard of pattern, or "" when pattern has none or the topic does not fit.
func DeviceFromTopic(pattern, topic string) string {
	p := strings.Split(pattern, "/")
	t := strings.Split(topic, "/")
	if len(p) != len(t) {
		return ""
	}
	for i, level := range p {
		if level == "+" {
			return t[i]
		}
	}
	return ""
}
