package broadcast

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"fleetpulse/internal/config"
	"fleetpulse/internal/domain/telemetry"
	"fleetpulse/internal/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Requires a reachable Redis, e.g. TEST_REDIS_ADDR=localhost:6379
func testRedis(t *testing.T) *RedisPublisher {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	pub, err := NewRedisPublisher(context.Background(), &config.RedisConfig{
		Addr:          addr,
		ChannelPrefix: "fleet-test-" + uuid.NewString()[:8],
	})
	if err != nil {
		t.Fatalf("NewRedisPublisher: %v", err)
	}
	t.Cleanup(func() { _ = pub.Close() })
	return pub
}

func TestRedisPublishReading(t *testing.T) {
	pub := testRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := pub.client.Subscribe(ctx, pub.Channel(GeneralChannel), pub.Channel(DeviceChannel("van-001")))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	pub.PublishReading(&telemetry.Reading{
		DeviceID:  "van-001",
		Timestamp: 1700000000000,
		Location:  telemetry.Location{Lat: 37.77, Lng: -122.41},
		Metrics:   telemetry.Metrics{Temperature: 70, Speed: 30, Fuel: 80},
	})

	channels := map[string]bool{}
	for i := 0; i < 2; i++ {
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			t.Fatalf("receive: %v", err)
		}
		var env struct {
			Event   Event  `json:"event"`
			Channel string `json:"channel"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			t.Fatal(err)
		}
		if env.Event != EventTelemetry {
			t.Errorf("event = %q", env.Event)
		}
		channels[env.Channel] = true
	}
	if !channels[GeneralChannel] || !channels[DeviceChannel("van-001")] {
		t.Errorf("channels = %v", channels)
	}

	pos, err := pub.client.GeoPos(ctx, pub.geoKey(), "van-001").Result()
	if err != nil || len(pos) != 1 || pos[0] == nil {
		t.Fatalf("GeoPos = %v, %v", pos, err)
	}
	if pos[0].Latitude < 37.76 || pos[0].Latitude > 37.78 {
		t.Errorf("latitude = %f", pos[0].Latitude)
	}
	_ = pub.client.Del(context.Background(), pub.geoKey()).Err()
}

func TestRedisUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := NewRedisPublisher(ctx, &config.RedisConfig{Addr: "127.0.0.1:1"}); err == nil {
		t.Error("expected connection error")
	}
}

// stalledRedis accepts connections and never answers.
func stalledRedis(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return ln.Addr().String()
}

func TestRedisPublishDoesNotBlockOnStalledServer(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	prev := logger.Logger
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(prev) })

	client := redis.NewClient(&redis.Options{Addr: stalledRedis(t), MaxRetries: -1})
	pub := newRedisPublisher(client, "", 1)

	started := time.Now()
	for i := 0; i < 5; i++ {
		pub.PublishAlert(&telemetry.Alert{ID: uuid.NewString(), DeviceID: "van-001", Type: telemetry.AlertSpeed})
	}
	if elapsed := time.Since(started); elapsed > 250*time.Millisecond {
		t.Errorf("publishing took %s with a stalled server", elapsed)
	}
	if dropped := logs.FilterMessage("Redis mirror queue full, dropping event").Len(); dropped < 3 {
		t.Errorf("dropped = %d, want at least 3", dropped)
	}

	closed := make(chan error, 1)
	go func() { closed <- pub.Close() }()
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}

	before := logs.Len()
	pub.PublishReading(&telemetry.Reading{DeviceID: "van-001"})
	if logs.Len() != before {
		t.Errorf("publish after Close logged %v", logs.All()[before:])
	}
	if err := pub.Close(); err == nil {
		t.Error("second Close returned nil")
	}
}
