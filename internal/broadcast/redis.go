package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"fleetpulse/internal/config"
	"fleetpulse/internal/domain/telemetry"
	"fleetpulse/internal/logger"

	"github.com/redis/go-redis/v9"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

const (
	redisPublishTimeout = 2 * time.Second
	redisQueueSize      = 256
)

type redisMessage struct {
	channel string
	data    []byte
}

// redisJob is one event, encoded at publish time.
type redisJob struct {
	event    Event
	deviceID string
	messages []redisMessage
	geo      *redis.GeoLocation
}

// RedisPublisher mirrors every event onto Redis pub/sub channels named
// "<prefix>:<channel>" and keeps a geo index of the latest device positions.
// Publishing only enqueues; a single worker talks to Redis so a slow server
// never holds up ingestion. Events are dropped when the queue is full.
type RedisPublisher struct {
	client *redis.Client
	prefix string
	log    *zap.Logger

	queue   chan redisJob
	ctx     context.Context
	cancel  context.CancelFunc
	worker  conc.WaitGroup
	closing sync.Once
}

var _ Publisher = (*RedisPublisher)(nil)

func NewRedisPublisher(ctx context.Context, cfg *config.RedisConfig) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return newRedisPublisher(client, cfg.ChannelPrefix, redisQueueSize), nil
}

func newRedisPublisher(client *redis.Client, prefix string, queueSize int) *RedisPublisher {
	if prefix == "" {
		prefix = "fleet"
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &RedisPublisher{
		client: client,
		prefix: prefix,
		log:    logger.Component("redis-publisher"),
		queue:  make(chan redisJob, queueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	r.worker.Go(r.run)
	return r
}

// Close stops the worker, dropping events still queued, and closes the client.
func (r *RedisPublisher) Close() error {
	err := errors.New("redis publisher already closed")
	r.closing.Do(func() {
		r.cancel()
		err = r.client.Close()
		r.worker.Wait()
	})
	return err
}

// Channel returns the Redis channel an envelope channel maps to.
func (r *RedisPublisher) Channel(channel string) string {
	return r.prefix + ":" + channel
}

func (r *RedisPublisher) geoKey() string {
	return r.prefix + ":geo"
}

func (r *RedisPublisher) PublishReading(reading *telemetry.Reading) {
	r.publish(EventTelemetry, reading.DeviceID, reading, &redis.GeoLocation{
		Name:      reading.DeviceID,
		Longitude: reading.Location.Lng,
		Latitude:  reading.Location.Lat,
	})
}

func (r *RedisPublisher) PublishDeviceRegistered(device *telemetry.Device) {
	r.publish(EventDeviceRegistered, device.ID, device, nil)
}

func (r *RedisPublisher) PublishAlert(alert *telemetry.Alert) {
	r.publish(EventAlert, alert.DeviceID, alert, nil)
}

func (r *RedisPublisher) publish(event Event, deviceID string, payload any, geo *redis.GeoLocation) {
	if r.ctx.Err() != nil {
		return
	}

	job := redisJob{event: event, deviceID: deviceID, geo: geo}
	for _, env := range envelopes(event, deviceID, payload) {
		data, err := json.Marshal(env)
		if err != nil {
			r.log.Error("Error marshalling event", zap.String("event", string(event)), zap.Error(err))
			return
		}
		job.messages = append(job.messages, redisMessage{channel: r.Channel(env.Channel), data: data})
	}

	select {
	case r.queue <- job:
	default:
		r.log.Warn("Redis mirror queue full, dropping event",
			zap.String("event", string(event)),
			zap.String("device_id", deviceID))
	}
}

func (r *RedisPublisher) run() {
	for {
		select {
		case <-r.ctx.Done():
			return
		case job := <-r.queue:
			r.send(job)
		}
	}
}

func (r *RedisPublisher) send(job redisJob) {
	ctx, cancel := context.WithTimeout(r.ctx, redisPublishTimeout)
	defer cancel()

	pipe := r.client.Pipeline()
	// The position lands before the announcement reaches subscribers.
	if job.geo != nil {
		pipe.GeoAdd(ctx, r.geoKey(), job.geo)
	}
	for _, msg := range job.messages {
		pipe.Publish(ctx, msg.channel, msg.data)
	}

	if _, err := pipe.Exec(ctx); err != nil && r.ctx.Err() == nil {
		r.log.Warn("Redis publish failed",
			zap.String("event", string(job.event)),
			zap.String("device_id", job.deviceID),
			zap.Error(err))
	}
}
