package app

import (
	"context"
	"errors"
	"fmt"

	"fleetpulse/internal/broadcast"
	"fleetpulse/internal/config"
	"fleetpulse/internal/database"
	"fleetpulse/internal/ingestion"
	"fleetpulse/internal/logger"
	"fleetpulse/internal/routes"
	"fleetpulse/internal/simulation"
	pkgmqtt "fleetpulse/pkg/mqtt"

	"github.com/gin-gonic/gin"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// App is the process-wide application context. It is built once at startup
// and handed to the HTTP surface and the background workers.
type App struct {
	Config   *config.Config
	Backend  *database.Backend
	Hub      *broadcast.Hub
	Redis    *broadcast.RedisPublisher
	Pipeline *ingestion.Pipeline
	Engine   *simulation.Engine
	MQTT     *ingestion.MQTTIngestionClient
	Router   *gin.Engine

	cancel  context.CancelFunc
	workers conc.WaitGroup
}

// New wires every component. Optional integrations (Redis, MQTT) that are
// configured but unreachable are logged and skipped.
func New(ctx context.Context, cfg *config.Config) *App {
	ctx, cancel := context.WithCancel(ctx)

	a := &App{
		Config:  cfg,
		Backend: database.FromConfig(&cfg.Database),
		Hub:     broadcast.NewHub(),
		cancel:  cancel,
	}

	publishers := broadcast.Fanout{a.Hub}
	if cfg.Redis.Addr != "" {
		redisPub, err := broadcast.NewRedisPublisher(ctx, &cfg.Redis)
		if err != nil {
			logger.Warn("Redis broadcast mirror disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			a.Redis = redisPub
			publishers = append(publishers, redisPub)
		}
	}

	a.Pipeline = ingestion.NewPipeline(a.Backend, publishers, cfg.Alerts.Cooldown)
	a.Engine = simulation.NewEngine(a.Pipeline, simulation.Options{Interval: cfg.Simulation.Interval})

	if cfg.MQTT.Broker != "" {
		clientCfg := pkgmqtt.DefaultConfig(cfg.MQTT.Broker, cfg.MQTT.ClientID)
		clientCfg.Username = cfg.MQTT.Username
		clientCfg.Password = cfg.MQTT.Password
		clientCfg.Logger = logger.Component("mqtt")

		client, err := ingestion.NewMQTTIngestionClient(&ingestion.MQTTIngestionConfig{
			ClientConfig:   clientCfg,
			TelemetryTopic: cfg.MQTT.TelemetryTopic,
			RegisterTopic:  cfg.MQTT.RegisterTopic,
			QoS:            cfg.MQTT.QoS,
		}, a.Pipeline)
		if err != nil {
			logger.Warn("MQTT ingestion disabled", zap.Error(err))
		} else {
			a.MQTT = client
		}
	}

	a.Router = routes.SetupRoutes(ctx, cfg, &routes.Dependencies{
		Store:    a.Backend,
		Health:   a.Backend,
		Ingestor: a.Pipeline,
		Engine:   a.Engine,
		Streamer: a.Hub,
	})

	a.workers.Go(func() { a.Hub.Run(ctx) })
	return a
}

// Start selects the storage backend and starts the background workers.
func (a *App) Start(ctx context.Context) error {
	mode := a.Backend.Resolve(ctx)
	logger.Info("Storage backend selected", zap.String("mode", string(mode)))

	if a.MQTT != nil {
		if err := a.MQTT.Start(); err != nil {
			// Ingestion over HTTP keeps working without the broker.
			logger.Error("Failed to start MQTT ingestion", zap.Error(err))
		}
	}

	if a.Config.Simulation.AutoStart {
		if err := a.Engine.Start(ctx); err != nil {
			return fmt.Errorf("start simulation: %w", err)
		}
	}
	return nil
}

// Shutdown stops the workers and releases connections. The HTTP server is
// expected to be shut down first.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	if err := a.Engine.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("simulation: %w", err))
	}
	if a.MQTT != nil {
		a.MQTT.Stop()
	}

	a.cancel()
	a.workers.Wait()

	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	a.Backend.Close()

	return errors.Join(errs...)
}
