package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fleetpulse/internal/ingestion"
	"fleetpulse/internal/logger"
	"fleetpulse/internal/simulation"
	"fleetpulse/internal/simulation/remote"
	pkgmqtt "fleetpulse/pkg/mqtt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	v, err := loadFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := logger.Init(v.GetString("environment")); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(v); err != nil {
		logger.Fatal("Device simulator failed", zap.Error(err))
	}
}

// loadFlags binds command line flags into viper so each one can also be set
// through a SIM_ prefixed environment variable.
func loadFlags(args []string) (*viper.Viper, error) {
	fs := pflag.NewFlagSet("device-simulator", pflag.ContinueOnError)
	fs.String("target", "http", "delivery target: http or mqtt")
	fs.String("api-url", "http://localhost:8080/api/v1", "API base URL for the http target")
	fs.String("broker", "tcp://localhost:1883", "MQTT broker URL for the mqtt target")
	fs.String("client-id", "fleetpulse-simulator", "MQTT client id")
	fs.String("telemetry-topic", "fleet/+/telemetry", "MQTT telemetry topic pattern")
	fs.String("register-topic", "fleet/+/register", "MQTT registration topic pattern, empty to skip")
	fs.Uint8("qos", 1, "MQTT publish QoS")
	fs.Duration("interval", simulation.DefaultInterval, "time between ticks")
	fs.Uint64("seed", 0, "random seed, 0 for a random one")
	fs.String("environment", "development", "logger environment")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("SIM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	return v, nil
}

func run(v *viper.Viper) error {
	sink, closeSink, err := newSink(v)
	if err != nil {
		return err
	}
	defer closeSink()

	engine := simulation.NewEngine(sink, simulation.Options{
		Interval: v.GetDuration("interval"),
		Seed:     v.GetUint64("seed"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := engine.Start(ctx); err != nil {
		return err
	}
	logger.Info("Device simulator running",
		zap.String("target", v.GetString("target")),
		zap.Int("devices", engine.Status().DeviceCount),
		zap.Duration("interval", v.GetDuration("interval")),
	)

	<-ctx.Done()
	logger.Info("Shutting down device simulator")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return engine.Shutdown(shutdownCtx)
}

func newSink(v *viper.Viper) (ingestion.Ingestor, func(), error) {
	switch target := v.GetString("target"); target {
	case "http":
		return remote.NewHTTPSink(v.GetString("api-url"), nil), func() {}, nil
	case "mqtt":
		cfg := pkgmqtt.DefaultConfig(v.GetString("broker"), v.GetString("client-id"))
		cfg.Logger = logger.Component("mqtt")
		client := pkgmqtt.NewClient(cfg)
		if err := client.Connect(); err != nil {
			return nil, nil, fmt.Errorf("connect to broker: %w", err)
		}
		sink := remote.NewMQTTSink(client,
			v.GetString("telemetry-topic"),
			v.GetString("register-topic"),
			byte(v.GetUint("qos")),
		)
		return sink, client.Disconnect, nil
	default:
		return nil, nil, fmt.Errorf("unknown target %q", target)
	}
}
