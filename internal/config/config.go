package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Simulation SimulationConfig
	Alerts     AlertConfig
	MQTT       MQTTConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
	CORS       CORSConfig
}

type ServerConfig struct {
	Port        string
	Host        string
	Environment string
}

type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty selects the in-memory store.
	URL           string
	MaxConns      int32
	MinConns      int32
	HealthTimeout time.Duration
	QueryTimeout  time.Duration
	HistoryCap    int
	AlertCap      int
}

type SimulationConfig struct {
	Interval  time.Duration
	AutoStart bool
}

type AlertConfig struct {
	Cooldown time.Duration
}

type MQTTConfig struct {
	// Broker is the broker URL (tcp://host:1883). Empty disables MQTT ingestion.
	Broker         string
	ClientID       string
	Username       string
	Password       string
	TelemetryTopic string
	RegisterTopic  string
	QoS            byte
}

type RedisConfig struct {
	// Addr is host:port. Empty disables the Redis mirror of broadcast events.
	Addr          string
	Password      string
	DB            int
	ChannelPrefix string
}

type RateLimitConfig struct {
	GeneralRPS   float64 // Requests per second for general endpoints
	GeneralBurst int     // Burst size for general endpoints
}

type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")

	v.SetDefault("DB_POOL_MAX", 20)
	v.SetDefault("DB_POOL_MIN", 5)
	v.SetDefault("DB_HEALTH_TIMEOUT_MS", 2000)
	v.SetDefault("DB_QUERY_TIMEOUT_MS", 5000)
	v.SetDefault("DB_HISTORY_CAP", 1000)
	v.SetDefault("DB_ALERT_CAP", 500)

	v.SetDefault("SIMULATION_INTERVAL_MS", 2000)
	v.SetDefault("SIMULATION_AUTOSTART", false)
	v.SetDefault("ALERT_COOLDOWN_SECONDS", 60)

	v.SetDefault("MQTT_CLIENT_ID", "fleetpulse-ingestion")
	v.SetDefault("MQTT_TELEMETRY_TOPIC", "fleet/+/telemetry")
	v.SetDefault("MQTT_REGISTER_TOPIC", "fleet/+/register")
	v.SetDefault("MQTT_QOS", 1)

	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_CHANNEL_PREFIX", "fleet")

	v.SetDefault("RATE_LIMIT_GENERAL_RPS", 50)
	v.SetDefault("RATE_LIMIT_GENERAL_BURST", 100)

	v.SetDefault("CORS_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "X-Request-ID"})
	v.SetDefault("CORS_EXPOSED_HEADERS", []string{"X-Request-ID"})
	v.SetDefault("CORS_MAX_AGE", 43200)
}

func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(".env")
	v.AddConfigPath(".")
	if homeDir, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(homeDir)
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		log.Printf("Warning: config file not found: %v. Falling back to environment variables only.", err)
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:        v.GetString("SERVER_PORT"),
			Host:        v.GetString("SERVER_HOST"),
			Environment: v.GetString("ENVIRONMENT"),
		},
		Database: DatabaseConfig{
			URL:           v.GetString("DATABASE_URL"),
			MaxConns:      v.GetInt32("DB_POOL_MAX"),
			MinConns:      v.GetInt32("DB_POOL_MIN"),
			HealthTimeout: millis(v, "DB_HEALTH_TIMEOUT_MS"),
			QueryTimeout:  millis(v, "DB_QUERY_TIMEOUT_MS"),
			HistoryCap:    v.GetInt("DB_HISTORY_CAP"),
			AlertCap:      v.GetInt("DB_ALERT_CAP"),
		},
		Simulation: SimulationConfig{
			Interval:  millis(v, "SIMULATION_INTERVAL_MS"),
			AutoStart: v.GetBool("SIMULATION_AUTOSTART"),
		},
		Alerts: AlertConfig{
			Cooldown: time.Duration(v.GetInt("ALERT_COOLDOWN_SECONDS")) * time.Second,
		},
		MQTT: MQTTConfig{
			Broker:         v.GetString("MQTT_BROKER"),
			ClientID:       v.GetString("MQTT_CLIENT_ID"),
			Username:       v.GetString("MQTT_USERNAME"),
			Password:       v.GetString("MQTT_PASSWORD"),
			TelemetryTopic: v.GetString("MQTT_TELEMETRY_TOPIC"),
			RegisterTopic:  v.GetString("MQTT_REGISTER_TOPIC"),
			QoS:            byte(v.GetUint("MQTT_QOS")),
		},
		Redis: RedisConfig{
			Addr:          v.GetString("REDIS_ADDR"),
			Password:      v.GetString("REDIS_PASSWORD"),
			DB:            v.GetInt("REDIS_DB"),
			ChannelPrefix: v.GetString("REDIS_CHANNEL_PREFIX"),
		},
		RateLimit: RateLimitConfig{
			GeneralRPS:   v.GetFloat64("RATE_LIMIT_GENERAL_RPS"),
			GeneralBurst: v.GetInt("RATE_LIMIT_GENERAL_BURST"),
		},
		CORS: CORSConfig{
			AllowedOrigins:   v.GetStringSlice("CORS_ALLOWED_ORIGINS"),
			AllowedMethods:   v.GetStringSlice("CORS_ALLOWED_METHODS"),
			AllowedHeaders:   v.GetStringSlice("CORS_ALLOWED_HEADERS"),
			ExposedHeaders:   v.GetStringSlice("CORS_EXPOSED_HEADERS"),
			AllowCredentials: v.GetBool("CORS_ALLOW_CREDENTIALS"),
			MaxAge:           v.GetInt("CORS_MAX_AGE"),
		},
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.Database.MinConns < 0 || c.Database.MaxConns < 1 || c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("invalid pool bounds: min=%d max=%d", c.Database.MinConns, c.Database.MaxConns)
	}
	if c.Simulation.Interval <= 0 {
		return fmt.Errorf("SIMULATION_INTERVAL_MS must be positive")
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("MQTT_QOS must be 0, 1 or 2")
	}
	return nil
}

// UseDurable reports whether a durable backend is configured at all.
func (c *DatabaseConfig) UseDurable() bool {
	return c.URL != ""
}

func millis(v *viper.Viper, key string) time.Duration {
	return time.Duration(v.GetInt64(key)) * time.Millisecond
}
