package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := fromViper(v)
	if err != nil {
		t.Fatalf("fromViper: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("port = %s", cfg.Server.Port)
	}
	if cfg.Database.UseDurable() {
		t.Error("durable backend selected without DATABASE_URL")
	}
	if cfg.Database.MaxConns != 20 || cfg.Database.MinConns != 5 {
		t.Errorf("pool = %d/%d, want 20/5", cfg.Database.MaxConns, cfg.Database.MinConns)
	}
	if cfg.Database.HealthTimeout != 2*time.Second || cfg.Database.QueryTimeout != 5*time.Second {
		t.Errorf("timeouts = %v/%v", cfg.Database.HealthTimeout, cfg.Database.QueryTimeout)
	}
	if cfg.Simulation.Interval != 2*time.Second || cfg.Simulation.AutoStart {
		t.Errorf("simulation = %+v", cfg.Simulation)
	}
	if cfg.Alerts.Cooldown != time.Minute {
		t.Errorf("cooldown = %v", cfg.Alerts.Cooldown)
	}
	if cfg.MQTT.TelemetryTopic != "fleet/+/telemetry" || cfg.MQTT.QoS != 1 {
		t.Errorf("mqtt = %+v", cfg.MQTT)
	}
}

func TestOverridesAndValidation(t *testing.T) {
	tests := []struct {
		name    string
		set     map[string]any
		wantErr bool
	}{
		{"durable url", map[string]any{"DATABASE_URL": "postgres://localhost/fleet"}, false},
		{"min above max", map[string]any{"DB_POOL_MIN": 30}, true},
		{"zero max", map[string]any{"DB_POOL_MAX": 0, "DB_POOL_MIN": 0}, true},
		{"zero interval", map[string]any{"SIMULATION_INTERVAL_MS": 0}, true},
		{"bad qos", map[string]any{"MQTT_QOS": 3}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			setDefaults(v)
			for k, val := range tt.set {
				v.Set(k, val)
			}
			cfg, err := fromViper(v)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && !cfg.Database.UseDurable() {
				t.Error("DATABASE_URL not picked up")
			}
		})
	}
}
