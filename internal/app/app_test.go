package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fleetpulse/internal/config"
	"fleetpulse/internal/database"

	"github.com/gin-gonic/gin"
)

func init() { gin.SetMode(gin.TestMode) }

func testConfig() *config.Config {
	return &config.Config{
		Server:     config.ServerConfig{Environment: "test"},
		Database:   config.DatabaseConfig{MaxConns: 4, MinConns: 1, HistoryCap: 10, AlertCap: 10},
		Simulation: config.SimulationConfig{Interval: 10 * time.Millisecond},
		Alerts:     config.AlertConfig{Cooldown: time.Minute},
		CORS:       config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

func TestAppLifecycle(t *testing.T) {
	cfg := testConfig()
	cfg.Simulation.AutoStart = true

	a := New(context.Background(), cfg)
	if a.MQTT != nil || a.Redis != nil {
		t.Fatal("optional integrations enabled without configuration")
	}

	if err := a.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if a.Backend.Mode() != database.ModeFallback {
		t.Errorf("mode = %s", a.Backend.Mode())
	}
	if !a.Engine.Status().IsRunning {
		t.Error("simulation did not autostart")
	}

	deadline := time.Now().Add(2 * time.Second)
	for a.Pipeline.Metrics().ReadingsAccepted < 5 {
		if time.Now().After(deadline) {
			t.Fatalf("simulation produced %d readings", a.Pipeline.Metrics().ReadingsAccepted)
		}
		time.Sleep(10 * time.Millisecond)
	}

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("health = %d", w.Code)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if a.Engine.Status().IsRunning {
		t.Error("engine running after shutdown")
	}
}

func TestAppUnreachableRedisIsSkipped(t *testing.T) {
	cfg := testConfig()
	cfg.Redis.Addr = "127.0.0.1:1"
	cfg.Redis.ChannelPrefix = "fleet"

	a := New(context.Background(), cfg)
	defer a.Shutdown(context.Background())

	if a.Redis != nil {
		t.Error("unreachable redis was wired")
	}
}
