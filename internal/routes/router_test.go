package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fleetpulse/internal/broadcast"
	"fleetpulse/internal/config"
	"fleetpulse/internal/database"
	"fleetpulse/internal/ingestion"
	"fleetpulse/internal/simulation"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func init() { gin.SetMode(gin.TestMode) }

type testApp struct {
	router  *gin.Engine
	backend *database.Backend
	hub     *broadcast.Hub
	engine  *simulation.Engine
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	backend := database.NewBackend(nil, nil)
	hub := broadcast.NewHub()
	go hub.Run(ctx)

	pipeline := ingestion.NewPipeline(backend, hub, time.Minute)
	engine := simulation.NewEngine(pipeline, simulation.Options{Interval: time.Hour, Seed: 1})

	cfg := &config.Config{
		Server: config.ServerConfig{Environment: "test"},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
		},
	}
	router := SetupRoutes(ctx, cfg, &Dependencies{
		Store:    backend,
		Health:   backend,
		Ingestor: pipeline,
		Engine:   engine,
		Streamer: hub,
	})

	t.Cleanup(func() {
		sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer scancel()
		_ = engine.Shutdown(sctx)
		cancel()
	})
	return &testApp{router: router, backend: backend, hub: hub, engine: engine}
}

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
	Details json.RawMessage `json:"details"`
}

func (a *testApp) do(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w.Code, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
	return v
}

const breachReading = `{"deviceId":"van-001","timestamp":1700000000000,"location":{"lat":37.77,"lng":-122.41},"metrics":{"temperature":90,"speed":85,"fuel":10}}`

func TestHealthReportsBackend(t *testing.T) {
	app := newTestApp(t)
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if w.Code != http.StatusOK || body["backend"] != "fallback" || body["status"] != "healthy" {
		t.Errorf("health = %d %v", w.Code, body)
	}
}

func TestIngestTelemetry(t *testing.T) {
	app := newTestApp(t)

	code, env := app.do(t, http.MethodPost, "/api/v1/telemetry", breachReading)
	if code != http.StatusOK || !env.Success {
		t.Fatalf("ingest = %d %+v", code, env)
	}
	result := decodeData[ingestion.Result](t, env)
	if result.AlertsGenerated != 3 || result.Status != "warning" {
		t.Errorf("result = %+v", result)
	}

	code, env = app.do(t, http.MethodGet, "/api/v1/devices/van-001", "")
	if code != http.StatusOK {
		t.Fatalf("get device = %d", code)
	}
	device := decodeData[struct {
		Status  string             `json:"status"`
		Metrics map[string]float64 `json:"metrics"`
	}](t, env)
	if device.Status != "warning" || device.Metrics["speed"] != 85 {
		t.Errorf("device = %+v", device)
	}

	code, env = app.do(t, http.MethodGet, "/api/v1/telemetry/history?deviceId=van-001&limit=1", "")
	if code != http.StatusOK {
		t.Fatalf("history = %d", code)
	}
	history := decodeData[struct {
		Count    int `json:"count"`
		Readings []struct {
			Timestamp int64 `json:"timestamp"`
		} `json:"readings"`
	}](t, env)
	if history.Count != 1 || history.Readings[0].Timestamp != 1700000000000 {
		t.Errorf("history = %+v", history)
	}

	code, env = app.do(t, http.MethodGet, "/api/v1/ingestion/stats", "")
	stats := decodeData[ingestion.IngestMetrics](t, env)
	if code != http.StatusOK || stats.ReadingsAccepted != 1 || stats.AlertsGenerated != 3 {
		t.Errorf("stats = %d %+v", code, stats)
	}
}

func TestIngestValidationErrors(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name   string
		body   string
		fields []string
	}{
		{"missing everything", `{}`, []string{"deviceId", "timestamp", "location", "metrics"}},
		{"out of range", `{"deviceId":"van-001","timestamp":1,"location":{"lat":91,"lng":0},"metrics":{"temperature":70,"speed":-1,"fuel":50}}`, []string{"location.lat", "metrics.speed"}},
		{"wrong type", `{"deviceId":"van-001","timestamp":"soon"}`, []string{"timestamp"}},
		{"not json", `{"deviceId":`, []string{"body"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := app.do(t, http.MethodPost, "/api/v1/telemetry", tt.body)
			if code != http.StatusBadRequest {
				t.Fatalf("status = %d", code)
			}
			var details []ingestion.FieldError
			if err := json.Unmarshal(env.Details, &details); err != nil {
				t.Fatalf("details %s: %v", env.Details, err)
			}
			got := map[string]bool{}
			for _, d := range details {
				got[d.Field] = true
			}
			for _, f := range tt.fields {
				if !got[f] {
					t.Errorf("field %s missing from %v", f, details)
				}
			}
		})
	}

	_, env := app.do(t, http.MethodGet, "/api/v1/ingestion/stats", "")
	if stats := decodeData[ingestion.IngestMetrics](t, env); stats.ReadingsAccepted != 0 {
		t.Errorf("accepted = %d", stats.ReadingsAccepted)
	}
}

func TestDevices(t *testing.T) {
	app := newTestApp(t)

	code, env := app.do(t, http.MethodPost, "/api/v1/devices", `{"deviceId":"van-010","name":"Van Ten"}`)
	if code != http.StatusCreated {
		t.Fatalf("register = %d %+v", code, env)
	}

	code, env = app.do(t, http.MethodGet, "/api/v1/devices", "")
	list := decodeData[struct {
		Count   int `json:"count"`
		Devices []struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"devices"`
	}](t, env)
	if code != http.StatusOK || list.Count != 4 || list.Devices[0].ID != "van-010" || list.Devices[0].Type != "unknown" {
		t.Errorf("devices = %d %+v", code, list)
	}

	if code, _ := app.do(t, http.MethodGet, "/api/v1/devices/ghost", ""); code != http.StatusNotFound {
		t.Errorf("unknown device = %d", code)
	}
	if code, _ := app.do(t, http.MethodPost, "/api/v1/devices", `{"name":"nameless"}`); code != http.StatusBadRequest {
		t.Errorf("missing id = %d", code)
	}
}

func TestAlerts(t *testing.T) {
	app := newTestApp(t)
	app.do(t, http.MethodPost, "/api/v1/telemetry", breachReading)

	_, env := app.do(t, http.MethodGet, "/api/v1/alerts?deviceId=van-001&isActive=true", "")
	alerts := decodeData[struct {
		Count  int `json:"count"`
		Alerts []struct {
			ID string `json:"id"`
		} `json:"alerts"`
	}](t, env)
	if alerts.Count != 3 {
		t.Fatalf("alerts = %+v", alerts)
	}

	code, _ := app.do(t, http.MethodPost, "/api/v1/alerts", `{"action":"resolve","alertId":"`+alerts.Alerts[0].ID+`"}`)
	if code != http.StatusOK {
		t.Fatalf("resolve = %d", code)
	}
	code, _ = app.do(t, http.MethodPost, "/api/v1/alerts/"+alerts.Alerts[1].ID+"/resolve", "")
	if code != http.StatusOK {
		t.Fatalf("resolve by path = %d", code)
	}
	if code, _ := app.do(t, http.MethodPost, "/api/v1/alerts/"+alerts.Alerts[1].ID+"/resolve", ""); code != http.StatusOK {
		t.Errorf("second resolve = %d", code)
	}
	if code, _ := app.do(t, http.MethodPost, "/api/v1/alerts", `{"action":"archive","alertId":"x"}`); code != http.StatusBadRequest {
		t.Errorf("unknown action = %d", code)
	}

	_, env = app.do(t, http.MethodGet, "/api/v1/alerts?isActive=true", "")
	if active := decodeData[struct {
		Count int `json:"count"`
	}](t, env); active.Count != 1 {
		t.Errorf("active after resolve = %d", active.Count)
	}

	if code, _ := app.do(t, http.MethodGet, "/api/v1/alerts?limit=abc", ""); code != http.StatusBadRequest {
		t.Errorf("bad limit = %d", code)
	}
}

func TestSimulationControl(t *testing.T) {
	app := newTestApp(t)

	code, env := app.do(t, http.MethodPost, "/api/v1/simulation", `{"action":"start"}`)
	status := decodeData[simulation.Status](t, env)
	if code != http.StatusOK || !status.IsRunning || status.DeviceCount != 5 {
		t.Fatalf("start = %d %+v", code, status)
	}
	_, env = app.do(t, http.MethodPost, "/api/v1/simulation", `{"action":"start"}`)
	if status := decodeData[simulation.Status](t, env); !status.IsRunning || status.DeviceCount != 5 {
		t.Errorf("second start = %+v", status)
	}

	code, env = app.do(t, http.MethodPost, "/api/v1/simulation", `{"action":"pause"}`)
	if code != http.StatusBadRequest || !app.engine.Status().IsRunning {
		t.Errorf("unknown action = %d, running = %v", code, app.engine.Status().IsRunning)
	}

	_, env = app.do(t, http.MethodPost, "/api/v1/simulation", `{"action":"stop"}`)
	if status := decodeData[simulation.Status](t, env); status.IsRunning {
		t.Error("still running after stop")
	}
	_, env = app.do(t, http.MethodGet, "/api/v1/simulation", "")
	if status := decodeData[simulation.Status](t, env); status.IsRunning {
		t.Error("status reports running")
	}

	_, env = app.do(t, http.MethodGet, "/api/v1/devices", "")
	if list := decodeData[struct {
		Count int `json:"count"`
	}](t, env); list.Count != 5 {
		t.Errorf("simulated fleet registered %d devices, want 5", list.Count)
	}
}

func TestWebsocketReceivesIngestedReading(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(app.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for app.hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, err := http.Post(srv.URL+"/api/v1/telemetry", "application/json", strings.NewReader(breachReading))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg broadcast.Envelope
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Event != broadcast.EventTelemetry || msg.Channel != broadcast.GeneralChannel {
		t.Errorf("first message = %+v", msg)
	}
}
