package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"fleetpulse/internal/ingestion"
)

func f(v float64) *float64 { return &v }

func reading(id string) *ingestion.ReadingPayload {
	return &ingestion.ReadingPayload{
		DeviceID:  id,
		Timestamp: f(1000),
		Location:  &ingestion.LocationPayload{Lat: f(37.7), Lng: f(-122.4)},
		Metrics:   &ingestion.MetricsPayload{Temperature: f(70), Speed: f(30), Fuel: f(80)},
	}
}

func TestHTTPSink(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		switch r.URL.Path {
		case "/api/v1/telemetry":
			var p ingestion.ReadingPayload
			_ = json.NewDecoder(r.Body).Decode(&p)
			if p.DeviceID == "bad" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"success":false,"error":"Validation failed","details":[{"field":"metrics.speed"}]}`))
				return
			}
			_, _ = w.Write([]byte(`{"success":true,"data":{"alertsGenerated":2,"status":"warning"}}`))
		case "/api/v1/devices":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"success":true,"data":{"id":"van-001","name":"Van"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	sink := NewHTTPSink(srv.URL+"/api/v1/", nil)
	ctx := context.Background()

	res, err := sink.Ingest(ctx, reading("van-001"))
	if err != nil || res.AlertsGenerated != 2 || res.Status != "warning" {
		t.Fatalf("Ingest = %+v, %v", res, err)
	}

	if _, err := sink.Ingest(ctx, reading("bad")); err == nil {
		t.Error("rejected reading reported success")
	}

	d, err := sink.RegisterDevice(ctx, &ingestion.RegisterDeviceRequest{DeviceID: "van-001", Name: "Van"})
	if err != nil || d.ID != "van-001" {
		t.Fatalf("RegisterDevice = %+v, %v", d, err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(paths) != 3 || paths[2] != "/api/v1/devices" {
		t.Errorf("paths = %v", paths)
	}
}

func TestHTTPSinkUndecodableResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	if _, err := NewHTTPSink(srv.URL, nil).Ingest(context.Background(), reading("van-001")); err == nil {
		t.Error("expected error")
	}
}

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakePublisher struct {
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(topic string, qos byte, _ bool, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{topic, qos, payload})
	return nil
}

func TestMQTTSink(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewMQTTSink(pub, "fleet/+/telemetry", "fleet/+/register", 1)
	ctx := context.Background()

	if _, err := sink.RegisterDevice(ctx, &ingestion.RegisterDeviceRequest{DeviceID: "van-003", Name: "Van 3"}); err != nil {
		t.Fatal(err)
	}
	if _, err := sink.Ingest(ctx, reading("van-003")); err != nil {
		t.Fatal(err)
	}

	if len(pub.msgs) != 2 || pub.msgs[0].topic != "fleet/van-003/register" || pub.msgs[1].topic != "fleet/van-003/telemetry" || pub.msgs[1].qos != 1 {
		t.Fatalf("published = %+v", pub.msgs)
	}
	decoded, err := ingestion.ParseReading(pub.msgs[1].payload)
	if err != nil || decoded.DeviceID != "van-003" || *decoded.Metrics.Speed != 30 {
		t.Errorf("payload round trip = %+v, %v", decoded, err)
	}

	pub.err = errors.New("not connected")
	if _, err := sink.Ingest(ctx, reading("van-003")); err == nil {
		t.Error("publish failure swallowed")
	}

	quiet := NewMQTTSink(&fakePublisher{}, "fleet/+/telemetry", "", 0)
	if _, err := quiet.RegisterDevice(ctx, &ingestion.RegisterDeviceRequest{DeviceID: "x"}); err != nil {
		t.Errorf("register without topic: %v", err)
	}
}

func TestTopicFor(t *testing.T) {
	tests := []struct{ pattern, id, want string }{
		{"fleet/+/telemetry", "van-001", "fleet/van-001/telemetry"},
		{"telemetry", "van-001", "telemetry"},
		{"+/+", "a", "a/+"},
	}
	for _, tt := range tests {
		if got := TopicFor(tt.pattern, tt.id); got != tt.want {
			t.Errorf("TopicFor(%q, %q) = %q, want %q", tt.pattern, tt.id, got, tt.want)
		}
	}
}
