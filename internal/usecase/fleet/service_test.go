package fleet

import (
	"context"
	"errors"
	"testing"

	"fleetpulse/internal/domain/telemetry"
	"fleetpulse/internal/infrastructure/memory"
	appErrors "fleetpulse/pkg/errors"
)

func ptr[T any](v T) *T { return &v }

type failingStore struct {
	*memory.Store
}

func (failingStore) GetAllDevices(context.Context) ([]*telemetry.Device, error) {
	return nil, telemetry.ErrTransientIO
}

func (failingStore) GetDeviceByID(context.Context, string) (*telemetry.Device, error) {
	return nil, telemetry.ErrTransientIO
}

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore(memory.Options{Seed: memory.DemoRoster()})
	return NewService(store), store
}

func addReadings(t *testing.T, store *memory.Store, id string, timestamps ...int64) {
	t.Helper()
	for _, ts := range timestamps {
		r := &telemetry.Reading{DeviceID: id, Timestamp: ts, Metrics: telemetry.Metrics{Speed: 10, Fuel: 50}}
		if err := store.InsertReading(context.Background(), r); err != nil {
			t.Fatal(err)
		}
	}
}

func TestGetDevice(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	d, err := svc.GetDevice(ctx, "van-002")
	if err != nil || d.ID != "van-002" {
		t.Fatalf("GetDevice = %v, %v", d, err)
	}

	_, err = svc.GetDevice(ctx, "ghost")
	if appErrors.Code(err) != appErrors.CodeNotFound || !errors.Is(err, telemetry.ErrDeviceNotFound) {
		t.Errorf("err = %v, want not found", err)
	}

	broken := NewService(failingStore{memory.NewStore(memory.Options{})})
	_, err = broken.GetDevice(ctx, "van-001")
	if appErrors.Code(err) != appErrors.CodeInternal || !errors.Is(err, telemetry.ErrTransientIO) {
		t.Errorf("err = %v, want internal", err)
	}
}

func TestListDevices(t *testing.T) {
	svc, _ := newService(t)
	res, err := svc.ListDevices(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 3 || res.Devices[0].ID != "truck-001" {
		t.Errorf("devices = %+v", res)
	}

	broken := NewService(failingStore{memory.NewStore(memory.Options{})})
	if _, err := broken.ListDevices(context.Background()); appErrors.Code(err) != appErrors.CodeInternal {
		t.Errorf("err = %v", err)
	}
}

func TestHistory(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	addReadings(t, store, "van-001", 100, 200, 300, 400, 500)

	tests := []struct {
		name string
		req  HistoryRequest
		want []int64
	}{
		{"all newest first", HistoryRequest{DeviceID: "van-001"}, []int64{500, 400, 300, 200, 100}},
		{"limit", HistoryRequest{DeviceID: "van-001", Limit: 2}, []int64{500, 400}},
		{"range inclusive", HistoryRequest{DeviceID: "van-001", StartTime: ptr(int64(200)), EndTime: ptr(int64(400))}, []int64{400, 300, 200}},
		{"start only", HistoryRequest{DeviceID: "van-001", StartTime: ptr(int64(450))}, []int64{500}},
		{"unknown device", HistoryRequest{DeviceID: "ghost"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.History(ctx, &tt.req)
			if err != nil {
				t.Fatal(err)
			}
			if res.Count != len(tt.want) {
				t.Fatalf("count = %d, want %d", res.Count, len(tt.want))
			}
			for i, r := range res.Readings {
				if r.Timestamp != tt.want[i] {
					t.Errorf("reading %d = %d, want %d", i, r.Timestamp, tt.want[i])
				}
			}
		})
	}
}

func TestHistoryRejectsBadQueries(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.History(ctx, &HistoryRequest{}); appErrors.Code(err) != appErrors.CodeValidation {
		t.Errorf("missing deviceId: %v", err)
	}
	_, err := svc.History(ctx, &HistoryRequest{DeviceID: "van-001", StartTime: ptr(int64(5)), EndTime: ptr(int64(1))})
	if appErrors.Code(err) != appErrors.CodeBadRequest {
		t.Errorf("inverted range: %v", err)
	}
}

func TestHistoryQueryLimits(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, DefaultHistoryLimit},
		{-3, DefaultHistoryLimit},
		{50, 50},
		{5000, MaxHistoryLimit},
	}
	for _, tt := range tests {
		if got := (&HistoryRequest{Limit: tt.in}).ToHistoryQuery().Limit; got != tt.want {
			t.Errorf("limit %d -> %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestAlerts(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	a1, _ := store.InsertAlert(ctx, "van-001", telemetry.AlertSpeed, telemetry.SeverityHigh, "fast")
	_, _ = store.InsertAlert(ctx, "van-002", telemetry.AlertFuel, telemetry.SeverityMedium, "low")

	res, err := svc.ListAlerts(ctx, &AlertFilterRequest{DeviceID: "van-001"})
	if err != nil || res.Count != 1 || res.Alerts[0].ID != a1.ID {
		t.Fatalf("by device = %+v, %v", res, err)
	}

	if err := svc.HandleAlertAction(ctx, &AlertActionRequest{Action: ActionResolve, AlertID: a1.ID}); err != nil {
		t.Fatal(err)
	}
	// Resolving again is a no-op.
	if err := svc.ResolveAlert(ctx, a1.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.ResolveAlert(ctx, "missing"); err != nil {
		t.Fatal(err)
	}

	active, _ := svc.ListAlerts(ctx, &AlertFilterRequest{IsActive: ptr(true)})
	if active.Count != 1 || active.Alerts[0].DeviceID != "van-002" {
		t.Errorf("active = %+v", active)
	}
	resolved, _ := svc.ListAlerts(ctx, &AlertFilterRequest{IsActive: ptr(false)})
	if resolved.Count != 1 || resolved.Alerts[0].ResolvedAt == nil {
		t.Errorf("resolved = %+v", resolved)
	}
}

func TestHandleAlertActionErrors(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	err := svc.HandleAlertAction(ctx, &AlertActionRequest{Action: "delete", AlertID: "x"})
	if appErrors.Code(err) != appErrors.CodeBadRequest || !errors.Is(err, appErrors.ErrInvalidAction) {
		t.Errorf("unknown action: %v", err)
	}
	if err := svc.HandleAlertAction(ctx, &AlertActionRequest{Action: ActionResolve}); appErrors.Code(err) != appErrors.CodeValidation {
		t.Errorf("missing id: %v", err)
	}
	if err := svc.ResolveAlert(ctx, ""); !errors.Is(err, appErrors.ErrMissingParameter) {
		t.Errorf("empty id: %v", err)
	}
}
