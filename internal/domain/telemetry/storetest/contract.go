// Package storetest holds the behavioral contract every telemetry.Store
// implementation must satisfy. Backend tests call Run with a factory.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"fleetpulse/internal/domain/telemetry"
)

// Caps are the bounds the factory must configure on the store it returns.
type Caps struct {
	History int
	Alerts  int
}

// Factory returns an empty store configured with caps.
type Factory func(t *testing.T, caps Caps) telemetry.Store

var defaultCaps = Caps{History: 5, Alerts: 3}

func humidity(v float64) *float64 { return &v }

func reading(deviceID string, ts int64, speed float64) *telemetry.Reading {
	return &telemetry.Reading{
		DeviceID:  deviceID,
		Timestamp: ts,
		Location:  telemetry.Location{Lat: 37.77, Lng: -122.41},
		Metrics:   telemetry.Metrics{Temperature: 72, Speed: speed, Fuel: 60, Humidity: humidity(45)},
	}
}

func register(t *testing.T, s telemetry.Store, id string) *telemetry.Device {
	t.Helper()
	d, err := s.UpsertDevice(context.Background(), &telemetry.DeviceRegistration{ID: id, Name: "Device " + id, Type: "delivery"})
	if err != nil {
		t.Fatalf("UpsertDevice(%s): %v", id, err)
	}
	return d
}

// Run executes the contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	cases := []struct {
		name string
		fn   func(t *testing.T, s telemetry.Store)
	}{
		{"UpsertCreatesWithDefaults", upsertCreatesWithDefaults},
		{"UpsertWithStateRecordsReading", upsertWithStateRecordsReading},
		{"UpsertUpdatesExisting", upsertUpdatesExisting},
		{"DevicesMostRecentlyRegisteredFirst", devicesMostRecentFirst},
		{"UnknownDeviceNotFound", unknownDeviceNotFound},
		{"UpdateStatus", updateStatus},
		{"ReadingRoundTrip", readingRoundTrip},
		{"ReadingUpdatesDeviceState", readingUpdatesDeviceState},
		{"HistoryOrderRangeLimit", historyOrderRangeLimit},
		{"HistoryBounded", historyBounded},
		{"LatestReadings", latestReadings},
		{"AlertLifecycle", alertLifecycle},
		{"AlertFilters", alertFilters},
		{"AlertLogBounded", alertLogBounded},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newStore(t, defaultCaps))
		})
	}
}

func upsertCreatesWithDefaults(t *testing.T, s telemetry.Store) {
	d := register(t, s, "van-100")

	if d.ID != "van-100" || d.Name != "Device van-100" || d.Type != "delivery" {
		t.Fatalf("unexpected identity: %+v", d)
	}
	if d.Status != telemetry.StatusOnline {
		t.Errorf("status = %s, want online", d.Status)
	}
	if d.Location != telemetry.DefaultLocation {
		t.Errorf("location = %+v, want default", d.Location)
	}
	if !reflect.DeepEqual(d.Metrics, telemetry.DefaultMetrics) {
		t.Errorf("metrics = %+v, want default", d.Metrics)
	}
	if d.LastUpdate.IsZero() {
		t.Error("lastUpdate not stamped")
	}

	got, err := s.GetDeviceByID(context.Background(), "van-100")
	if err != nil {
		t.Fatalf("GetDeviceByID: %v", err)
	}
	if !reflect.DeepEqual(got, d) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, d)
	}
}

func upsertWithStateRecordsReading(t *testing.T, s telemetry.Store) {
	ctx := context.Background()
	loc := telemetry.Location{Lat: 37.78, Lng: -122.40}
	m := telemetry.Metrics{Temperature: 77, Speed: 30, Fuel: 55, Humidity: humidity(50)}

	d, err := s.UpsertDevice(ctx, &telemetry.DeviceRegistration{ID: "van-101", Name: "Van", Type: "delivery", Location: &loc, Metrics: &m})
	if err != nil {
		t.Fatalf("UpsertDevice: %v", err)
	}
	if d.Location != loc || !reflect.DeepEqual(d.Metrics, m) {
		t.Errorf("device state = %+v / %+v, want %+v / %+v", d.Location, d.Metrics, loc, m)
	}

	history, err := s.GetReadingHistory(ctx, &telemetry.HistoryQuery{DeviceID: "van-101", Limit: 10})
	if err != nil {
		t.Fatalf("GetReadingHistory: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1", len(history))
	}
	if history[0].Location != loc || !reflect.DeepEqual(history[0].Metrics, m) {
		t.Errorf("recorded reading = %+v", history[0])
	}
}

func upsertUpdatesExisting(t *testing.T, s telemetry.Store) {
	ctx := context.Background()
	register(t, s, "van-102")
	if err := s.UpdateDeviceStatus(ctx, "van-102", telemetry.StatusWarning); err != nil {
		t.Fatalf("UpdateDeviceStatus: %v", err)
	}

	d, err := s.UpsertDevice(ctx, &telemetry.DeviceRegistration{ID: "van-102", Name: "Renamed", Type: "cargo"})
	if err != nil {
		t.Fatalf("UpsertDevice: %v", err)
	}
	if d.Name != "Renamed" || d.Type != "cargo" || d.Status != telemetry.StatusOnline {
		t.Errorf("upsert did not overwrite: %+v", d)
	}

	all, err := s.GetAllDevices(ctx)
	if err != nil {
		t.Fatalf("GetAllDevices: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("devices = %d, want 1", len(all))
	}
}

func devicesMostRecentFirst(t *testing.T, s telemetry.Store) {
	ctx := context.Background()
	for _, id := range []string{"a-1", "a-2", "a-3"} {
		register(t, s, id)
		// Registration order is observable through timestamps on the durable backend.
		time.Sleep(2 * time.Millisecond)
	}
	register(t, s, "a-1")

	all, err := s.GetAllDevices(ctx)
	if err != nil {
		t.Fatalf("GetAllDevices: %v", err)
	}
	var ids []string
	for _, d := range all {
		ids = append(ids, d.ID)
	}
	if want := []string{"a-3", "a-2", "a-1"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("order = %v, want %v", ids, want)
	}
}

func unknownDeviceNotFound(t *testing.T, s telemetry.Store) {
	_, err := s.GetDeviceByID(context.Background(), "ghost")
	if !errors.Is(err, telemetry.ErrDeviceNotFound) {
		t.Errorf("err = %v, want ErrDeviceNotFound", err)
	}
}

func updateStatus(t *testing.T, s telemetry.Store) {
	ctx := context.Background()
	if err := s.UpdateDeviceStatus(ctx, "ghost", telemetry.StatusWarning); err != nil {
		t.Errorf("unknown device: err = %v, want nil", err)
	}

	register(t, s, "van-103")
	if err := s.UpdateDeviceStatus(ctx, "van-103", telemetry.StatusOffline); err != nil {
		t.Fatalf("UpdateDeviceStatus: %v", err)
	}
	d, err := s.GetDeviceByID(ctx, "van-103")
	if err != nil {
		t.Fatalf("GetDeviceByID: %v", err)
	}
	if d.Status != telemetry.StatusOffline {
		t.Errorf("status = %s, want offline", d.Status)
	}
}

func readingRoundTrip(t *testing.T, s telemetry.Store) {
	ctx := context.Background()
	register(t, s, "van-104")

	r := reading("van-104", 1700000000123, 42.5)
	if err := s.InsertReading(ctx, r); err != nil {
		t.Fatalf("InsertReading: %v", err)
	}

	got, err := s.GetReadingHistory(ctx, &telemetry.HistoryQuery{DeviceID: "van-104", Limit: 1})
	if err != nil {
		t.Fatalf("GetReadingHistory: %v", err)
	}
	if len(got) != 1 || !reflect.DeepEqual(got[0], r) {
		t.Fatalf("history = %+v, want [%+v]", got, r)
	}
}

func readingUpdatesDeviceState(t *testing.T, s telemetry.Store) {
	ctx := context.Background()
	register(t, s, "van-105")

	r := reading("van-105", time.Now().Add(time.Hour).UnixMilli(), 64)
	if err := s.InsertReading(ctx, r); err != nil {
		t.Fatalf("InsertReading: %v", err)
	}
	d, err := s.GetDeviceByID(ctx, "van-105")
	if err != nil {
		t.Fatalf("GetDeviceByID: %v", err)
	}
	if d.Location != r.Location || !reflect.DeepEqual(d.Metrics, r.Metrics) {
		t.Errorf("device = %+v, want state of %+v", d, r)
	}
	if !d.LastUpdate.Equal(r.Time()) {
		t.Errorf("lastUpdate = %v, want %v", d.LastUpdate, r.Time())
	}
}

func historyOrderRangeLimit(t *testing.T, s telemetry.Store) {
	ctx := context.Background()
	register(t, s, "van-106")

	// Inserted out of order on purpose.
	for _, ts := range []int64{3000, 1000, 5000, 2000, 4000} {
		if err := s.InsertReading(ctx, reading("van-106", ts, float64(ts/100))); err != nil {
			t.Fatalf("InsertReading: %v", err)
		}
	}

	timestamps := func(rs []*telemetry.Reading) []int64 {
		out := make([]int64, len(rs))
		for i, r := range rs {
			out[i] = r.Timestamp
		}
		return out
	}
	start, end := int64(2000), int64(4000)

	tests := []struct {
		name  string
		query telemetry.HistoryQuery
		want  []int64
	}{
		{"all", telemetry.HistoryQuery{DeviceID: "van-106", Limit: 10}, []int64{5000, 4000, 3000, 2000, 1000}},
		{"limit", telemetry.HistoryQuery{DeviceID: "van-106", Limit: 2}, []int64{5000, 4000}},
		{"closed range", telemetry.HistoryQuery{DeviceID: "van-106", Limit: 10, StartTime: &start, EndTime: &end}, []int64{4000, 3000, 2000}},
		{"start only", telemetry.HistoryQuery{DeviceID: "van-106", Limit: 10, StartTime: &end}, []int64{5000, 4000}},
		{"end only", telemetry.HistoryQuery{DeviceID: "van-106", Limit: 1, EndTime: &start}, []int64{2000}},
		{"other device", telemetry.HistoryQuery{DeviceID: "van-999", Limit: 10}, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.GetReadingHistory(ctx, &tt.query)
			if err != nil {
				t.Fatalf("GetReadingHistory: %v", err)
			}
			if ts := timestamps(got); !reflect.DeepEqual(ts, tt.want) {
				t.Errorf("timestamps = %v, want %v", ts, tt.want)
			}
		})
	}
}

func historyBounded(t *testing.T, s telemetry.Store) {
	ctx := context.Background()
	register(t, s, "van-107")

	total := defaultCaps.History + 3
	for i := 1; i <= total; i++ {
		if err := s.InsertReading(ctx, reading("van-107", int64(i*1000), 10)); err != nil {
			t.Fatalf("InsertReading: %v", err)
		}
	}

	got, err := s.GetReadingHistory(ctx, &telemetry.HistoryQuery{DeviceID: "van-107", Limit: 100})
	if err != nil {
		t.Fatalf("GetReadingHistory: %v", err)
	}
	if len(got) != defaultCaps.History {
		t.Fatalf("history length = %d, want %d", len(got), defaultCaps.History)
	}
	if oldest := got[len(got)-1].Timestamp; oldest != int64((total-defaultCaps.History+1)*1000) {
		t.Errorf("oldest kept = %d, oldest entries were not evicted first", oldest)
	}
}

func latestReadings(t *testing.T, s telemetry.Store) {
	ctx := context.Background()
	register(t, s, "van-108")
	register(t, s, "van-109")
	for _, r := range []*telemetry.Reading{reading("van-108", 1000, 1), reading("van-108", 3000, 3), reading("van-109", 2000, 2)} {
		if err := s.InsertReading(ctx, r); err != nil {
			t.Fatalf("InsertReading: %v", err)
		}
	}

	got, err := s.GetLatestReadings(ctx)
	if err != nil {
		t.Fatalf("GetLatestReadings: %v", err)
	}
	latest := map[string]int64{}
	for _, r := range got {
		latest[r.DeviceID] = r.Timestamp
	}
	if want := map[string]int64{"van-108": 3000, "van-109": 2000}; !reflect.DeepEqual(latest, want) {
		t.Errorf("latest = %v, want %v", latest, want)
	}
}

func alertLifecycle(t *testing.T, s telemetry.Store) {
	ctx := context.Background()
	register(t, s, "van-110")

	a, err := s.InsertAlert(ctx, "van-110", telemetry.AlertSpeed, telemetry.SeverityHigh, "speed 85")
	if err != nil {
		t.Fatalf("InsertAlert: %v", err)
	}
	if a.ID == "" || !a.IsActive || a.ResolvedAt != nil || a.CreatedAt.IsZero() {
		t.Fatalf("new alert = %+v", a)
	}
	if a.DeviceID != "van-110" || a.Type != telemetry.AlertSpeed || a.Severity != telemetry.SeverityHigh || a.Message != "speed 85" {
		t.Errorf("alert fields = %+v", a)
	}

	if err := s.ResolveAlert(ctx, a.ID); err != nil {
		t.Fatalf("ResolveAlert: %v", err)
	}
	got, err := s.GetAlerts(ctx, &telemetry.AlertFilter{Limit: 10})
	if err != nil {
		t.Fatalf("GetAlerts: %v", err)
	}
	if len(got) != 1 || got[0].IsActive || got[0].ResolvedAt == nil {
		t.Fatalf("resolved alert = %+v", got)
	}
	resolvedAt := *got[0].ResolvedAt

	// Resolving again and resolving unknown ids are no-ops.
	for _, id := range []string{a.ID, "does-not-exist", "00000000-0000-0000-0000-000000000000"} {
		if err := s.ResolveAlert(ctx, id); err != nil {
			t.Errorf("ResolveAlert(%s): %v", id, err)
		}
	}
	got, _ = s.GetAlerts(ctx, &telemetry.AlertFilter{Limit: 10})
	if len(got) != 1 || !got[0].ResolvedAt.Equal(resolvedAt) {
		t.Errorf("second resolve changed the alert: %+v", got)
	}
}

func alertFilters(t *testing.T, s telemetry.Store) {
	ctx := context.Background()
	register(t, s, "van-111")
	register(t, s, "van-112")

	first, _ := s.InsertAlert(ctx, "van-111", telemetry.AlertFuel, telemetry.SeverityMedium, "fuel 10")
	_, _ = s.InsertAlert(ctx, "van-112", telemetry.AlertTemperature, telemetry.SeverityHigh, "temp 90")
	last, _ := s.InsertAlert(ctx, "van-111", telemetry.AlertSpeed, telemetry.SeverityHigh, "speed 90")
	if err := s.ResolveAlert(ctx, first.ID); err != nil {
		t.Fatalf("ResolveAlert: %v", err)
	}

	device := "van-111"
	active, inactive := true, false
	tests := []struct {
		name   string
		filter telemetry.AlertFilter
		want   []string
	}{
		{"all newest first", telemetry.AlertFilter{Limit: 10}, []string{"speed 90", "temp 90", "fuel 10"}},
		{"device", telemetry.AlertFilter{DeviceID: &device, Limit: 10}, []string{"speed 90", "fuel 10"}},
		{"active", telemetry.AlertFilter{IsActive: &active, Limit: 10}, []string{"speed 90", "temp 90"}},
		{"inactive device", telemetry.AlertFilter{DeviceID: &device, IsActive: &inactive, Limit: 10}, []string{"fuel 10"}},
		{"limit", telemetry.AlertFilter{Limit: 1}, []string{"speed 90"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.GetAlerts(ctx, &tt.filter)
			if err != nil {
				t.Fatalf("GetAlerts: %v", err)
			}
			msgs := []string{}
			for _, a := range got {
				msgs = append(msgs, a.Message)
			}
			if !reflect.DeepEqual(msgs, tt.want) {
				t.Errorf("messages = %v, want %v", msgs, tt.want)
			}
		})
	}
	if last.ID == first.ID {
		t.Error("alert ids are not unique")
	}
}

func alertLogBounded(t *testing.T, s telemetry.Store) {
	ctx := context.Background()
	register(t, s, "van-113")

	for i := 0; i < defaultCaps.Alerts+2; i++ {
		if _, err := s.InsertAlert(ctx, "van-113", telemetry.AlertFuel, telemetry.SeverityMedium, fmt.Sprintf("alert %d", i)); err != nil {
			t.Fatalf("InsertAlert: %v", err)
		}
	}

	got, err := s.GetAlerts(ctx, &telemetry.AlertFilter{Limit: 100})
	if err != nil {
		t.Fatalf("GetAlerts: %v", err)
	}
	if len(got) != defaultCaps.Alerts {
		t.Fatalf("alerts = %d, want %d", len(got), defaultCaps.Alerts)
	}
	if got[0].Message != fmt.Sprintf("alert %d", defaultCaps.Alerts+1) || got[len(got)-1].Message != "alert 2" {
		t.Errorf("kept %q..%q, oldest were not dropped", got[0].Message, got[len(got)-1].Message)
	}
}
