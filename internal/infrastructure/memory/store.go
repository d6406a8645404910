package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"fleetpulse/internal/domain/telemetry"

	"github.com/google/uuid"
)

const (
	DefaultHistoryCap = 1000
	DefaultAlertCap   = 500
)

// Options configures the in-process store
type Options struct {
	HistoryCap int
	AlertCap   int
	// Seed devices are registered, in order, when the store is built.
	Seed []*telemetry.Device
	Now  func() time.Time
}

type deviceState struct {
	device    telemetry.Device
	seq       uint64
	updatedAt time.Time
	latest    *telemetry.Reading
}

// Store is the fallback backend: latest device state, a bounded reading list
// per device and a capped, newest-first alert list behind one RWMutex.
type Store struct {
	mu       sync.RWMutex
	devices  map[string]*deviceState
	readings map[string][]*telemetry.Reading
	alerts   []*telemetry.Alert
	seq      uint64

	historyCap int
	alertCap   int
	now        func() time.Time
}

var _ telemetry.Store = (*Store)(nil)

// NewStore creates a fallback store
func NewStore(opts Options) *Store {
	if opts.HistoryCap <= 0 {
		opts.HistoryCap = DefaultHistoryCap
	}
	if opts.AlertCap <= 0 {
		opts.AlertCap = DefaultAlertCap
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Store{
		devices:    make(map[string]*deviceState),
		readings:   make(map[string][]*telemetry.Reading),
		historyCap: opts.HistoryCap,
		alertCap:   opts.AlertCap,
		now:        opts.Now,
	}

	for _, d := range opts.Seed {
		s.seq++
		s.devices[d.ID] = &deviceState{
			device:    *d.Clone(),
			seq:       s.seq,
			updatedAt: s.stamp(),
		}
	}

	return s
}

// DemoRoster is the fixed set of devices the fallback store starts with.
func DemoRoster() []*telemetry.Device {
	return []*telemetry.Device{
		{
			ID:       "van-001",
			Name:     "Delivery Van 001",
			Type:     "delivery",
			Status:   telemetry.StatusOnline,
			Location: telemetry.Location{Lat: 37.7749, Lng: -122.4194},
			Metrics:  telemetry.Metrics{Temperature: 75, Speed: 45, Fuel: 68},
		},
		{
			ID:       "van-002",
			Name:     "Delivery Van 002",
			Type:     "delivery",
			Status:   telemetry.StatusOnline,
			Location: telemetry.Location{Lat: 37.7849, Lng: -122.4094},
			Metrics:  telemetry.Metrics{Temperature: 82, Speed: 52, Fuel: 34},
		},
		{
			ID:       "truck-001",
			Name:     "Cargo Truck 001",
			Type:     "cargo",
			Status:   telemetry.StatusOnline,
			Location: telemetry.Location{Lat: 37.7649, Lng: -122.4294},
			Metrics:  telemetry.Metrics{Temperature: 78, Speed: 38, Fuel: 89},
		},
	}
}

// stamp matches the microsecond precision of the durable backend.
func (s *Store) stamp() time.Time {
	return s.now().Truncate(time.Microsecond)
}

func (st *deviceState) snapshot() *telemetry.Device {
	d := st.device.Clone()
	d.LastUpdate = st.updatedAt
	if st.latest != nil {
		d.Location = st.latest.Location
		d.Metrics = st.latest.Metrics.Clone()
		if t := st.latest.Time(); t.After(d.LastUpdate) {
			d.LastUpdate = t
		}
	}
	return d
}

func (s *Store) GetAllDevices(_ context.Context) ([]*telemetry.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	states := make([]*deviceState, 0, len(s.devices))
	for _, st := range s.devices {
		states = append(states, st)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].seq > states[j].seq })

	devices := make([]*telemetry.Device, len(states))
	for i, st := range states {
		devices[i] = st.snapshot()
	}
	return devices, nil
}

func (s *Store) GetDeviceByID(_ context.Context, deviceID string) (*telemetry.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.devices[deviceID]
	if !ok {
		return nil, telemetry.ErrDeviceNotFound
	}
	return st.snapshot(), nil
}

func (s *Store) UpsertDevice(ctx context.Context, reg *telemetry.DeviceRegistration) (*telemetry.Device, error) {
	s.mu.Lock()
	st, ok := s.devices[reg.ID]
	if !ok {
		s.seq++
		st = &deviceState{
			seq: s.seq,
			device: telemetry.Device{
				ID:       reg.ID,
				Location: telemetry.DefaultLocation,
				Metrics:  telemetry.DefaultMetrics.Clone(),
			},
		}
		s.devices[reg.ID] = st
	}
	st.device.Name = reg.Name
	st.device.Type = reg.Type
	st.device.Status = telemetry.StatusOnline
	st.updatedAt = s.stamp()

	if reg.Location != nil && reg.Metrics != nil {
		s.appendReading(&telemetry.Reading{
			DeviceID:  reg.ID,
			Timestamp: st.updatedAt.UnixMilli(),
			Location:  *reg.Location,
			Metrics:   reg.Metrics.Clone(),
		})
	}
	d := st.snapshot()
	s.mu.Unlock()

	return d, nil
}

func (s *Store) UpdateDeviceStatus(_ context.Context, deviceID string, status telemetry.DeviceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.devices[deviceID]; ok {
		st.device.Status = status
		st.updatedAt = s.stamp()
	}
	return nil
}

func (s *Store) InsertReading(_ context.Context, reading *telemetry.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.appendReading(reading.Clone())
	return nil
}

// appendReading must be called with the write lock held.
func (s *Store) appendReading(r *telemetry.Reading) {
	history := append(s.readings[r.DeviceID], r)

	var evicted []*telemetry.Reading
	if over := len(history) - s.historyCap; over > 0 {
		evicted = history[:over]
		history = append([]*telemetry.Reading(nil), history[over:]...)
	}
	s.readings[r.DeviceID] = history

	st, ok := s.devices[r.DeviceID]
	if !ok {
		return
	}
	if st.latest == nil || r.Timestamp >= st.latest.Timestamp {
		st.latest = r
		return
	}
	for _, e := range evicted {
		if e == st.latest {
			st.latest = newest(history)
			return
		}
	}
}

func newest(history []*telemetry.Reading) *telemetry.Reading {
	var latest *telemetry.Reading
	for _, r := range history {
		if latest == nil || r.Timestamp >= latest.Timestamp {
			latest = r
		}
	}
	return latest
}

func (s *Store) GetReadingHistory(_ context.Context, query *telemetry.HistoryQuery) ([]*telemetry.Reading, error) {
	s.mu.RLock()
	history := s.readings[query.DeviceID]
	result := make([]*telemetry.Reading, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		if query.Contains(history[i].Timestamp) {
			result = append(result, history[i].Clone())
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool { return result[i].Timestamp > result[j].Timestamp })

	if query.Limit > 0 && len(result) > query.Limit {
		result = result[:query.Limit]
	}
	return result, nil
}

func (s *Store) GetLatestReadings(_ context.Context) ([]*telemetry.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*telemetry.Reading, 0, len(s.devices))
	for _, history := range s.readings {
		if latest := newest(history); latest != nil {
			result = append(result, latest.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DeviceID < result[j].DeviceID })
	return result, nil
}

func (s *Store) InsertAlert(_ context.Context, deviceID string, alertType telemetry.AlertType, severity telemetry.Severity, message string) (*telemetry.Alert, error) {
	alert := &telemetry.Alert{
		ID:        uuid.NewString(),
		DeviceID:  deviceID,
		Type:      alertType,
		Severity:  severity,
		Message:   message,
		IsActive:  true,
		CreatedAt: s.stamp(),
	}

	s.mu.Lock()
	alerts := make([]*telemetry.Alert, 0, len(s.alerts)+1)
	alerts = append(alerts, alert)
	alerts = append(alerts, s.alerts...)
	if len(alerts) > s.alertCap {
		alerts = alerts[:s.alertCap]
	}
	s.alerts = alerts
	s.mu.Unlock()

	return alert.Clone(), nil
}

func (s *Store) GetAlerts(_ context.Context, filter *telemetry.AlertFilter) ([]*telemetry.Alert, error) {
	if filter == nil {
		filter = &telemetry.AlertFilter{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*telemetry.Alert, 0)
	for _, a := range s.alerts {
		if !filter.Matches(a) {
			continue
		}
		result = append(result, a.Clone())
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result, nil
}

func (s *Store) ResolveAlert(_ context.Context, alertID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, a := range s.alerts {
		if a.ID != alertID {
			continue
		}
		if !a.IsActive {
			return nil
		}
		// Copy on write so snapshots handed to readers never change.
		resolved := a.Clone()
		now := s.stamp()
		resolved.IsActive = false
		resolved.ResolvedAt = &now
		s.alerts[i] = resolved
		return nil
	}
	return nil
}
