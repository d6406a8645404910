package telemetry

import "time"

// DeviceStatus represents the operational state of a device
type DeviceStatus string

const (
	StatusOnline  DeviceStatus = "online"
	StatusWarning DeviceStatus = "warning"
	StatusOffline DeviceStatus = "offline"
)

// AlertType is the metric family an alert was raised for
type AlertType string

const (
	AlertSpeed       AlertType = "speed"
	AlertTemperature AlertType = "temperature"
	AlertFuel        AlertType = "fuel"
	AlertGeofence    AlertType = "geofence"
)

// Severity of an alert
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Metric ranges accepted on ingestion. Speed and fuel are also clamped to
// them before storage.
const (
	MinTemperature = -50.0
	MaxTemperature = 200.0
	MinSpeed       = 0.0
	MaxSpeed       = 200.0
	MinFuel        = 0.0
	MaxFuel        = 100.0
	MinHumidity    = 0.0
	MaxHumidity    = 100.0
)

// Thresholds above (speed, temperature) or below (fuel) which a device
// reports a warning status.
const (
	WarningSpeed       = 80.0
	WarningTemperature = 85.0
	WarningFuel        = 15.0
)

// Defaults applied when a device is registered without a location or metrics.
var (
	DefaultLocation = Location{Lat: 37.7749, Lng: -122.4194}
	DefaultMetrics  = Metrics{Temperature: 70, Speed: 0, Fuel: 100}
)

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Metrics is the set of scalar sensor values carried by a reading.
// Temperature is in °F, speed in mph, fuel and humidity in percent.
type Metrics struct {
	Temperature float64  `json:"temperature"`
	Speed       float64  `json:"speed"`
	Fuel        float64  `json:"fuel"`
	Humidity    *float64 `json:"humidity,omitempty"`
}

// Clamped returns a copy with speed and fuel forced into their ranges.
func (m Metrics) Clamped() Metrics {
	m.Speed = Clamp(m.Speed, MinSpeed, MaxSpeed)
	m.Fuel = Clamp(m.Fuel, MinFuel, MaxFuel)
	if m.Humidity != nil {
		h := Clamp(*m.Humidity, MinHumidity, MaxHumidity)
		m.Humidity = &h
	}
	return m
}

// Clone returns a deep copy so callers can not alias the humidity pointer.
func (m Metrics) Clone() Metrics {
	if m.Humidity != nil {
		h := *m.Humidity
		m.Humidity = &h
	}
	return m
}

// DeriveStatus maps metrics to the device status they imply.
func (m Metrics) DeriveStatus() DeviceStatus {
	if m.Speed > WarningSpeed || m.Temperature > WarningTemperature || m.Fuel < WarningFuel {
		return StatusWarning
	}
	return StatusOnline
}

// Device represents a tracked vehicle
type Device struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Type       string       `json:"type"`
	Status     DeviceStatus `json:"status"`
	Location   Location     `json:"location"`
	Metrics    Metrics      `json:"metrics"`
	LastUpdate time.Time    `json:"lastUpdate"`
}

// Clone returns a deep copy of the device.
func (d *Device) Clone() *Device {
	if d == nil {
		return nil
	}
	c := *d
	c.Metrics = d.Metrics.Clone()
	return &c
}

// DeviceRegistration carries the fields accepted by an upsert.
// Location and Metrics are optional; when both are set a reading is recorded.
type DeviceRegistration struct {
	ID       string
	Name     string
	Type     string
	Location *Location
	Metrics  *Metrics
}

// Reading is one timestamped telemetry sample. Timestamp is epoch millis.
type Reading struct {
	DeviceID  string   `json:"deviceId"`
	Timestamp int64    `json:"timestamp"`
	Location  Location `json:"location"`
	Metrics   Metrics  `json:"metrics"`
}

// Time returns the reading timestamp as a time.Time.
func (r *Reading) Time() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// Clone returns a deep copy of the reading.
func (r *Reading) Clone() *Reading {
	if r == nil {
		return nil
	}
	c := *r
	c.Metrics = r.Metrics.Clone()
	return &c
}

// Alert is a threshold breach raised for a device.
type Alert struct {
	ID         string     `json:"id"`
	DeviceID   string     `json:"deviceId"`
	Type       AlertType  `json:"type"`
	Severity   Severity   `json:"severity"`
	Message    string     `json:"message"`
	IsActive   bool       `json:"isActive"`
	CreatedAt  time.Time  `json:"createdAt"`
	ResolvedAt *time.Time `json:"resolvedAt"`
}

// Clone returns a deep copy of the alert.
func (a *Alert) Clone() *Alert {
	if a == nil {
		return nil
	}
	c := *a
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}

// HistoryQuery selects readings of one device. Nil StartTime/EndTime mean unbounded.
type HistoryQuery struct {
	DeviceID  string
	Limit     int
	StartTime *int64
	EndTime   *int64
}

// Contains reports whether ts falls inside the closed query range.
func (q *HistoryQuery) Contains(ts int64) bool {
	if q.StartTime != nil && ts < *q.StartTime {
		return false
	}
	if q.EndTime != nil && ts > *q.EndTime {
		return false
	}
	return true
}

// AlertFilter selects alerts. Nil fields are not filtered on.
type AlertFilter struct {
	DeviceID *string
	IsActive *bool
	Limit    int
}

// Matches reports whether the alert passes the filter.
func (f *AlertFilter) Matches(a *Alert) bool {
	if f.DeviceID != nil && a.DeviceID != *f.DeviceID {
		return false
	}
	if f.IsActive != nil && a.IsActive != *f.IsActive {
		return false
	}
	return true
}

// Clamp bounds v to [min, max].
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
