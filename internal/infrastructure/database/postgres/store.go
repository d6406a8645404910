package postgres

import (
	"context"
	"errors"
	"time"

	"fleetpulse/internal/domain/telemetry"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	DefaultHistoryCap = 1000
	DefaultAlertCap   = 500
)

// Store is the durable telemetry.Store backed by PostgreSQL with PostGIS.
type Store struct {
	db         *DB
	historyCap int
	alertCap   int
	now        func() time.Time
}

var _ telemetry.Store = (*Store)(nil)

func NewStore(db *DB, historyCap, alertCap int) *Store {
	if historyCap <= 0 {
		historyCap = DefaultHistoryCap
	}
	if alertCap <= 0 {
		alertCap = DefaultAlertCap
	}
	return &Store{db: db, historyCap: historyCap, alertCap: alertCap, now: time.Now}
}

func (s *Store) Probe(ctx context.Context) error { return s.db.Probe(ctx) }

func (s *Store) Close() { s.db.Close() }

func (s *Store) stamp() time.Time {
	return s.now().Truncate(time.Microsecond)
}

const deviceSelect = `
	SELECT d.id, d.name, d.type, d.status, d.updated_at,
	       t.timestamp, t.latitude, t.longitude, t.speed, t.temperature, t.fuel, t.humidity
	FROM devices d
	LEFT JOIN LATERAL (
		SELECT timestamp, latitude, longitude, speed, temperature, fuel, humidity
		FROM telemetry
		WHERE device_id = d.id
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	) t ON TRUE`

func scanDevice(row pgx.Row) (*telemetry.Device, error) {
	var (
		d         telemetry.Device
		status    string
		ts        *time.Time
		lat, lng  *float64
		speed     *float64
		temp      *float64
		fuel      *float64
		humidity  *float64
		updatedAt time.Time
	)
	if err := row.Scan(&d.ID, &d.Name, &d.Type, &status, &updatedAt,
		&ts, &lat, &lng, &speed, &temp, &fuel, &humidity); err != nil {
		return nil, err
	}
	d.Status = telemetry.DeviceStatus(status)
	d.LastUpdate = updatedAt
	d.Location = telemetry.DefaultLocation
	d.Metrics = telemetry.DefaultMetrics.Clone()

	if ts != nil {
		d.Location = telemetry.Location{Lat: *lat, Lng: *lng}
		d.Metrics = telemetry.Metrics{Temperature: *temp, Speed: *speed, Fuel: *fuel, Humidity: humidity}
		if ts.After(d.LastUpdate) {
			d.LastUpdate = *ts
		}
	}
	return &d, nil
}

func (s *Store) GetAllDevices(ctx context.Context) ([]*telemetry.Device, error) {
	devices := make([]*telemetry.Device, 0)
	err := s.db.withConn(ctx, "get all devices", func(ctx context.Context, conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, deviceSelect+` ORDER BY d.seq DESC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			d, err := scanDevice(rows)
			if err != nil {
				return err
			}
			devices = append(devices, d)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return devices, nil
}

func (s *Store) GetDeviceByID(ctx context.Context, deviceID string) (*telemetry.Device, error) {
	var device *telemetry.Device
	err := s.db.withConn(ctx, "get device", func(ctx context.Context, conn *pgxpool.Conn) error {
		d, err := scanDevice(conn.QueryRow(ctx, deviceSelect+` WHERE d.id = $1`, deviceID))
		if errors.Is(err, pgx.ErrNoRows) {
			return telemetry.ErrDeviceNotFound
		}
		device = d
		return err
	})
	if err != nil {
		return nil, err
	}
	return device, nil
}

func (s *Store) UpsertDevice(ctx context.Context, reg *telemetry.DeviceRegistration) (*telemetry.Device, error) {
	now := s.stamp()
	err := s.db.withConn(ctx, "upsert device", func(ctx context.Context, conn *pgxpool.Conn) error {
		return pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, `
				INSERT INTO devices (id, name, type, status, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $5)
				ON CONFLICT (id) DO UPDATE
				SET name = EXCLUDED.name, type = EXCLUDED.type,
				    status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`,
				reg.ID, reg.Name, reg.Type, string(telemetry.StatusOnline), now)
			if err != nil {
				return err
			}

			if reg.Location == nil || reg.Metrics == nil {
				return nil
			}
			return s.insertReading(ctx, tx, &telemetry.Reading{
				DeviceID:  reg.ID,
				Timestamp: now.UnixMilli(),
				Location:  *reg.Location,
				Metrics:   *reg.Metrics,
			})
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetDeviceByID(ctx, reg.ID)
}

func (s *Store) UpdateDeviceStatus(ctx context.Context, deviceID string, status telemetry.DeviceStatus) error {
	return s.db.withConn(ctx, "update device status", func(ctx context.Context, conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx,
			`UPDATE devices SET status = $2, updated_at = $3 WHERE id = $1`,
			deviceID, string(status), s.stamp())
		return err
	})
}

func (s *Store) InsertReading(ctx context.Context, reading *telemetry.Reading) error {
	return s.db.withConn(ctx, "insert reading", func(ctx context.Context, conn *pgxpool.Conn) error {
		return pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
			return s.insertReading(ctx, tx, reading)
		})
	})
}

// insertReading appends the reading and trims the device history to the cap.
func (s *Store) insertReading(ctx context.Context, tx pgx.Tx, r *telemetry.Reading) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO telemetry (device_id, timestamp, location, latitude, longitude, speed, temperature, fuel, humidity)
		VALUES ($1, $2, ST_SetSRID(ST_MakePoint($4, $3), 4326)::geography, $3, $4, $5, $6, $7, $8)`,
		r.DeviceID, r.Time(), r.Location.Lat, r.Location.Lng,
		r.Metrics.Speed, r.Metrics.Temperature, r.Metrics.Fuel, r.Metrics.Humidity)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		DELETE FROM telemetry
		WHERE id IN (
			SELECT id FROM telemetry WHERE device_id = $1
			ORDER BY id DESC OFFSET $2
		)`, r.DeviceID, s.historyCap)
	return err
}

const readingColumns = `device_id, timestamp, latitude, longitude, speed, temperature, fuel, humidity`

func scanReading(row pgx.Row) (*telemetry.Reading, error) {
	var (
		r  telemetry.Reading
		ts time.Time
	)
	if err := row.Scan(&r.DeviceID, &ts, &r.Location.Lat, &r.Location.Lng,
		&r.Metrics.Speed, &r.Metrics.Temperature, &r.Metrics.Fuel, &r.Metrics.Humidity); err != nil {
		return nil, err
	}
	r.Timestamp = ts.UnixMilli()
	return &r, nil
}

func collectReadings(rows pgx.Rows) ([]*telemetry.Reading, error) {
	defer rows.Close()

	readings := make([]*telemetry.Reading, 0)
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

func (s *Store) GetReadingHistory(ctx context.Context, query *telemetry.HistoryQuery) ([]*telemetry.Reading, error) {
	var start, end *time.Time
	if query.StartTime != nil {
		t := time.UnixMilli(*query.StartTime)
		start = &t
	}
	if query.EndTime != nil {
		t := time.UnixMilli(*query.EndTime)
		end = &t
	}
	var limit *int
	if query.Limit > 0 {
		limit = &query.Limit
	}

	var readings []*telemetry.Reading
	err := s.db.withConn(ctx, "get reading history", func(ctx context.Context, conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+readingColumns+`
			FROM telemetry
			WHERE device_id = $1
			  AND ($2::timestamptz IS NULL OR timestamp >= $2)
			  AND ($3::timestamptz IS NULL OR timestamp <= $3)
			ORDER BY timestamp DESC, id DESC
			LIMIT $4`, query.DeviceID, start, end, limit)
		if err != nil {
			return err
		}
		readings, err = collectReadings(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return readings, nil
}

func (s *Store) GetLatestReadings(ctx context.Context) ([]*telemetry.Reading, error) {
	var readings []*telemetry.Reading
	err := s.db.withConn(ctx, "get latest readings", func(ctx context.Context, conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT DISTINCT ON (device_id) `+readingColumns+`
			FROM telemetry
			ORDER BY device_id, timestamp DESC, id DESC`)
		if err != nil {
			return err
		}
		readings, err = collectReadings(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return readings, nil
}

func (s *Store) InsertAlert(ctx context.Context, deviceID string, alertType telemetry.AlertType, severity telemetry.Severity, message string) (*telemetry.Alert, error) {
	alert := &telemetry.Alert{
		ID:        uuid.NewString(),
		DeviceID:  deviceID,
		Type:      alertType,
		Severity:  severity,
		Message:   message,
		IsActive:  true,
		CreatedAt: s.stamp(),
	}

	err := s.db.withConn(ctx, "insert alert", func(ctx context.Context, conn *pgxpool.Conn) error {
		return pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, `
				INSERT INTO alerts (id, device_id, alert_type, severity, message, is_active, created_at)
				VALUES ($1, $2, $3, $4, $5, TRUE, $6)`,
				alert.ID, alert.DeviceID, string(alert.Type), string(alert.Severity), alert.Message, alert.CreatedAt)
			if err != nil {
				return err
			}
			_, err = tx.Exec(ctx, `
				DELETE FROM alerts
				WHERE seq IN (SELECT seq FROM alerts ORDER BY seq DESC OFFSET $1)`, s.alertCap)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return alert, nil
}

func (s *Store) GetAlerts(ctx context.Context, filter *telemetry.AlertFilter) ([]*telemetry.Alert, error) {
	if filter == nil {
		filter = &telemetry.AlertFilter{}
	}
	var limit *int
	if filter.Limit > 0 {
		limit = &filter.Limit
	}

	alerts := make([]*telemetry.Alert, 0)
	err := s.db.withConn(ctx, "get alerts", func(ctx context.Context, conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT id::text, device_id, alert_type, severity, message, is_active, created_at, resolved_at
			FROM alerts
			WHERE ($1::text IS NULL OR device_id = $1)
			  AND ($2::boolean IS NULL OR is_active = $2)
			ORDER BY seq DESC
			LIMIT $3`, filter.DeviceID, filter.IsActive, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				a             telemetry.Alert
				kind, severity string
			)
			if err := rows.Scan(&a.ID, &a.DeviceID, &kind, &severity, &a.Message,
				&a.IsActive, &a.CreatedAt, &a.ResolvedAt); err != nil {
				return err
			}
			a.Type = telemetry.AlertType(kind)
			a.Severity = telemetry.Severity(severity)
			alerts = append(alerts, &a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

func (s *Store) ResolveAlert(ctx context.Context, alertID string) error {
	id, err := uuid.Parse(alertID)
	if err != nil {
		// Not an id this backend could have issued.
		return nil
	}
	return s.db.withConn(ctx, "resolve alert", func(ctx context.Context, conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx,
			`UPDATE alerts SET is_active = FALSE, resolved_at = $2 WHERE id = $1 AND is_active`,
			id.String(), s.stamp())
		return err
	})
}
