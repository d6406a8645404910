package postgres

import (
	"context"
	"fmt"
)

// Schema creates the PostGIS extension, tables and indexes. It is idempotent.
var Schema = []string{
	`CREATE EXTENSION IF NOT EXISTS postgis`,

	`CREATE TABLE IF NOT EXISTS devices (
		id         TEXT PRIMARY KEY,
		seq        BIGSERIAL NOT NULL,
		name       TEXT NOT NULL,
		type       TEXT NOT NULL,
		status     TEXT NOT NULL DEFAULT 'online',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS telemetry (
		id          BIGSERIAL PRIMARY KEY,
		device_id   TEXT NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
		timestamp   TIMESTAMPTZ NOT NULL,
		location    GEOGRAPHY(POINT, 4326) NOT NULL,
		latitude    DOUBLE PRECISION NOT NULL,
		longitude   DOUBLE PRECISION NOT NULL,
		speed       DOUBLE PRECISION NOT NULL,
		temperature DOUBLE PRECISION NOT NULL,
		fuel        DOUBLE PRECISION NOT NULL,
		humidity    DOUBLE PRECISION
	)`,
	`CREATE INDEX IF NOT EXISTS idx_telemetry_device_time ON telemetry (device_id, timestamp DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_telemetry_location ON telemetry USING GIST (location)`,

	`CREATE TABLE IF NOT EXISTS alerts (
		id          UUID PRIMARY KEY,
		seq         BIGSERIAL NOT NULL,
		device_id   TEXT NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
		alert_type  TEXT NOT NULL,
		severity    TEXT NOT NULL,
		message     TEXT NOT NULL,
		is_active   BOOLEAN NOT NULL DEFAULT TRUE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		resolved_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_seq ON alerts (seq DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_device_active ON alerts (device_id, is_active)`,
}

// Migrate applies Schema in order.
func (d *DB) Migrate(ctx context.Context) error {
	for i, stmt := range Schema {
		if _, err := d.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
