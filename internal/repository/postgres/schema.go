package postgres

import (
	"context"
	"database/sql"

	"rideshare/internal/domain"
)

// Schema creates the tables used by the repositories. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS vehicles (
	id              TEXT PRIMARY KEY,
	type            TEXT NOT NULL,
	capacity        INTEGER,
	fare_multiplier DOUBLE PRECISION,
	status          TEXT NOT NULL DEFAULT 'active',
	driver_id       TEXT
);

CREATE TABLE IF NOT EXISTS rides (
	id             TEXT PRIMARY KEY,
	type           TEXT NOT NULL,
	status         TEXT NOT NULL,
	vehicle_id     TEXT NOT NULL REFERENCES vehicles (id),
	vehicle_type   TEXT NOT NULL,
	driver_id      TEXT NOT NULL,
	created_by     TEXT,
	group_id       TEXT,
	passengers     JSONB NOT NULL DEFAULT '[]',
	ratings        JSONB NOT NULL DEFAULT '[]',
	cancellation   JSONB,
	scheduled_time TIMESTAMPTZ,
	start_time     TIMESTAMPTZ,
	end_time       TIMESTAMPTZ,
	total_fare     BIGINT NOT NULL DEFAULT 0,
	currency       TEXT NOT NULL,
	version        INTEGER NOT NULL DEFAULT 1,
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS rides_created_at_idx ON rides (created_at DESC);

CREATE TABLE IF NOT EXISTS rating_aggregates (
	subject_kind TEXT NOT NULL,
	subject_id   TEXT NOT NULL,
	average      DOUBLE PRECISION NOT NULL,
	count        INTEGER NOT NULL,
	version      INTEGER NOT NULL,
	PRIMARY KEY (subject_kind, subject_id)
);
`

// EnsureSchema applies Schema.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return domain.Unavailable("ensure schema", err)
	}
	return nil
}
