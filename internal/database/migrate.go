package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const createExperiencesSQL = `
CREATE TABLE IF NOT EXISTS experiences (
    id               TEXT PRIMARY KEY,
    host_id          TEXT NOT NULL,
    title            TEXT NOT NULL,
    price_per_person NUMERIC(12,2) NOT NULL CHECK (price_per_person >= 0),
    min_guests       INTEGER NOT NULL CHECK (min_guests >= 1),
    max_guests       INTEGER NOT NULL,
    duration_minutes INTEGER NOT NULL CHECK (duration_minutes > 0),
    created_at       TIMESTAMPTZ NOT NULL,
    CONSTRAINT experience_guest_bounds CHECK (min_guests <= max_guests)
);`

const createSlotsSQL = `
CREATE TABLE IF NOT EXISTS availability_slots (
    id                 TEXT PRIMARY KEY,
    experience_id      TEXT NOT NULL REFERENCES experiences(id) ON DELETE CASCADE,
    slot_date          DATE NOT NULL,
    start_time         TIME NOT NULL,
    end_time           TIME NOT NULL,
    available_capacity INTEGER NOT NULL,
    max_capacity       INTEGER NOT NULL,
    price_override     NUMERIC(12,2) CHECK (price_override >= 0),
    weather_dependent  BOOLEAN NOT NULL DEFAULT FALSE,
    recurrence         TEXT NOT NULL DEFAULT 'none',
    series_id          TEXT,
    archived           BOOLEAN NOT NULL DEFAULT FALSE,
    created_at         TIMESTAMPTZ NOT NULL,
    updated_at         TIMESTAMPTZ NOT NULL,
    CONSTRAINT slot_capacity_bounds CHECK (available_capacity >= 0 AND available_capacity <= max_capacity),
    CONSTRAINT slot_time_order CHECK (start_time < end_time),
    CONSTRAINT slot_unique_start UNIQUE (experience_id, slot_date, start_time)
);`

const createBookingsSQL = `
CREATE TABLE IF NOT EXISTS bookings (
    id                   TEXT PRIMARY KEY,
    user_id              TEXT NOT NULL,
    experience_id        TEXT NOT NULL REFERENCES experiences(id),
    host_id              TEXT NOT NULL,
    slot_id              TEXT NOT NULL,
    booking_date         DATE NOT NULL,
    departure_time       TIME NOT NULL,
    number_of_guests     INTEGER NOT NULL CHECK (number_of_guests >= 1),
    total_price          NUMERIC(12,2) NOT NULL,
    status               TEXT NOT NULL,
    special_requests     TEXT,
    dietary_requirements TEXT,
    payment_status       TEXT NOT NULL,
    version              INTEGER NOT NULL DEFAULT 0,
    created_at           TIMESTAMPTZ NOT NULL,
    updated_at           TIMESTAMPTZ NOT NULL
);`

var migrations = []struct {
	name string
	sql  string
}{
	{"experiences", createExperiencesSQL},
	{"availability_slots", createSlotsSQL},
	{"bookings", createBookingsSQL},
	{"bookings_version", `ALTER TABLE bookings ADD COLUMN IF NOT EXISTS version INTEGER NOT NULL DEFAULT 0;`},
	{"idx_slots_day", `CREATE INDEX IF NOT EXISTS idx_slots_day ON availability_slots (experience_id, slot_date) WHERE NOT archived;`},
	{"idx_bookings_user", `CREATE INDEX IF NOT EXISTS idx_bookings_user ON bookings (user_id, created_at DESC);`},
	{"idx_bookings_host", `CREATE INDEX IF NOT EXISTS idx_bookings_host ON bookings (host_id, created_at DESC);`},
	{"idx_bookings_status_date", `CREATE INDEX IF NOT EXISTS idx_bookings_status_date ON bookings (status, booking_date);`},
}

// Migrate creates the schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migrate %s: %w", m.name, err)
		}
	}
	return nil
}
