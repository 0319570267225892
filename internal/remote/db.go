// Package remote provides PostgreSQL access to the remote mirror of a user's data.
package remote

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andreagonzahe/lunaria-app/internal/domain"
)

// Common errors.
var (
	// ErrNotFound aliases domain.ErrNotFound so callers can match either.
	ErrNotFound = domain.ErrNotFound

	// ErrOffline is returned by Offline for every call.
	ErrOffline = errors.New("remote mirror not configured")
)

// psql builds queries with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// New creates a new database connection pool.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the database connection pool.
func (db *DB) Close() {
	db.pool.Close()
}

// Pool returns the underlying connection pool for advanced operations.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Profiles returns a ProfileRepository.
func (db *DB) Profiles() *ProfileRepository {
	return &ProfileRepository{pool: db.pool}
}

// MoodEntries returns a MoodEntryRepository.
func (db *DB) MoodEntries() *MoodEntryRepository {
	return &MoodEntryRepository{pool: db.pool}
}

// Medications returns a MedicationRepository.
func (db *DB) Medications() *MedicationRepository {
	return &MedicationRepository{pool: db.pool}
}

// SafetyPlans returns a SafetyPlanRepository.
func (db *DB) SafetyPlans() *SafetyPlanRepository {
	return &SafetyPlanRepository{pool: db.pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id                       TEXT PRIMARY KEY,
	diagnosis                TEXT NOT NULL,
	diagnosis_other          TEXT,
	onboarding_complete      BOOLEAN NOT NULL DEFAULT FALSE,
	cycle_tracking_automatic BOOLEAN NOT NULL DEFAULT FALSE,
	cycle_tracking_irregular BOOLEAN NOT NULL DEFAULT FALSE,
	last_period_date         DATE,
	average_cycle_length     INTEGER NOT NULL DEFAULT 28,
	created_at               TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at               TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS mood_entries (
	user_id           TEXT NOT NULL,
	entry_date        DATE NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL,
	section_a         BOOLEAN[] NOT NULL,
	section_b         BOOLEAN[] NOT NULL,
	section_c         BOOLEAN[] NOT NULL,
	section_d         BOOLEAN NOT NULL,
	mania_score       INTEGER NOT NULL,
	depression_score  INTEGER NOT NULL,
	mixed_score       INTEGER NOT NULL,
	mood_state        TEXT NOT NULL,
	cycle_phase       TEXT,
	sleep_hours       DOUBLE PRECISION,
	sleep_quality     TEXT,
	medications_taken JSONB,
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (user_id, entry_date)
);

CREATE TABLE IF NOT EXISTS medications (
	user_id           TEXT NOT NULL,
	id                TEXT NOT NULL,
	position          INTEGER NOT NULL,
	name              TEXT NOT NULL,
	dose              TEXT NOT NULL DEFAULT '',
	times             TEXT[] NOT NULL DEFAULT '{}',
	reminders_enabled BOOLEAN NOT NULL DEFAULT FALSE,
	is_prn            BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (user_id, id)
);

CREATE TABLE IF NOT EXISTS safety_plans (
	user_id                 TEXT PRIMARY KEY,
	content                 TEXT NOT NULL DEFAULT '',
	format                  TEXT NOT NULL DEFAULT 'text',
	file_uri                TEXT,
	emergency_contact_name  TEXT,
	emergency_contact_phone TEXT,
	updated_at              TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Migrate creates any missing tables.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}
