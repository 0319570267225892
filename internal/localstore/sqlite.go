package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/andreagonzahe/lunaria-app/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	bucket     TEXT NOT NULL,
	key        TEXT NOT NULL,
	position   INTEGER NOT NULL DEFAULT 0,
	payload    BLOB NOT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (bucket, key)
);

CREATE TABLE IF NOT EXISTS sealed_records (
	bucket     TEXT NOT NULL PRIMARY KEY,
	payload    BLOB NOT NULL,
	updated_at DATETIME NOT NULL
);
`

// SQLiteStore is the on-device Store backed by a SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	sealer *Sealer
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path. The safety plan
// is sealed with sealer before it is written.
func OpenSQLite(ctx context.Context, path string, sealer *Sealer) (*SQLiteStore, error) {
	if sealer == nil {
		return nil, errors.New("opening local store: nil sealer")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening local database: %w", err)
	}
	// One writer keeps upserts on the same key from interleaving.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating local schema: %w", err)
	}

	return &SQLiteStore{db: db, sealer: sealer}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertRecord(ctx context.Context, ex execer, bucket, key string, position int, payload []byte) error {
	query := `
		INSERT INTO records (bucket, key, position, payload, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (bucket, key) DO UPDATE SET
			position = excluded.position,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`
	if _, err := ex.ExecContext(ctx, query, bucket, key, position, payload, time.Now().UTC()); err != nil {
		return fmt.Errorf("upserting %s record: %w", bucket, err)
	}
	return nil
}

func (s *SQLiteStore) getRecord(ctx context.Context, bucket, key string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM records WHERE bucket = ? AND key = ?`,
		bucket, key,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying %s record: %w", bucket, err)
	}
	return payload, nil
}

// SaveProfile replaces the stored profile.
func (s *SQLiteStore) SaveProfile(ctx context.Context, p domain.UserProfile) error {
	payload, err := encodeProfile(p)
	if err != nil {
		return err
	}
	return upsertRecord(ctx, s.db, BucketProfile, singletonKey, 0, payload)
}

// Profile returns the stored profile.
func (s *SQLiteStore) Profile(ctx context.Context) (domain.UserProfile, error) {
	payload, err := s.getRecord(ctx, BucketProfile, singletonKey)
	if err != nil {
		return domain.UserProfile{}, err
	}
	return decode[domain.UserProfile](BucketProfile, payload)
}

// SaveMoodEntry inserts the entry or replaces the one with the same date.
func (s *SQLiteStore) SaveMoodEntry(ctx context.Context, e domain.MoodEntry) error {
	key, payload, err := encodeEntry(e)
	if err != nil {
		return err
	}
	return upsertRecord(ctx, s.db, BucketMoodEntries, key, 0, payload)
}

// MoodEntry returns the entry for date.
func (s *SQLiteStore) MoodEntry(ctx context.Context, date domain.Date) (domain.MoodEntry, error) {
	payload, err := s.getRecord(ctx, BucketMoodEntries, date.String())
	if err != nil {
		return domain.MoodEntry{}, err
	}
	return decode[domain.MoodEntry](BucketMoodEntries, payload)
}

// MoodEntries returns the entries within r, newest first.
func (s *SQLiteStore) MoodEntries(ctx context.Context, r domain.DateRange) ([]domain.MoodEntry, error) {
	// Keys are YYYY-MM-DD, so lexical order is date order.
	q := sq.Select("payload").
		From("records").
		Where(sq.Eq{"bucket": BucketMoodEntries}).
		OrderBy("key DESC")
	if !r.From.IsZero() {
		q = q.Where(sq.GtOrEq{"key": r.From.String()})
	}
	if !r.To.IsZero() {
		q = q.Where(sq.LtOrEq{"key": r.To.String()})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building mood entry query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying mood entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.MoodEntry{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning mood entry: %w", err)
		}
		e, err := decode[domain.MoodEntry](BucketMoodEntries, payload)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ReplaceMedications swaps the whole medication list in one transaction.
func (s *SQLiteStore) ReplaceMedications(ctx context.Context, meds []domain.Medication) error {
	payloads := make([][]byte, len(meds))
	for i, m := range meds {
		payload, err := encodeMedication(m)
		if err != nil {
			return err
		}
		payloads[i] = payload
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE bucket = ?`, BucketMedications); err != nil {
		return fmt.Errorf("clearing medications: %w", err)
	}
	for i, m := range meds {
		if err := upsertRecord(ctx, tx, BucketMedications, m.ID, i, payloads[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing medications: %w", err)
	}
	return nil
}

// Medications returns the list in saved order.
func (s *SQLiteStore) Medications(ctx context.Context) ([]domain.Medication, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM records WHERE bucket = ? ORDER BY position`,
		BucketMedications,
	)
	if err != nil {
		return nil, fmt.Errorf("querying medications: %w", err)
	}
	defer rows.Close()

	meds := []domain.Medication{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning medication: %w", err)
		}
		m, err := decode[domain.Medication](BucketMedications, payload)
		if err != nil {
			return nil, err
		}
		meds = append(meds, m)
	}
	return meds, rows.Err()
}

// SaveSafetyPlan seals and stores the plan.
func (s *SQLiteStore) SaveSafetyPlan(ctx context.Context, p domain.SafetyPlan) error {
	payload, err := encodeSafetyPlan(p)
	if err != nil {
		return err
	}
	sealed, err := s.sealer.Seal(BucketSafetyPlan, payload)
	if err != nil {
		return fmt.Errorf("sealing safety plan: %w", err)
	}

	query := `
		INSERT INTO sealed_records (bucket, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (bucket) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, BucketSafetyPlan, sealed, time.Now().UTC()); err != nil {
		return fmt.Errorf("upserting safety plan: %w", err)
	}
	return nil
}

// SafetyPlan opens and returns the stored plan.
func (s *SQLiteStore) SafetyPlan(ctx context.Context) (domain.SafetyPlan, error) {
	var sealed []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM sealed_records WHERE bucket = ?`,
		BucketSafetyPlan,
	).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SafetyPlan{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.SafetyPlan{}, fmt.Errorf("querying safety plan: %w", err)
	}

	payload, err := s.sealer.Open(BucketSafetyPlan, sealed)
	if err != nil {
		return domain.SafetyPlan{}, fmt.Errorf("opening safety plan: %w", err)
	}
	return decode[domain.SafetyPlan](BucketSafetyPlan, payload)
}

// ClearAll deletes every record in one transaction.
func (s *SQLiteStore) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"records", "sealed_records"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing clear: %w", err)
	}
	return nil
}
