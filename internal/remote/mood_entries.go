package remote

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andreagonzahe/lunaria-app/internal/domain"
)

var moodEntryColumns = []string{
	"user_id", "entry_date", "created_at",
	"section_a", "section_b", "section_c", "section_d",
	"mania_score", "depression_score", "mixed_score", "mood_state",
	"cycle_phase", "sleep_hours", "sleep_quality", "medications_taken",
}

// MoodEntryRepository handles mood entry database operations.
type MoodEntryRepository struct {
	pool *pgxpool.Pool
}

// Upsert inserts the entry or replaces the one on the same date.
func (r *MoodEntryRepository) Upsert(ctx context.Context, userID string, e domain.MoodEntry) error {
	row, err := moodEntryToRow(userID, e)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO mood_entries (
			user_id, entry_date, created_at,
			section_a, section_b, section_c, section_d,
			mania_score, depression_score, mixed_score, mood_state,
			cycle_phase, sleep_hours, sleep_quality, medications_taken, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
		ON CONFLICT (user_id, entry_date) DO UPDATE SET
			created_at = EXCLUDED.created_at,
			section_a = EXCLUDED.section_a,
			section_b = EXCLUDED.section_b,
			section_c = EXCLUDED.section_c,
			section_d = EXCLUDED.section_d,
			mania_score = EXCLUDED.mania_score,
			depression_score = EXCLUDED.depression_score,
			mixed_score = EXCLUDED.mixed_score,
			mood_state = EXCLUDED.mood_state,
			cycle_phase = EXCLUDED.cycle_phase,
			sleep_hours = EXCLUDED.sleep_hours,
			sleep_quality = EXCLUDED.sleep_quality,
			medications_taken = EXCLUDED.medications_taken,
			updated_at = NOW()
	`
	_, err = r.pool.Exec(ctx, query,
		row.UserID,
		row.EntryDate,
		row.CreatedAt,
		row.SectionA,
		row.SectionB,
		row.SectionC,
		row.SectionD,
		row.ManiaScore,
		row.DepressionScore,
		row.MixedScore,
		row.MoodState,
		row.CyclePhase,
		row.SleepHours,
		row.SleepQuality,
		row.MedicationsTaken,
	)
	if err != nil {
		return fmt.Errorf("upserting mood entry: %w", err)
	}
	return nil
}

// List returns the entries of userID within rng, newest first.
func (r *MoodEntryRepository) List(ctx context.Context, userID string, rng domain.DateRange) ([]domain.MoodEntry, error) {
	q := psql.Select(moodEntryColumns...).
		From("mood_entries").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("entry_date DESC")
	if !rng.From.IsZero() {
		q = q.Where(sq.GtOrEq{"entry_date": rng.From.Time()})
	}
	if !rng.To.IsZero() {
		q = q.Where(sq.LtOrEq{"entry_date": rng.To.Time()})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building mood entry query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying mood entries: %w", err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowToStructByName[moodEntryRow])
	if err != nil {
		return nil, fmt.Errorf("scanning mood entries: %w", err)
	}

	entries := make([]domain.MoodEntry, 0, len(found))
	for _, row := range found {
		e, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Get returns the entry of userID on date.
func (r *MoodEntryRepository) Get(ctx context.Context, userID string, date domain.Date) (domain.MoodEntry, error) {
	query, args, err := psql.Select(moodEntryColumns...).
		From("mood_entries").
		Where(sq.Eq{"user_id": userID, "entry_date": date.Time()}).
		ToSql()
	if err != nil {
		return domain.MoodEntry{}, fmt.Errorf("building mood entry query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return domain.MoodEntry{}, fmt.Errorf("querying mood entry: %w", err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[moodEntryRow])
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.MoodEntry{}, ErrNotFound
	}
	if err != nil {
		return domain.MoodEntry{}, fmt.Errorf("scanning mood entry: %w", err)
	}
	return row.toDomain()
}

// DeleteAll removes every entry of userID.
func (r *MoodEntryRepository) DeleteAll(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM mood_entries WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("deleting mood entries: %w", err)
	}
	return nil
}
