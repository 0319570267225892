package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andreagonzahe/lunaria-app/internal/domain"
)

// ProfileRepository handles profile database operations.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// Upsert creates or updates the profile of userID.
func (r *ProfileRepository) Upsert(ctx context.Context, userID string, p domain.UserProfile) error {
	row := profileToRow(userID, p)
	query := `
		INSERT INTO profiles (
			id, diagnosis, diagnosis_other, onboarding_complete,
			cycle_tracking_automatic, cycle_tracking_irregular,
			last_period_date, average_cycle_length, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (id) DO UPDATE SET
			diagnosis = EXCLUDED.diagnosis,
			diagnosis_other = EXCLUDED.diagnosis_other,
			onboarding_complete = EXCLUDED.onboarding_complete,
			cycle_tracking_automatic = EXCLUDED.cycle_tracking_automatic,
			cycle_tracking_irregular = EXCLUDED.cycle_tracking_irregular,
			last_period_date = EXCLUDED.last_period_date,
			average_cycle_length = EXCLUDED.average_cycle_length,
			updated_at = NOW()
	`
	_, err := r.pool.Exec(ctx, query,
		row.ID,
		row.Diagnosis,
		row.DiagnosisOther,
		row.OnboardingComplete,
		row.CycleTrackingAutomatic,
		row.CycleTrackingIrregular,
		row.LastPeriodDate,
		row.AverageCycleLength,
		row.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting profile: %w", err)
	}
	return nil
}

// Get retrieves the profile of userID.
func (r *ProfileRepository) Get(ctx context.Context, userID string) (domain.UserProfile, error) {
	query := `
		SELECT id, diagnosis, diagnosis_other, onboarding_complete,
			cycle_tracking_automatic, cycle_tracking_irregular,
			last_period_date, average_cycle_length, created_at
		FROM profiles
		WHERE id = $1
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("querying profile: %w", err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[profileRow])
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserProfile{}, ErrNotFound
	}
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("scanning profile: %w", err)
	}
	return row.toDomain(), nil
}

// Delete removes the profile of userID.
func (r *ProfileRepository) Delete(ctx context.Context, userID string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
