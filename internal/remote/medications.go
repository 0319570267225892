package remote

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andreagonzahe/lunaria-app/internal/domain"
)

// MedicationRepository handles medication database operations.
type MedicationRepository struct {
	pool *pgxpool.Pool
}

// Replace swaps the medication list of userID in one transaction.
func (r *MedicationRepository) Replace(ctx context.Context, userID string, meds []domain.Medication) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM medications WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("deleting medications: %w", err)
	}

	if len(meds) > 0 {
		query := `
			INSERT INTO medications (user_id, id, position, name, dose, times, reminders_enabled, is_prn)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (user_id, id) DO UPDATE SET
				position = EXCLUDED.position,
				name = EXCLUDED.name,
				dose = EXCLUDED.dose,
				times = EXCLUDED.times,
				reminders_enabled = EXCLUDED.reminders_enabled,
				is_prn = EXCLUDED.is_prn
		`
		batch := &pgx.Batch{}
		for i, m := range meds {
			row := medicationToRow(userID, i, m)
			batch.Queue(query,
				row.UserID,
				row.ID,
				row.Position,
				row.Name,
				row.Dose,
				row.Times,
				row.RemindersEnabled,
				row.IsPRN,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting medications: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing medications: %w", err)
	}
	return nil
}

// List returns the medications of userID in saved order.
func (r *MedicationRepository) List(ctx context.Context, userID string) ([]domain.Medication, error) {
	query := `
		SELECT user_id, id, position, name, dose, times, reminders_enabled, is_prn
		FROM medications
		WHERE user_id = $1
		ORDER BY position
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying medications: %w", err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowToStructByName[medicationRow])
	if err != nil {
		return nil, fmt.Errorf("scanning medications: %w", err)
	}

	meds := make([]domain.Medication, len(found))
	for i, row := range found {
		meds[i] = row.toDomain()
	}
	return meds, nil
}
