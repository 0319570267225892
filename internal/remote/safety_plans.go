package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andreagonzahe/lunaria-app/internal/domain"
)

// SafetyPlanRepository handles safety plan database operations.
type SafetyPlanRepository struct {
	pool *pgxpool.Pool
}

// Upsert creates or replaces the plan of userID.
func (r *SafetyPlanRepository) Upsert(ctx context.Context, userID string, p domain.SafetyPlan) error {
	row := safetyPlanToRow(userID, p)
	query := `
		INSERT INTO safety_plans (
			user_id, content, format, file_uri,
			emergency_contact_name, emergency_contact_phone, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			content = EXCLUDED.content,
			format = EXCLUDED.format,
			file_uri = EXCLUDED.file_uri,
			emergency_contact_name = EXCLUDED.emergency_contact_name,
			emergency_contact_phone = EXCLUDED.emergency_contact_phone,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.pool.Exec(ctx, query,
		row.UserID,
		row.Content,
		row.Format,
		row.FileURI,
		row.EmergencyContactName,
		row.EmergencyContactPhone,
		row.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting safety plan: %w", err)
	}
	return nil
}

// Get returns the most recently updated plan of userID.
func (r *SafetyPlanRepository) Get(ctx context.Context, userID string) (domain.SafetyPlan, error) {
	query := `
		SELECT user_id, content, format, file_uri,
			emergency_contact_name, emergency_contact_phone, updated_at
		FROM safety_plans
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT 1
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return domain.SafetyPlan{}, fmt.Errorf("querying safety plan: %w", err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[safetyPlanRow])
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SafetyPlan{}, ErrNotFound
	}
	if err != nil {
		return domain.SafetyPlan{}, fmt.Errorf("scanning safety plan: %w", err)
	}
	return row.toDomain(), nil
}
