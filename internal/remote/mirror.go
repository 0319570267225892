package remote

import (
	"context"

	"github.com/andreagonzahe/lunaria-app/internal/domain"
)

// The methods below let *DB serve as the sync mirror. Every call is scoped to
// the signed-in user's id.

func (db *DB) UpsertProfile(ctx context.Context, userID string, p domain.UserProfile) error {
	return db.Profiles().Upsert(ctx, userID, p)
}

func (db *DB) Profile(ctx context.Context, userID string) (domain.UserProfile, error) {
	return db.Profiles().Get(ctx, userID)
}

func (db *DB) UpsertMoodEntry(ctx context.Context, userID string, e domain.MoodEntry) error {
	return db.MoodEntries().Upsert(ctx, userID, e)
}

func (db *DB) ListMoodEntries(ctx context.Context, userID string, r domain.DateRange) ([]domain.MoodEntry, error) {
	return db.MoodEntries().List(ctx, userID, r)
}

func (db *DB) ReplaceMedications(ctx context.Context, userID string, meds []domain.Medication) error {
	return db.Medications().Replace(ctx, userID, meds)
}

func (db *DB) ListMedications(ctx context.Context, userID string) ([]domain.Medication, error) {
	return db.Medications().List(ctx, userID)
}

func (db *DB) UpsertSafetyPlan(ctx context.Context, userID string, p domain.SafetyPlan) error {
	return db.SafetyPlans().Upsert(ctx, userID, p)
}

func (db *DB) SafetyPlan(ctx context.Context, userID string) (domain.SafetyPlan, error) {
	return db.SafetyPlans().Get(ctx, userID)
}

// Offline is the mirror used when no database is configured. Every call
// fails with ErrOffline.
type Offline struct{}

func (Offline) UpsertProfile(context.Context, string, domain.UserProfile) error { return ErrOffline }

func (Offline) Profile(context.Context, string) (domain.UserProfile, error) {
	return domain.UserProfile{}, ErrOffline
}

func (Offline) UpsertMoodEntry(context.Context, string, domain.MoodEntry) error { return ErrOffline }

func (Offline) ListMoodEntries(context.Context, string, domain.DateRange) ([]domain.MoodEntry, error) {
	return nil, ErrOffline
}

func (Offline) ReplaceMedications(context.Context, string, []domain.Medication) error {
	return ErrOffline
}

func (Offline) ListMedications(context.Context, string) ([]domain.Medication, error) {
	return nil, ErrOffline
}

func (Offline) UpsertSafetyPlan(context.Context, string, domain.SafetyPlan) error { return ErrOffline }

func (Offline) SafetyPlan(context.Context, string) (domain.SafetyPlan, error) {
	return domain.SafetyPlan{}, ErrOffline
}
