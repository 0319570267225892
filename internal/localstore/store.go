// Package localstore persists the user's data on the device. The local copy is
// always written first and is what the app falls back to when offline.
package localstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/andreagonzahe/lunaria-app/internal/domain"
	"github.com/andreagonzahe/lunaria-app/internal/mood"
)

// Bucket names. Each kind of record lives in its own bucket.
const (
	BucketProfile     = "user_profile"
	BucketMoodEntries = "mood_entries"
	BucketMedications = "medications"
	BucketSafetyPlan  = "safety_plan"
)

// singletonKey is the record key of buckets that hold one record.
const singletonKey = "current"

// Store is the local persistence contract.
//
// Mood entries are keyed by date and returned newest first. Medications are
// replaced as a whole and returned in the order they were saved. Missing
// singletons and entries return domain.ErrNotFound.
type Store interface {
	SaveProfile(ctx context.Context, p domain.UserProfile) error
	Profile(ctx context.Context) (domain.UserProfile, error)

	SaveMoodEntry(ctx context.Context, e domain.MoodEntry) error
	MoodEntries(ctx context.Context, r domain.DateRange) ([]domain.MoodEntry, error)
	MoodEntry(ctx context.Context, date domain.Date) (domain.MoodEntry, error)

	ReplaceMedications(ctx context.Context, meds []domain.Medication) error
	Medications(ctx context.Context) ([]domain.Medication, error)

	SaveSafetyPlan(ctx context.Context, p domain.SafetyPlan) error
	SafetyPlan(ctx context.Context) (domain.SafetyPlan, error)

	// ClearAll removes every bucket, including the sealed safety plan.
	ClearAll(ctx context.Context) error

	Close() error
}

func encodeEntry(e domain.MoodEntry) (string, []byte, error) {
	e, err := mood.Normalize(e)
	if err != nil {
		return "", nil, err
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return "", nil, fmt.Errorf("encoding mood entry: %w", err)
	}
	return e.Date.String(), payload, nil
}

func encodeProfile(p domain.UserProfile) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding profile: %w", err)
	}
	return payload, nil
}

func encodeMedication(m domain.Medication) ([]byte, error) {
	if m.ID == "" {
		return nil, fmt.Errorf("%w: medication %q has no id", domain.ErrInvalidEntity, m.Name)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding medication: %w", err)
	}
	return payload, nil
}

func encodeSafetyPlan(p domain.SafetyPlan) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding safety plan: %w", err)
	}
	return payload, nil
}

func decode[T any](bucket string, payload []byte) (T, error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, fmt.Errorf("decoding %s record: %w", bucket, err)
	}
	return v, nil
}
