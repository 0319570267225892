package mood

import (
	"fmt"
	"maps"
	"time"

	"github.com/andreagonzahe/lunaria-app/internal/domain"
)

// EntryOption sets an optional field of a new entry.
type EntryOption func(*domain.MoodEntry)

// WithPhase sets the cycle phase.
func WithPhase(p domain.CyclePhase) EntryOption {
	return func(e *domain.MoodEntry) {
		e.CyclePhase = p.Ptr()
	}
}

// WithSleep records the previous night's sleep.
func WithSleep(hours float64, quality domain.SleepQuality) EntryOption {
	return func(e *domain.MoodEntry) {
		e.Sleep = &domain.Sleep{Hours: hours, Quality: quality}
	}
}

// WithMedicationsTaken records which medications were taken, by ID.
func WithMedicationsTaken(taken map[string]bool) EntryOption {
	return func(e *domain.MoodEntry) {
		e.MedicationsTaken = maps.Clone(taken)
	}
}

// WithCreatedAt overrides the creation time (defaults to now).
func WithCreatedAt(t time.Time) EntryOption {
	return func(e *domain.MoodEntry) {
		e.CreatedAt = t
	}
}

// NewEntry builds the check-in for date from a checklist.
// The scores and state are computed here; callers never set them.
func NewEntry(date domain.Date, c domain.Checklist, opts ...EntryOption) (domain.MoodEntry, error) {
	e := domain.MoodEntry{
		Date:      date,
		CreatedAt: time.Now().UTC(),
		Checklist: c,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return Normalize(e)
}

// Normalize validates e and recomputes its scores and state from the checklist,
// discarding whatever derived values it carried.
func Normalize(e domain.MoodEntry) (domain.MoodEntry, error) {
	if err := e.Validate(); err != nil {
		return domain.MoodEntry{}, fmt.Errorf("mood entry %s: %w", e.Date, err)
	}
	scores, state, err := Evaluate(e.Checklist)
	if err != nil {
		return domain.MoodEntry{}, fmt.Errorf("mood entry %s: %w", e.Date, err)
	}
	e.Scores = scores
	e.MoodState = state
	return e, nil
}
