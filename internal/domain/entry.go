package domain

import (
	"fmt"
	"time"
)

// Checklist section sizes.
const (
	ManiaItems      = 9
	DepressionItems = 8
	MixedItems      = 4
)

// MoodState is the categorical classification of a day's checklist.
type MoodState string

// MoodState values.
const (
	StateElevated    MoodState = "elevated"
	StateDepressed   MoodState = "depressed"
	StateMixed       MoodState = "mixed"
	StateBaseline    MoodState = "baseline"
	StateSafetyAlert MoodState = "safety-alert"
)

// MoodStates lists every state in display order.
var MoodStates = []MoodState{StateElevated, StateDepressed, StateMixed, StateBaseline, StateSafetyAlert}

// Valid reports whether s is a known mood state.
func (s MoodState) Valid() bool {
	switch s {
	case StateElevated, StateDepressed, StateMixed, StateBaseline, StateSafetyAlert:
		return true
	}
	return false
}

// CyclePhase is a coarse day-level tag for the menstrual cycle.
type CyclePhase string

// CyclePhase values.
const (
	PhaseMenstruation CyclePhase = "menstruation"
	PhaseFollicular   CyclePhase = "follicular"
	PhaseOvulation    CyclePhase = "ovulation"
	PhaseLuteal       CyclePhase = "luteal"
)

// Valid reports whether p is a known phase.
func (p CyclePhase) Valid() bool {
	switch p {
	case PhaseMenstruation, PhaseFollicular, PhaseOvulation, PhaseLuteal:
		return true
	}
	return false
}

// Ptr returns a pointer to p, for optional fields.
func (p CyclePhase) Ptr() *CyclePhase { return &p }

// SleepQuality rates a night's sleep.
type SleepQuality string

// SleepQuality values.
const (
	SleepGood   SleepQuality = "good"
	SleepMedium SleepQuality = "medium"
	SleepBad    SleepQuality = "bad"
)

// Valid reports whether q is a known quality.
func (q SleepQuality) Valid() bool {
	switch q {
	case SleepGood, SleepMedium, SleepBad:
		return true
	}
	return false
}

// Sleep records the previous night's sleep.
type Sleep struct {
	Hours   float64      `json:"hours"`
	Quality SleepQuality `json:"quality"`
}

// Checklist holds the answers to the daily questionnaire.
type Checklist struct {
	Mania      []bool `json:"mania"`
	Depression []bool `json:"depression"`
	Mixed      []bool `json:"mixed"`
	Safety     bool   `json:"safety"`
}

// EmptyChecklist returns a well-formed checklist with every item unchecked.
func EmptyChecklist() Checklist {
	return Checklist{
		Mania:      make([]bool, ManiaItems),
		Depression: make([]bool, DepressionItems),
		Mixed:      make([]bool, MixedItems),
	}
}

// Validate checks that every section has its fixed length.
func (c Checklist) Validate() error {
	if len(c.Mania) != ManiaItems {
		return fmt.Errorf("%w: mania section has %d items, want %d", ErrInvalidChecklist, len(c.Mania), ManiaItems)
	}
	if len(c.Depression) != DepressionItems {
		return fmt.Errorf("%w: depression section has %d items, want %d", ErrInvalidChecklist, len(c.Depression), DepressionItems)
	}
	if len(c.Mixed) != MixedItems {
		return fmt.Errorf("%w: mixed section has %d items, want %d", ErrInvalidChecklist, len(c.Mixed), MixedItems)
	}
	return nil
}

// Scores are the per-section counts of checked items.
type Scores struct {
	Mania      int `json:"mania"`
	Depression int `json:"depression"`
	Mixed      int `json:"mixed"`
}

// MoodEntry is one day's check-in. Date is its identity: at most one entry exists per day.
// Scores and MoodState are derived from Checklist and never set independently.
type MoodEntry struct {
	Date             Date            `json:"date"`
	CreatedAt        time.Time       `json:"createdAt"`
	Checklist        Checklist       `json:"checklist"`
	Scores           Scores          `json:"scores"`
	MoodState        MoodState       `json:"moodState"`
	CyclePhase       *CyclePhase     `json:"cyclePhase,omitempty"`
	Sleep            *Sleep          `json:"sleep,omitempty"`
	MedicationsTaken map[string]bool `json:"medicationsTaken,omitempty"`
}

// Validate checks everything except the derived fields.
func (e MoodEntry) Validate() error {
	if e.Date.IsZero() {
		return fmt.Errorf("%w: mood entry has no date", ErrInvalidEntity)
	}
	if err := e.Checklist.Validate(); err != nil {
		return err
	}
	if e.CyclePhase != nil && !e.CyclePhase.Valid() {
		return fmt.Errorf("%w: unknown cycle phase %q", ErrInvalidEntity, *e.CyclePhase)
	}
	if e.Sleep != nil {
		if !e.Sleep.Quality.Valid() {
			return fmt.Errorf("%w: unknown sleep quality %q", ErrInvalidEntity, e.Sleep.Quality)
		}
		if e.Sleep.Hours < 0 || e.Sleep.Hours > 24 {
			return fmt.Errorf("%w: sleep hours %.1f out of range", ErrInvalidEntity, e.Sleep.Hours)
		}
	}
	return nil
}
