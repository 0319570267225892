package domain

import (
	"fmt"
	"time"
)

// Diagnosis is the user's self-reported diagnosis category.
type Diagnosis string

// Diagnosis values.
const (
	DiagnosisBipolar1    Diagnosis = "bipolar-1"
	DiagnosisBipolar2    Diagnosis = "bipolar-2"
	DiagnosisCyclothymia Diagnosis = "cyclothymia"
	DiagnosisOther       Diagnosis = "other"
)

// Valid reports whether d is a known diagnosis.
func (d Diagnosis) Valid() bool {
	switch d {
	case DiagnosisBipolar1, DiagnosisBipolar2, DiagnosisCyclothymia, DiagnosisOther:
		return true
	}
	return false
}

// DefaultCycleLength is the average cycle length assumed when none is configured.
const DefaultCycleLength = 28

// CycleTracking configures how cycle phases are recorded.
type CycleTracking struct {
	IsAutomatic        bool  `json:"isAutomatic"`
	IsIrregular        bool  `json:"isIrregular"`
	LastPeriodDate     *Date `json:"lastPeriodDate,omitempty"`
	AverageCycleLength int   `json:"averageCycleLength"`
}

// UserProfile is the single profile of an account.
type UserProfile struct {
	ID                 string        `json:"id"`
	Diagnosis          Diagnosis     `json:"diagnosis"`
	DiagnosisOther     string        `json:"diagnosisOther,omitempty"`
	OnboardingComplete bool          `json:"onboardingComplete"`
	CycleTracking      CycleTracking `json:"cycleTracking"`
	CreatedAt          time.Time     `json:"createdAt"`
}

// Validate checks the profile's enumerations and cycle configuration.
func (p UserProfile) Validate() error {
	if !p.Diagnosis.Valid() {
		return fmt.Errorf("%w: unknown diagnosis %q", ErrInvalidEntity, p.Diagnosis)
	}
	if p.Diagnosis == DiagnosisOther && p.DiagnosisOther == "" {
		return fmt.Errorf("%w: diagnosis \"other\" needs a description", ErrInvalidEntity)
	}
	if p.CycleTracking.AverageCycleLength < 0 {
		return fmt.Errorf("%w: negative cycle length", ErrInvalidEntity)
	}
	return nil
}
