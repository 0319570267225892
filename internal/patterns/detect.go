// Package patterns surfaces simple correlations between cycle phase and mood state.
package patterns

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/andreagonzahe/lunaria-app/internal/domain"
)

// Status describes the outcome of a detection run.
type Status string

// Status values.
const (
	StatusInsufficientData Status = "insufficient-data"
	StatusNoPatterns       Status = "no-patterns"
	StatusFound            Status = "found"
)

// Type categorizes a pattern.
type Type string

// Type values. Only cycle-mood patterns are detected today.
const (
	TypeCycleMood      Type = "cycle-mood"
	TypeSleepMood      Type = "sleep-mood"
	TypeMedicationMood Type = "medication-mood"
	TypeCustom         Type = "custom"
)

// Confidence is a coarse label shown next to a pattern.
type Confidence string

// Confidence values.
const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Pattern is one detected phase/state correlation.
type Pattern struct {
	ID               string            `json:"id"`
	Type             Type              `json:"type"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	Confidence       Confidence        `json:"confidence"`
	Phase            domain.CyclePhase `json:"phase"`
	State            domain.MoodState  `json:"state"`
	Frequency        int               `json:"frequency"`        // entries in Phase with State
	TotalOccurrences int               `json:"totalOccurrences"` // entries in Phase
	Ratio            float64           `json:"ratio"`
	Examples         []domain.Date     `json:"examples"`
	DetectedAt       time.Time         `json:"detectedAt"`
}

// Result is the output of Detect.
type Result struct {
	Status   Status    `json:"status"`
	Patterns []Pattern `json:"patterns"`
}

// Config holds detection parameters.
type Config struct {
	MinEntries    int     // below this nothing is computed (default: 14)
	MinPopulation int     // entries needed in a phase (default: 3)
	MinRatio      float64 // strict lower bound on the ratio (default: 0.5)
	Now           func() time.Time
}

// DefaultConfig returns the thresholds the insights view uses.
func DefaultConfig() Config {
	return Config{
		MinEntries:    14,
		MinPopulation: 3,
		MinRatio:      0.5,
		Now:           time.Now,
	}
}

type rule struct {
	id      string
	phase   domain.CyclePhase
	state   domain.MoodState
	title   string
	summary string
}

// rules are evaluated in this order; output order follows it.
var rules = []rule{
	{
		id:      "ovulation-elevated",
		phase:   domain.PhaseOvulation,
		state:   domain.StateElevated,
		title:   "Elevated Mood During Ovulation",
		summary: "You tend to experience elevated mood symptoms during ovulation",
	},
	{
		id:      "luteal-depressed",
		phase:   domain.PhaseLuteal,
		state:   domain.StateDepressed,
		title:   "Depressed Mood in Luteal Phase",
		summary: "You tend to experience depressive symptoms during the luteal phase",
	},
}

// Detect runs every rule over entries. Entries without a phase are ignored by
// the rules but still count toward MinEntries. The result does not depend on
// the order of entries.
//
// Each rule is tested independently with no correction for multiple comparisons.
func Detect(entries []domain.MoodEntry, cfg Config) Result {
	def := DefaultConfig()
	if cfg.MinEntries <= 0 {
		cfg.MinEntries = def.MinEntries
	}
	if cfg.MinPopulation <= 0 {
		cfg.MinPopulation = def.MinPopulation
	}
	if cfg.MinRatio <= 0 {
		cfg.MinRatio = def.MinRatio
	}
	if cfg.Now == nil {
		cfg.Now = def.Now
	}

	if len(entries) < cfg.MinEntries {
		return Result{Status: StatusInsufficientData}
	}

	now := cfg.Now().UTC()
	var found []Pattern
	for _, r := range rules {
		if p, ok := r.apply(entries, cfg, now); ok {
			found = append(found, p)
		}
	}

	if len(found) == 0 {
		return Result{Status: StatusNoPatterns}
	}
	return Result{Status: StatusFound, Patterns: found}
}

func (r rule) apply(entries []domain.MoodEntry, cfg Config, now time.Time) (Pattern, bool) {
	var population int
	var matches []domain.Date
	for _, e := range entries {
		if e.CyclePhase == nil || *e.CyclePhase != r.phase {
			continue
		}
		population++
		if e.MoodState == r.state {
			matches = append(matches, e.Date)
		}
	}

	if population < cfg.MinPopulation {
		return Pattern{}, false
	}
	ratio := float64(len(matches)) / float64(population)
	if ratio <= cfg.MinRatio {
		return Pattern{}, false
	}

	slices.SortFunc(matches, func(a, b domain.Date) int {
		return a.Compare(b)
	})

	return Pattern{
		ID:               r.id,
		Type:             TypeCycleMood,
		Title:            r.title,
		Description:      fmt.Sprintf("%s (%d%% of the time).", r.summary, int(math.Round(ratio*100))),
		Confidence:       ConfidenceMedium,
		Phase:            r.phase,
		State:            r.state,
		Frequency:        len(matches),
		TotalOccurrences: population,
		Ratio:            ratio,
		Examples:         matches,
		DetectedAt:       now,
	}, true
}
