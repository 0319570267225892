// Package mood turns a day's questionnaire answers into scores and a mood state.
package mood

import (
	"github.com/andreagonzahe/lunaria-app/internal/domain"
)

// Score counts the checked items of each section. Safety is not counted.
// The checklist must already be validated.
func Score(c domain.Checklist) domain.Scores {
	return domain.Scores{
		Mania:      countTrue(c.Mania),
		Depression: countTrue(c.Depression),
		Mixed:      countTrue(c.Mixed),
	}
}

// Classify maps scores and the safety answer to a mood state.
//
// Rules are evaluated top to bottom and the first match wins:
//   - safety checked                                  = safety-alert
//   - mania >= 5 and depression <= 3                  = elevated
//   - depression >= 5 and mania <= 3                  = depressed
//   - (mania >= 4 and depression >= 4) or mixed >= 2  = mixed
//   - mania <= 2 and depression <= 2 and mixed <= 1   = baseline
//   - anything else                                   = baseline
//
// The ranges overlap, so the order is part of the contract.
func Classify(s domain.Scores, safety bool) domain.MoodState {
	switch {
	case safety:
		return domain.StateSafetyAlert
	case s.Mania >= Thresholds.Mania.Strong && s.Depression <= Thresholds.Depression.Possible:
		return domain.StateElevated
	case s.Depression >= Thresholds.Depression.Strong && s.Mania <= Thresholds.Mania.Possible:
		return domain.StateDepressed
	case (s.Mania >= 4 && s.Depression >= 4) || s.Mixed >= 2:
		return domain.StateMixed
	case s.Mania <= Thresholds.Mania.Low && s.Depression <= Thresholds.Depression.Low && s.Mixed <= Thresholds.Mixed.Possible:
		return domain.StateBaseline
	default:
		return domain.StateBaseline
	}
}

// Evaluate validates a checklist, then scores and classifies it.
func Evaluate(c domain.Checklist) (domain.Scores, domain.MoodState, error) {
	if err := c.Validate(); err != nil {
		return domain.Scores{}, "", err
	}
	scores := Score(c)
	return scores, Classify(scores, c.Safety), nil
}

func countTrue(items []bool) int {
	n := 0
	for _, v := range items {
		if v {
			n++
		}
	}
	return n
}
