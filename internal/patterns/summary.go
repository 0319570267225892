package patterns

import (
	"math"

	"github.com/andreagonzahe/lunaria-app/internal/domain"
)

// AverageScores are per-section means rounded to one decimal.
type AverageScores struct {
	Mania      float64 `json:"mania"`
	Depression float64 `json:"depression"`
	Mixed      float64 `json:"mixed"`
}

// Summary aggregates a collection of entries for the insights view.
type Summary struct {
	TotalDays     int                      `json:"totalDays"`
	Distribution  map[domain.MoodState]int `json:"distribution"`
	AverageScores AverageScores            `json:"averageScores"`
}

// Summarize counts entries per mood state and averages their scores.
// Every known state appears in Distribution, zero or not.
func Summarize(entries []domain.MoodEntry) Summary {
	s := Summary{
		TotalDays:    len(entries),
		Distribution: make(map[domain.MoodState]int, len(domain.MoodStates)),
	}
	for _, state := range domain.MoodStates {
		s.Distribution[state] = 0
	}
	if len(entries) == 0 {
		return s
	}

	var mania, depression, mixed int
	for _, e := range entries {
		s.Distribution[e.MoodState]++
		mania += e.Scores.Mania
		depression += e.Scores.Depression
		mixed += e.Scores.Mixed
	}

	n := float64(len(entries))
	s.AverageScores = AverageScores{
		Mania:      round1(float64(mania) / n),
		Depression: round1(float64(depression) / n),
		Mixed:      round1(float64(mixed) / n),
	}
	return s
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
