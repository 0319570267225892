package mood

import (
	"testing"
	"time"

	"github.com/andreagonzahe/lunaria-app/internal/domain"
)

func checklistWith(mania, depression, mixed int, safety bool) domain.Checklist {
	c := domain.EmptyChecklist()
	for i := 0; i < mania; i++ {
		c.Mania[i] = true
	}
	for i := 0; i < depression; i++ {
		c.Depression[i] = true
	}
	for i := 0; i < mixed; i++ {
		c.Mixed[i] = true
	}
	c.Safety = safety
	return c
}

func TestNewEntry(t *testing.T) {
	date := domain.MustParseDate("2025-01-04")
	created := time.Date(2025, 1, 4, 21, 0, 0, 0, time.UTC)

	e, err := NewEntry(date, checklistWith(6, 1, 0, false),
		WithPhase(domain.PhaseLuteal),
		WithSleep(5.5, domain.SleepBad),
		WithCreatedAt(created),
	)
	if err != nil {
		t.Fatalf("NewEntry() error = %v", err)
	}

	if e.Scores != (domain.Scores{Mania: 6, Depression: 1}) {
		t.Errorf("Scores = %+v", e.Scores)
	}
	if e.MoodState != domain.StateElevated {
		t.Errorf("MoodState = %q, want elevated", e.MoodState)
	}
	if e.CyclePhase == nil || *e.CyclePhase != domain.PhaseLuteal {
		t.Errorf("CyclePhase = %v, want luteal", e.CyclePhase)
	}
	if e.Sleep == nil || e.Sleep.Hours != 5.5 {
		t.Errorf("Sleep = %+v", e.Sleep)
	}
	if !e.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", e.CreatedAt, created)
	}
}

func TestNormalize_RecomputesDerivedFields(t *testing.T) {
	e := domain.MoodEntry{
		Date:      domain.MustParseDate("2025-02-01"),
		Checklist: checklistWith(0, 6, 0, false),
		Scores:    domain.Scores{Mania: 9}, // stale
		MoodState: domain.StateElevated,    // stale
	}

	got, err := Normalize(e)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if got.Scores != (domain.Scores{Depression: 6}) {
		t.Errorf("Scores = %+v, want depression 6", got.Scores)
	}
	if got.MoodState != domain.StateDepressed {
		t.Errorf("MoodState = %q, want depressed", got.MoodState)
	}
}

func TestNormalize_RejectsInvalidEntries(t *testing.T) {
	bad := domain.SleepQuality("awful")
	tests := []struct {
		name  string
		entry domain.MoodEntry
	}{
		{
			name:  "missing date",
			entry: domain.MoodEntry{Checklist: domain.EmptyChecklist()},
		},
		{
			name: "unknown phase",
			entry: domain.MoodEntry{
				Date:       domain.MustParseDate("2025-02-01"),
				Checklist:  domain.EmptyChecklist(),
				CyclePhase: domain.CyclePhase("waxing").Ptr(),
			},
		},
		{
			name: "unknown sleep quality",
			entry: domain.MoodEntry{
				Date:      domain.MustParseDate("2025-02-01"),
				Checklist: domain.EmptyChecklist(),
				Sleep:     &domain.Sleep{Hours: 7, Quality: bad},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Normalize(tt.entry); err == nil {
				t.Error("Normalize() error = nil, want error")
			}
		})
	}
}

// TestEndToEndSequence checks that a run of entries classifies the same way
// regardless of the order they are processed in.
func TestEndToEndSequence(t *testing.T) {
	maniaScores := []int{0, 1, 2, 6, 7, 6, 8, 5, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 0, 1}
	phases := []domain.CyclePhase{domain.PhaseMenstruation, domain.PhaseFollicular, domain.PhaseOvulation, domain.PhaseLuteal}
	start := domain.MustParseDate("2025-01-01")

	forward := make(map[domain.Date]domain.MoodState)
	for i, m := range maniaScores {
		e, err := NewEntry(start.AddDays(i), checklistWith(m, 1, 0, false), WithPhase(phases[i%len(phases)]))
		if err != nil {
			t.Fatalf("NewEntry(day %d) error = %v", i, err)
		}
		forward[e.Date] = e.MoodState
	}

	for i := len(maniaScores) - 1; i >= 0; i-- {
		date := start.AddDays(i)
		want := Classify(domain.Scores{Mania: maniaScores[i], Depression: 1}, false)
		if forward[date] != want {
			t.Errorf("%s: state = %q, want %q", date, forward[date], want)
		}
	}

	if forward[start.AddDays(3)] != domain.StateElevated {
		t.Errorf("2025-01-04 = %q, want elevated", forward[start.AddDays(3)])
	}
	if forward[start] != domain.StateBaseline {
		t.Errorf("2025-01-01 = %q, want baseline", forward[start])
	}
}
