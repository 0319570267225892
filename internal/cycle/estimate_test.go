package cycle

import (
	"testing"

	"github.com/andreagonzahe/lunaria-app/internal/domain"
)

func datePtr(s string) *domain.Date {
	d := domain.MustParseDate(s)
	return &d
}

func TestPhaseOnDay(t *testing.T) {
	tests := []struct {
		day    int
		length int
		want   domain.CyclePhase
	}{
		{0, 28, domain.PhaseMenstruation},
		{4, 28, domain.PhaseMenstruation},
		{5, 28, domain.PhaseFollicular},
		{12, 28, domain.PhaseFollicular},
		{13, 28, domain.PhaseOvulation},
		{14, 28, domain.PhaseOvulation},
		{15, 28, domain.PhaseOvulation},
		{16, 28, domain.PhaseLuteal},
		{27, 28, domain.PhaseLuteal},
		{5, 21, domain.PhaseFollicular},
		{6, 21, domain.PhaseOvulation},
		{8, 21, domain.PhaseOvulation},
		{9, 21, domain.PhaseLuteal},
		{29, 45, domain.PhaseFollicular},
		{30, 45, domain.PhaseOvulation},
		{33, 45, domain.PhaseLuteal},
	}

	for _, tt := range tests {
		if got := PhaseOnDay(tt.day, tt.length); got != tt.want {
			t.Errorf("PhaseOnDay(%d, %d) = %q, want %q", tt.day, tt.length, got, tt.want)
		}
	}
}

func TestEstimate(t *testing.T) {
	auto := domain.CycleTracking{
		IsAutomatic:        true,
		LastPeriodDate:     datePtr("2025-01-01"),
		AverageCycleLength: 28,
	}

	tests := []struct {
		name     string
		tracking func() domain.CycleTracking
		date     string
		want     domain.CyclePhase
		wantOK   bool
	}{
		{
			name:     "first day",
			tracking: func() domain.CycleTracking { return auto },
			date:     "2025-01-01",
			want:     domain.PhaseMenstruation,
			wantOK:   true,
		},
		{
			name:     "ovulation day",
			tracking: func() domain.CycleTracking { return auto },
			date:     "2025-01-15",
			want:     domain.PhaseOvulation,
			wantOK:   true,
		},
		{
			name:     "wraps into next cycle",
			tracking: func() domain.CycleTracking { return auto },
			date:     "2025-01-30",
			want:     domain.PhaseMenstruation,
			wantOK:   true,
		},
		{
			name: "zero length uses default",
			tracking: func() domain.CycleTracking {
				tr := auto
				tr.AverageCycleLength = 0
				return tr
			},
			date:   "2025-01-20",
			want:   domain.PhaseLuteal,
			wantOK: true,
		},
		{
			name: "manual tracking",
			tracking: func() domain.CycleTracking {
				tr := auto
				tr.IsAutomatic = false
				return tr
			},
			date: "2025-01-05",
		},
		{
			name: "irregular cycle",
			tracking: func() domain.CycleTracking {
				tr := auto
				tr.IsIrregular = true
				return tr
			},
			date: "2025-01-05",
		},
		{
			name: "no last period",
			tracking: func() domain.CycleTracking {
				tr := auto
				tr.LastPeriodDate = nil
				return tr
			},
			date: "2025-01-05",
		},
		{
			name:     "date before last period",
			tracking: func() domain.CycleTracking { return auto },
			date:     "2024-12-31",
		},
		{
			name: "length too short",
			tracking: func() domain.CycleTracking {
				tr := auto
				tr.AverageCycleLength = 20
				return tr
			},
			date: "2025-01-05",
		},
		{
			name: "length too long",
			tracking: func() domain.CycleTracking {
				tr := auto
				tr.AverageCycleLength = 46
				return tr
			},
			date: "2025-01-05",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Estimate(tt.tracking(), domain.MustParseDate(tt.date))
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Estimate() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
