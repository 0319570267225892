// Package cycle estimates the menstrual cycle phase of a day from the
// profile's last period date.
package cycle

import "github.com/andreagonzahe/lunaria-app/internal/domain"

// Bounds on the average cycle length accepted for estimation.
const (
	MinLength = 21
	MaxLength = 45
)

const (
	menstruationDays = 5
	lutealDays       = 14 // ovulation is assumed this many days before the next period
)

// Estimate returns the phase of date under automatic tracking.
//
// It reports false when tracking is manual, the cycle is irregular, no last
// period date is known or it lies after date, or the configured length is
// outside [MinLength, MaxLength]. A zero length means DefaultCycleLength.
func Estimate(t domain.CycleTracking, date domain.Date) (domain.CyclePhase, bool) {
	if !t.IsAutomatic || t.IsIrregular || t.LastPeriodDate == nil || t.LastPeriodDate.IsZero() {
		return "", false
	}
	if date.Before(*t.LastPeriodDate) {
		return "", false
	}

	length := t.AverageCycleLength
	if length == 0 {
		length = domain.DefaultCycleLength
	}
	if length < MinLength || length > MaxLength {
		return "", false
	}

	return PhaseOnDay(date.DaysSince(*t.LastPeriodDate)%length, length), true
}

// PhaseOnDay maps a zero-based day within a cycle of the given length to a phase.
func PhaseOnDay(day, length int) domain.CyclePhase {
	ovulation := length - lutealDays
	switch {
	case day < menstruationDays:
		return domain.PhaseMenstruation
	case day >= ovulation-1 && day <= ovulation+1:
		return domain.PhaseOvulation
	case day < ovulation-1:
		return domain.PhaseFollicular
	default:
		return domain.PhaseLuteal
	}
}
