package domain

import (
	"fmt"
	"strings"
	"time"
)

// ReminderTimeLayout is the 24h format of medication reminder times.
const ReminderTimeLayout = "15:04"

// Medication is one entry of the user's medication list.
// Times is empty for medications taken as needed (PRN).
type Medication struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Dose             string   `json:"dose"`
	Times            []string `json:"times"`
	RemindersEnabled bool     `json:"remindersEnabled"`
	IsPRN            bool     `json:"isPRN"`
}

// Validate checks the name and every reminder time.
func (m Medication) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: medication has no name", ErrInvalidEntity)
	}
	for _, t := range m.Times {
		if _, err := ParseReminderTime(t); err != nil {
			return fmt.Errorf("%w: medication %q: %v", ErrInvalidEntity, m.Name, err)
		}
	}
	return nil
}

// ParseReminderTime parses an HH:MM reminder time into hour and minute.
func ParseReminderTime(s string) (time.Duration, error) {
	t, err := time.Parse(ReminderTimeLayout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid reminder time %q", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
