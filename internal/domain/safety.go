package domain

import (
	"fmt"
	"time"
)

// PlanFormat tags how a safety plan's content is stored.
type PlanFormat string

// PlanFormat values.
const (
	FormatText  PlanFormat = "text"
	FormatPDF   PlanFormat = "pdf"
	FormatImage PlanFormat = "image"
)

// EmergencyContact is the person to call from the safety plan.
type EmergencyContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// SafetyPlan is the user's crisis plan. Content is sensitive and only ever
// stored locally in the sealed bucket.
type SafetyPlan struct {
	Content          string            `json:"content"`
	Format           PlanFormat        `json:"format"`
	FileURI          string            `json:"fileUri,omitempty"`
	EmergencyContact *EmergencyContact `json:"emergencyContact,omitempty"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// Validate checks the format tag and that the plan holds something.
func (p SafetyPlan) Validate() error {
	switch p.Format {
	case FormatText, FormatPDF, FormatImage:
	default:
		return fmt.Errorf("%w: unknown safety plan format %q", ErrInvalidEntity, p.Format)
	}
	if p.Content == "" && p.FileURI == "" {
		return fmt.Errorf("%w: safety plan has neither content nor file", ErrInvalidEntity)
	}
	return nil
}
