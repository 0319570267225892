package remote

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/andreagonzahe/lunaria-app/internal/domain"
)

// Row types mirror table columns one to one. Each has a single pair of
// conversion functions to and from the domain type.

type profileRow struct {
	ID                     string     `db:"id"`
	Diagnosis              string     `db:"diagnosis"`
	DiagnosisOther         *string    `db:"diagnosis_other"`
	OnboardingComplete     bool       `db:"onboarding_complete"`
	CycleTrackingAutomatic bool       `db:"cycle_tracking_automatic"`
	CycleTrackingIrregular bool       `db:"cycle_tracking_irregular"`
	LastPeriodDate         *time.Time `db:"last_period_date"`
	AverageCycleLength     int        `db:"average_cycle_length"`
	CreatedAt              time.Time  `db:"created_at"`
}

func profileToRow(userID string, p domain.UserProfile) profileRow {
	row := profileRow{
		ID:                     userID,
		Diagnosis:              string(p.Diagnosis),
		DiagnosisOther:         nullable(p.DiagnosisOther),
		OnboardingComplete:     p.OnboardingComplete,
		CycleTrackingAutomatic: p.CycleTracking.IsAutomatic,
		CycleTrackingIrregular: p.CycleTracking.IsIrregular,
		AverageCycleLength:     p.CycleTracking.AverageCycleLength,
		CreatedAt:              p.CreatedAt,
	}
	if row.AverageCycleLength == 0 {
		row.AverageCycleLength = domain.DefaultCycleLength
	}
	if d := p.CycleTracking.LastPeriodDate; d != nil && !d.IsZero() {
		t := d.Time()
		row.LastPeriodDate = &t
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row
}

func (r profileRow) toDomain() domain.UserProfile {
	p := domain.UserProfile{
		ID:                 r.ID,
		Diagnosis:          domain.Diagnosis(r.Diagnosis),
		DiagnosisOther:     deref(r.DiagnosisOther),
		OnboardingComplete: r.OnboardingComplete,
		CycleTracking: domain.CycleTracking{
			IsAutomatic:        r.CycleTrackingAutomatic,
			IsIrregular:        r.CycleTrackingIrregular,
			AverageCycleLength: r.AverageCycleLength,
		},
		CreatedAt: r.CreatedAt.UTC(),
	}
	if r.LastPeriodDate != nil {
		d := domain.DateOf(*r.LastPeriodDate)
		p.CycleTracking.LastPeriodDate = &d
	}
	return p
}

type moodEntryRow struct {
	UserID           string    `db:"user_id"`
	EntryDate        time.Time `db:"entry_date"`
	CreatedAt        time.Time `db:"created_at"`
	SectionA         []bool    `db:"section_a"`
	SectionB         []bool    `db:"section_b"`
	SectionC         []bool    `db:"section_c"`
	SectionD         bool      `db:"section_d"`
	ManiaScore       int       `db:"mania_score"`
	DepressionScore  int       `db:"depression_score"`
	MixedScore       int       `db:"mixed_score"`
	MoodState        string    `db:"mood_state"`
	CyclePhase       *string   `db:"cycle_phase"`
	SleepHours       *float64  `db:"sleep_hours"`
	SleepQuality     *string   `db:"sleep_quality"`
	MedicationsTaken []byte    `db:"medications_taken"`
}

func moodEntryToRow(userID string, e domain.MoodEntry) (moodEntryRow, error) {
	row := moodEntryRow{
		UserID:          userID,
		EntryDate:       e.Date.Time(),
		CreatedAt:       e.CreatedAt,
		SectionA:        e.Checklist.Mania,
		SectionB:        e.Checklist.Depression,
		SectionC:        e.Checklist.Mixed,
		SectionD:        e.Checklist.Safety,
		ManiaScore:      e.Scores.Mania,
		DepressionScore: e.Scores.Depression,
		MixedScore:      e.Scores.Mixed,
		MoodState:       string(e.MoodState),
	}
	if e.CyclePhase != nil {
		phase := string(*e.CyclePhase)
		row.CyclePhase = &phase
	}
	if e.Sleep != nil {
		hours, quality := e.Sleep.Hours, string(e.Sleep.Quality)
		row.SleepHours = &hours
		row.SleepQuality = &quality
	}
	if len(e.MedicationsTaken) > 0 {
		b, err := json.Marshal(e.MedicationsTaken)
		if err != nil {
			return moodEntryRow{}, fmt.Errorf("encoding medications taken: %w", err)
		}
		row.MedicationsTaken = b
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row, nil
}

// toDomain converts the row as stored. Derived fields are recomputed by the
// caller, never trusted from the row.
func (r moodEntryRow) toDomain() (domain.MoodEntry, error) {
	e := domain.MoodEntry{
		Date:      domain.DateOf(r.EntryDate),
		CreatedAt: r.CreatedAt.UTC(),
		Checklist: domain.Checklist{
			Mania:      r.SectionA,
			Depression: r.SectionB,
			Mixed:      r.SectionC,
			Safety:     r.SectionD,
		},
		Scores: domain.Scores{
			Mania:      r.ManiaScore,
			Depression: r.DepressionScore,
			Mixed:      r.MixedScore,
		},
		MoodState: domain.MoodState(r.MoodState),
	}
	if r.CyclePhase != nil {
		e.CyclePhase = domain.CyclePhase(*r.CyclePhase).Ptr()
	}
	if r.SleepHours != nil {
		e.Sleep = &domain.Sleep{Hours: *r.SleepHours, Quality: domain.SleepQuality(deref(r.SleepQuality))}
	}
	if len(r.MedicationsTaken) > 0 {
		if err := json.Unmarshal(r.MedicationsTaken, &e.MedicationsTaken); err != nil {
			return domain.MoodEntry{}, fmt.Errorf("decoding medications taken for %s: %w", e.Date, err)
		}
	}
	return e, nil
}

type medicationRow struct {
	UserID           string   `db:"user_id"`
	ID               string   `db:"id"`
	Position         int      `db:"position"`
	Name             string   `db:"name"`
	Dose             string   `db:"dose"`
	Times            []string `db:"times"`
	RemindersEnabled bool     `db:"reminders_enabled"`
	IsPRN            bool     `db:"is_prn"`
}

func medicationToRow(userID string, position int, m domain.Medication) medicationRow {
	times := m.Times
	if times == nil {
		times = []string{}
	}
	return medicationRow{
		UserID:           userID,
		ID:               m.ID,
		Position:         position,
		Name:             m.Name,
		Dose:             m.Dose,
		Times:            times,
		RemindersEnabled: m.RemindersEnabled,
		IsPRN:            m.IsPRN,
	}
}

func (r medicationRow) toDomain() domain.Medication {
	m := domain.Medication{
		ID:               r.ID,
		Name:             r.Name,
		Dose:             r.Dose,
		Times:            r.Times,
		RemindersEnabled: r.RemindersEnabled,
		IsPRN:            r.IsPRN,
	}
	if len(m.Times) == 0 {
		m.Times = nil
	}
	return m
}

type safetyPlanRow struct {
	UserID                string    `db:"user_id"`
	Content               string    `db:"content"`
	Format                string    `db:"format"`
	FileURI               *string   `db:"file_uri"`
	EmergencyContactName  *string   `db:"emergency_contact_name"`
	EmergencyContactPhone *string   `db:"emergency_contact_phone"`
	UpdatedAt             time.Time `db:"updated_at"`
}

func safetyPlanToRow(userID string, p domain.SafetyPlan) safetyPlanRow {
	row := safetyPlanRow{
		UserID:    userID,
		Content:   p.Content,
		Format:    string(p.Format),
		FileURI:   nullable(p.FileURI),
		UpdatedAt: p.UpdatedAt,
	}
	if c := p.EmergencyContact; c != nil {
		row.EmergencyContactName = nullable(c.Name)
		row.EmergencyContactPhone = nullable(c.Phone)
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now().UTC()
	}
	return row
}

func (r safetyPlanRow) toDomain() domain.SafetyPlan {
	p := domain.SafetyPlan{
		Content:   r.Content,
		Format:    domain.PlanFormat(r.Format),
		FileURI:   deref(r.FileURI),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if p.Format == "" {
		p.Format = domain.FormatText
	}
	if r.EmergencyContactName != nil {
		p.EmergencyContact = &domain.EmergencyContact{
			Name:  *r.EmergencyContactName,
			Phone: deref(r.EmergencyContactPhone),
		}
	}
	return p
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
