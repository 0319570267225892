// Package reminders schedules daily medication reminders and delivers them
// through a Notifier.
package reminders

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/andreagonzahe/lunaria-app/internal/domain"
	"github.com/andreagonzahe/lunaria-app/internal/logger"
)

// DefaultInterval is how often Run checks for due reminders.
const DefaultInterval = 30 * time.Second

const reminderTitle = "Time for your medication"

// Handle identifies one scheduled daily trigger.
type Handle string

// Reminder describes a scheduled trigger.
type Reminder struct {
	Handle       Handle `json:"handle"`
	MedicationID string `json:"medicationId"`
	Time         string `json:"time"`
}

type trigger struct {
	Reminder
	med       domain.Medication
	offset    time.Duration // since local midnight
	lastFired domain.Date
}

// Scheduler holds repeating daily triggers and fires each one at most once
// per calendar day.
type Scheduler struct {
	notifier Notifier
	log      *logger.Logger
	now      func() time.Time
	interval time.Duration

	mu       sync.Mutex
	triggers map[Handle]*trigger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Scheduler) {
		s.log = l
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithInterval sets how often Run checks for due reminders.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		s.interval = d
	}
}

// NewScheduler creates a Scheduler that delivers through n.
func NewScheduler(n Notifier, opts ...Option) *Scheduler {
	s := &Scheduler{
		notifier: n,
		log:      logger.Nop(),
		now:      time.Now,
		interval: DefaultInterval,
		triggers: make(map[Handle]*trigger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule adds one daily trigger per reminder time of med. Nothing is
// scheduled when reminders are disabled. Times already past today first fire
// tomorrow.
func (s *Scheduler) Schedule(med domain.Medication) ([]Handle, error) {
	if !med.RemindersEnabled {
		return nil, nil
	}

	offsets := make([]time.Duration, len(med.Times))
	for i, t := range med.Times {
		d, err := domain.ParseReminderTime(t)
		if err != nil {
			return nil, fmt.Errorf("scheduling %q: %w", med.Name, err)
		}
		offsets[i] = d
	}

	now := s.now()
	today := domain.DateOf(now)
	sinceMidnight := timeOfDay(now)

	s.mu.Lock()
	defer s.mu.Unlock()

	handles := make([]Handle, 0, len(offsets))
	for i, off := range offsets {
		tr := &trigger{
			Reminder: Reminder{
				Handle:       Handle(uuid.NewString()),
				MedicationID: med.ID,
				Time:         med.Times[i],
			},
			med:    med,
			offset: off,
		}
		if sinceMidnight >= off {
			tr.lastFired = today
		}
		s.triggers[tr.Handle] = tr
		handles = append(handles, tr.Handle)
	}

	s.log.Debug("scheduled reminders", "medication_id", med.ID, "count", len(handles))
	return handles, nil
}

// Cancel removes the given triggers. Unknown handles are ignored.
func (s *Scheduler) Cancel(handles []Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range handles {
		delete(s.triggers, h)
	}
}

// CancelAll removes every trigger.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.triggers)
}

// Reschedule replaces every trigger with those of meds. Medications that
// fail to schedule are skipped and reported in the returned error.
func (s *Scheduler) Reschedule(meds []domain.Medication) ([]Handle, error) {
	s.CancelAll()

	var (
		handles []Handle
		failed  []string
	)
	for _, med := range meds {
		h, err := s.Schedule(med)
		if err != nil {
			failed = append(failed, med.Name)
			continue
		}
		handles = append(handles, h...)
	}
	if len(failed) > 0 {
		return handles, fmt.Errorf("%w: could not schedule %s", domain.ErrInvalidEntity, strings.Join(failed, ", "))
	}
	return handles, nil
}

// Scheduled lists the current triggers ordered by time of day.
func (s *Scheduler) Scheduled() []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Reminder, 0, len(s.triggers))
	for _, tr := range s.triggers {
		out = append(out, tr.Reminder)
	}
	slices.SortFunc(out, func(a, b Reminder) int {
		if c := strings.Compare(a.Time, b.Time); c != 0 {
			return c
		}
		return strings.Compare(string(a.Handle), string(b.Handle))
	})
	return out
}

// Tick delivers every reminder that is due and has not fired today. It
// returns the number delivered. A failed delivery is logged and not retried
// until the next day.
func (s *Scheduler) Tick(ctx context.Context) int {
	now := s.now()
	today := domain.DateOf(now)
	sinceMidnight := timeOfDay(now)

	s.mu.Lock()
	var due []*trigger
	for _, tr := range s.triggers {
		if tr.lastFired.Compare(today) == 0 || sinceMidnight < tr.offset {
			continue
		}
		tr.lastFired = today
		due = append(due, tr)
	}
	s.mu.Unlock()

	slices.SortFunc(due, func(a, b *trigger) int { return strings.Compare(a.Time, b.Time) })

	sent := 0
	for _, tr := range due {
		if err := s.notifier.Notify(ctx, notificationFor(tr.med, tr.Time)); err != nil {
			s.log.Warn("delivering reminder failed", "medication_id", tr.MedicationID, "error", err)
			continue
		}
		sent++
	}
	return sent
}

// Run checks for due reminders until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("reminder loop started", "interval", s.interval.String())
	for {
		s.Tick(ctx)
		select {
		case <-ctx.Done():
			s.log.Info("reminder loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// timeOfDay is the wall-clock time elapsed since midnight in t's location.
func timeOfDay(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second
}

func notificationFor(med domain.Medication, at string) Notification {
	body := med.Name
	if med.Dose != "" {
		body = fmt.Sprintf("%s (%s)", med.Name, med.Dose)
	}
	if med.IsPRN {
		body += " - Take as needed"
	}
	return Notification{
		Title: reminderTitle,
		Body:  body,
		Tag:   "medication-" + med.ID + "-" + at,
		Data: map[string]string{
			"medicationId":   med.ID,
			"medicationName": med.Name,
		},
	}
}
