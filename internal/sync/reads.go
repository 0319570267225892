package sync

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/andreagonzahe/lunaria-app/internal/domain"
	"github.com/andreagonzahe/lunaria-app/internal/mood"
)

// Source says where a read was served from.
type Source string

// Source values.
const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

// outcome describes how a read was served. remoteErr is set when the mirror
// was tried and failed; the local copy was returned instead.
type outcome struct {
	source    Source
	remoteErr error
}

func (c *Coordinator) logFallback(kind Kind, o outcome) {
	if o.remoteErr != nil {
		c.log.Warn("remote read failed; serving local copy", "kind", kind, "error", o.remoteErr)
	}
}

// Profile returns the profile, preferring the mirror.
func (c *Coordinator) Profile(ctx context.Context) (domain.UserProfile, error) {
	c.flushBeforeRead(ctx, KindProfile)
	p, o, err := c.readProfile(ctx)
	c.logFallback(KindProfile, o)
	return p, err
}

func (c *Coordinator) readProfile(ctx context.Context) (domain.UserProfile, outcome, error) {
	local := func() (domain.UserProfile, outcome, error) {
		p, err := c.store.Profile(ctx)
		return p, outcome{source: SourceLocal}, err
	}

	userID, ok := c.userID(ctx)
	if !ok {
		return local()
	}

	st := c.kinds[KindProfile]
	snap := st.snapshot()

	var remote domain.UserProfile
	err := c.remote(ctx, func(ctx context.Context) error {
		var err error
		remote, err = c.mirror.Profile(ctx, userID)
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		return local()
	}
	if err == nil {
		err = remote.Validate()
	}
	if err != nil {
		p, o, lerr := local()
		o.remoteErr = err
		return p, o, lerr
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.stale(singletonKey, snap) {
		return local()
	}
	if err := c.store.SaveProfile(ctx, remote); err != nil {
		c.log.Warn("refreshing local profile failed", "error", err)
	}
	return remote, outcome{source: SourceRemote}, nil
}

// MoodEntries returns the entries within r, newest first, preferring the mirror.
func (c *Coordinator) MoodEntries(ctx context.Context, r domain.DateRange) ([]domain.MoodEntry, error) {
	c.flushBeforeRead(ctx, KindMoodEntries)
	entries, o, err := c.readMoodEntries(ctx, r)
	c.logFallback(KindMoodEntries, o)
	return entries, err
}

// MoodEntry returns the entry for date, preferring the mirror.
func (c *Coordinator) MoodEntry(ctx context.Context, date domain.Date) (domain.MoodEntry, error) {
	entries, err := c.MoodEntries(ctx, domain.DateRange{From: date, To: date})
	if err != nil {
		return domain.MoodEntry{}, err
	}
	for _, e := range entries {
		if e.Date.Compare(date) == 0 {
			return e, nil
		}
	}
	return domain.MoodEntry{}, fmt.Errorf("mood entry %s: %w", date, domain.ErrNotFound)
}

func (c *Coordinator) readMoodEntries(ctx context.Context, r domain.DateRange) ([]domain.MoodEntry, outcome, error) {
	local := func() ([]domain.MoodEntry, outcome, error) {
		entries, err := c.store.MoodEntries(ctx, r)
		return entries, outcome{source: SourceLocal}, err
	}

	userID, ok := c.userID(ctx)
	if !ok {
		return local()
	}

	st := c.kinds[KindMoodEntries]
	snap := st.snapshot()

	var remote []domain.MoodEntry
	err := c.remote(ctx, func(ctx context.Context) error {
		var err error
		remote, err = c.mirror.ListMoodEntries(ctx, userID, r)
		return err
	})
	if err != nil {
		entries, o, lerr := local()
		o.remoteErr = err
		return entries, o, lerr
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	stored, err := c.store.MoodEntries(ctx, r)
	if err != nil {
		c.log.Warn("reading local mood entries failed", "error", err)
	}
	locals := make(map[string]domain.MoodEntry, len(stored))
	for _, e := range stored {
		locals[e.Date.String()] = e
	}

	entries := make([]domain.MoodEntry, 0, len(remote))
	seen := make(map[string]bool, len(remote))
	for _, e := range remote {
		key := e.Date.String()
		seen[key] = true
		mine, haveLocal := locals[key]

		// A stale key is never overwritten, even when its local copy
		// cannot be read back.
		if st.stale(key, snap) {
			if haveLocal {
				entries = append(entries, mine)
			}
			continue
		}
		// Saved on this device after the remote copy, by an earlier run.
		if haveLocal && savedAfter(mine.CreatedAt, e.CreatedAt) {
			st.markDirty(key)
			entries = append(entries, mine)
			continue
		}

		normalized, err := mood.Normalize(e)
		if err != nil {
			c.log.Warn("skipping malformed remote mood entry", "date", key, "error", err)
			continue
		}
		if err := c.store.SaveMoodEntry(ctx, normalized); err != nil {
			c.log.Warn("refreshing local mood entry failed", "date", key, "error", err)
		}
		entries = append(entries, normalized)
	}

	// Local entries the mirror has not accepted yet.
	for key, e := range locals {
		if !seen[key] && st.stale(key, snap) {
			entries = append(entries, e)
		}
	}
	slices.SortFunc(entries, func(a, b domain.MoodEntry) int { return b.Date.Compare(a.Date) })
	return entries, outcome{source: SourceRemote}, nil
}

// Medications returns the medication list, preferring the mirror.
func (c *Coordinator) Medications(ctx context.Context) ([]domain.Medication, error) {
	c.flushBeforeRead(ctx, KindMedications)
	meds, o, err := c.readMedications(ctx)
	c.logFallback(KindMedications, o)
	return meds, err
}

func (c *Coordinator) readMedications(ctx context.Context) ([]domain.Medication, outcome, error) {
	local := func() ([]domain.Medication, outcome, error) {
		meds, err := c.store.Medications(ctx)
		return meds, outcome{source: SourceLocal}, err
	}

	userID, ok := c.userID(ctx)
	if !ok {
		return local()
	}

	st := c.kinds[KindMedications]
	snap := st.snapshot()

	var remote []domain.Medication
	err := c.remote(ctx, func(ctx context.Context) error {
		var err error
		remote, err = c.mirror.ListMedications(ctx, userID)
		return err
	})
	if err != nil {
		meds, o, lerr := local()
		o.remoteErr = err
		return meds, o, lerr
	}

	if remote == nil {
		remote = []domain.Medication{}
	}

	st.mu.Lock()
	if st.stale(collectionKey, snap) {
		st.mu.Unlock()
		return local()
	}
	previous, _ := c.store.Medications(ctx)
	err = c.store.ReplaceMedications(ctx, remote)
	st.mu.Unlock()

	if err != nil {
		c.log.Warn("refreshing local medications failed", "error", err)
	} else if c.onMedications != nil && !sameMedications(previous, remote) {
		c.onMedications(slices.Clone(remote))
	}
	return remote, outcome{source: SourceRemote}, nil
}

// savedAfter compares save times at millisecond grain; the mirror keeps
// fewer digits than the local clock.
func savedAfter(local, remote time.Time) bool {
	return local.Truncate(time.Millisecond).After(remote.Truncate(time.Millisecond))
}

func sameMedications(a, b []domain.Medication) bool {
	return slices.EqualFunc(a, b, func(x, y domain.Medication) bool {
		return x.ID == y.ID && x.Name == y.Name && x.Dose == y.Dose &&
			x.RemindersEnabled == y.RemindersEnabled && x.IsPRN == y.IsPRN &&
			slices.Equal(x.Times, y.Times)
	})
}

// SafetyPlan returns the safety plan, preferring the mirror.
func (c *Coordinator) SafetyPlan(ctx context.Context) (domain.SafetyPlan, error) {
	c.flushBeforeRead(ctx, KindSafetyPlan)
	p, o, err := c.readSafetyPlan(ctx)
	c.logFallback(KindSafetyPlan, o)
	return p, err
}

func (c *Coordinator) readSafetyPlan(ctx context.Context) (domain.SafetyPlan, outcome, error) {
	local := func() (domain.SafetyPlan, outcome, error) {
		p, err := c.store.SafetyPlan(ctx)
		return p, outcome{source: SourceLocal}, err
	}

	userID, ok := c.userID(ctx)
	if !ok {
		return local()
	}

	st := c.kinds[KindSafetyPlan]
	snap := st.snapshot()

	var remote domain.SafetyPlan
	err := c.remote(ctx, func(ctx context.Context) error {
		var err error
		remote, err = c.mirror.SafetyPlan(ctx, userID)
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		return local()
	}
	if err == nil {
		err = remote.Validate()
	}
	if err != nil {
		p, o, lerr := local()
		o.remoteErr = err
		return p, o, lerr
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.stale(singletonKey, snap) {
		return local()
	}
	if mine, err := c.store.SafetyPlan(ctx); err == nil && savedAfter(mine.UpdatedAt, remote.UpdatedAt) {
		st.markDirty(singletonKey)
		return mine, outcome{source: SourceLocal}, nil
	}
	if err := c.store.SaveSafetyPlan(ctx, remote); err != nil {
		c.log.Warn("refreshing local safety plan failed", "error", err)
	}
	return remote, outcome{source: SourceRemote}, nil
}
