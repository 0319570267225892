package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andreagonzahe/lunaria-app/internal/domain"
)

// KindResult is the outcome of pulling one kind.
type KindResult struct {
	Kind   Kind   `json:"kind"`
	Source Source `json:"source"`
	Count  int    `json:"count"`
	Err    error  `json:"-"`
}

// Report contains the result of a SyncAll call.
type Report struct {
	SyncedAt time.Time    `json:"syncedAt"`
	Skipped  bool         `json:"skipped"` // no session
	Results  []KindResult `json:"results"`
}

// Err joins the errors of every kind that failed, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Kind, res.Err))
		}
	}
	return errors.Join(errs...)
}

// CanSync reports whether a non-forced sync is allowed now, and if not, when
// it will be.
func (c *Coordinator) CanSync() (bool, time.Time) {
	c.syncMu.Lock()
	defer c.syncMu.Unlock()
	return c.canSyncLocked()
}

func (c *Coordinator) canSyncLocked() (bool, time.Time) {
	if c.lastSync.IsZero() {
		return true, time.Time{}
	}
	next := c.lastSync.Add(c.syncCooldown)
	if c.now().Before(next) {
		return false, next
	}
	return true, time.Time{}
}

// SyncAll pulls every kind from the mirror into the local store, one after
// another. A failing kind is recorded in the report and does not stop the
// others. Returns ErrSyncTooRecent if called within the cooldown period; set
// force to bypass it (for the first sync after sign-in).
func (c *Coordinator) SyncAll(ctx context.Context, force bool) (*Report, error) {
	c.syncMu.Lock()
	defer c.syncMu.Unlock()

	if !force {
		if ok, next := c.canSyncLocked(); !ok {
			return nil, fmt.Errorf("%w: next sync available at %s", ErrSyncTooRecent, next.Format(time.RFC3339))
		}
	}

	report := &Report{SyncedAt: c.now().UTC()}
	if _, ok := c.userID(ctx); !ok {
		report.Skipped = true
		return report, nil
	}
	c.lastSync = c.now()

	for _, kind := range Kinds {
		res := c.pull(ctx, kind)
		if res.Err != nil {
			c.log.Warn("sync of kind failed", "kind", kind, "source", res.Source, "error", res.Err)
		}
		report.Results = append(report.Results, res)
	}

	c.log.Info("sync complete", "kinds", len(report.Results), "failed", report.Err() != nil)
	return report, nil
}

// pull re-sends the kind's unpushed local changes, then reads it back from
// the mirror. A failed re-send is reported even when the read succeeds.
func (c *Coordinator) pull(ctx context.Context, kind Kind) KindResult {
	res := KindResult{Kind: kind}
	flushErr := c.flush(ctx, kind)

	// A missing singleton is not a failure.
	singleton := func(o outcome, err error) {
		res.Source = o.source
		switch {
		case errors.Is(err, domain.ErrNotFound):
		case err != nil:
			res.Err = err
		default:
			res.Count = 1
		}
		if res.Err == nil {
			res.Err = o.remoteErr
		}
	}

	switch kind {
	case KindProfile:
		_, o, err := c.readProfile(ctx)
		singleton(o, err)
	case KindMoodEntries:
		entries, o, err := c.readMoodEntries(ctx, domain.DateRange{})
		res.Source, res.Count, res.Err = o.source, len(entries), errors.Join(err, o.remoteErr)
	case KindMedications:
		meds, o, err := c.readMedications(ctx)
		res.Source, res.Count, res.Err = o.source, len(meds), errors.Join(err, o.remoteErr)
	case KindSafetyPlan:
		_, o, err := c.readSafetyPlan(ctx)
		singleton(o, err)
	default:
		res.Err = fmt.Errorf("unknown kind %q", kind)
	}
	if flushErr != nil {
		res.Err = errors.Join(res.Err, flushErr)
	}
	return res
}
