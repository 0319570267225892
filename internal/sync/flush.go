package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/andreagonzahe/lunaria-app/internal/domain"
)

// flush re-sends every dirty key of kind whose earlier push failed or never
// ran. It does nothing while offline or when the kind is clean. A key is
// only cleared once the mirror accepts its value.
func (c *Coordinator) flush(ctx context.Context, kind Kind) error {
	st := c.kinds[kind]
	keys := st.unpushed()
	if len(keys) == 0 {
		return nil
	}
	userID, ok := c.userID(ctx)
	if !ok {
		return nil
	}

	var errs []error
	for key, seq := range keys {
		err := c.remote(ctx, func(ctx context.Context) error {
			return c.pushLocal(ctx, kind, key, userID)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("re-sending %s %s: %w", kind, key, err))
			continue
		}
		st.confirm(key, seq)
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	c.log.Debug("local changes re-sent", "kind", kind, "keys", len(keys))
	return nil
}

// flushBeforeRead is flush for the read paths, where a failure only costs a
// log line: the dirty keys keep being served from the local store.
func (c *Coordinator) flushBeforeRead(ctx context.Context, kind Kind) {
	if err := c.flush(ctx, kind); err != nil {
		c.log.Warn("re-sending local changes failed", "kind", kind, "error", err)
	}
}

// pushLocal sends the local copy of one record to the mirror. A record that
// is gone locally has nothing to send.
func (c *Coordinator) pushLocal(ctx context.Context, kind Kind, key, userID string) error {
	var err error
	switch kind {
	case KindProfile:
		var p domain.UserProfile
		if p, err = c.store.Profile(ctx); err == nil {
			p.ID = userID
			err = c.mirror.UpsertProfile(ctx, userID, p)
		}
	case KindMoodEntries:
		var date domain.Date
		if date, err = domain.ParseDate(key); err != nil {
			return err
		}
		var e domain.MoodEntry
		if e, err = c.store.MoodEntry(ctx, date); err == nil {
			err = c.mirror.UpsertMoodEntry(ctx, userID, e)
		}
	case KindMedications:
		var meds []domain.Medication
		if meds, err = c.store.Medications(ctx); err == nil {
			err = c.mirror.ReplaceMedications(ctx, userID, meds)
		}
	case KindSafetyPlan:
		var p domain.SafetyPlan
		if p, err = c.store.SafetyPlan(ctx); err == nil {
			err = c.mirror.UpsertSafetyPlan(ctx, userID, p)
		}
	default:
		return fmt.Errorf("unknown kind %q", kind)
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}
