package sync

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/andreagonzahe/lunaria-app/internal/domain"
	"github.com/andreagonzahe/lunaria-app/internal/mood"
)

// localProfilePrefix marks profile ids generated while offline.
const localProfilePrefix = "local-"

// write persists one record locally under the kind's lock, then pushes it to
// the mirror outside the lock. Only the local step can fail the call.
func (c *Coordinator) write(ctx context.Context, kind Kind, key string,
	local func(ctx context.Context) error,
	push func(ctx context.Context, userID string) error,
) error {
	st := c.kinds[kind]

	st.mu.Lock()
	if err := local(ctx); err != nil {
		st.mu.Unlock()
		if errors.Is(err, domain.ErrInvalidEntity) || errors.Is(err, domain.ErrInvalidChecklist) {
			return err
		}
		return fmt.Errorf("%w: saving %s: %w", ErrLocalWrite, kind, err)
	}
	seq := st.recordWrite(key)
	st.mu.Unlock()

	// Until a push lands the key stays dirty and is re-sent by the next read
	// or SyncAll.
	pushed := false
	defer func() { st.settle(key, seq, pushed) }()

	userID, ok := c.userID(ctx)
	if !ok {
		c.log.Debug("no session; kept local only", "kind", kind, "key", key)
		return nil
	}
	err := c.remote(ctx, func(ctx context.Context) error {
		return push(ctx, userID)
	})
	if err != nil {
		c.log.Warn("remote write failed; local copy kept", "kind", kind, "key", key, "user_id", userID, "error", err)
		return nil
	}
	pushed = true
	return nil
}

// SaveProfile stores the profile. With a session the profile takes the
// account's id; otherwise an existing local id is kept or a new local one is
// generated.
func (c *Coordinator) SaveProfile(ctx context.Context, p domain.UserProfile) (domain.UserProfile, error) {
	if err := p.Validate(); err != nil {
		return domain.UserProfile{}, err
	}

	if userID, ok := c.userID(ctx); ok {
		p.ID = userID
	} else if p.ID == "" {
		if existing, err := c.store.Profile(ctx); err == nil && existing.ID != "" {
			p.ID = existing.ID
		} else {
			p.ID = localProfilePrefix + uuid.NewString()
		}
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = c.now().UTC()
	}

	err := c.write(ctx, KindProfile, singletonKey,
		func(ctx context.Context) error { return c.store.SaveProfile(ctx, p) },
		func(ctx context.Context, userID string) error { return c.mirror.UpsertProfile(ctx, userID, p) },
	)
	if err != nil {
		return domain.UserProfile{}, err
	}
	return p, nil
}

// SaveMoodEntry stores the day's entry, replacing any entry on the same date.
// Scores and state are recomputed from the checklist before anything is written.
func (c *Coordinator) SaveMoodEntry(ctx context.Context, e domain.MoodEntry) (domain.MoodEntry, error) {
	e, err := mood.Normalize(e)
	if err != nil {
		return domain.MoodEntry{}, err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = c.now().UTC()
	}

	err = c.write(ctx, KindMoodEntries, e.Date.String(),
		func(ctx context.Context) error { return c.store.SaveMoodEntry(ctx, e) },
		func(ctx context.Context, userID string) error { return c.mirror.UpsertMoodEntry(ctx, userID, e) },
	)
	if err != nil {
		return domain.MoodEntry{}, err
	}
	return e, nil
}

// SaveMedications replaces the whole medication list. Medications without an
// id are given one.
func (c *Coordinator) SaveMedications(ctx context.Context, meds []domain.Medication) ([]domain.Medication, error) {
	meds = slices.Clone(meds)
	for i := range meds {
		meds[i].Name = strings.TrimSpace(meds[i].Name)
		if meds[i].ID == "" {
			meds[i].ID = uuid.NewString()
		}
		if err := meds[i].Validate(); err != nil {
			return nil, err
		}
	}

	err := c.write(ctx, KindMedications, collectionKey,
		func(ctx context.Context) error { return c.store.ReplaceMedications(ctx, meds) },
		func(ctx context.Context, userID string) error { return c.mirror.ReplaceMedications(ctx, userID, meds) },
	)
	if err != nil {
		return nil, err
	}
	return meds, nil
}

// SaveSafetyPlan stores the plan and stamps its update time.
func (c *Coordinator) SaveSafetyPlan(ctx context.Context, p domain.SafetyPlan) (domain.SafetyPlan, error) {
	if err := p.Validate(); err != nil {
		return domain.SafetyPlan{}, err
	}
	p.UpdatedAt = c.now().UTC()

	err := c.write(ctx, KindSafetyPlan, singletonKey,
		func(ctx context.Context) error { return c.store.SaveSafetyPlan(ctx, p) },
		func(ctx context.Context, userID string) error { return c.mirror.UpsertSafetyPlan(ctx, userID, p) },
	)
	if err != nil {
		return domain.SafetyPlan{}, err
	}
	return p, nil
}
