package sync

import (
	"context"
	"errors"
	"slices"
	gosync "sync"
	"sync/atomic"

	"github.com/andreagonzahe/lunaria-app/internal/auth"
	"github.com/andreagonzahe/lunaria-app/internal/domain"
	"github.com/andreagonzahe/lunaria-app/internal/localstore"
)

var errRemoteDown = errors.New("remote unavailable")

type fakeSessions struct {
	user *auth.User
	err  error
}

func (f *fakeSessions) CurrentUser(context.Context) (*auth.User, error) {
	return f.user, f.err
}

func signedIn(id string) *fakeSessions {
	return &fakeSessions{user: &auth.User{ID: id}}
}

// fakeMirror keeps one user's records in memory. fail makes every call of a
// kind return the given error; failCall does the same for one named call.
// hold, when set, parks the named call until the channel is closed, after
// signalling on started.
type fakeMirror struct {
	mu       gosync.Mutex
	profiles map[string]domain.UserProfile
	entries  map[string]map[string]domain.MoodEntry
	meds     map[string][]domain.Medication
	plans    map[string]domain.SafetyPlan

	fail     map[Kind]error
	failCall map[string]error
	hold     map[string]chan struct{}
	started  chan string
	writes   atomic.Int32
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{
		profiles: make(map[string]domain.UserProfile),
		entries:  make(map[string]map[string]domain.MoodEntry),
		meds:     make(map[string][]domain.Medication),
		plans:    make(map[string]domain.SafetyPlan),
		fail:     make(map[Kind]error),
		failCall: make(map[string]error),
		hold:     make(map[string]chan struct{}),
		started:  make(chan string, 8),
	}
}

func (f *fakeMirror) enter(ctx context.Context, call string, kind Kind) error {
	f.mu.Lock()
	err := f.fail[kind]
	if e := f.failCall[call]; e != nil {
		err = e
	}
	wait := f.hold[call]
	f.mu.Unlock()

	if wait != nil {
		f.started <- call
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeMirror) setFail(kind Kind, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[kind] = err
}

func (f *fakeMirror) setFailCall(call string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failCall[call] = err
}

func (f *fakeMirror) entry(userID string, d domain.Date) (domain.MoodEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[userID][d.String()]
	return e, ok
}

func (f *fakeMirror) holdCall(call string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.hold[call] = ch
	return ch
}

func (f *fakeMirror) UpsertProfile(ctx context.Context, userID string, p domain.UserProfile) error {
	if err := f.enter(ctx, "UpsertProfile", KindProfile); err != nil {
		return err
	}
	f.writes.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[userID] = p
	return nil
}

func (f *fakeMirror) Profile(ctx context.Context, userID string) (domain.UserProfile, error) {
	if err := f.enter(ctx, "Profile", KindProfile); err != nil {
		return domain.UserProfile{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return domain.UserProfile{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeMirror) UpsertMoodEntry(ctx context.Context, userID string, e domain.MoodEntry) error {
	if err := f.enter(ctx, "UpsertMoodEntry", KindMoodEntries); err != nil {
		return err
	}
	f.writes.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.entries[userID] == nil {
		f.entries[userID] = make(map[string]domain.MoodEntry)
	}
	f.entries[userID][e.Date.String()] = e
	return nil
}

// ListMoodEntries captures its result before any hold, like a query whose
// response is still on the wire.
func (f *fakeMirror) ListMoodEntries(ctx context.Context, userID string, r domain.DateRange) ([]domain.MoodEntry, error) {
	f.mu.Lock()
	var out []domain.MoodEntry
	for _, e := range f.entries[userID] {
		if r.Contains(e.Date) {
			out = append(out, e)
		}
	}
	f.mu.Unlock()

	if err := f.enter(ctx, "ListMoodEntries", KindMoodEntries); err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b domain.MoodEntry) int { return b.Date.Compare(a.Date) })
	return out, nil
}

func (f *fakeMirror) ReplaceMedications(ctx context.Context, userID string, meds []domain.Medication) error {
	if err := f.enter(ctx, "ReplaceMedications", KindMedications); err != nil {
		return err
	}
	f.writes.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meds[userID] = slices.Clone(meds)
	return nil
}

func (f *fakeMirror) ListMedications(ctx context.Context, userID string) ([]domain.Medication, error) {
	if err := f.enter(ctx, "ListMedications", KindMedications); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.meds[userID]), nil
}

func (f *fakeMirror) UpsertSafetyPlan(ctx context.Context, userID string, p domain.SafetyPlan) error {
	if err := f.enter(ctx, "UpsertSafetyPlan", KindSafetyPlan); err != nil {
		return err
	}
	f.writes.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plans[userID] = p
	return nil
}

func (f *fakeMirror) SafetyPlan(ctx context.Context, userID string) (domain.SafetyPlan, error) {
	if err := f.enter(ctx, "SafetyPlan", KindSafetyPlan); err != nil {
		return domain.SafetyPlan{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.plans[userID]
	if !ok {
		return domain.SafetyPlan{}, domain.ErrNotFound
	}
	return p, nil
}

// brokenStore fails every write while keeping reads working.
type brokenStore struct {
	*localstore.MemoryStore
}

var errDiskFull = errors.New("disk full")

func (brokenStore) SaveProfile(context.Context, domain.UserProfile) error        { return errDiskFull }
func (brokenStore) SaveMoodEntry(context.Context, domain.MoodEntry) error        { return errDiskFull }
func (brokenStore) ReplaceMedications(context.Context, []domain.Medication) error { return errDiskFull }
func (brokenStore) SaveSafetyPlan(context.Context, domain.SafetyPlan) error      { return errDiskFull }
func (brokenStore) ClearAll(context.Context) error                              { return errDiskFull }

// unreadableStore fails MoodEntries while failReads is set.
type unreadableStore struct {
	*localstore.MemoryStore
	failReads atomic.Bool
}

var errCorrupt = errors.New("cannot decrypt row")

func (s *unreadableStore) MoodEntries(ctx context.Context, r domain.DateRange) ([]domain.MoodEntry, error) {
	if s.failReads.Load() {
		return nil, errCorrupt
	}
	return s.MemoryStore.MoodEntries(ctx, r)
}
