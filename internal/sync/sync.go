// Package sync keeps the on-device store and the remote mirror in step.
//
// Writes always land in the local store first and are then pushed to the
// mirror on a best-effort basis. Reads prefer the mirror when a session exists
// and fall back to the local copy on any failure.
package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/andreagonzahe/lunaria-app/internal/auth"
	"github.com/andreagonzahe/lunaria-app/internal/domain"
	"github.com/andreagonzahe/lunaria-app/internal/logger"
)

// Common errors.
var (
	// ErrSyncTooRecent is returned when sync is attempted within the cooldown period.
	ErrSyncTooRecent = errors.New("sync attempted too recently")

	// ErrLocalWrite is returned when the local store rejects a write. The
	// caller should offer a retry.
	ErrLocalWrite = errors.New("local write failed")
)

const (
	// DefaultSyncCooldown is the default time between allowed full syncs.
	DefaultSyncCooldown = 30 * time.Second

	// DefaultRemoteTimeout bounds every call to the mirror.
	DefaultRemoteTimeout = 10 * time.Second
)

// Store is the local persistence the coordinator writes through.
type Store interface {
	SaveProfile(ctx context.Context, p domain.UserProfile) error
	Profile(ctx context.Context) (domain.UserProfile, error)
	SaveMoodEntry(ctx context.Context, e domain.MoodEntry) error
	MoodEntries(ctx context.Context, r domain.DateRange) ([]domain.MoodEntry, error)
	MoodEntry(ctx context.Context, date domain.Date) (domain.MoodEntry, error)
	ReplaceMedications(ctx context.Context, meds []domain.Medication) error
	Medications(ctx context.Context) ([]domain.Medication, error)
	SaveSafetyPlan(ctx context.Context, p domain.SafetyPlan) error
	SafetyPlan(ctx context.Context) (domain.SafetyPlan, error)
	ClearAll(ctx context.Context) error
}

// Mirror is the remote copy, scoped per user.
type Mirror interface {
	UpsertProfile(ctx context.Context, userID string, p domain.UserProfile) error
	Profile(ctx context.Context, userID string) (domain.UserProfile, error)
	UpsertMoodEntry(ctx context.Context, userID string, e domain.MoodEntry) error
	ListMoodEntries(ctx context.Context, userID string, r domain.DateRange) ([]domain.MoodEntry, error)
	ReplaceMedications(ctx context.Context, userID string, meds []domain.Medication) error
	ListMedications(ctx context.Context, userID string) ([]domain.Medication, error)
	UpsertSafetyPlan(ctx context.Context, userID string, p domain.SafetyPlan) error
	SafetyPlan(ctx context.Context, userID string) (domain.SafetyPlan, error)
}

// SessionProvider reports the signed-in user, or nil when offline.
type SessionProvider interface {
	CurrentUser(ctx context.Context) (*auth.User, error)
}

// Kind names one category of synchronized record.
type Kind string

// Kind values, in SyncAll order.
const (
	KindProfile     Kind = "profile"
	KindMoodEntries Kind = "mood_entries"
	KindMedications Kind = "medications"
	KindSafetyPlan  Kind = "safety_plan"
)

// Kinds lists every kind in the order SyncAll pulls them.
var Kinds = []Kind{KindProfile, KindMoodEntries, KindMedications, KindSafetyPlan}

// Record keys of kinds that are stored as a single unit.
const (
	singletonKey  = "current"
	collectionKey = "all"
)

// Coordinator mediates every read and write between the app, the local
// store and the mirror.
type Coordinator struct {
	store         Store
	mirror        Mirror
	sessions      SessionProvider
	log           *logger.Logger
	now           func() time.Time
	remoteTimeout time.Duration
	syncCooldown  time.Duration

	kinds map[Kind]*kindState

	syncMu   gosync.Mutex
	lastSync time.Time

	onMedications func([]domain.Medication)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRemoteTimeout bounds each mirror call.
func WithRemoteTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.remoteTimeout = d
	}
}

// WithSyncCooldown sets the minimum time between non-forced full syncs.
func WithSyncCooldown(d time.Duration) Option {
	return func(c *Coordinator) {
		c.syncCooldown = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Coordinator) {
		c.log = l
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// WithMedicationsObserver registers fn to be called, outside any lock, when a
// remote read changes the local medication list.
func WithMedicationsObserver(fn func([]domain.Medication)) Option {
	return func(c *Coordinator) {
		c.onMedications = fn
	}
}

// New creates a Coordinator. sessions may be nil, which means always offline.
func New(store Store, mirror Mirror, sessions SessionProvider, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:         store,
		mirror:        mirror,
		sessions:      sessions,
		log:           logger.Nop(),
		now:           time.Now,
		remoteTimeout: DefaultRemoteTimeout,
		syncCooldown:  DefaultSyncCooldown,
		kinds:         make(map[Kind]*kindState, len(Kinds)),
	}
	for _, k := range Kinds {
		c.kinds[k] = newKindState()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// kindState serializes writes and cache refreshes of one kind and tracks
// which keys were written locally, so a slow remote read never replaces a
// newer local write. A key stays dirty from its local write until the mirror
// accepts that exact value.
type kindState struct {
	mu        gosync.Mutex
	seq       uint64
	lastWrite map[string]uint64
	pending   map[string]int // remote pushes still in flight
	dirty     map[string]struct{}
}

func newKindState() *kindState {
	return &kindState{
		lastWrite: make(map[string]uint64),
		pending:   make(map[string]int),
		dirty:     make(map[string]struct{}),
	}
}

// recordWrite must be called with mu held. It returns the write's sequence
// number.
func (k *kindState) recordWrite(key string) uint64 {
	k.seq++
	k.lastWrite[key] = k.seq
	k.pending[key]++
	k.dirty[key] = struct{}{}
	return k.seq
}

// settle marks one remote push of key as finished. A push that landed clears
// the dirty mark unless a later write has replaced the value it sent.
func (k *kindState) settle(key string, seq uint64, pushed bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pending[key]--
	if k.pending[key] <= 0 {
		delete(k.pending, key)
	}
	if pushed {
		k.confirmLocked(key, seq)
	}
}

// confirm clears the dirty mark of key if it was not written after seq.
func (k *kindState) confirm(key string, seq uint64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.confirmLocked(key, seq)
}

func (k *kindState) confirmLocked(key string, seq uint64) {
	if k.lastWrite[key] == seq {
		delete(k.dirty, key)
	}
}

// markDirty must be called with mu held.
func (k *kindState) markDirty(key string) {
	k.dirty[key] = struct{}{}
}

// unpushed returns the dirty keys with no push in flight, each with the
// sequence number of its last local write.
func (k *kindState) unpushed() map[string]uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make(map[string]uint64, len(k.dirty))
	for key := range k.dirty {
		if k.pending[key] == 0 {
			out[key] = k.lastWrite[key]
		}
	}
	return out
}

func (k *kindState) snapshot() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.seq
}

// stale reports whether a remote value for key read after snap must not
// replace the local one. Must be called with mu held.
func (k *kindState) stale(key string, snap uint64) bool {
	if _, ok := k.dirty[key]; ok {
		return true
	}
	return k.lastWrite[key] > snap || k.pending[key] > 0
}

func (k *kindState) reset() {
	k.seq = 0
	clear(k.lastWrite)
	clear(k.pending)
	clear(k.dirty)
}

// userID returns the signed-in user's id. Session errors are treated as
// being offline.
func (c *Coordinator) userID(ctx context.Context) (string, bool) {
	if c.sessions == nil || c.mirror == nil {
		return "", false
	}
	u, err := c.sessions.CurrentUser(ctx)
	if err != nil {
		c.log.Warn("reading session failed; continuing offline", "error", err)
		return "", false
	}
	if u == nil || u.ID == "" {
		return "", false
	}
	return u.ID, true
}

// remote runs fn with the remote timeout applied.
func (c *Coordinator) remote(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.remoteTimeout)
	defer cancel()
	return fn(ctx)
}

// ClearAll wipes the local store. It is the account deletion path; the
// mirror is left to the remote account's own deletion.
func (c *Coordinator) ClearAll(ctx context.Context) error {
	for _, k := range Kinds {
		st := c.kinds[k]
		st.mu.Lock()
		defer st.mu.Unlock()
	}

	if err := c.store.ClearAll(ctx); err != nil {
		return fmt.Errorf("%w: clearing local data: %w", ErrLocalWrite, err)
	}
	for _, k := range Kinds {
		c.kinds[k].reset()
	}

	c.syncMu.Lock()
	c.lastSync = time.Time{}
	c.syncMu.Unlock()
	return nil
}
