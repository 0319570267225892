package localstore

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/andreagonzahe/lunaria-app/internal/domain"
)

// MemoryStore is an in-process Store. Records are kept encoded so callers
// never share memory with the store.
type MemoryStore struct {
	mu          sync.Mutex
	profile     []byte
	entries     map[string][]byte
	medications [][]byte
	safetyPlan  []byte
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]byte)}
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) SaveProfile(ctx context.Context, p domain.UserProfile) error {
	payload, err := encodeProfile(p)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = payload
	return nil
}

func (s *MemoryStore) Profile(ctx context.Context) (domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return domain.UserProfile{}, domain.ErrNotFound
	}
	return decode[domain.UserProfile](BucketProfile, s.profile)
}

func (s *MemoryStore) SaveMoodEntry(ctx context.Context, e domain.MoodEntry) error {
	key, payload, err := encodeEntry(e)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = payload
	return nil
}

func (s *MemoryStore) MoodEntry(ctx context.Context, date domain.Date) (domain.MoodEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.entries[date.String()]
	if !ok {
		return domain.MoodEntry{}, domain.ErrNotFound
	}
	return decode[domain.MoodEntry](BucketMoodEntries, payload)
}

func (s *MemoryStore) MoodEntries(ctx context.Context, r domain.DateRange) ([]domain.MoodEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := slices.SortedFunc(maps.Keys(s.entries), func(a, b string) int {
		return strings.Compare(b, a)
	})

	entries := []domain.MoodEntry{}
	for _, k := range keys {
		e, err := decode[domain.MoodEntry](BucketMoodEntries, s.entries[k])
		if err != nil {
			return nil, err
		}
		if r.Contains(e.Date) {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (s *MemoryStore) ReplaceMedications(ctx context.Context, meds []domain.Medication) error {
	payloads := make([][]byte, 0, len(meds))
	for _, m := range meds {
		payload, err := encodeMedication(m)
		if err != nil {
			return err
		}
		payloads = append(payloads, payload)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.medications = payloads
	return nil
}

func (s *MemoryStore) Medications(ctx context.Context) ([]domain.Medication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meds := make([]domain.Medication, 0, len(s.medications))
	for _, payload := range s.medications {
		m, err := decode[domain.Medication](BucketMedications, payload)
		if err != nil {
			return nil, err
		}
		meds = append(meds, m)
	}
	return meds, nil
}

func (s *MemoryStore) SaveSafetyPlan(ctx context.Context, p domain.SafetyPlan) error {
	payload, err := encodeSafetyPlan(p)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.safetyPlan = payload
	return nil
}

func (s *MemoryStore) SafetyPlan(ctx context.Context) (domain.SafetyPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.safetyPlan == nil {
		return domain.SafetyPlan{}, domain.ErrNotFound
	}
	return decode[domain.SafetyPlan](BucketSafetyPlan, s.safetyPlan)
}

func (s *MemoryStore) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = nil
	s.entries = make(map[string][]byte)
	s.medications = nil
	s.safetyPlan = nil
	return nil
}
