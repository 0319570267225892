package localstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreagonzahe/lunaria-app/internal/domain"
	"github.com/andreagonzahe/lunaria-app/internal/mood"
)

func newSQLite(t *testing.T, secret string) *SQLiteStore {
	t.Helper()
	sealer, err := NewSealer([]byte(secret))
	require.NoError(t, err)
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "data", "lunaria.db"), sealer)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// forEachStore runs fn against every Store implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLite(t, "device-secret")) })
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
}

func testEntry(t *testing.T, date string, mania int) domain.MoodEntry {
	t.Helper()
	c := domain.EmptyChecklist()
	for i := 0; i < mania; i++ {
		c.Mania[i] = true
	}
	e, err := mood.NewEntry(domain.MustParseDate(date), c,
		mood.WithCreatedAt(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	return e
}

func TestStore_Profile(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, err := s.Profile(ctx)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		last := domain.MustParseDate("2025-01-01")
		p := domain.UserProfile{
			ID:        "local-1",
			Diagnosis: domain.DiagnosisBipolar2,
			CycleTracking: domain.CycleTracking{
				IsAutomatic:        true,
				LastPeriodDate:     &last,
				AverageCycleLength: 30,
			},
			CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		}
		require.NoError(t, s.SaveProfile(ctx, p))
		require.NoError(t, s.SaveProfile(ctx, p))

		got, err := s.Profile(ctx)
		require.NoError(t, err)
		assert.Equal(t, p, got)

		p.OnboardingComplete = true
		require.NoError(t, s.SaveProfile(ctx, p))
		got, err = s.Profile(ctx)
		require.NoError(t, err)
		assert.True(t, got.OnboardingComplete)
	})
}

func TestStore_RejectsInvalidProfile(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		err := s.SaveProfile(context.Background(), domain.UserProfile{Diagnosis: domain.DiagnosisOther})
		assert.ErrorIs(t, err, domain.ErrInvalidEntity)
	})
}

func TestStore_MoodEntries(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		for _, d := range []string{"2025-01-02", "2025-01-05", "2025-01-01", "2025-01-03"} {
			require.NoError(t, s.SaveMoodEntry(ctx, testEntry(t, d, 1)))
		}
		// Same date replaces, never duplicates.
		require.NoError(t, s.SaveMoodEntry(ctx, testEntry(t, "2025-01-03", 6)))

		all, err := s.MoodEntries(ctx, domain.DateRange{})
		require.NoError(t, err)
		var dates []string
		for _, e := range all {
			dates = append(dates, e.Date.String())
		}
		assert.Equal(t, []string{"2025-01-05", "2025-01-03", "2025-01-02", "2025-01-01"}, dates)

		got, err := s.MoodEntry(ctx, domain.MustParseDate("2025-01-03"))
		require.NoError(t, err)
		assert.Equal(t, domain.StateElevated, got.MoodState)
		assert.Equal(t, 6, got.Scores.Mania)

		ranged, err := s.MoodEntries(ctx, domain.DateRange{
			From: domain.MustParseDate("2025-01-02"),
			To:   domain.MustParseDate("2025-01-03"),
		})
		require.NoError(t, err)
		require.Len(t, ranged, 2)
		assert.Equal(t, "2025-01-03", ranged[0].Date.String())
		assert.Equal(t, "2025-01-02", ranged[1].Date.String())

		_, err = s.MoodEntry(ctx, domain.MustParseDate("2024-12-31"))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestStore_SaveMoodEntryRecomputesState(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		e := testEntry(t, "2025-01-10", 0)
		e.MoodState = domain.StateSafetyAlert
		e.Scores.Mania = 9

		require.NoError(t, s.SaveMoodEntry(ctx, e))
		got, err := s.MoodEntry(ctx, e.Date)
		require.NoError(t, err)
		assert.Equal(t, domain.StateBaseline, got.MoodState)
		assert.Zero(t, got.Scores.Mania)
	})
}

func TestStore_RejectsMalformedChecklist(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		e := domain.MoodEntry{
			Date:      domain.MustParseDate("2025-01-10"),
			Checklist: domain.Checklist{Mania: make([]bool, 3)},
		}
		err := s.SaveMoodEntry(context.Background(), e)
		assert.ErrorIs(t, err, domain.ErrInvalidChecklist)
	})
}

func TestStore_ReplaceMedications(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		empty, err := s.Medications(ctx)
		require.NoError(t, err)
		assert.Empty(t, empty)

		first := []domain.Medication{
			{ID: "b", Name: "Lamotrigine", Dose: "100mg", Times: []string{"08:00"}, RemindersEnabled: true},
			{ID: "a", Name: "Lithium", Dose: "300mg", Times: []string{"08:00", "20:00"}},
		}
		require.NoError(t, s.ReplaceMedications(ctx, first))

		got, err := s.Medications(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, got)

		second := []domain.Medication{{ID: "c", Name: "Quetiapine", Dose: "25mg", IsPRN: true}}
		require.NoError(t, s.ReplaceMedications(ctx, second))
		got, err = s.Medications(ctx)
		require.NoError(t, err)
		assert.Equal(t, []domain.Medication{{ID: "c", Name: "Quetiapine", Dose: "25mg", IsPRN: true}}, got)
	})
}

func TestStore_ReplaceMedicationsIsAtomic(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		good := []domain.Medication{{ID: "a", Name: "Lithium", Times: []string{"08:00"}}}
		require.NoError(t, s.ReplaceMedications(ctx, good))

		bad := []domain.Medication{
			{ID: "b", Name: "Valproate"},
			{ID: "c", Name: "Broken", Times: []string{"25:99"}},
		}
		assert.ErrorIs(t, s.ReplaceMedications(ctx, bad), domain.ErrInvalidEntity)

		got, err := s.Medications(ctx)
		require.NoError(t, err)
		assert.Equal(t, good, got)
	})
}

func TestStore_SafetyPlanAndClearAll(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		plan := domain.SafetyPlan{
			Content:          "Call Sam. Go for a walk.",
			Format:           domain.FormatText,
			EmergencyContact: &domain.EmergencyContact{Name: "Sam", Phone: "555-0100"},
			UpdatedAt:        time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		}
		require.NoError(t, s.SaveSafetyPlan(ctx, plan))
		require.NoError(t, s.SaveMoodEntry(ctx, testEntry(t, "2025-01-01", 0)))
		require.NoError(t, s.ReplaceMedications(ctx, []domain.Medication{{ID: "a", Name: "Lithium"}}))
		require.NoError(t, s.SaveProfile(ctx, domain.UserProfile{ID: "local-1", Diagnosis: domain.DiagnosisBipolar1}))

		got, err := s.SafetyPlan(ctx)
		require.NoError(t, err)
		assert.Equal(t, plan, got)

		require.NoError(t, s.ClearAll(ctx))

		_, err = s.SafetyPlan(ctx)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = s.Profile(ctx)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		entries, err := s.MoodEntries(ctx, domain.DateRange{})
		require.NoError(t, err)
		assert.Empty(t, entries)
		meds, err := s.Medications(ctx)
		require.NoError(t, err)
		assert.Empty(t, meds)
	})
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lunaria.db")
	sealer, err := NewSealer([]byte("device-secret"))
	require.NoError(t, err)

	s, err := OpenSQLite(ctx, path, sealer)
	require.NoError(t, err)
	require.NoError(t, s.SaveMoodEntry(ctx, testEntry(t, "2025-01-01", 5)))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path, sealer)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.MoodEntry(ctx, domain.MustParseDate("2025-01-01"))
	require.NoError(t, err)
	assert.Equal(t, domain.StateElevated, got.MoodState)
}

func TestSQLiteStore_SafetyPlanNeedsSameSecret(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lunaria.db")

	right, err := NewSealer([]byte("device-secret"))
	require.NoError(t, err)
	s, err := OpenSQLite(ctx, path, right)
	require.NoError(t, err)
	require.NoError(t, s.SaveSafetyPlan(ctx, domain.SafetyPlan{Content: "plan", Format: domain.FormatText}))
	require.NoError(t, s.Close())

	wrong, err := NewSealer([]byte("other-secret"))
	require.NoError(t, err)
	s, err = OpenSQLite(ctx, path, wrong)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.SafetyPlan(ctx)
	assert.ErrorIs(t, err, ErrUnseal)
}
