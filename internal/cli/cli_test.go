package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/andreagonzahe/lunaria-app/internal/domain"
	"github.com/andreagonzahe/lunaria-app/internal/logger"
	lsync "github.com/andreagonzahe/lunaria-app/internal/sync"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	for _, k := range []string{
		"LUNARIA_CONFIG", "LUNARIA_DEVICE_SECRET", "DATABASE_URL", "LUNARIA_AUTH_URL",
		"LUNARIA_PASSWORD", "VAPID_PUBLIC_KEY", "VAPID_PRIVATE_KEY", "VAPID_SUBJECT",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("LUNARIA_LOG_LEVEL", "error")
	dir := t.TempDir()
	t.Setenv("LUNARIA_DATA_DIR", dir)
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCheckItems(t *testing.T) {
	tests := []struct {
		name    string
		items   []int
		want    []bool
		wantErr bool
	}{
		{"none", nil, []bool{false, false, false, false}, false},
		{"first and last", []int{1, 4}, []bool{true, false, false, true}, false},
		{"repeated", []int{2, 2}, []bool{false, true, false, false}, false},
		{"zero", []int{0}, nil, true},
		{"past end", []int{5}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			section := make([]bool, 4)
			err := checkItems(section, "mixed", tt.items)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidChecklist) {
					t.Fatalf("checkItems() error = %v, want ErrInvalidChecklist", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("checkItems() error = %v", err)
			}
			for i := range section {
				if section[i] != tt.want[i] {
					t.Errorf("section = %v, want %v", section, tt.want)
					break
				}
			}
		})
	}
}

func TestReadPassword(t *testing.T) {
	t.Setenv("LUNARIA_PASSWORD", "")
	var out bytes.Buffer

	got, err := readPassword("flag-pw", strings.NewReader("stdin-pw\n"), &out)
	if err != nil || got != "flag-pw" {
		t.Errorf("readPassword(flag) = %q, %v", got, err)
	}

	got, err = readPassword("", strings.NewReader("stdin-pw\n"), &out)
	if err != nil || got != "stdin-pw" {
		t.Errorf("readPassword(stdin) = %q, %v", got, err)
	}

	t.Setenv("LUNARIA_PASSWORD", "env-pw")
	got, err = readPassword("", strings.NewReader(""), &out)
	if err != nil || got != "env-pw" {
		t.Errorf("readPassword(env) = %q, %v", got, err)
	}

	t.Setenv("LUNARIA_PASSWORD", "")
	if _, err := readPassword("", strings.NewReader(""), &out); err == nil {
		t.Error("readPassword() with no input should fail")
	}
}

func TestCommands_Offline(t *testing.T) {
	isolateEnv(t)

	if _, err := execute(t, "entries"); err == nil || !strings.Contains(err.Error(), "lunaria init") {
		t.Fatalf("entries before init: error = %v, want missing secret", err)
	}

	out, err := execute(t, "init")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(out, "device.key") {
		t.Errorf("init output = %q", out)
	}

	out, err = execute(t, "checkin", "--date", "2025-03-01", "--mania", "1,2,3,4,5,6")
	if err != nil {
		t.Fatalf("checkin: %v", err)
	}
	if !strings.Contains(out, "2025-03-01") || !strings.Contains(out, "mania 6") {
		t.Errorf("checkin output = %q", out)
	}

	if _, err := execute(t, "checkin", "--date", "2025-03-02", "--mixed", "9"); !errors.Is(err, domain.ErrInvalidChecklist) {
		t.Errorf("checkin with bad item: error = %v", err)
	}

	out, err = execute(t, "checkin", "--date", "2025-03-02", "--safety")
	if err != nil {
		t.Fatalf("checkin --safety: %v", err)
	}
	if !strings.Contains(out, "safety plan") {
		t.Errorf("safety check-in should point to the safety plan, got %q", out)
	}

	out, err = execute(t, "entries")
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if !strings.Contains(out, string(domain.StateElevated)) || !strings.Contains(out, string(domain.StateSafetyAlert)) {
		t.Errorf("entries output = %q", out)
	}
	if strings.Index(out, "2025-03-02") > strings.Index(out, "2025-03-01") {
		t.Error("entries should list the newest day first")
	}

	out, err = execute(t, "insights")
	if err != nil {
		t.Fatalf("insights: %v", err)
	}
	if !strings.Contains(out, "2 days recorded") || !strings.Contains(out, "Keep checking in") {
		t.Errorf("insights output = %q", out)
	}

	out, err = execute(t, "sync")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !strings.Contains(out, "Not signed in") {
		t.Errorf("sync output = %q", out)
	}

	if _, err := execute(t, "login", "--email", "a@b.c", "--password", "pw"); err == nil {
		t.Error("login without an auth server should fail")
	}

	if _, err := execute(t, "wipe"); err == nil {
		t.Error("wipe without --yes should fail")
	}
	if _, err := execute(t, "wipe", "--yes"); err != nil {
		t.Fatalf("wipe: %v", err)
	}
	out, err = execute(t, "entries")
	if err != nil {
		t.Fatalf("entries after wipe: %v", err)
	}
	if !strings.Contains(out, "No check-ins") {
		t.Errorf("entries after wipe = %q", out)
	}
}

func TestCheckIn_List(t *testing.T) {
	out, err := execute(t, "checkin", "--list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "--mania") || !strings.Contains(out, " 1. ") {
		t.Errorf("questionnaire output = %q", out)
	}
}

type recordingSyncer struct {
	forced []bool
	report *lsync.Report
	err    error
}

func (s *recordingSyncer) SyncAll(_ context.Context, force bool) (*lsync.Report, error) {
	s.forced = append(s.forced, force)
	return s.report, s.err
}

func TestSyncOnStart(t *testing.T) {
	tests := []struct {
		name string
		s    *recordingSyncer
	}{
		{"synced", &recordingSyncer{report: &lsync.Report{}}},
		{"not signed in", &recordingSyncer{report: &lsync.Report{Skipped: true}}},
		{"kind failed", &recordingSyncer{report: &lsync.Report{Results: []lsync.KindResult{
			{Kind: lsync.KindMoodEntries, Err: errors.New("remote unavailable")},
		}}}},
		{"refused", &recordingSyncer{err: lsync.ErrSyncTooRecent}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			syncOnStart(context.Background(), tt.s, logger.Nop())
			if len(tt.s.forced) != 1 || !tt.s.forced[0] {
				t.Errorf("SyncAll calls = %v, want one forced call", tt.s.forced)
			}
		})
	}
}

func TestApp_RescheduleReplacesReminders(t *testing.T) {
	isolateEnv(t)
	if _, err := execute(t, "init"); err != nil {
		t.Fatalf("init: %v", err)
	}

	a, err := openApp(context.Background(), "")
	if err != nil {
		t.Fatalf("openApp: %v", err)
	}
	defer a.close()

	a.reschedule([]domain.Medication{
		{ID: "m1", Name: "Lithium", Times: []string{"08:00", "20:00"}, RemindersEnabled: true},
		{ID: "m2", Name: "Quetiapine", IsPRN: true},
	})
	if got := len(a.sched.Scheduled()); got != 2 {
		t.Fatalf("scheduled = %d, want 2", got)
	}

	a.reschedule([]domain.Medication{
		{ID: "m1", Name: "Lithium", Times: []string{"09:00"}, RemindersEnabled: true},
	})
	got := a.sched.Scheduled()
	if len(got) != 1 || got[0].Time != "09:00" {
		t.Errorf("scheduled after change = %+v, want one 09:00 trigger", got)
	}
}
