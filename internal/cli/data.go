package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/andreagonzahe/lunaria-app/internal/cycle"
	"github.com/andreagonzahe/lunaria-app/internal/domain"
	"github.com/andreagonzahe/lunaria-app/internal/mood"
	"github.com/andreagonzahe/lunaria-app/internal/patterns"
	lsync "github.com/andreagonzahe/lunaria-app/internal/sync"
)

// checkItems marks the given 1-based item numbers in section.
func checkItems(section []bool, name string, items []int) error {
	for _, n := range items {
		if n < 1 || n > len(section) {
			return fmt.Errorf("%w: %s item %d out of range 1-%d", domain.ErrInvalidChecklist, name, n, len(section))
		}
		section[n-1] = true
	}
	return nil
}

func newCheckInCommand(open opener) *cobra.Command {
	var (
		date         string
		mania        []int
		depression   []int
		mixed        []int
		safety       bool
		phase        string
		sleepHours   float64
		sleepQuality string
	)

	cmd := &cobra.Command{
		Use:   "checkin",
		Short: "Record the daily mood checklist",
		Long: `Record the daily mood checklist. Items are given by their number in
each section; run "lunaria checkin --list" to see them.

Example:
  lunaria checkin --mania 1,4,7 --depression 2 --sleep-hours 6.5 --sleep-quality medium`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if list, _ := cmd.Flags().GetBool("list"); list {
				printQuestionnaire(cmd.OutOrStdout())
				return nil
			}

			day := domain.Today()
			if date != "" {
				d, err := domain.ParseDate(date)
				if err != nil {
					return err
				}
				day = d
			}

			checklist := domain.EmptyChecklist()
			checklist.Safety = safety
			if err := errors.Join(
				checkItems(checklist.Mania, "mania", mania),
				checkItems(checklist.Depression, "depression", depression),
				checkItems(checklist.Mixed, "mixed", mixed),
			); err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := open(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			var opts []mood.EntryOption
			switch {
			case phase != "":
				opts = append(opts, mood.WithPhase(domain.CyclePhase(phase)))
			default:
				if p, err := a.coord.Profile(ctx); err == nil {
					if est, ok := cycle.Estimate(p.CycleTracking, day); ok {
						opts = append(opts, mood.WithPhase(est))
					}
				}
			}
			if cmd.Flags().Changed("sleep-hours") || sleepQuality != "" {
				if sleepQuality == "" {
					sleepQuality = string(domain.SleepMedium)
				}
				opts = append(opts, mood.WithSleep(sleepHours, domain.SleepQuality(sleepQuality)))
			}

			entry, err := mood.NewEntry(day, checklist, opts...)
			if err != nil {
				return err
			}
			saved, err := a.coord.SaveMoodEntry(ctx, entry)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s (mania %d, depression %d, mixed %d)\n",
				saved.Date, mood.StateLabel(saved.MoodState),
				saved.Scores.Mania, saved.Scores.Depression, saved.Scores.Mixed)
			if saved.MoodState == domain.StateSafetyAlert {
				fmt.Fprintln(out, "Please open your safety plan or contact your emergency contact now.")
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.Bool("list", false, "print the questionnaire and exit")
	f.StringVar(&date, "date", "", "day to record, YYYY-MM-DD (default today)")
	f.IntSliceVar(&mania, "mania", nil, "checked mania items")
	f.IntSliceVar(&depression, "depression", nil, "checked depression items")
	f.IntSliceVar(&mixed, "mixed", nil, "checked mixed items")
	f.BoolVar(&safety, "safety", false, "thoughts of self-harm today")
	f.StringVar(&phase, "phase", "", "cycle phase (estimated when tracking is automatic)")
	f.Float64Var(&sleepHours, "sleep-hours", 0, "hours slept last night")
	f.StringVar(&sleepQuality, "sleep-quality", "", "good, medium or bad")
	return cmd
}

func printQuestionnaire(w io.Writer) {
	for _, s := range mood.Questionnaire {
		fmt.Fprintf(w, "%s (--%s)\n", s.Title, s.Key)
		for i, item := range s.Items {
			fmt.Fprintf(w, "  %2d. %s\n", i+1, item)
		}
		fmt.Fprintln(w)
	}
}

func newEntriesCommand(open opener) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "entries",
		Short: "List recorded check-ins, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var rng domain.DateRange
			var err error
			if from != "" {
				if rng.From, err = domain.ParseDate(from); err != nil {
					return err
				}
			}
			if to != "" {
				if rng.To, err = domain.ParseDate(to); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			a, err := open(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			entries, err := a.coord.MoodEntries(ctx, rng)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No check-ins recorded.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tSTATE\tM\tD\tX\tPHASE")
			for _, e := range entries {
				phase := "-"
				if e.CyclePhase != nil {
					phase = string(*e.CyclePhase)
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
					e.Date, e.MoodState, e.Scores.Mania, e.Scores.Depression, e.Scores.Mixed, phase)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD")
	return cmd
}

func newInsightsCommand(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "insights",
		Short: "Show mood and cycle patterns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := open(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			entries, err := a.coord.MoodEntries(ctx, domain.DateRange{})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			sum := patterns.Summarize(entries)
			fmt.Fprintf(out, "%d days recorded\n", sum.TotalDays)
			for _, s := range domain.MoodStates {
				if n := sum.Distribution[s]; n > 0 {
					fmt.Fprintf(out, "  %-32s %d\n", mood.StateLabel(s), n)
				}
			}
			fmt.Fprintln(out)

			res := patterns.Detect(entries, patterns.DefaultConfig())
			switch res.Status {
			case patterns.StatusInsufficientData:
				fmt.Fprintf(out, "Keep checking in: patterns need at least %d days.\n", patterns.DefaultConfig().MinEntries)
			case patterns.StatusNoPatterns:
				fmt.Fprintln(out, "No recurring patterns found yet.")
			default:
				for _, p := range res.Patterns {
					fmt.Fprintf(out, "%s [%s confidence]\n  %s\n", p.Title, p.Confidence, p.Description)
				}
			}
			return nil
		},
	}
}

func newSyncCommand(open opener) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull every record kind from the remote database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := open(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.coord.SyncAll(ctx, force)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if report.Skipped {
				fmt.Fprintln(out, "Not signed in; nothing to sync.")
				return nil
			}
			for _, r := range report.Results {
				status := "ok"
				if r.Err != nil {
					status = r.Err.Error()
				}
				fmt.Fprintf(out, "%-13s %-6s %3d  %s\n", r.Kind, r.Source, r.Count, status)
			}
			if report.Err() != nil {
				return fmt.Errorf("sync failed for: %s", formatKinds(report.Results))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "ignore the sync cooldown")
	return cmd
}

func newWipeCommand(open opener) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Delete every record stored on this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to delete local data without --yes")
			}
			ctx := cmd.Context()
			a, err := open(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.coord.ClearAll(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Local data deleted.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

// formatKinds renders a report's failed kinds for error messages.
func formatKinds(results []lsync.KindResult) string {
	var failed []string
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, string(r.Kind))
		}
	}
	return strings.Join(failed, ", ")
}
