// Package cli implements the lunaria command line.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/andreagonzahe/lunaria-app/internal/config"
	"github.com/andreagonzahe/lunaria-app/internal/logger"
	lsync "github.com/andreagonzahe/lunaria-app/internal/sync"
	"github.com/andreagonzahe/lunaria-app/internal/web"
)

type opener func(ctx context.Context) (*app, error)

// NewRootCommand builds the lunaria command tree.
func NewRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "lunaria",
		Short: "Private mood and cycle tracker for bipolar spectrum conditions",
		Long: `Lunaria records a daily mood checklist, classifies it, and looks for
recurring links between mood states and menstrual cycle phases.

Everything is stored on this device first. When an account is configured,
changes are mirrored to the remote database in the background.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $LUNARIA_CONFIG or ./lunaria.yaml)")

	open := func(ctx context.Context) (*app, error) {
		return openApp(ctx, configPath)
	}

	root.AddCommand(
		newInitCommand(&configPath),
		newServeCommand(open),
		newCheckInCommand(open),
		newEntriesCommand(open),
		newInsightsCommand(open),
		newSyncCommand(open),
		newWipeCommand(open),
		newLoginCommand(open),
		newSignUpCommand(open),
		newLogoutCommand(open),
	)
	return root
}

func newInitCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate the device key that encrypts local data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil && !errors.Is(err, config.ErrMissingSecret) {
				return err
			}
			if err == nil && cfg.DeviceSecret != "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Device secret already configured.")
				return nil
			}
			if err := config.InitSecret(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Device key written to %s\n", cfg.SecretPath())
			return nil
		},
	}
}

type syncer interface {
	SyncAll(ctx context.Context, force bool) (*lsync.Report, error)
}

// syncOnStart pulls the mirror and re-sends anything saved while the
// previous run was offline. Failures leave the local copy in charge.
func syncOnStart(ctx context.Context, s syncer, log *logger.Logger) {
	report, err := s.SyncAll(ctx, true)
	if err != nil {
		log.Warn("startup sync failed", "error", err)
		return
	}
	if report.Skipped {
		log.Debug("startup sync skipped; not signed in")
		return
	}
	if err := report.Err(); err != nil {
		log.Warn("startup sync incomplete", "error", err)
	}
}

func newServeCommand(open opener) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local API and the medication reminder loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := open(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			syncOnStart(ctx, a.coord, a.log)
			if meds, err := a.coord.Medications(ctx); err != nil {
				a.log.Warn("loading medications failed, no reminders scheduled", "error", err)
			} else {
				a.reschedule(meds)
			}

			if addr == "" {
				addr = a.cfg.ListenAddr
			}
			srvCfg := web.ServerConfig{
				Addr:        addr,
				Coordinator: a.coord,
				Reminders:   a.sched,
				Push:        a.push,
				Logger:      a.log.With("component", "web"),
			}
			if a.accounts != nil {
				srvCfg.Accounts = a.accounts
			}
			srv, err := web.NewServer(srvCfg)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return a.sched.Run(gctx) })
			g.Go(func() error { return srv.Run(gctx) })
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, "+web.DefaultAddr+")")
	return cmd
}
