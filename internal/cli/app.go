package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/andreagonzahe/lunaria-app/internal/auth"
	"github.com/andreagonzahe/lunaria-app/internal/config"
	"github.com/andreagonzahe/lunaria-app/internal/domain"
	"github.com/andreagonzahe/lunaria-app/internal/localstore"
	"github.com/andreagonzahe/lunaria-app/internal/logger"
	"github.com/andreagonzahe/lunaria-app/internal/reminders"
	"github.com/andreagonzahe/lunaria-app/internal/remote"
	lsync "github.com/andreagonzahe/lunaria-app/internal/sync"
)

// app holds everything a command needs, built from the loaded config.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	store    *localstore.SQLiteStore
	remote   *remote.DB
	accounts *auth.Client
	coord    *lsync.Coordinator
	push     *reminders.WebPushNotifier
	sched    *reminders.Scheduler
}

func openApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Options{
		Mode:     cfg.Log.Mode,
		Level:    cfg.Log.Level,
		Redact:   true,
		HashSalt: cfg.DeviceSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	a := &app{cfg: cfg, log: log}

	sealer, err := localstore.NewSealer([]byte(cfg.DeviceSecret))
	if err != nil {
		return nil, err
	}
	a.store, err = localstore.OpenSQLite(ctx, cfg.DatabasePath(), sealer)
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}

	var mirror lsync.Mirror = remote.Offline{}
	if cfg.DatabaseURL != "" {
		db, err := remote.New(ctx, cfg.DatabaseURL)
		if err != nil {
			// The app works offline; a later start retries.
			log.Warn("remote database unavailable, running offline", "error", err)
		} else if err := db.Migrate(ctx); err != nil {
			db.Close()
			log.Warn("migrating remote database failed, running offline", "error", err)
		} else {
			a.remote = db
			mirror = db
		}
	}

	var sessions lsync.SessionProvider
	if cfg.Auth.BaseURL != "" {
		a.accounts, err = auth.New(auth.Config{
			BaseURL:      cfg.Auth.BaseURL,
			ClientID:     cfg.Auth.ClientID,
			ClientSecret: cfg.Auth.ClientSecret,
			JWTSecret:    cfg.Auth.JWTSecret,
		}, auth.NewSessionFile(cfg.SessionPath()))
		if err != nil {
			a.close()
			return nil, err
		}
		sessions = a.accounts
		// Sign-in only happens through the login command and the /api/auth
		// handlers, which run a forced SyncAll themselves.
		a.accounts.Subscribe(func(e auth.Event) {
			log.Info("auth state changed", "event", e.Type)
		})
	}

	vapid := reminders.VAPIDConfig{
		Subject:    cfg.VAPID.Subject,
		PublicKey:  cfg.VAPID.PublicKey,
		PrivateKey: cfg.VAPID.PrivateKey,
	}
	if vapid.Configured() {
		a.push = reminders.NewWebPushNotifier(vapid, &http.Client{Timeout: 15 * time.Second}, log.With("component", "push"))
	}
	a.sched = reminders.NewScheduler(a.notifier(),
		reminders.WithLogger(log.With("component", "reminders")),
		reminders.WithInterval(cfg.Reminders.Interval),
	)

	a.coord = lsync.New(a.store, mirror, sessions,
		lsync.WithLogger(log.With("component", "sync")),
		lsync.WithRemoteTimeout(cfg.Sync.RemoteTimeout),
		lsync.WithSyncCooldown(cfg.Sync.Cooldown),
		lsync.WithMedicationsObserver(a.reschedule),
	)
	return a, nil
}

// notifier returns web push when configured, otherwise reminders are only
// logged.
func (a *app) notifier() reminders.Notifier {
	if a.push != nil {
		return a.push
	}
	return reminders.NewLogNotifier(a.log.With("component", "reminders"))
}

// reschedule replaces the reminder triggers. It only fires anything while
// serve runs the scheduler loop.
func (a *app) reschedule(meds []domain.Medication) {
	if _, err := a.sched.Reschedule(meds); err != nil {
		a.log.Warn("scheduling reminders failed", "error", err)
	}
}

func (a *app) requireAccounts() (*auth.Client, error) {
	if a.accounts == nil {
		return nil, fmt.Errorf("sign-in is not configured: set LUNARIA_AUTH_URL")
	}
	return a.accounts, nil
}

func (a *app) close() {
	if a.remote != nil {
		a.remote.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("closing local store", "error", err)
		}
	}
	a.log.Sync()
}
