// Package app is the composition root. It opens the configured store, builds
// the bus and the managers, and restores state from storage. No component
// reaches for a global; everything is wired here.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/athlete-hub/athlete-hub/config"
	"github.com/athlete-hub/athlete-hub/internal/application/journal"
	"github.com/athlete-hub/athlete-hub/internal/application/manager"
	"github.com/athlete-hub/athlete-hub/internal/application/state"
	"github.com/athlete-hub/athlete-hub/internal/application/syncer"
	"github.com/athlete-hub/athlete-hub/internal/domain/validation"
	"github.com/athlete-hub/athlete-hub/internal/infrastructure/messaging"
	"github.com/athlete-hub/athlete-hub/internal/infrastructure/persistence/bolt"
	"github.com/athlete-hub/athlete-hub/internal/infrastructure/persistence/postgres"
	"github.com/athlete-hub/athlete-hub/internal/infrastructure/persistence/redis"
	"github.com/athlete-hub/athlete-hub/internal/infrastructure/persistence/sqlite"
	"github.com/athlete-hub/athlete-hub/internal/infrastructure/persistence/store"
	"github.com/athlete-hub/athlete-hub/pkg/timeutil"
)

// App holds the wired components.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Store *store.Store
	Bus   *messaging.InMemoryEventBus
	State *state.Manager

	Assignments *manager.AssignmentManager
	Grades      *manager.GradeManager
	Sessions    *manager.SessionManager
	Calendar    *manager.CalendarManager

	Journal *journal.Journal

	// Syncer is nil when no remote is configured.
	Syncer *syncer.Syncer

	closers []func() error
}

// Option adjusts wiring, mostly for tests.
type Option func(*options)

type options struct {
	backend store.Backend
	remote  syncer.Remote
	mgrOpts []manager.Option
}

// WithBackend uses backend instead of opening the configured driver.
func WithBackend(b store.Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithRemote uses remote instead of connecting to SYNC_DATABASE_URL.
func WithRemote(r syncer.Remote) Option {
	return func(o *options) { o.remote = r }
}

// WithManagerOptions passes options to every entity manager.
func WithManagerOptions(opts ...manager.Option) Option {
	return func(o *options) { o.mgrOpts = append(o.mgrOpts, opts...) }
}

// New wires the hub and hydrates it from storage.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.App.Location != nil {
		timeutil.SetLocation(cfg.App.Location)
	}

	a := &App{Config: cfg, Logger: logger}

	backend := o.backend
	if backend == nil {
		var err error
		backend, err = openBackend(cfg)
		if err != nil {
			return nil, err
		}
	}
	a.Store = store.New(backend, logger)
	a.closers = append(a.closers, a.Store.Close)

	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.Logger = logger
	busCfg.Middlewares = []messaging.Middleware{messaging.LoggingMiddleware(logger.With("component", "eventbus"))}
	a.Bus = messaging.NewInMemoryEventBus(busCfg)
	a.closers = append(a.closers, a.Bus.Close)

	v := validation.New(validation.WithDefaultSessionDuration(cfg.Session.DefaultDuration))
	a.State = state.NewManager(a.Bus, a.Store, v, logger)

	deps := manager.Deps{
		Store:     a.Store,
		State:     a.State,
		Bus:       a.Bus,
		Validator: v,
		Logger:    logger,
	}
	mgrOpts := append([]manager.Option{manager.WithMaxOccurrences(cfg.Session.MaxOccurrences)}, o.mgrOpts...)
	a.Assignments = manager.NewAssignmentManager(deps, mgrOpts...)
	a.Grades = manager.NewGradeManager(deps, mgrOpts...)
	a.Sessions = manager.NewSessionManager(deps, mgrOpts...)
	a.Calendar = manager.NewCalendarManager(deps, mgrOpts...)

	a.Journal = journal.New(store.NewActivityRepository(a.Store), a.State, v, logger)
	if cfg.Features.AutoActivities {
		if _, err := a.Journal.Attach(a.Bus); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("attach journal: %w", err)
		}
	}

	a.hydrate(ctx)

	if err := a.wireSyncer(ctx, o.remote); err != nil {
		_ = a.Close()
		return nil, err
	}

	logger.Info("hub ready",
		"store", cfg.Store.Driver,
		"tasks", len(a.Assignments.List()),
		"grades", len(a.Grades.List()),
		"sessions", len(a.Sessions.List()),
		"events", len(a.Calendar.List()),
		"sync", a.Syncer != nil,
	)
	return a, nil
}

// hydrate restores the aggregate first, then lets each manager seed its own
// slice from its own key. A collection that cannot be read starts empty so
// the hub stays usable and the next write replaces the bad value.
func (a *App) hydrate(ctx context.Context) {
	a.State.Hydrate(ctx)

	loaders := []struct {
		name string
		load func(context.Context) error
	}{
		{"assignments", a.Assignments.Load},
		{"grades", a.Grades.Load},
		{"sessions", a.Sessions.Load},
		{"calendar", a.Calendar.Load},
	}
	for _, l := range loaders {
		if err := l.load(ctx); err != nil {
			a.Logger.Warn("collection unreadable, starting empty", "collection", l.name, "error", err)
		}
	}
}

func (a *App) wireSyncer(ctx context.Context, remote syncer.Remote) error {
	if remote == nil {
		if !a.Config.SyncEnabled() {
			return nil
		}

		pgCfg := postgres.DefaultConfig(a.Config.Sync.DatabaseURL)
		pgCfg.MaxConns = a.Config.Sync.MaxConns
		conn, err := postgres.NewConnection(ctx, pgCfg)
		if err != nil {
			return fmt.Errorf("connect sync database: %w", err)
		}
		a.closers = append(a.closers, func() error { conn.Close(); return nil })

		if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
			return fmt.Errorf("migrate sync database: %w", err)
		}
		remote = postgres.NewSyncRepository(conn)
	}

	syncCfg := syncer.DefaultConfig()
	syncCfg.BatchSize = a.Config.Sync.BatchSize
	syncCfg.MaxAttempts = a.Config.Sync.MaxAttempts
	syncCfg.ClearLocal = a.Config.Sync.ClearLocal
	syncCfg.IsTransient = postgres.IsTransient
	a.Syncer = syncer.New(a.Store, remote, syncCfg, a.Logger)
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func openBackend(cfg *config.Config) (store.Backend, error) {
	switch cfg.Store.Driver {
	case config.DriverBolt:
		return bolt.Open(cfg.Store.Path)
	case config.DriverSQLite:
		return sqlite.Open(cfg.Store.Path)
	case config.DriverRedis:
		cache, err := redis.NewCache(redis.Config{
			URL:          cfg.Redis.URL,
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			Prefix:       cfg.Redis.Prefix,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			return nil, err
		}
		return redis.NewBackend(cache, cfg.Store.Timeout), nil
	case config.DriverMemory:
		return store.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
