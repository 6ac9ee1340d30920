// Package cli wires the tickstory engine and its infrastructure for the
// command line: configuration, session stores, metrics and the console.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"

	"github.com/aretw0/tickstory"
	"github.com/aretw0/tickstory/internal/adapters/file"
	"github.com/aretw0/tickstory/internal/config"
	loamadapter "github.com/aretw0/tickstory/pkg/adapters/loam"
	"github.com/aretw0/tickstory/pkg/adapters/memory"
	"github.com/aretw0/tickstory/pkg/adapters/redis"
	"github.com/aretw0/tickstory/pkg/adapters/sqlite"
	"github.com/aretw0/tickstory/pkg/domain"
	"github.com/aretw0/tickstory/pkg/metrics"
	"github.com/aretw0/tickstory/pkg/persistence/middleware"
	"github.com/aretw0/tickstory/pkg/ports"
	"github.com/aretw0/tickstory/pkg/session"
)

// Watcher is implemented by catalogs that can report story changes.
type Watcher interface {
	Watch(ctx context.Context) (<-chan string, error)
}

// App holds the engine and everything it was built from.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Catalog ports.StoryCatalog
	Store   ports.SessionStore
	Engine  *tickstory.Engine
	Metrics *metrics.Collector

	closers []func() error
}

// AppOption configures NewApp.
type AppOption func(*appOptions)

type appOptions struct {
	catalog ports.StoryCatalog
}

// WithCatalog replaces the Loam catalog opened from Config.Stories.
func WithCatalog(c ports.StoryCatalog) AppOption {
	return func(o *appOptions) {
		o.catalog = c
	}
}

// NewApp builds the engine described by cfg.
func NewApp(cfg *config.Config, logger *slog.Logger, opts ...AppOption) (*App, error) {
	var o appOptions
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{Config: cfg, Logger: logger, Catalog: o.catalog}
	if app.Catalog == nil {
		catalog, err := loamadapter.Open(cfg.Stories)
		if err != nil {
			return nil, err
		}
		app.Catalog = catalog
	}

	store, locker, err := app.openStore(cfg.Store)
	if err != nil {
		app.Close()
		return nil, err
	}
	mws, err := Middlewares(cfg.Store)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = middleware.Chain(store, mws...)

	managerOpts := []session.Option{
		session.WithLogger(logger),
		session.WithLockTTL(cfg.Engine.LockTTL),
	}
	if locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(locker))
	}

	hooks := debugHooks(logger)
	if cfg.HTTP.Metrics {
		app.Metrics = metrics.NewCollector()
		hooks = metrics.Combine(app.Metrics.Hooks(), hooks)
	}

	app.Engine, err = tickstory.New(app.Catalog,
		tickstory.WithSessionManager(session.NewManager(app.Store, managerOpts...)),
		tickstory.WithSettings(cfg.Engine.Settings()),
		tickstory.WithLogger(logger),
		tickstory.WithLifecycleHooks(hooks),
		tickstory.WithFallbackMessage(cfg.Engine.FallbackMessage),
		tickstory.WithEndingStoryRule(cfg.Engine.EndingStoryRule),
		tickstory.WithDebug(cfg.Engine.Debug),
		tickstory.WithMaxIterations(cfg.Engine.MaxIterations),
	)
	if err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// openStore creates the session store of the configured backend, plus a
// distributed locker when the backend is shared between replicas.
func (a *App) openStore(cfg config.StoreConfig) (ports.SessionStore, ports.DistributedLocker, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.NewStore(), nil, nil
	case config.BackendFile:
		path := cfg.Path
		if path == "" {
			path = filepath.Join(a.Config.Stories, ".tickstory", "sessions")
		}
		return file.New(path), nil, nil
	case config.BackendSQLite:
		store, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil, nil
	case config.BackendRedis:
		opts := []redis.Option{redis.WithPrefix(cfg.RedisPrefix)}
		if cfg.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.TTL))
		}
		store := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, opts...)
		a.closers = append(a.closers, store.Close)
		return store, redis.NewLocker(store.Client(), cfg.RedisPrefix), nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// Middlewares returns the persistence middlewares enabled by cfg. PII masking
// runs before encryption so that masked values never reach the ciphertext.
func Middlewares(cfg config.StoreConfig) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	for _, p := range cfg.PIIPatterns {
		if _, err := regexp.Compile(p); err != nil {
			return nil, fmt.Errorf("invalid pii pattern %q: %w", p, err)
		}
	}
	if len(cfg.PIIPatterns) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(cfg.PIIPatterns))
	}
	key, err := cfg.Key()
	if err != nil {
		return nil, err
	}
	if key != nil {
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	return mws, nil
}

// Close releases the store connections.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func debugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnActionExecuted: func(ctx context.Context, e *domain.ActionEvent) {
			logger.Debug("action executed",
				"session_id", e.SessionID,
				"action", e.Action,
				"objective", e.PrimaryObjective,
				"candidates", e.Candidates,
				"silent", e.Silent)
		},
		OnTurnCompleted: func(ctx context.Context, e *domain.TurnEvent) {
			logger.Debug("turn completed",
				"session_id", e.SessionID,
				"outcome", e.Outcome,
				"rounds", e.Rounds,
				"duration", e.Duration)
		},
	}
}
