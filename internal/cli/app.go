package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/internal/config"
	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/adapters/file"
	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/adapters/redis"
	"github.com/aretw0/tendril/pkg/graph"
	"github.com/aretw0/tendril/pkg/observability"
	"github.com/aretw0/tendril/pkg/persistence/middleware"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App bundles everything the commands share, built once from the config.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Engine   *tendril.Engine
	Store    ports.TranscriptStore
	Manager  *session.Manager
	Metrics  *observability.Metrics
	Registry *prometheus.Registry

	closers []func() error
}

// NewApp wires the engine, the transcript store and the session manager.
// Logs go to logOut.
func NewApp(cfg *config.Config, logOut io.Writer) (*App, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	app := &App{
		Config:   cfg,
		Logger:   logging.NewTo(logOut, level, cfg.LogFormat == "json"),
		Registry: prometheus.NewRegistry(),
	}
	app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app.Metrics, err = observability.NewMetrics(app.Registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	app.Engine, err = BuildEngine(cfg, app.Logger, app.Metrics)
	if err != nil {
		return nil, err
	}

	var locker ports.DistributedLocker
	app.Store, locker, err = app.buildStore()
	if err != nil {
		return nil, err
	}

	opts := []session.Option{session.WithLogger(app.Logger)}
	if locker != nil {
		opts = append(opts, session.WithLocker(locker), session.WithLockTTL(cfg.Store.Redis.LockTTL))
	}
	app.Manager = session.NewManager(app.Engine, app.Store, opts...)
	return app, nil
}

// BuildEngine creates the engine with the configured limits and catalogs.
// Node level audit logs are only attached in debug mode.
func BuildEngine(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*tendril.Engine, error) {
	opts := []tendril.Option{
		tendril.WithLogger(logger),
		tendril.WithLimits(graph.Limits{
			MaxTransformDepth: cfg.Limits.MaxTransformDepth,
			MaxResultChain:    cfg.Limits.MaxResultChain,
			MaxEvalDepth:      cfg.Limits.MaxEvalDepth,
		}),
	}
	if metrics != nil {
		opts = append(opts, tendril.WithLifecycleHooks(metrics.Hooks()))
	}
	if strings.EqualFold(cfg.LogLevel, "debug") {
		opts = append(opts, tendril.WithLifecycleHooks(observability.LogHooks(logger)))
	}

	if len(cfg.Catalogs) > 0 {
		catalogs := make([]*schema.Catalog, 0, len(cfg.Catalogs))
		for _, path := range cfg.Catalogs {
			c, err := schema.Load(path)
			if err != nil {
				return nil, err
			}
			catalogs = append(catalogs, c)
		}
		opts = append(opts, tendril.WithTypes(schema.Merge(catalogs...).Register))
	}

	engine, err := tendril.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}

// buildStore selects the backend and wraps it with the security middleware.
// The redis backend also provides the distributed locker.
func (a *App) buildStore() (ports.TranscriptStore, ports.DistributedLocker, error) {
	cfg := a.Config
	var (
		store  ports.TranscriptStore
		locker ports.DistributedLocker
	)
	switch cfg.Store.Backend {
	case "file":
		store = file.New(cfg.Store.Path)
	case "redis":
		rc := cfg.Store.Redis
		rs := redis.New(rc.Addr, rc.Password, rc.DB, redis.WithPrefix(rc.Prefix), redis.WithTTL(rc.TTL))
		store = rs
		locker = redis.NewLocker(rs.Client(), rc.Prefix+"lock:")
		a.closers = append(a.closers, rs.Close)
	default:
		store = memory.NewStore()
	}

	var mws []middleware.Middleware
	if len(cfg.Security.MaskLabels) > 0 {
		for _, p := range cfg.Security.MaskLabels {
			if _, err := regexp.Compile(p); err != nil {
				return nil, nil, fmt.Errorf("invalid mask_labels pattern %q: %w", p, err)
			}
		}
		mws = append(mws, middleware.NewPIIMiddleware(cfg.Security.MaskLabels))
	}
	if key := cfg.Security.Key(); key != nil {
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	a.Logger.Debug("transcript store ready", "backend", cfg.Store.Backend, "middleware", len(mws))
	return middleware.Chain(store, mws...), locker, nil
}

// Ping checks that the store answers, so misconfiguration fails at startup.
func (a *App) Ping(ctx context.Context) error {
	if _, err := a.Store.List(ctx); err != nil {
		return fmt.Errorf("store %s unreachable: %w", a.Config.Store.Backend, err)
	}
	return nil
}

// Close releases the store connections.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
