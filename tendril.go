package tendril

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/graph"
	"github.com/aretw0/tendril/pkg/nodes"
)

// Engine is the high-level entry point for the Tendril library.
// It bundles the type registry, logger, hooks and limits shared by every
// dialogue it creates. An Engine is safe for concurrent use; the dialogues
// it returns are not.
type Engine struct {
	registry *graph.Registry
	catalogs []func(*graph.Registry) error
	hooks    domain.LifecycleHooks
	limits   graph.Limits
	logger   *slog.Logger
	Name     string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks. Hooks given more than
// once are chained in order.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRegistry replaces the default registry. The core node library is
// expected to be registered already.
func WithRegistry(reg *graph.Registry) Option {
	return func(e *Engine) {
		e.registry = reg
	}
}

// WithTypes adds an application node catalog on top of the core library.
func WithTypes(register func(*graph.Registry) error) Option {
	return func(e *Engine) {
		e.catalogs = append(e.catalogs, register)
	}
}

// WithLimits overrides the evaluation limits of every dialogue.
func WithLimits(l graph.Limits) Option {
	return func(e *Engine) {
		e.limits = l
	}
}

// WithName labels the engine in logs.
func WithName(name string) Option {
	return func(e *Engine) {
		e.Name = name
	}
}

// New initializes a new Tendril Engine with the core node library.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{limits: graph.DefaultLimits}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.registry == nil {
		eng.registry = graph.NewRegistry()
		if err := nodes.Register(eng.registry); err != nil {
			return nil, fmt.Errorf("failed to register core nodes: %w", err)
		}
	}
	var errs []error
	for _, register := range eng.catalogs {
		errs = append(errs, register(eng.registry))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("failed to register node catalog: %w", err)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("engine", eng.Name)
	}
	return eng, nil
}

// NewDialog creates an empty dialogue bound to the engine registry.
func (e *Engine) NewDialog() *graph.Dialog {
	return graph.NewDialog(e.registry,
		graph.WithLogger(e.logger),
		graph.WithHooks(e.hooks),
		graph.WithLimits(e.limits),
	)
}

// Registry returns the type registry.
func (e *Engine) Registry() *graph.Registry {
	return e.registry
}

// Types describes every registered node type.
func (e *Engine) Types() []domain.TypeInfo {
	return graph.Catalog(e.registry)
}

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// Version is the library version, overridden at link time by release builds.
var Version = "0.1.0-dev"
