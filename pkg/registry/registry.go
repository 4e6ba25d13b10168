package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/tendril/pkg/domain"
)

// ErrDuplicateType is returned when a type name is registered twice.
var ErrDuplicateType = errors.New("registry: duplicate type")

// ErrUnknownType is returned when a type name has not been registered.
var ErrUnknownType = errors.New("registry: unknown type")

// Type is a registered node type. F is the constructor of the node behavior.
type Type[F any] struct {
	Name      string
	OutType   string
	Level     domain.Level
	Operator  bool
	Leaf      bool
	Signature *Signature
	Factory   F
}

// TypeOption configures a Type at registration.
type TypeOption func(*typeOptions)

type typeOptions struct {
	outType  string
	level    domain.Level
	operator bool
	leaf     bool
}

// OutType declares the base output type. Defaults to the type name itself.
func OutType(name string) TypeOption {
	return func(o *typeOptions) {
		o.outType = name
	}
}

// DefaultLevel sets the constraint level of freshly built nodes.
func DefaultLevel(l domain.Level) TypeOption {
	return func(o *typeOptions) {
		o.level = l
	}
}

// Operator marks a dialogue operator (never pushed as a goal).
func Operator() TypeOption {
	return func(o *typeOptions) {
		o.operator = true
	}
}

// Leaf marks a scalar type whose single positional literal is its value.
func Leaf() TypeOption {
	return func(o *typeOptions) {
		o.leaf = true
	}
}

// Registry manages the available node types.
type Registry[F any] struct {
	mu    sync.RWMutex
	types map[string]*Type[F]
}

// New creates a new empty registry.
func New[F any]() *Registry[F] {
	return &Registry[F]{
		types: make(map[string]*Type[F]),
	}
}

// Register adds a type to the registry.
// Registering a name twice is a configuration error.
func (r *Registry[F]) Register(name string, factory F, sig *Signature, opts ...TypeOption) error {
	if name == "" {
		return fmt.Errorf("registry: empty type name")
	}
	o := typeOptions{outType: name}
	for _, opt := range opts {
		opt(&o)
	}
	if sig == nil {
		sig = MustSignature()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateType, name)
	}
	r.types[name] = &Type[F]{
		Name:      name,
		OutType:   o.outType,
		Level:     o.level,
		Operator:  o.operator,
		Leaf:      o.leaf,
		Signature: sig,
		Factory:   factory,
	}
	return nil
}

// MustRegister is Register for startup code; it panics on error.
func (r *Registry[F]) MustRegister(name string, factory F, sig *Signature, opts ...TypeOption) {
	if err := r.Register(name, factory, sig, opts...); err != nil {
		panic(err)
	}
}

// Lookup returns the registered type.
func (r *Registry[F]) Lookup(name string) (*Type[F], error) {
	r.mu.RLock()
	t, ok := r.types[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	return t, nil
}

// Has reports whether the name is registered.
func (r *Registry[F]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.types[name]
	return ok
}

// AllowsParam reports whether a type accepts an input name (aliases included).
func (r *Registry[F]) AllowsParam(typeName, name string) bool {
	t, err := r.Lookup(typeName)
	if err != nil {
		return false
	}
	return t.Signature.Allows(name)
}

// ParamTypeSet returns the allowed types of a param; an empty set means any.
func (r *Registry[F]) ParamTypeSet(typeName, name string) ([]string, bool) {
	t, err := r.Lookup(typeName)
	if err != nil {
		return nil, false
	}
	p, _, ok := t.Signature.Resolve(name)
	if !ok {
		return nil, false
	}
	return p.Types, true
}

// Names returns all registered type names in lexical order.
func (r *Registry[F]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
