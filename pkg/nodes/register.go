package nodes

import (
	"errors"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/graph"
	"github.com/aretw0/tendril/pkg/registry"
)

// Register adds the core node library to reg.
func Register(reg *graph.Registry) error {
	var errs []error
	add := func(name string, f graph.Factory, sig *registry.Signature, opts ...registry.TypeOption) {
		errs = append(errs, reg.Register(name, f, sig, opts...))
	}

	for _, kind := range []string{graph.TypeInt, graph.TypeFloat, graph.TypeStr, graph.TypeBool} {
		l := leaf{kind: kind}
		add(kind, func() graph.Behavior { return l }, nil, registry.Leaf())
	}

	for _, op := range domain.Qualifiers {
		q := qualifier{op: op}
		add(string(op), func() graph.Behavior { return q },
			registry.MustSignature(registry.Param{Name: "obj", Alias: "pos1", Required: true}),
			registry.DefaultLevel(domain.LevelQuery))
	}

	for _, kind := range []graph.Aggregate{graph.AggAnd, graph.AggOr, graph.AggNot, graph.AggAny, graph.AggAll, graph.AggNone, graph.AggExact} {
		a := aggregator{kind: kind}
		add(string(kind), func() graph.Behavior { return a },
			registry.MustSignature().WithPositional(registry.Param{Multi: true}),
			registry.DefaultLevel(domain.LevelQuery))
	}
	add(graph.TypeSet, func() graph.Behavior { return set{aggregator{kind: graph.AggSet}} },
		registry.MustSignature().WithPositional(registry.Param{Multi: true}))

	add("revise", func() graph.Behavior { return revise{} },
		registry.MustSignature(
			registry.Param{Name: "root", View: registry.ViewInt},
			registry.Param{Name: "mid", View: registry.ViewInt},
			registry.Param{Name: "old", Alias: "pos1", View: registry.ViewInt},
			registry.Param{Name: "new", Alias: "pos2", View: registry.ViewInt, Required: true},
			registry.Param{Name: "newMode", Types: []string{graph.TypeStr}},
			registry.Param{Name: "slot", Types: []string{graph.TypeStr}},
			registry.Param{Name: "role", Types: []string{graph.TypeStr}},
			registry.Param{Name: "match", Types: []string{graph.TypeStr}},
		),
		registry.Operator(), registry.OutType(graph.TypeAny))

	add("refer", func() graph.Behavior { return refer{} },
		registry.MustSignature(
			registry.Param{Name: "cond", Alias: "pos1", View: registry.ViewInt},
			registry.Param{Name: "role", Types: []string{graph.TypeStr}},
			registry.Param{Name: "type", Types: []string{graph.TypeStr}},
			registry.Param{Name: "mid", View: registry.ViewInt},
			registry.Param{Name: "multi", Types: []string{graph.TypeBool}},
			registry.Param{Name: "noFallback", Types: []string{graph.TypeBool}},
			registry.Param{Name: "matchMissing", Types: []string{graph.TypeBool}},
		),
		registry.OutType(graph.TypeAny))

	add("getattr", func() graph.Behavior { return getattr{} },
		registry.MustSignature(
			registry.Param{Name: "name", Alias: "pos1", Types: []string{graph.TypeStr}, Required: true},
			registry.Param{Name: "obj", Alias: "pos2", Required: true},
		),
		registry.OutType(graph.TypeAny))

	add("singleton", func() graph.Behavior { return singleton{} },
		registry.MustSignature(registry.Param{Name: "obj", Alias: "pos1", Required: true}),
		registry.OutType(graph.TypeAny))

	add("AcceptSuggestion", func() graph.Behavior { return acceptSuggestion{} },
		registry.MustSignature(registry.Param{Name: "index", Alias: "pos1", Types: []string{graph.TypeInt}}),
		registry.Operator(), registry.OutType(graph.TypeAny))

	add("RejectSuggestion", func() graph.Behavior { return rejectSuggestion{} }, nil, registry.Operator())

	return errors.Join(errs...)
}

// NewRegistry returns a registry holding the core node library.
func NewRegistry() *graph.Registry {
	reg := graph.NewRegistry()
	if err := Register(reg); err != nil {
		panic(err)
	}
	return reg
}
