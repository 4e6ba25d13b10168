package dsl

import (
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/registry"
)

// Call starts a call expression with positional arguments.
func Call(name string, args ...*Expr) *Expr {
	e := &Expr{Kind: KindCall, Name: name}
	for _, a := range args {
		e.Append(a)
	}
	return e
}

// Query is Call at constraint level 1 ("Name?(...)").
func Query(name string, args ...*Expr) *Expr {
	return Call(name, args...).AtLevel(domain.LevelQuery)
}

// Partial is Call at constraint level 2 ("Name??(...)").
func Partial(name string, args ...*Expr) *Expr {
	return Call(name, args...).AtLevel(domain.LevelPartial)
}

// Int builds an integer literal.
func Int(v int64) *Expr {
	return &Expr{Kind: KindInt, Int: v}
}

// Float builds a float literal.
func Float(v float64) *Expr {
	return &Expr{Kind: KindFloat, Float: v}
}

// Str builds a string literal.
func Str(v string) *Expr {
	return &Expr{Kind: KindString, Str: v}
}

// Bool builds a boolean literal.
func Bool(v bool) *Expr {
	return &Expr{Kind: KindBool, Bool: v}
}

// Ref references a name of the dialogue assignment table.
func Ref(name string) *Expr {
	return &Expr{Kind: KindRef, Name: name}
}

// NodeRef references an existing node by id.
func NodeRef(id domain.NodeID) *Expr {
	return &Expr{Kind: KindNodeRef, NodeID: id}
}

// Append adds the next positional argument.
func (e *Expr) Append(v *Expr) *Expr {
	n := 0
	for _, a := range e.Args {
		if a.Positional {
			n++
		}
	}
	e.Args = append(e.Args, Arg{Name: registry.PosName(n + 1), Value: v, Positional: true})
	return e
}

// With sets a named argument, replacing an existing one.
func (e *Expr) With(name string, v *Expr) *Expr {
	for i, a := range e.Args {
		if a.Name == name {
			e.Args[i].Value = v
			return e
		}
	}
	e.Args = append(e.Args, Arg{Name: name, Value: v, Positional: registry.ParseKey(name).Positional()})
	return e
}

// AtLevel sets the constraint level.
func (e *Expr) AtLevel(l domain.Level) *Expr {
	e.Level = l
	return e
}

// Tag adds tags to the built node.
func (e *Expr) Tag(tags ...string) *Expr {
	e.Tags = append(e.Tags, tags...)
	return e
}

// As binds the built node to a name in the assignment table.
func (e *Expr) As(name string) *Expr {
	e.Assign = name
	return e
}
