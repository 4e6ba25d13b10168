package dsl

import (
	"strconv"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
)

// Kind is the syntactic category of an expression.
type Kind int

const (
	KindCall    Kind = iota // Name(args)
	KindInt                 // 3
	KindFloat               // 2.5
	KindString              // "text"
	KindBool                // true
	KindWord                // bare identifier used as a value
	KindRef                 // $name (assignment table)
	KindNodeRef             // $#12 (existing node)
)

// Arg is one argument of a call. Positional args are named pos1, pos2, ...
type Arg struct {
	Name       string
	Value      *Expr
	Positional bool
}

// Expr is a node of the P-expression syntax tree.
type Expr struct {
	Kind  Kind
	Name  string // call type name, word text or reference name
	Level domain.Level
	Args  []Arg
	Tags  []string

	// Assign binds the built node in the dialogue assignment table.
	Assign string

	Int    int64
	Float  float64
	Str    string
	Bool   bool
	NodeID domain.NodeID

	Pos int
}

// Arg returns the argument bound to name, or nil.
func (e *Expr) Arg(name string) *Expr {
	for _, a := range e.Args {
		if a.Name == name {
			return a.Value
		}
	}
	return nil
}

// IsLiteral reports whether the expression is a scalar literal.
func (e *Expr) IsLiteral() bool {
	switch e.Kind {
	case KindInt, KindFloat, KindString, KindBool, KindWord:
		return true
	}
	return false
}

// Literal returns the Go value of a scalar literal.
func (e *Expr) Literal() any {
	switch e.Kind {
	case KindInt:
		return e.Int
	case KindFloat:
		return e.Float
	case KindString:
		return e.Str
	case KindBool:
		return e.Bool
	case KindWord:
		return e.Name
	}
	return nil
}

// String renders the canonical P-expression text. Parsing the output
// yields an equal tree.
func (e *Expr) String() string {
	var b strings.Builder
	e.write(&b)
	return b.String()
}

func (e *Expr) write(b *strings.Builder) {
	if e.Assign != "" {
		b.WriteString("{" + e.Assign + "}")
	}
	switch e.Kind {
	case KindInt:
		b.WriteString(strconv.FormatInt(e.Int, 10))
	case KindFloat:
		b.WriteString(FormatFloat(e.Float))
	case KindString:
		b.WriteString(strconv.Quote(e.Str))
	case KindBool:
		b.WriteString(strconv.FormatBool(e.Bool))
	case KindWord:
		if IsIdent(e.Name) && e.Name != "true" && e.Name != "false" {
			b.WriteString(e.Name)
		} else {
			b.WriteString(strconv.Quote(e.Name))
		}
	case KindRef:
		b.WriteString("$" + e.Name)
	case KindNodeRef:
		b.WriteString("$#" + strconv.Itoa(int(e.NodeID)))
	case KindCall:
		b.WriteString(e.Name)
		b.WriteString(e.Level.Suffix())
		b.WriteByte('(')
		first := true
		sep := func() {
			if !first {
				b.WriteString(", ")
			}
			first = false
		}
		for _, a := range e.Args {
			sep()
			if !a.Positional {
				b.WriteString(a.Name + "=")
			}
			a.Value.write(b)
		}
		for _, t := range e.Tags {
			sep()
			b.WriteString("^" + t)
		}
		b.WriteByte(')')
	}
}

// FormatFloat prints a float so that it re-parses as a float literal.
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEIN") {
		s += ".0"
	}
	return s
}

// IsIdent reports whether s lexes as a single identifier.
func IsIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if !isIdentRune(r, i == 0) {
			return false
		}
	}
	return true
}
