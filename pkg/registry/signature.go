package registry

import (
	"fmt"
	"strconv"
	"strings"
)

// View selects which value of an input a node reads during execution.
type View int

const (
	// ViewExt reads the evaluated result of the input (extension).
	ViewExt View = iota
	// ViewInt reads the input node itself (intension).
	ViewInt
)

// AnyType is the type name accepted by every param and matching every node.
const AnyType = "Node"

// Param describes one declared input of a node type.
type Param struct {
	Name  string
	Types []string // allowed input types; empty allows any

	Required bool
	Multi    bool
	View     View

	// MatchExclude skips the param when matching objects field-by-field.
	MatchExclude bool
	// MatchMissingOK lets a constraint field absent on the candidate pass
	// when the caller asked for missing-tolerant matching.
	MatchMissingOK bool
	// Property marks a derived (computed) field rather than a stored input.
	Property bool
	// OmitOnDuplicate drops the input when the node is copied by revise.
	OmitOnDuplicate bool

	// Alias is the positional key ("pos1", "pos2", ...) resolving to this param.
	Alias string
}

// Allows reports whether a node of the given type may be bound to the param.
func (p *Param) Allows(typeName string) bool {
	if len(p.Types) == 0 {
		return true
	}
	for _, t := range p.Types {
		if t == typeName || t == AnyType {
			return true
		}
	}
	return false
}

// ParamKey is a parsed input name: either a named key or a positional one.
type ParamKey struct {
	Name string
	Pos  int // 1-based; zero for named keys
}

// Positional reports whether the key is a posN key.
func (k ParamKey) Positional() bool {
	return k.Pos > 0
}

func (k ParamKey) String() string {
	if k.Positional() {
		return PosName(k.Pos)
	}
	return k.Name
}

// PosName returns the canonical positional input name for a 1-based index.
func PosName(i int) string {
	return "pos" + strconv.Itoa(i)
}

// ParseKey splits an input name into a ParamKey.
func ParseKey(name string) ParamKey {
	if rest, ok := strings.CutPrefix(name, "pos"); ok {
		if n, err := strconv.Atoi(rest); err == nil && n > 0 {
			return ParamKey{Name: name, Pos: n}
		}
	}
	return ParamKey{Name: name}
}

// Signature is the ordered parameter list of a node type.
type Signature struct {
	params   []*Param
	byName   map[string]*Param
	aliases  map[int]string
	catchAll *Param
}

// NewSignature builds a signature and resolves positional aliases once.
func NewSignature(params ...Param) (*Signature, error) {
	s := &Signature{
		byName:  make(map[string]*Param),
		aliases: make(map[int]string),
	}
	for i := range params {
		if err := s.add(params[i]); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MustSignature is NewSignature that panics on a malformed declaration.
func MustSignature(params ...Param) *Signature {
	s, err := NewSignature(params...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Signature) add(p Param) error {
	if p.Name == "" {
		return fmt.Errorf("registry: param without name")
	}
	if _, dup := s.byName[p.Name]; dup {
		return fmt.Errorf("registry: duplicate param %q", p.Name)
	}
	param := p
	if p.Alias != "" {
		key := ParseKey(p.Alias)
		if !key.Positional() {
			return fmt.Errorf("registry: alias %q of %q is not positional", p.Alias, p.Name)
		}
		if other, taken := s.aliases[key.Pos]; taken {
			return fmt.Errorf("registry: alias %q used by %q and %q", p.Alias, other, p.Name)
		}
		s.aliases[key.Pos] = p.Name
	}
	s.params = append(s.params, &param)
	s.byName[p.Name] = &param
	return nil
}

// WithPositional declares the unbounded catch-all positional slot.
// Any posN not aliased explicitly resolves to it.
func (s *Signature) WithPositional(p Param) *Signature {
	if p.Name == "" {
		p.Name = "pos"
	}
	s.catchAll = &p
	return s
}

// Params returns the declared params in declaration order.
func (s *Signature) Params() []*Param {
	return s.params
}

// CatchAll returns the positional catch-all param, if any.
func (s *Signature) CatchAll() *Param {
	return s.catchAll
}

// Resolve maps an input name to its param and canonical input name.
// Aliased positional keys are renamed to the real param name; keys
// absorbed by the catch-all keep their posN name.
func (s *Signature) Resolve(name string) (*Param, string, bool) {
	if s == nil {
		return nil, "", false
	}
	if p, ok := s.byName[name]; ok {
		return p, name, true
	}
	key := ParseKey(name)
	if !key.Positional() {
		return nil, "", false
	}
	if real, ok := s.aliases[key.Pos]; ok {
		return s.byName[real], real, true
	}
	if s.catchAll != nil {
		return s.catchAll, name, true
	}
	return nil, "", false
}

// Allows reports whether the signature accepts an input with this name.
func (s *Signature) Allows(name string) bool {
	_, _, ok := s.Resolve(name)
	return ok
}

// Required returns the names of required params.
func (s *Signature) Required() []string {
	var out []string
	for _, p := range s.params {
		if p.Required {
			out = append(out, p.Name)
		}
	}
	return out
}

// Order returns the declaration index used to sort inputs; catch-all
// positional inputs sort after declared params by their position.
func (s *Signature) Order(name string) int {
	for i, p := range s.params {
		if p.Name == name {
			return i
		}
	}
	if key := ParseKey(name); key.Positional() {
		return len(s.params) + key.Pos
	}
	return len(s.params) + 1<<20
}

func (s *Signature) String() string {
	parts := make([]string, 0, len(s.params)+1)
	for _, p := range s.params {
		var b strings.Builder
		b.WriteString(p.Name)
		if p.Alias != "" {
			fmt.Fprintf(&b, "|%s", p.Alias)
		}
		if len(p.Types) > 0 {
			fmt.Fprintf(&b, ":%s", strings.Join(p.Types, "|"))
		}
		if p.Required {
			b.WriteString("!")
		}
		if p.Multi {
			b.WriteString("*")
		}
		parts = append(parts, b.String())
	}
	if s.catchAll != nil {
		t := ""
		if len(s.catchAll.Types) > 0 {
			t = ":" + strings.Join(s.catchAll.Types, "|")
		}
		parts = append(parts, "pos..."+t)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
