package nodes

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/graph"
)

// leaf is the behavior shared by the scalar types. kind is the Go type
// the literal is coerced to.
type leaf struct {
	graph.Base
	kind string
}

func (l leaf) ValidInput(n *graph.Node) error {
	if n.Leaf() == nil {
		return domain.Errorf(domain.KindInvalidInput, n.ID(), "%s needs a value", n.Type())
	}
	return nil
}

func (l leaf) Coerce(v any) (any, error) {
	switch l.kind {
	case graph.TypeInt:
		switch x := v.(type) {
		case int64:
			return x, nil
		case float64:
			if x != math.Trunc(x) {
				return nil, fmt.Errorf("%v is not an integer", x)
			}
			return int64(x), nil
		case string:
			return strconv.ParseInt(x, 10, 64)
		}
	case graph.TypeFloat:
		switch x := v.(type) {
		case int64:
			return float64(x), nil
		case float64:
			return x, nil
		case string:
			return strconv.ParseFloat(x, 64)
		}
	case graph.TypeStr:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	case graph.TypeBool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			return strconv.ParseBool(x)
		}
	}
	return nil, fmt.Errorf("cannot use %T as %s", v, l.kind)
}

// Compare orders leaf values. LIKE on strings is a case-insensitive
// substring test of self within other.
func (l leaf) Compare(self, other *graph.Node, op domain.Qualifier) bool {
	if op == domain.QualLIKE {
		a, ok1 := self.Str()
		b, ok2 := other.Str()
		if ok1 && ok2 {
			return strings.Contains(strings.ToLower(b), strings.ToLower(a))
		}
	}
	c, ok := graph.CompareValues(other.Leaf(), self.Leaf())
	if !ok {
		return op == domain.QualNEQ
	}
	return op.Holds(c)
}

func (l leaf) Describe(n *graph.Node) string {
	switch v := n.Leaf().(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
