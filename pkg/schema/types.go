package schema

import (
	"fmt"
	"strings"

	"github.com/aretw0/tendril/pkg/graph"
)

// Field is one declared input of a record type.
type Field struct {
	Name string `mapstructure:"-"`
	// Type is the declared type string, e.g. "int", "[string]" or "Trip".
	Type       string `mapstructure:"type"`
	Required   bool   `mapstructure:"required"`
	Positional bool   `mapstructure:"positional"`
	// Key excludes the field from object matching when false. Defaults to true.
	Key *bool `mapstructure:"key"`
}

// Record is a declared record type.
type Record struct {
	Name   string
	Fields []Field
}

// Catalog is an ordered set of record types.
type Catalog struct {
	Records []Record
}

var builtins = map[string]string{
	"string": graph.TypeStr,
	"str":    graph.TypeStr,
	"int":    graph.TypeInt,
	"float":  graph.TypeFloat,
	"bool":   graph.TypeBool,
	"any":    graph.TypeAny,
	"node":   graph.TypeAny,
}

// ParseType resolves a declared type string to a node type name and
// whether the field accepts several values. Records lists the record
// names the type may refer to.
func ParseType(typeStr string, records map[string]bool) (string, bool, error) {
	s := strings.TrimSpace(typeStr)
	multi := false
	if len(s) > 2 && s[0] == '[' && s[len(s)-1] == ']' {
		multi = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if s == "" {
		return "", false, fmt.Errorf("empty type")
	}
	if name, ok := builtins[strings.ToLower(s)]; ok {
		return name, multi, nil
	}
	if records[s] {
		return s, multi, nil
	}
	return "", false, fmt.Errorf("unsupported type: %s", typeStr)
}
