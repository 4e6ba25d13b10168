package schema

import (
	"strings"

	"github.com/aretw0/tendril/pkg/graph"
	"github.com/aretw0/tendril/pkg/registry"
)

// Validate checks every record of the catalog.
// Returns an error with all validation failures found.
func Validate(c *Catalog) error {
	if c == nil || len(c.Records) == 0 {
		// No records = nothing to register
		return nil
	}

	names := make(map[string]bool, len(c.Records))
	var errs []error
	for _, r := range c.Records {
		switch {
		case r.Name == "":
			errs = append(errs, &ValidationError{Reason: "empty type name"})
		case names[r.Name]:
			errs = append(errs, &ValidationError{Record: r.Name, Reason: "declared twice"})
		}
		if _, builtin := builtins[strings.ToLower(r.Name)]; builtin {
			errs = append(errs, &ValidationError{Record: r.Name, Reason: "shadows a builtin type"})
		}
		names[r.Name] = true
	}

	for _, r := range c.Records {
		fields := make(map[string]bool, len(r.Fields))
		for _, f := range r.Fields {
			if f.Name == "" {
				errs = append(errs, &ValidationError{Record: r.Name, Reason: "field without name"})
				continue
			}
			if registry.ParseKey(f.Name).Positional() {
				errs = append(errs, &ValidationError{Record: r.Name, Field: f.Name, Reason: "positional names are reserved"})
			}
			if fields[f.Name] {
				errs = append(errs, &ValidationError{Record: r.Name, Field: f.Name, Reason: "declared twice"})
			}
			fields[f.Name] = true
			if _, _, err := ParseType(f.Type, names); err != nil {
				errs = append(errs, &ValidationError{Record: r.Name, Field: f.Name, Reason: err.Error()})
			}
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// Register validates the catalog and adds its records to reg. It has the
// shape expected by tendril.WithTypes.
func (c *Catalog) Register(reg *graph.Registry) error {
	if err := Validate(c); err != nil {
		return err
	}
	records := c.names()
	for _, r := range c.Records {
		params := make([]registry.Param, 0, len(r.Fields))
		pos := 0
		for _, f := range r.Fields {
			typ, multi, _ := ParseType(f.Type, records)
			p := registry.Param{
				Name:     f.Name,
				Required: f.Required,
				Multi:    multi,
			}
			if typ != graph.TypeAny {
				p.Types = []string{typ}
			}
			if f.Key != nil && !*f.Key {
				p.MatchExclude = true
			}
			if f.Positional {
				pos++
				p.Alias = registry.PosName(pos)
			}
			params = append(params, p)
		}
		sig, err := registry.NewSignature(params...)
		if err != nil {
			return &ValidationError{Record: r.Name, Reason: err.Error()}
		}
		if err := reg.Register(r.Name, nil, sig); err != nil {
			return err
		}
	}
	return nil
}

func (c *Catalog) names() map[string]bool {
	out := make(map[string]bool, len(c.Records))
	for _, r := range c.Records {
		out[r.Name] = true
	}
	return out
}
