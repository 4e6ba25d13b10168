package schema

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Parse decodes and validates a YAML catalog. Record and field order is
// kept from the document.
func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Types yaml.Node `yaml:"types"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{}
	if doc.Types.Kind == 0 {
		return c, nil
	}
	if doc.Types.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("catalog: line %d: types must be a mapping", doc.Types.Line)
	}
	for i := 0; i+1 < len(doc.Types.Content); i += 2 {
		name, body := doc.Types.Content[i], doc.Types.Content[i+1]
		r, err := decodeRecord(name.Value, body)
		if err != nil {
			return nil, err
		}
		c.Records = append(c.Records, r)
	}

	if err := Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads and parses the catalog at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Merge concatenates catalogs in order.
func Merge(catalogs ...*Catalog) *Catalog {
	out := &Catalog{}
	for _, c := range catalogs {
		if c != nil {
			out.Records = append(out.Records, c.Records...)
		}
	}
	return out
}

func decodeRecord(name string, body *yaml.Node) (Record, error) {
	r := Record{Name: name}
	switch body.Kind {
	case yaml.MappingNode:
	case yaml.ScalarNode:
		if body.Tag == "!!null" {
			return r, nil
		}
		fallthrough
	default:
		return r, fmt.Errorf("catalog: line %d: type %q must map field names to types", body.Line, name)
	}

	for i := 0; i+1 < len(body.Content); i += 2 {
		key, value := body.Content[i], body.Content[i+1]
		var raw any
		if err := value.Decode(&raw); err != nil {
			return r, fmt.Errorf("catalog: line %d: %w", value.Line, err)
		}
		// "days: int" is shorthand for "days: {type: int}"
		if s, ok := raw.(string); ok {
			raw = map[string]any{"type": s}
		}

		f := Field{Name: key.Value}
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			ErrorUnused: true,
			Result:      &f,
		})
		if err != nil {
			return r, err
		}
		if err := dec.Decode(raw); err != nil {
			return r, fmt.Errorf("catalog: line %d: type %q field %q: %w", value.Line, name, key.Value, err)
		}
		if f.Type == "" {
			f.Type = "any"
		}
		r.Fields = append(r.Fields, f)
	}
	return r, nil
}
