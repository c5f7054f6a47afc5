// Package mapping loads declared engine mappings and reconciles them against
// live index state.
package mapping

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Declaration is the declared mapping for one model.
type Declaration struct {
	Name       string         `json:"name"`
	Index      string         `json:"index,omitempty"`
	Type       string         `json:"type,omitempty"`
	Properties map[string]any `json:"properties"`
}

// Declarations is the read-only set of mapping declarations loaded at startup.
// Order of declaration is preserved.
type Declarations struct {
	list []Declaration
}

// NewDeclarations wraps declarations built in code. Duplicates are kept and
// reported by For.
func NewDeclarations(list ...Declaration) *Declarations {
	return &Declarations{list: append([]Declaration(nil), list...)}
}

const declarationSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["name", "properties"],
    "additionalProperties": false,
    "properties": {
      "name": {"type": "string", "minLength": 1},
      "index": {"type": "string"},
      "type": {"type": "string"},
      "properties": {"type": "object"}
    }
  }
}`

var compiledSchema = mustSchema(declarationSchema)

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("mapping: invalid declaration schema: %v", err))
	}
	return schema
}

// LoadDeclarations reads a JSON array of declarations from path.
func LoadDeclarations(path string) (*Declarations, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read mappings file: %w", err)
	}
	d, err := ParseDeclarations(data)
	if err != nil {
		return nil, fmt.Errorf("mappings file %s: %w", path, err)
	}
	return d, nil
}

// ParseDeclarations validates data against the declaration schema and decodes it.
// A model declared twice is rejected.
func ParseDeclarations(data []byte) (*Declarations, error) {
	result, err := compiledSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return nil, fmt.Errorf("invalid declarations: %s", strings.Join(msgs, "; "))
	}

	var list []Declaration
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode declarations: %w", err)
	}

	seen := make(map[string]struct{}, len(list))
	for _, decl := range list {
		if _, dup := seen[decl.Name]; dup {
			return nil, fmt.Errorf("model %q declared more than once", decl.Name)
		}
		seen[decl.Name] = struct{}{}
	}
	return &Declarations{list: list}, nil
}

// For returns the declaration for model, or nil if there is none.
func (d *Declarations) For(model string) (*Declaration, error) {
	if d == nil {
		return nil, nil
	}
	var found *Declaration
	for i := range d.list {
		if d.list[i].Name != model {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("model %q declared more than once", model)
		}
		found = &d.list[i]
	}
	return found, nil
}

// Routing returns the declared index and type for model.
func (d *Declarations) Routing(model string) (index, typ string, ok bool) {
	decl, err := d.For(model)
	if err != nil || decl == nil {
		return "", "", false
	}
	return decl.Index, decl.Type, true
}

// Names returns the declared model names in declaration order, without duplicates.
func (d *Declarations) Names() []string {
	if d == nil {
		return nil
	}
	names := make([]string, 0, len(d.list))
	seen := make(map[string]struct{}, len(d.list))
	for _, decl := range d.list {
		if _, ok := seen[decl.Name]; ok {
			continue
		}
		seen[decl.Name] = struct{}{}
		names = append(names, decl.Name)
	}
	return names
}

// Len reports the number of declarations.
func (d *Declarations) Len() int {
	if d == nil {
		return 0
	}
	return len(d.list)
}
