package model

import (
	"fmt"
	"strconv"
)

// Kind is the declared value type of a property.
type Kind string

// Supported property kinds.
const (
	KindAny     Kind = ""
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindDate    Kind = "date"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
)

func (k Kind) valid() bool {
	switch k {
	case KindAny, KindString, KindNumber, KindBoolean, KindDate, KindArray, KindObject:
		return true
	default:
		return false
	}
}

// Property is one declared field of a model.
type Property struct {
	Kind Kind
}

// Coerce converts a stored value to the property's declared kind.
// Values that cannot be converted are returned unchanged.
func (p Property) Coerce(v any) any {
	switch p.Kind {
	case KindString:
		switch s := v.(type) {
		case string:
			return s
		case float64:
			return strconv.FormatFloat(s, 'f', -1, 64)
		default:
			return fmt.Sprint(v)
		}
	case KindNumber:
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case int64:
			return float64(n)
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				return f
			}
		}
		return v
	case KindBoolean:
		if s, ok := v.(string); ok {
			if b, err := strconv.ParseBool(s); err == nil {
				return b
			}
		}
		return v
	case KindArray:
		switch a := v.(type) {
		case []any:
			return a
		case string:
			if a == "" {
				return []any{}
			}
			return []any{a}
		default:
			return []any{fmt.Sprint(v)}
		}
	default:
		return v
	}
}

// Match keeps the declared properties of data, coerced to their kinds.
// Missing and null values are omitted.
func (d Definition) Match(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	doc := make(map[string]any, len(d.Properties))
	for name, p := range d.Properties {
		v, ok := data[name]
		if !ok || v == nil {
			continue
		}
		doc[name] = p.Coerce(v)
	}
	return doc
}

// FromSource reshapes an engine _source into a model document and fills the id
// field from the engine identifier when the source does not carry it.
// Models without declared properties get the source as is.
func (d Definition) FromSource(id string, source map[string]any) map[string]any {
	var doc map[string]any
	if len(d.Properties) == 0 {
		doc = make(map[string]any, len(source)+1)
		for k, v := range source {
			doc[k] = v
		}
	} else {
		doc = d.Match(source)
		if doc == nil {
			doc = map[string]any{}
		}
	}
	if _, ok := doc[d.idName()]; !ok && id != "" {
		doc[d.idName()] = id
	}
	return doc
}
