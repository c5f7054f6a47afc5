package compiler

import "github.com/kailas-cloud/esbridge/internal/domain/criteria"

// Engine reserved keys.
const (
	// IDKey is the engine's document identifier field.
	IDKey = "_id"
	// SortIDKey is the legacy sort-safe identifier key used when none is configured.
	SortIDKey = "_uid"
)

// Query is a compiled engine query document.
type Query = map[string]any

// accumulator collects clauses for the single root bool query.
// Combinators never open nested bools; everything flattens here.
type accumulator struct {
	must    []any
	should  []any
	mustNot []any
}

// CompileWhere turns a predicate tree into an engine query.
// The empty tree compiles to {match_all:{}}; otherwise the result is a bool query
// whose empty clause lists are omitted.
func CompileWhere(idName string, where criteria.Where) Query {
	if where.IsEmpty() {
		return Query{"match_all": map[string]any{}}
	}

	acc := &accumulator{}
	for _, n := range where.Nodes() {
		acc.add(idName, n, "")
	}
	return Query{"bool": acc.bool()}
}

func (a *accumulator) add(idName string, n criteria.Node, parent string) {
	switch n.Kind() {
	case criteria.KindCombinator:
		for _, child := range n.Children() {
			a.add(idName, child, n.Op())
		}
	case criteria.KindRange:
		field := rewriteID(idName, n.Field())
		a.put(parent, map[string]any{
			"range": map[string]any{field: n.Bounds()},
		})
	case criteria.KindMembership:
		// inq is always OR-combined, whatever the enclosing combinator says
		field := rewriteID(idName, n.Field())
		for _, v := range n.Values() {
			a.should = append(a.should, match(field, v))
		}
	case criteria.KindEquality:
		a.put(parent, match(rewriteID(idName, n.Field()), n.Value()))
	}
}

func (a *accumulator) put(parent string, clause any) {
	switch parent {
	case criteria.OpOr:
		a.should = append(a.should, clause)
	case criteria.OpNor:
		a.mustNot = append(a.mustNot, clause)
	default:
		a.must = append(a.must, clause)
	}
}

func (a *accumulator) bool() map[string]any {
	b := make(map[string]any, 3)
	if len(a.must) > 0 {
		b["must"] = a.must
	}
	if len(a.should) > 0 {
		b["should"] = a.should
	}
	if len(a.mustNot) > 0 {
		b["must_not"] = a.mustNot
	}
	return b
}

func match(field string, v any) map[string]any {
	return map[string]any{"match": map[string]any{field: v}}
}

func rewriteID(idName, field string) string {
	if idName != "" && field == idName {
		return IDKey
	}
	return field
}
