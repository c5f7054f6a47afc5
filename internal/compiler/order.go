package compiler

import (
	"github.com/kailas-cloud/esbridge/internal/domain/criteria"
	"github.com/kailas-cloud/esbridge/internal/model"
)

// CompileOrder turns an order list into engine sort clauses using the legacy
// sort identifier key. Ascending terms are bare field names, descending terms
// are {field: "desc"}.
func CompileOrder(idName string, order criteria.Order) []any {
	return compileOrder(idName, order, SortIDKey)
}

func compileOrder(idName string, order criteria.Order, sortIDKey string) []any {
	sort := make([]any, 0, len(order))
	for _, term := range order {
		field := term.Field
		if field == idName || field == model.DefaultIDName {
			field = sortIDKey
		}
		if term.Desc {
			sort = append(sort, map[string]any{field: "desc"})
			continue
		}
		sort = append(sort, field)
	}
	return sort
}

// defaultSort sorts by the internal key when the engine generates ids,
// otherwise by the id field itself.
func defaultSort(idName string, generated bool, sortIDKey string) []any {
	if generated {
		return []any{sortIDKey}
	}
	return []any{idName}
}
