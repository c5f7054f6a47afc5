package compiler

import (
	"testing"

	"github.com/kailas-cloud/esbridge/internal/domain/criteria"
)

func mustOrder(t *testing.T, raw any) criteria.Order {
	t.Helper()
	o, err := criteria.ParseOrder(raw)
	if err != nil {
		t.Fatalf("parse order %v: %v", raw, err)
	}
	return o
}

func TestCompileOrder(t *testing.T) {
	tests := []struct {
		name  string
		idKey string
		order any
		want  string
	}{
		{"desc", "id", "name DESC", `[{"name":"desc"}]`},
		{"asc bare", "id", "name", `["name"]`},
		{"explicit asc", "id", "name ASC", `["name"]`},
		{"id field", "code", "code", `["_uid"]`},
		{"id alias", "code", "id DESC", `[{"_uid":"desc"}]`},
		{"list", "id", []any{"a DESC", "b"}, `[{"a":"desc"},"b"]`},
		{"comma string", "id", "a DESC,  b ASC", `[{"a":"desc"},"b"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompileOrder(tt.idKey, mustOrder(t, tt.order))
			assertJSON(t, got, tt.want)
		})
	}
}

func TestCompileOrder_CustomSortKey(t *testing.T) {
	got := compileOrder("id", mustOrder(t, "id"), "_doc")
	assertJSON(t, got, `["_doc"]`)
}

func TestDefaultSort(t *testing.T) {
	assertJSON(t, defaultSort("id", true, SortIDKey), `["_uid"]`)
	assertJSON(t, defaultSort("code", false, SortIDKey), `["code"]`)
}
