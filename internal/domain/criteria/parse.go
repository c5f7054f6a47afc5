package criteria

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/kailas-cloud/esbridge/internal/domain"
)

// ParseWhere decides the variant of every entry of a JSON-shaped where object once.
// Entries are visited in sorted key order so compiled output is deterministic.
func ParseWhere(raw map[string]any) (Where, error) {
	nodes, err := parseEntries(raw)
	if err != nil {
		return Where{}, err
	}
	return Where{nodes: nodes}, nil
}

func parseEntries(raw map[string]any) ([]Node, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	nodes := make([]Node, 0, len(keys))
	for _, key := range keys {
		n, err := parseEntry(key, raw[key])
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func parseEntry(key string, value any) (Node, error) {
	if IsCombinator(key) {
		items, ok := value.([]any)
		if !ok {
			// non-sequence combinator contributes nothing
			return NewCombinator(key, nil)
		}
		var children []Node
		for i, item := range items {
			tree, ok := item.(map[string]any)
			if !ok {
				return Node{}, domain.InvalidArgument("%s[%d]: expected object, got %T", key, i, item)
			}
			sub, err := parseEntries(tree)
			if err != nil {
				return Node{}, err
			}
			children = append(children, sub...)
		}
		return NewCombinator(key, children)
	}

	if m, ok := value.(map[string]any); ok {
		if len(m) == 1 {
			for op, operand := range m {
				switch {
				case IsRangeOp(op):
					return NewRange(key, op, operand)
				case op == OpInq:
					values, ok := operand.([]any)
					if !ok {
						return Node{}, domain.InvalidArgument("%s.inq: expected array, got %T", key, operand)
					}
					return NewMembership(key, values)
				case IsUnsupportedOp(op):
					return Node{}, domain.InvalidArgument("%s: operator %q is not supported", key, op)
				}
			}
		} else if n, ok, err := parseMultiOp(key, m); ok {
			return n, err
		}
	}

	n, err := NewEquality(key, value)
	if err != nil {
		return Node{}, domain.InvalidArgument("%v", err)
	}
	return n, nil
}

// parseMultiOp handles an object with several keys. Objects made only of range
// operators become one range with several bounds; any other operator key makes
// the entry invalid. Objects with no operator keys are left to equality.
func parseMultiOp(key string, m map[string]any) (Node, bool, error) {
	ops := make([]string, 0, len(m))
	ranges := 0
	for k := range m {
		switch {
		case IsRangeOp(k):
			ranges++
			ops = append(ops, k)
		case k == OpInq, IsUnsupportedOp(k), IsCombinator(k):
			ops = append(ops, k)
		}
	}
	if len(ops) == 0 {
		return Node{}, false, nil
	}
	if ranges != len(m) {
		slices.Sort(ops)
		return Node{}, true, domain.InvalidArgument("%s: operators %s cannot be combined", key, strings.Join(ops, ", "))
	}
	n, err := NewBoundedRange(key, m)
	if err != nil {
		return Node{}, true, domain.InvalidArgument("%v", err)
	}
	return n, true, nil
}

// ParseOrder accepts "a DESC, b" or ["a DESC", "b"].
func ParseOrder(raw any) (Order, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return splitOrder(strings.Split(v, ",")), nil
	case []string:
		return splitOrder(v), nil
	case []any:
		tokens := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, domain.InvalidArgument("order[%d]: expected string, got %T", i, item)
			}
			tokens = append(tokens, s)
		}
		return splitOrder(tokens), nil
	default:
		return nil, domain.InvalidArgument("order: expected string or array, got %T", raw)
	}
}

func splitOrder(tokens []string) Order {
	out := make(Order, 0, len(tokens))
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		term := SortTerm{Field: t}
		if i := strings.LastIndexAny(t, " \t"); i > 0 {
			dir := strings.ToUpper(strings.TrimSpace(t[i+1:]))
			if dir == "ASC" || dir == "DESC" {
				term.Field = strings.TrimSpace(t[:i])
				term.Desc = dir == "DESC"
			}
		}
		out = append(out, term)
	}
	return out
}

// Parse builds Criteria from a decoded JSON filter object.
// Unknown keys are ignored. A nil map yields nil criteria.
func Parse(raw map[string]any) (*Criteria, error) {
	if raw == nil {
		return nil, nil
	}
	c := &Criteria{raw: len(raw)}

	if w, ok := raw["where"]; ok && w != nil {
		m, ok := w.(map[string]any)
		if !ok {
			return nil, domain.InvalidArgument("where: expected object, got %T", w)
		}
		where, err := ParseWhere(m)
		if err != nil {
			return nil, err
		}
		c.Where = &where
	}

	order, err := ParseOrder(raw["order"])
	if err != nil {
		return nil, err
	}
	c.Order = order

	for _, p := range []struct {
		key string
		dst **int
	}{
		{"limit", &c.Limit},
		{"skip", &c.Skip},
		{"offset", &c.Offset},
	} {
		v, ok := raw[p.key]
		if !ok || v == nil {
			continue
		}
		n, err := toInt(v)
		if err != nil {
			return nil, domain.InvalidArgument("%s: %v", p.key, err)
		}
		*p.dst = &n
	}

	if f, ok := raw["fields"]; ok && f != nil {
		c.Fields = f
	}
	if n, ok := raw["native"]; ok && n != nil {
		c.Native = n
	}
	if s, ok := raw["suggests"]; ok && s != nil {
		c.Suggests = s
	}
	return c, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) || n < math.MinInt || n >= math.MaxInt {
			return 0, fmt.Errorf("expected integer, got %v", n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("expected integer, got %q", n.String())
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, fmt.Errorf("expected integer, got %q", n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}
