package criteria

import (
	"fmt"
	"maps"
	"slices"
)

// Kind tags the variant held by a Node.
type Kind int

const (
	// KindEquality is a {field: value} leaf.
	KindEquality Kind = iota
	// KindRange is a {field: {gte|gt|lte|lt: bound, ...}} leaf.
	KindRange
	// KindMembership is a {field: {inq: [values...]}} leaf.
	KindMembership
	// KindCombinator is an {and|or|nor: [trees...]} node.
	KindCombinator
)

func (k Kind) String() string {
	switch k {
	case KindEquality:
		return "equality"
	case KindRange:
		return "range"
	case KindMembership:
		return "membership"
	case KindCombinator:
		return "combinator"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Range operators.
const (
	OpGTE = "gte"
	OpGT  = "gt"
	OpLTE = "lte"
	OpLT  = "lt"
)

// Membership operator.
const OpInq = "inq"

// Combinator operators.
const (
	OpAnd = "and"
	OpOr  = "or"
	OpNor = "nor"
)

var rangeOps = []string{OpGTE, OpGT, OpLTE, OpLT}

var combinatorOps = []string{OpAnd, OpOr, OpNor}

// unsupportedOps are rejected at parse time so they are never half-translated.
var unsupportedOps = []string{"between", "nin", "near", "neq", "like", "nlike", "ilike", "nilike", "regexp"}

// IsRangeOp reports whether op is one of gte, gt, lte, lt.
func IsRangeOp(op string) bool { return slices.Contains(rangeOps, op) }

// IsCombinator reports whether op is one of and, or, nor.
func IsCombinator(op string) bool { return slices.Contains(combinatorOps, op) }

// IsUnsupportedOp reports whether op is a known operator without an engine translation.
func IsUnsupportedOp(op string) bool { return slices.Contains(unsupportedOps, op) }

// Node is one predicate in a where tree. Exactly one variant is populated,
// selected by Kind.
type Node struct {
	kind     Kind
	field    string
	op       string
	value    any
	values   []any
	bounds   map[string]any
	children []Node
}

// NewEquality creates a {field: value} predicate.
func NewEquality(field string, value any) (Node, error) {
	if field == "" {
		return Node{}, fmt.Errorf("predicate field is required")
	}
	return Node{kind: KindEquality, field: field, value: value}, nil
}

// NewRange creates a single-bound range predicate.
func NewRange(field, op string, bound any) (Node, error) {
	if field == "" {
		return Node{}, fmt.Errorf("predicate field is required")
	}
	if !IsRangeOp(op) {
		return Node{}, fmt.Errorf("unknown range operator %q", op)
	}
	return Node{kind: KindRange, field: field, op: op, value: bound, bounds: map[string]any{op: bound}}, nil
}

// NewBoundedRange creates a range predicate with one or more bounds, keyed by
// range operator. A single bound is equivalent to NewRange.
func NewBoundedRange(field string, bounds map[string]any) (Node, error) {
	if len(bounds) == 1 {
		for op, bound := range bounds {
			return NewRange(field, op, bound)
		}
	}
	if field == "" {
		return Node{}, fmt.Errorf("predicate field is required")
	}
	if len(bounds) == 0 {
		return Node{}, fmt.Errorf("range on %q has no bounds", field)
	}
	own := make(map[string]any, len(bounds))
	for op, bound := range bounds {
		if !IsRangeOp(op) {
			return Node{}, fmt.Errorf("unknown range operator %q", op)
		}
		own[op] = bound
	}
	return Node{kind: KindRange, field: field, bounds: own}, nil
}

// NewMembership creates an inq predicate over the candidate values.
func NewMembership(field string, values []any) (Node, error) {
	if field == "" {
		return Node{}, fmt.Errorf("predicate field is required")
	}
	return Node{kind: KindMembership, field: field, op: OpInq, values: values}, nil
}

// NewCombinator creates an and/or/nor node over already parsed children.
func NewCombinator(op string, children []Node) (Node, error) {
	if !IsCombinator(op) {
		return Node{}, fmt.Errorf("unknown combinator %q", op)
	}
	return Node{kind: KindCombinator, op: op, children: children}, nil
}

// Kind returns the variant tag.
func (n Node) Kind() Kind { return n.kind }

// Field returns the field name of a leaf. Empty for combinators.
func (n Node) Field() string { return n.field }

// Op returns the range, membership or combinator operator. Empty for equality
// and for ranges with more than one bound.
func (n Node) Op() string { return n.op }

// Value returns the equality value or the range bound.
func (n Node) Value() any { return n.value }

// Bounds returns the range bounds keyed by operator.
func (n Node) Bounds() map[string]any { return maps.Clone(n.bounds) }

// Values returns the membership candidates.
func (n Node) Values() []any { return n.values }

// Children returns the nodes nested under a combinator.
func (n Node) Children() []Node { return n.children }

// Where is a parsed predicate tree: the top-level entries of a where object.
type Where struct {
	nodes []Node
}

// NewWhere wraps already parsed nodes.
func NewWhere(nodes ...Node) Where {
	return Where{nodes: nodes}
}

// Nodes returns the top-level predicates in traversal order.
func (w Where) Nodes() []Node { return w.nodes }

// IsEmpty reports whether the tree has no predicates (the {} tree).
func (w Where) IsEmpty() bool { return len(w.nodes) == 0 }
