// Package criteria holds the ORM-shaped filter object and its predicate tree.
package criteria

// SortTerm is one "field [ASC|DESC]" token.
type SortTerm struct {
	Field string
	Desc  bool
}

// Order is an ordered list of sort terms.
type Order []SortTerm

// Criteria is a parsed filter: {where, order, limit, skip|offset, fields, native, suggests}.
// Native and Suggests are engine-shaped bodies passed through verbatim.
type Criteria struct {
	Where    *Where
	Order    Order
	Limit    *int
	Skip     *int
	Offset   *int
	Fields   any
	Native   any
	Suggests any

	raw int
}

// IsEmpty reports whether the criteria object had no keys at all ({}).
func (c *Criteria) IsEmpty() bool {
	if c == nil {
		return true
	}
	if c.raw > 0 {
		return false
	}
	return c.Where == nil && len(c.Order) == 0 && c.Limit == nil && c.Skip == nil &&
		c.Offset == nil && c.Fields == nil && c.Native == nil && c.Suggests == nil
}
