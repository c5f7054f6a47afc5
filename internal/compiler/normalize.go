package compiler

import (
	"github.com/kailas-cloud/esbridge/internal/domain"
	"github.com/kailas-cloud/esbridge/internal/domain/criteria"
)

// page is the validated pagination of one request. Nil means "let the engine decide".
type page struct {
	size *int
	from *int
}

// normalize validates the id name and resolves size/from. Connector values are
// applied first and criteria limit/skip/offset override them.
func (c *Compiler) normalize(idName string, cr *criteria.Criteria, size, offset int) (page, error) {
	if idName == "" {
		return page{}, domain.InvalidArgument("id field name is required")
	}

	var p page
	switch {
	case size > 0:
		p.size = intPtr(size)
	case c.settings.DefaultSize > 0:
		p.size = intPtr(c.settings.DefaultSize)
	}
	if offset > 0 {
		p.from = intPtr(offset)
	}

	if cr == nil {
		return p, nil
	}

	if cr.Limit != nil {
		if *cr.Limit < 0 {
			return page{}, domain.InvalidArgument("limit must not be negative, got %d", *cr.Limit)
		}
		if *cr.Limit > 0 {
			p.size = intPtr(*cr.Limit)
		}
	}

	skip := cr.Skip
	if skip == nil {
		skip = cr.Offset
	}
	if skip != nil {
		if *skip < 0 {
			return page{}, domain.InvalidArgument("skip must not be negative, got %d", *skip)
		}
		if *skip > 0 {
			p.from = intPtr(*skip)
		}
	}
	return p, nil
}

func intPtr(v int) *int { return &v }
