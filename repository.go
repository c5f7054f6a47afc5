package esbridge

import (
	"context"

	"github.com/kailas-cloud/esbridge/internal/connector"
	"github.com/kailas-cloud/esbridge/internal/domain/criteria"
)

// Filter is an ORM criteria object: where, order, limit, skip/offset, fields,
// native and suggests.
type Filter = map[string]any

// Page is the result of a filtered query.
type Page = connector.Page

// Repository runs CRUD operations for one model.
type Repository struct {
	model string
	conn  *connector.Connector
}

// Create stores data and returns its id. The engine assigns the id when data has none.
func (r *Repository) Create(ctx context.Context, data map[string]any) (string, error) {
	return r.conn.Create(ctx, r.model, data)
}

// Find returns the document with id, or nil when there is none.
func (r *Repository) Find(ctx context.Context, id any) (map[string]any, error) {
	return r.conn.Find(ctx, r.model, id)
}

// Exists reports whether a document with id exists.
func (r *Repository) Exists(ctx context.Context, id any) (bool, error) {
	return r.conn.Exists(ctx, r.model, id)
}

// All returns the documents matching filter. size and offset apply when the
// filter carries no limit or skip.
func (r *Repository) All(ctx context.Context, filter Filter, size, offset int) (*Page, error) {
	cr, err := criteria.Parse(filter)
	if err != nil {
		return nil, err
	}
	return r.conn.All(ctx, r.model, cr, size, offset)
}

// Count returns the number of documents matching where.
func (r *Repository) Count(ctx context.Context, where map[string]any) (int64, error) {
	cr, err := whereCriteria(where)
	if err != nil {
		return 0, err
	}
	return r.conn.Count(ctx, r.model, cr)
}

// Destroy deletes the document with id. It reports false when there was none.
func (r *Repository) Destroy(ctx context.Context, id any) (bool, error) {
	return r.conn.Destroy(ctx, r.model, id)
}

// DestroyAll deletes the documents matching where and returns how many went.
func (r *Repository) DestroyAll(ctx context.Context, where map[string]any) (int64, error) {
	cr, err := whereCriteria(where)
	if err != nil {
		return 0, err
	}
	return r.conn.DestroyAll(ctx, r.model, cr)
}

// UpdateAll applies data to the documents matching where. The connector does
// not support update-by-query, so valid input fails with ErrNotImplemented.
func (r *Repository) UpdateAll(ctx context.Context, where map[string]any, data map[string]any) (int64, error) {
	cr, err := whereCriteria(where)
	if err != nil {
		return 0, err
	}
	return r.conn.UpdateAll(ctx, r.model, cr, data)
}

// Save writes data under its id, creating the document if needed.
func (r *Repository) Save(ctx context.Context, data map[string]any) (map[string]any, error) {
	return r.conn.Save(ctx, r.model, data)
}

// UpdateOrCreate is Save that also reports whether the document was created.
func (r *Repository) UpdateOrCreate(ctx context.Context, data map[string]any) (map[string]any, bool, error) {
	return r.conn.UpdateOrCreate(ctx, r.model, data)
}

// UpdateAttributes merges data into the existing document with id.
func (r *Repository) UpdateAttributes(ctx context.Context, id any, data map[string]any) (map[string]any, error) {
	return r.conn.UpdateAttributes(ctx, r.model, id, data)
}

func whereCriteria(where map[string]any) (*criteria.Criteria, error) {
	w, err := criteria.ParseWhere(where)
	if err != nil {
		return nil, err
	}
	return &criteria.Criteria{Where: &w}, nil
}
