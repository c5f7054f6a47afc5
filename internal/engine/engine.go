// Package engine is the boundary with the search engine. Backends live in
// subpackages; decorators in this package add circuit breaking and instrumentation.
package engine

import (
	"context"
	"strings"
)

// Client is the full engine facade consumed by the connector and the reconciler.
//
//nolint:interfacebloat // facade -- consumers depend on the narrow interfaces they need
type Client interface {
	Searcher
	Documents
	Mappings
	Pinger
}

// Target addresses a model's documents by index and type.
type Target struct {
	Index string
	Type  string
}

// PhysicalIndex is the concrete index a typeless engine stores a Target in.
// Each (index, type) pair gets its own lowercase index "<index>-<type>".
func PhysicalIndex(t Target) string {
	switch {
	case t.Index == "":
		return strings.ToLower(t.Type)
	case t.Type == "":
		return strings.ToLower(t.Index)
	default:
		return strings.ToLower(t.Index + "-" + t.Type)
	}
}

// SearchRequest is one search call. Nil Size/From leave the engine defaults.
type SearchRequest struct {
	Target Target
	Body   map[string]any
	Size   *int
	From   *int
}

// Paging returns the size and from to send with the request. A body that
// already sets size or from keeps its own value, so the matching result is nil.
func (r SearchRequest) Paging() (size, from *int) {
	size, from = r.Size, r.From
	if _, ok := r.Body["size"]; ok {
		size = nil
	}
	if _, ok := r.Body["from"]; ok {
		from = nil
	}
	return size, from
}

// Hit is one stored document.
type Hit struct {
	ID      string
	Version int64
	Source  map[string]any
}

// SearchResult holds the hits of a search.
type SearchResult struct {
	Total int64
	Hits  []Hit
}

// WriteResult is the engine acknowledgement of a document write.
type WriteResult struct {
	ID      string
	Version int64
	// Result is the engine outcome: created, updated, deleted, noop, not_found.
	Result string
}

// Created reports whether the write created a new document.
func (w *WriteResult) Created() bool { return w != nil && w.Result == "created" }

// Pinger checks engine connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Searcher runs queries.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResult, error)
	Suggest(ctx context.Context, t Target, body map[string]any) (map[string]any, error)
	Count(ctx context.Context, t Target, query map[string]any) (int64, error)
}

// Documents provides single-document and by-query writes.
type Documents interface {
	Get(ctx context.Context, t Target, id string) (*Hit, error)
	Exists(ctx context.Context, t Target, id string) (bool, error)
	// Create stores doc under id, or under a generated id when id is empty.
	Create(ctx context.Context, t Target, id string, doc map[string]any) (*WriteResult, error)
	// Update merges doc into the stored document, creating it when upsert is set.
	Update(ctx context.Context, t Target, id string, doc map[string]any, upsert bool) (*WriteResult, error)
	Delete(ctx context.Context, t Target, id string) (*WriteResult, error)
	DeleteByQuery(ctx context.Context, t Target, query map[string]any) (int64, error)
}

// Mappings manages index and type mapping lifecycle.
type Mappings interface {
	EnsureIndex(ctx context.Context, t Target) error
	PutMapping(ctx context.Context, t Target, properties map[string]any) error
	DeleteMapping(ctx context.Context, t Target) error
	TypeExists(ctx context.Context, t Target) (bool, error)
}
