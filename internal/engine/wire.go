package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Response bodies shared by the Elasticsearch and OpenSearch REST APIs.

// SearchResponse is the _search response.
type SearchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID      string         `json:"_id"`
			Version int64          `json:"_version"`
			Source  map[string]any `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
	Suggest map[string]any `json:"suggest"`
}

// Result converts the response into a SearchResult.
func (r *SearchResponse) Result() *SearchResult {
	out := &SearchResult{Total: r.Hits.Total.Value, Hits: make([]Hit, 0, len(r.Hits.Hits))}
	for _, h := range r.Hits.Hits {
		out.Hits = append(out.Hits, Hit{ID: h.ID, Version: h.Version, Source: h.Source})
	}
	return out
}

// GetResponse is the GET /<index>/_doc/<id> response.
type GetResponse struct {
	ID      string         `json:"_id"`
	Version int64          `json:"_version"`
	Found   bool           `json:"found"`
	Source  map[string]any `json:"_source"`
}

// WriteResponse is the create/index/update/delete response.
type WriteResponse struct {
	ID          string `json:"_id"`
	Version     int64  `json:"_version"`
	ResultValue string `json:"result"`
}

// Result converts the response into a WriteResult.
func (r *WriteResponse) Result() *WriteResult {
	return &WriteResult{ID: r.ID, Version: r.Version, Result: r.ResultValue}
}

// CountResponse is the _count response.
type CountResponse struct {
	Count int64 `json:"count"`
}

// DeleteByQueryResponse is the _delete_by_query response.
type DeleteByQueryResponse struct {
	Deleted int64 `json:"deleted"`
}

// Encode marshals v into a request body reader.
func Encode(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	return bytes.NewReader(b), nil
}

// QueryBody wraps a query clause as a request body. A nil query matches all.
func QueryBody(query map[string]any) map[string]any {
	if query == nil {
		query = map[string]any{"match_all": map[string]any{}}
	}
	return map[string]any{"query": query}
}

// SuggestBody wraps suggesters into a hitless search body.
func SuggestBody(suggesters map[string]any) map[string]any {
	return map[string]any{"size": 0, "suggest": suggesters}
}

// UpdateBody is the partial update body.
func UpdateBody(doc map[string]any, upsert bool) map[string]any {
	body := map[string]any{"doc": doc}
	if upsert {
		body["doc_as_upsert"] = true
	}
	return body
}

// MappingBody is the put-mapping body.
func MappingBody(properties map[string]any) map[string]any {
	return map[string]any{"properties": properties}
}
