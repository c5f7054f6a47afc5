package elasticsearch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/kailas-cloud/esbridge/internal/engine"
)

type recorded struct {
	method string
	path   string
	query  string
	body   map[string]any
}

// fakeES answers by "METHOD /path" and records every request.
type fakeES struct {
	mu        sync.Mutex
	requests  []recorded
	responses map[string]fakeResponse
}

type fakeResponse struct {
	status int
	body   string
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}
	f.mu.Lock()
	f.requests = append(f.requests, recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, body: body})
	resp, ok := f.responses[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	if !ok {
		resp = fakeResponse{status: http.StatusOK, body: `{}`}
	}
	w.WriteHeader(resp.status)
	_, _ = io.WriteString(w, resp.body)
}

func (f *fakeES) last(t *testing.T) recorded {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatal("no requests recorded")
	}
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, responses map[string]fakeResponse) (*Client, *fakeES) {
	t.Helper()
	fake := &fakeES{responses: responses}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(engine.ConnConfig{Hosts: []string{srv.URL}, Refresh: "true"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, fake
}

var target = engine.Target{Index: "catalog", Type: "Doc"}

func TestNew_RequiresHosts(t *testing.T) {
	if _, err := New(engine.ConnConfig{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestSearch(t *testing.T) {
	c, fake := newTestClient(t, map[string]fakeResponse{
		"POST /catalog-doc/_search": {200, `{"hits":{"total":{"value":1},"hits":[{"_id":"a1","_source":{"title":"Futuro"}}]}}`},
	})
	size, from := 100, 10

	res, err := c.Search(context.Background(), engine.SearchRequest{
		Target: target,
		Body:   map[string]any{"query": map[string]any{"match_all": map[string]any{}}},
		Size:   &size,
		From:   &from,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 1 || len(res.Hits) != 1 || res.Hits[0].ID != "a1" || res.Hits[0].Source["title"] != "Futuro" {
		t.Errorf("result = %+v", res)
	}

	req := fake.last(t)
	if req.query == "" {
		t.Error("expected size/from query parameters")
	}
	if _, ok := req.body["query"]; !ok {
		t.Errorf("body = %v", req.body)
	}
}

func TestSearch_NativeBodyKeepsPaging(t *testing.T) {
	c, fake := newTestClient(t, map[string]fakeResponse{
		"POST /catalog-doc/_search": {200, `{"hits":{"total":{"value":0},"hits":[]}}`},
	})
	size, from := 10, 20

	_, err := c.Search(context.Background(), engine.SearchRequest{
		Target: target,
		Body:   map[string]any{"size": 3, "from": 1},
		Size:   &size,
		From:   &from,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := fake.last(t)
	if strings.Contains(req.query, "size=") || strings.Contains(req.query, "from=") {
		t.Errorf("query = %q, native paging should win", req.query)
	}
	if req.body["size"] != float64(3) || req.body["from"] != float64(1) {
		t.Errorf("body = %v", req.body)
	}
}

func TestSuggest(t *testing.T) {
	c, fake := newTestClient(t, map[string]fakeResponse{
		"POST /catalog-doc/_search": {200, `{"hits":{"hits":[]},"suggest":{"s":[{"text":"fu"}]}}`},
	})
	out, err := c.Suggest(context.Background(), target, map[string]any{"s": map[string]any{"text": "fu"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := out["s"]; !ok {
		t.Errorf("suggest = %v", out)
	}
	body := fake.last(t).body
	if _, ok := body["suggest"]; !ok || body["size"] != float64(0) {
		t.Errorf("body = %v", body)
	}
}

func TestGet(t *testing.T) {
	c, _ := newTestClient(t, map[string]fakeResponse{
		"GET /catalog-doc/_doc/a1":      {200, `{"_id":"a1","_version":3,"found":true,"_source":{"title":"x"}}`},
		"GET /catalog-doc/_doc/missing": {404, `{"_id":"missing","found":false}`},
	})

	hit, err := c.Get(context.Background(), target, "a1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hit.ID != "a1" || hit.Version != 3 || hit.Source["title"] != "x" {
		t.Errorf("hit = %+v", hit)
	}

	_, err = c.Get(context.Background(), target, "missing")
	if !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExists(t *testing.T) {
	c, _ := newTestClient(t, map[string]fakeResponse{
		"HEAD /catalog-doc/_doc/a1":      {200, ``},
		"HEAD /catalog-doc/_doc/missing": {404, ``},
		"HEAD /catalog-doc/_doc/broken":  {500, ``},
	})

	if ok, err := c.Exists(context.Background(), target, "a1"); err != nil || !ok {
		t.Errorf("Exists(a1) = %v, %v", ok, err)
	}
	if ok, err := c.Exists(context.Background(), target, "missing"); err != nil || ok {
		t.Errorf("Exists(missing) = %v, %v", ok, err)
	}
	if _, err := c.Exists(context.Background(), target, "broken"); err == nil {
		t.Error("expected error for 500")
	}
}

func TestCreate_WithID(t *testing.T) {
	c, fake := newTestClient(t, map[string]fakeResponse{
		"PUT /catalog-doc/_create/a1": {201, `{"_id":"a1","_version":1,"result":"created"}`},
	})
	res, err := c.Create(context.Background(), target, "a1", map[string]any{"title": "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ID != "a1" || !res.Created() {
		t.Errorf("result = %+v", res)
	}
	if got := fake.last(t).body["title"]; got != "x" {
		t.Errorf("body title = %v", got)
	}
}

func TestCreate_GeneratedID(t *testing.T) {
	c, fake := newTestClient(t, map[string]fakeResponse{
		"POST /catalog-doc/_doc": {201, `{"_id":"gen-1","_version":1,"result":"created"}`},
	})
	res, err := c.Create(context.Background(), target, "", map[string]any{"title": "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ID != "gen-1" {
		t.Errorf("id = %q", res.ID)
	}
	if req := fake.last(t); req.method != http.MethodPost {
		t.Errorf("method = %s", req.method)
	}
}

func TestCreate_Conflict(t *testing.T) {
	c, _ := newTestClient(t, map[string]fakeResponse{
		"PUT /catalog-doc/_create/a1": {409, `{"error":{"type":"version_conflict_engine_exception","reason":"document already exists"}}`},
	})
	_, err := c.Create(context.Background(), target, "a1", map[string]any{})
	if !errors.Is(err, engine.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	var ee *engine.Error
	if !errors.As(err, &ee) || ee.Op != engine.OpCreate {
		t.Errorf("expected *engine.Error with op create, got %v", err)
	}
}

func TestUpdate_Upsert(t *testing.T) {
	c, fake := newTestClient(t, map[string]fakeResponse{
		"POST /catalog-doc/_update/a1": {201, `{"_id":"a1","_version":1,"result":"created"}`},
	})
	res, err := c.Update(context.Background(), target, "a1", map[string]any{"title": "x"}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Created() {
		t.Errorf("result = %+v", res)
	}
	body := fake.last(t).body
	if body["doc_as_upsert"] != true {
		t.Errorf("body = %v", body)
	}
	if doc, _ := body["doc"].(map[string]any); doc["title"] != "x" {
		t.Errorf("doc = %v", body["doc"])
	}
}

func TestDeleteAndDeleteByQuery(t *testing.T) {
	c, fake := newTestClient(t, map[string]fakeResponse{
		"DELETE /catalog-doc/_doc/a1":       {200, `{"_id":"a1","result":"deleted"}`},
		"POST /catalog-doc/_delete_by_query": {200, `{"deleted":7}`},
	})

	res, err := c.Delete(context.Background(), target, "a1")
	if err != nil || res.Result != "deleted" {
		t.Fatalf("Delete = %+v, %v", res, err)
	}

	n, err := c.DeleteByQuery(context.Background(), target, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 7 {
		t.Errorf("deleted = %d, want 7", n)
	}
	if _, ok := fake.last(t).body["query"]; !ok {
		t.Error("delete-by-query body should carry a query")
	}
}

func TestCount(t *testing.T) {
	c, _ := newTestClient(t, map[string]fakeResponse{
		"POST /catalog-doc/_count": {200, `{"count":42}`},
	})
	n, err := c.Count(context.Background(), target, map[string]any{"match_all": map[string]any{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 42 {
		t.Errorf("count = %d", n)
	}
}

func TestEnsureIndex(t *testing.T) {
	t.Run("creates when absent", func(t *testing.T) {
		c, fake := newTestClient(t, map[string]fakeResponse{
			"HEAD /catalog-doc": {404, ``},
			"PUT /catalog-doc":  {200, `{"acknowledged":true}`},
		})
		if err := c.EnsureIndex(context.Background(), target); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if req := fake.last(t); req.method != http.MethodPut {
			t.Errorf("last request = %s %s", req.method, req.path)
		}
	})

	t.Run("no-op when present", func(t *testing.T) {
		c, fake := newTestClient(t, map[string]fakeResponse{
			"HEAD /catalog-doc": {200, ``},
		})
		if err := c.EnsureIndex(context.Background(), target); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(fake.requests) != 1 {
			t.Errorf("requests = %d, want 1", len(fake.requests))
		}
	})

	t.Run("race with concurrent create", func(t *testing.T) {
		c, _ := newTestClient(t, map[string]fakeResponse{
			"HEAD /catalog-doc": {404, ``},
			"PUT /catalog-doc":  {400, `{"error":{"type":"resource_already_exists_exception","reason":"exists"}}`},
		})
		if err := c.EnsureIndex(context.Background(), target); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestMappings(t *testing.T) {
	c, fake := newTestClient(t, map[string]fakeResponse{
		"PUT /catalog-doc/_mapping": {200, `{"acknowledged":true}`},
		"DELETE /catalog-doc":       {200, `{"acknowledged":true}`},
		"HEAD /catalog-doc":         {200, ``},
	})

	props := map[string]any{"title": map[string]any{"type": "text"}}
	if err := c.PutMapping(context.Background(), target, props); err != nil {
		t.Fatalf("PutMapping: %v", err)
	}
	if _, ok := fake.last(t).body["properties"]; !ok {
		t.Errorf("mapping body = %v", fake.last(t).body)
	}

	ok, err := c.TypeExists(context.Background(), target)
	if err != nil || !ok {
		t.Errorf("TypeExists = %v, %v", ok, err)
	}

	if err := c.DeleteMapping(context.Background(), target); err != nil {
		t.Fatalf("DeleteMapping: %v", err)
	}
	if req := fake.last(t); req.method != http.MethodDelete || req.path != "/catalog-doc" {
		t.Errorf("last request = %s %s", req.method, req.path)
	}
}

func TestPing(t *testing.T) {
	c, _ := newTestClient(t, map[string]fakeResponse{"HEAD /": {200, ``}})
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(engine.ConnConfig{Hosts: []string{url}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Ping(context.Background()); !errors.Is(err, engine.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
