package opensearch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/kailas-cloud/esbridge/internal/engine"
)

type recorded struct {
	method string
	path   string
	body   map[string]any
}

// fakeCluster answers by "METHOD /path", falling back to "/path".
type fakeCluster struct {
	mu        sync.Mutex
	requests  []recorded
	responses map[string]string
	statuses  map[string]int
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, recorded{method: r.Method, path: r.URL.Path, body: body})
	key := r.Method + " " + r.URL.Path
	if _, ok := f.statuses[key]; !ok {
		key = r.URL.Path
	}
	status, ok := f.statuses[key]
	if !ok {
		status = http.StatusOK
	}
	resp := f.responses[key]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if resp == "" {
		resp = `{}`
	}
	_, _ = io.WriteString(w, resp)
}

func (f *fakeCluster) on(key string, status int, body string) {
	f.statuses[key] = status
	f.responses[key] = body
}

func (f *fakeCluster) last(t *testing.T) recorded {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatal("no requests recorded")
	}
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T) (*Client, *fakeCluster) {
	t.Helper()
	fake := &fakeCluster{responses: map[string]string{}, statuses: map[string]int{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(engine.ConnConfig{Hosts: []string{srv.URL}})
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

func TestSearch_PaginationInBody(t *testing.T) {
	c, fake := newTestClient(t)
	fake.on("/catalog-doc/_search", 200, `{"hits":{"total":{"value":2},"hits":[{"_id":"1","_source":{"a":1}},{"_id":"2","_source":{"a":2}}]}}`)
	size, from := 5, 10

	res, err := c.Search(context.Background(), engine.SearchRequest{
		Target: target,
		Body:   map[string]any{"sort": []any{"_doc"}},
		Size:   &size,
		From:   &from,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 2 || len(res.Hits) != 2 {
		t.Errorf("result = %+v", res)
	}

	body := fake.last(t).body
	if body["size"] != float64(5) || body["from"] != float64(10) {
		t.Errorf("body = %v", body)
	}
	if _, ok := body["sort"]; !ok {
		t.Errorf("sort missing from body: %v", body)
	}
}

func TestSearch_NativeBodyKeepsPaging(t *testing.T) {
	c, fake := newTestClient(t)
	fake.on("/catalog-doc/_search", 200, `{"hits":{"total":{"value":0},"hits":[]}}`)
	size, from := 10, 20

	_, err := c.Search(context.Background(), engine.SearchRequest{
		Target: target,
		Body:   map[string]any{"query": map[string]any{"match_all": map[string]any{}}, "size": 3},
		Size:   &size,
		From:   &from,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body := fake.last(t).body
	if body["size"] != float64(3) {
		t.Errorf("native size overridden: %v", body["size"])
	}
	if body["from"] != float64(20) {
		t.Errorf("from = %v, want 20", body["from"])
	}
}

func TestGetAndExists(t *testing.T) {
	c, fake := newTestClient(t)
	fake.on("GET /catalog-doc/_doc/1", 200, `{"_id":"1","_version":2,"found":true,"_source":{"title":"x"}}`)
	fake.on("GET /catalog-doc/_doc/2", 404, `{"_id":"2","found":false}`)
	fake.on("HEAD /catalog-doc/_doc/1", 200, ``)
	fake.on("HEAD /catalog-doc/_doc/2", 404, ``)

	hit, err := c.Get(context.Background(), target, "1")
	if err != nil || hit.Source["title"] != "x" || hit.Version != 2 {
		t.Fatalf("Get = %+v, %v", hit, err)
	}
	if _, err := c.Get(context.Background(), target, "2"); !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if ok, err := c.Exists(context.Background(), target, "1"); err != nil || !ok {
		t.Errorf("Exists(1) = %v, %v", ok, err)
	}
	if ok, err := c.Exists(context.Background(), target, "2"); err != nil || ok {
		t.Errorf("Exists(2) = %v, %v", ok, err)
	}
}

func TestCreate(t *testing.T) {
	c, fake := newTestClient(t)
	fake.on("/catalog-doc/_create/a1", 201, `{"_id":"a1","_version":1,"result":"created"}`)
	fake.on("/catalog-doc/_doc", 201, `{"_id":"generated","_version":1,"result":"created"}`)

	res, err := c.Create(context.Background(), target, "a1", map[string]any{"title": "x"})
	if err != nil || res.ID != "a1" {
		t.Fatalf("Create(a1) = %+v, %v", res, err)
	}

	res, err = c.Create(context.Background(), target, "", map[string]any{"title": "y"})
	if err != nil || res.ID != "generated" {
		t.Fatalf("Create() = %+v, %v", res, err)
	}
	if fake.last(t).body["title"] != "y" {
		t.Errorf("body = %v", fake.last(t).body)
	}
}

func TestCreate_Conflict(t *testing.T) {
	c, fake := newTestClient(t)
	fake.on("/catalog-doc/_create/a1", 409, `{"error":{"type":"version_conflict_engine_exception","reason":"exists"},"status":409}`)

	_, err := c.Create(context.Background(), target, "a1", map[string]any{})
	if !errors.Is(err, engine.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestUpdateDeleteCount(t *testing.T) {
	c, fake := newTestClient(t)
	fake.on("/catalog-doc/_update/a1", 200, `{"_id":"a1","_version":2,"result":"updated"}`)
	fake.on("DELETE /catalog-doc/_doc/a1", 200, `{"_id":"a1","result":"deleted"}`)
	fake.on("/catalog-doc/_count", 200, `{"count":3}`)
	fake.on("/catalog-doc/_delete_by_query", 200, `{"deleted":3}`)

	res, err := c.Update(context.Background(), target, "a1", map[string]any{"title": "z"}, false)
	if err != nil || res.Created() {
		t.Fatalf("Update = %+v, %v", res, err)
	}
	if _, ok := fake.last(t).body["doc_as_upsert"]; ok {
		t.Error("partial update must not upsert")
	}

	if res, err := c.Delete(context.Background(), target, "a1"); err != nil || res.Result != "deleted" {
		t.Fatalf("Delete = %+v, %v", res, err)
	}

	if n, err := c.Count(context.Background(), target, nil); err != nil || n != 3 {
		t.Errorf("Count = %d, %v", n, err)
	}
	if n, err := c.DeleteByQuery(context.Background(), target, nil); err != nil || n != 3 {
		t.Errorf("DeleteByQuery = %d, %v", n, err)
	}
}

func TestEnsureIndexAndMappings(t *testing.T) {
	c, fake := newTestClient(t)
	fake.on("HEAD /catalog-doc", 404, ``)
	fake.on("PUT /catalog-doc", 400, `{"error":{"type":"resource_already_exists_exception","reason":"exists"}}`)
	fake.on("/catalog-doc/_mapping", 200, `{"acknowledged":true}`)
	fake.on("DELETE /catalog-doc", 200, `{"acknowledged":true}`)

	if err := c.EnsureIndex(context.Background(), target); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	if err := c.PutMapping(context.Background(), target, map[string]any{"title": map[string]any{"type": "text"}}); err != nil {
		t.Fatalf("PutMapping: %v", err)
	}
	props, _ := fake.last(t).body["properties"].(map[string]any)
	if _, ok := props["title"]; !ok {
		t.Errorf("mapping body = %v", fake.last(t).body)
	}

	ok, err := c.TypeExists(context.Background(), target)
	if err != nil || ok {
		t.Errorf("TypeExists = %v, %v", ok, err)
	}
	if err := c.DeleteMapping(context.Background(), target); err != nil {
		t.Fatalf("DeleteMapping: %v", err)
	}
}

func TestPing(t *testing.T) {
	c, _ := newTestClient(t)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
