// Package elasticsearch implements engine.Client over go-elasticsearch esapi requests.
// Elasticsearch 7+ has no mapping types, so every (index, type) pair lives in its own
// physical index (see engine.PhysicalIndex).
package elasticsearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/kailas-cloud/esbridge/internal/engine"
)

// Compile-time check: Client implements engine.Client.
var _ engine.Client = (*Client)(nil)

// Client implements engine.Client for Elasticsearch.
type Client struct {
	es  *elasticsearch.Client
	cfg engine.ConnConfig
}

// New creates an Elasticsearch client. No request is issued until the first call.
func New(cfg engine.ConnConfig) (*Client, error) {
	if len(cfg.Hosts) == 0 {
		return nil, fmt.Errorf("hosts is required")
	}
	transport, err := cfg.HTTPTransport()
	if err != nil {
		return nil, err
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Hosts,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client creation error: %w", err)
	}
	return &Client{es: es, cfg: cfg}, nil
}

type request interface {
	Do(ctx context.Context, transport esapi.Transport) (*esapi.Response, error)
}

// do runs req and decodes a 2xx body into dst (if non-nil).
func (c *Client) do(ctx context.Context, op string, req request, dst any) error {
	ctx, cancel := c.cfg.WithTimeout(ctx)
	defer cancel()

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return engine.Unavailable(op, err)
	}
	if res.Body != nil {
		defer func(body io.ReadCloser) { _ = body.Close() }(res.Body)
	}

	if res.IsError() {
		return &engine.Error{Op: op, Err: engine.DecodeError(res.StatusCode, res.Body)}
	}
	if dst == nil || res.Body == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
		return &engine.Error{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) Search(ctx context.Context, req engine.SearchRequest) (*engine.SearchResult, error) {
	size, from := req.Paging()
	esReq := esapi.SearchRequest{
		Index: []string{engine.PhysicalIndex(req.Target)},
		Size:  size,
		From:  from,
	}
	if req.Body != nil {
		body, err := engine.Encode(req.Body)
		if err != nil {
			return nil, &engine.Error{Op: engine.OpSearch, Err: err}
		}
		esReq.Body = body
	}

	var resp engine.SearchResponse
	if err := c.do(ctx, engine.OpSearch, esReq, &resp); err != nil {
		return nil, err
	}
	return resp.Result(), nil
}

func (c *Client) Suggest(ctx context.Context, t engine.Target, body map[string]any) (map[string]any, error) {
	r, err := engine.Encode(engine.SuggestBody(body))
	if err != nil {
		return nil, &engine.Error{Op: engine.OpSuggest, Err: err}
	}
	var resp engine.SearchResponse
	err = c.do(ctx, engine.OpSuggest, esapi.SearchRequest{
		Index: []string{engine.PhysicalIndex(t)},
		Body:  r,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Suggest, nil
}

func (c *Client) Count(ctx context.Context, t engine.Target, query map[string]any) (int64, error) {
	r, err := engine.Encode(engine.QueryBody(query))
	if err != nil {
		return 0, &engine.Error{Op: engine.OpCount, Err: err}
	}
	var resp engine.CountResponse
	err = c.do(ctx, engine.OpCount, esapi.CountRequest{
		Index: []string{engine.PhysicalIndex(t)},
		Body:  r,
	}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (c *Client) Get(ctx context.Context, t engine.Target, id string) (*engine.Hit, error) {
	var resp engine.GetResponse
	err := c.do(ctx, engine.OpGet, esapi.GetRequest{
		Index:      engine.PhysicalIndex(t),
		DocumentID: id,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Found {
		return nil, &engine.Error{Op: engine.OpGet, Err: engine.ErrNotFound}
	}
	return &engine.Hit{ID: resp.ID, Version: resp.Version, Source: resp.Source}, nil
}

func (c *Client) Exists(ctx context.Context, t engine.Target, id string) (bool, error) {
	err := c.do(ctx, engine.OpExists, esapi.ExistsRequest{
		Index:      engine.PhysicalIndex(t),
		DocumentID: id,
	}, nil)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, engine.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (c *Client) Create(ctx context.Context, t engine.Target, id string, doc map[string]any) (*engine.WriteResult, error) {
	body, err := engine.Encode(doc)
	if err != nil {
		return nil, &engine.Error{Op: engine.OpCreate, Err: err}
	}
	var req request
	if id == "" {
		// no id: POST /<index>/_doc lets the engine generate one
		req = esapi.IndexRequest{Index: engine.PhysicalIndex(t), Body: body, Refresh: c.cfg.Refresh}
	} else {
		req = esapi.CreateRequest{Index: engine.PhysicalIndex(t), DocumentID: id, Body: body, Refresh: c.cfg.Refresh}
	}

	var resp engine.WriteResponse
	if err := c.do(ctx, engine.OpCreate, req, &resp); err != nil {
		return nil, err
	}
	return resp.Result(), nil
}

func (c *Client) Update(
	ctx context.Context, t engine.Target, id string, doc map[string]any, upsert bool,
) (*engine.WriteResult, error) {
	body, err := engine.Encode(engine.UpdateBody(doc, upsert))
	if err != nil {
		return nil, &engine.Error{Op: engine.OpUpdate, Err: err}
	}
	var resp engine.WriteResponse
	err = c.do(ctx, engine.OpUpdate, esapi.UpdateRequest{
		Index:      engine.PhysicalIndex(t),
		DocumentID: id,
		Body:       body,
		Refresh:    c.cfg.Refresh,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Result(), nil
}

func (c *Client) Delete(ctx context.Context, t engine.Target, id string) (*engine.WriteResult, error) {
	var resp engine.WriteResponse
	err := c.do(ctx, engine.OpDelete, esapi.DeleteRequest{
		Index:      engine.PhysicalIndex(t),
		DocumentID: id,
		Refresh:    c.cfg.Refresh,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Result(), nil
}

func (c *Client) DeleteByQuery(ctx context.Context, t engine.Target, query map[string]any) (int64, error) {
	body, err := engine.Encode(engine.QueryBody(query))
	if err != nil {
		return 0, &engine.Error{Op: engine.OpDeleteByQuery, Err: err}
	}
	req := esapi.DeleteByQueryRequest{
		Index: []string{engine.PhysicalIndex(t)},
		Body:  body,
	}
	if c.cfg.Refresh == "true" {
		refresh := true
		req.Refresh = &refresh
	}
	var resp engine.DeleteByQueryResponse
	if err := c.do(ctx, engine.OpDeleteByQuery, req, &resp); err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}

func (c *Client) EnsureIndex(ctx context.Context, t engine.Target) error {
	index := engine.PhysicalIndex(t)
	exists, err := c.indexExists(ctx, engine.OpEnsureIndex, index)
	if err != nil || exists {
		return err
	}
	err = c.do(ctx, engine.OpEnsureIndex, esapi.IndicesCreateRequest{Index: index}, nil)
	if engine.IsType(err, "resource_already_exists_exception") {
		return nil
	}
	return err
}

func (c *Client) PutMapping(ctx context.Context, t engine.Target, properties map[string]any) error {
	body, err := engine.Encode(engine.MappingBody(properties))
	if err != nil {
		return &engine.Error{Op: engine.OpPutMapping, Err: err}
	}
	return c.do(ctx, engine.OpPutMapping, esapi.IndicesPutMappingRequest{
		Index: []string{engine.PhysicalIndex(t)},
		Body:  body,
	}, nil)
}

func (c *Client) DeleteMapping(ctx context.Context, t engine.Target) error {
	return c.do(ctx, engine.OpDeleteMapping, esapi.IndicesDeleteRequest{
		Index: []string{engine.PhysicalIndex(t)},
	}, nil)
}

func (c *Client) TypeExists(ctx context.Context, t engine.Target) (bool, error) {
	return c.indexExists(ctx, engine.OpTypeExists, engine.PhysicalIndex(t))
}

func (c *Client) indexExists(ctx context.Context, op, index string) (bool, error) {
	err := c.do(ctx, op, esapi.IndicesExistsRequest{Index: []string{index}}, nil)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, engine.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, engine.OpPing, esapi.PingRequest{}, nil)
}
