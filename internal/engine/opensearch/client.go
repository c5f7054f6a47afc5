// Package opensearch implements engine.Client for OpenSearch clusters.
package opensearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"

	"github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"

	"github.com/kailas-cloud/esbridge/internal/engine"
)

var _ engine.Client = (*Client)(nil)

// Client implements engine.Client on top of the low-level opensearch.Client.
// Responses are decoded here so that status handling matches the
// Elasticsearch backend exactly.
type Client struct {
	os  *opensearch.Client
	cfg engine.ConnConfig
}

// New creates an OpenSearch client.
func New(cfg engine.ConnConfig) (*Client, error) {
	if len(cfg.Hosts) == 0 {
		return nil, fmt.Errorf("hosts is required")
	}
	transport, err := cfg.HTTPTransport()
	if err != nil {
		return nil, err
	}
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: cfg.Hosts,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("opensearch client creation error: %w", err)
	}
	return &Client{os: client, cfg: cfg}, nil
}

func (c *Client) do(ctx context.Context, op string, req opensearch.Request, dst any) error {
	ctx, cancel := c.cfg.WithTimeout(ctx)
	defer cancel()

	res, err := c.os.Do(ctx, req, nil)
	if err != nil {
		return engine.Unavailable(op, err)
	}
	if res.Body != nil {
		defer func(body io.ReadCloser) { _ = body.Close() }(res.Body)
	}

	if res.StatusCode >= http.StatusMultipleChoices {
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
	// size/from travel in the body; OpenSearch accepts either form.
	body := make(map[string]any, len(req.Body)+2)
	maps.Copy(body, req.Body)
	size, from := req.Paging()
	if size != nil {
		body["size"] = *size
	}
	if from != nil {
		body["from"] = *from
	}
	r, err := engine.Encode(body)
	if err != nil {
		return nil, &engine.Error{Op: engine.OpSearch, Err: err}
	}

	var resp engine.SearchResponse
	err = c.do(ctx, engine.OpSearch, &opensearchapi.SearchReq{
		Indices: []string{engine.PhysicalIndex(req.Target)},
		Body:    r,
	}, &resp)
	if err != nil {
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
	err = c.do(ctx, engine.OpSuggest, &opensearchapi.SearchReq{
		Indices: []string{engine.PhysicalIndex(t)},
		Body:    r,
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
	err = c.do(ctx, engine.OpCount, &opensearchapi.IndicesCountReq{
		Indices: []string{engine.PhysicalIndex(t)},
		Body:    r,
	}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (c *Client) Get(ctx context.Context, t engine.Target, id string) (*engine.Hit, error) {
	var resp engine.GetResponse
	err := c.do(ctx, engine.OpGet, &opensearchapi.DocumentGetReq{
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
	err := c.do(ctx, engine.OpExists, &opensearchapi.DocumentExistsReq{
		Index:      engine.PhysicalIndex(t),
		DocumentID: id,
	}, nil)
	return existence(err)
}

func (c *Client) Create(ctx context.Context, t engine.Target, id string, doc map[string]any) (*engine.WriteResult, error) {
	body, err := engine.Encode(doc)
	if err != nil {
		return nil, &engine.Error{Op: engine.OpCreate, Err: err}
	}
	var req opensearch.Request
	if id == "" {
		req = &opensearchapi.IndexReq{
			Index:  engine.PhysicalIndex(t),
			Body:   body,
			Params: opensearchapi.IndexParams{Refresh: c.cfg.Refresh},
		}
	} else {
		req = &opensearchapi.DocumentCreateReq{
			Index:      engine.PhysicalIndex(t),
			DocumentID: id,
			Body:       body,
			Params:     opensearchapi.DocumentCreateParams{Refresh: c.cfg.Refresh},
		}
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
	err = c.do(ctx, engine.OpUpdate, &opensearchapi.UpdateReq{
		Index:      engine.PhysicalIndex(t),
		DocumentID: id,
		Body:       body,
		Params:     opensearchapi.UpdateParams{Refresh: c.cfg.Refresh},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Result(), nil
}

func (c *Client) Delete(ctx context.Context, t engine.Target, id string) (*engine.WriteResult, error) {
	var resp engine.WriteResponse
	err := c.do(ctx, engine.OpDelete, &opensearchapi.DocumentDeleteReq{
		Index:      engine.PhysicalIndex(t),
		DocumentID: id,
		Params:     opensearchapi.DocumentDeleteParams{Refresh: c.cfg.Refresh},
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
	var resp engine.DeleteByQueryResponse
	err = c.do(ctx, engine.OpDeleteByQuery, &opensearchapi.DocumentDeleteByQueryReq{
		Indices: []string{engine.PhysicalIndex(t)},
		Body:    body,
	}, &resp)
	if err != nil {
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
	err = c.do(ctx, engine.OpEnsureIndex, &opensearchapi.IndicesCreateReq{Index: index}, nil)
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
	return c.do(ctx, engine.OpPutMapping, &opensearchapi.MappingPutReq{
		Indices: []string{engine.PhysicalIndex(t)},
		Body:    body,
	}, nil)
}

func (c *Client) DeleteMapping(ctx context.Context, t engine.Target) error {
	return c.do(ctx, engine.OpDeleteMapping, &opensearchapi.IndicesDeleteReq{
		Indices: []string{engine.PhysicalIndex(t)},
	}, nil)
}

func (c *Client) TypeExists(ctx context.Context, t engine.Target) (bool, error) {
	return c.indexExists(ctx, engine.OpTypeExists, engine.PhysicalIndex(t))
}

func (c *Client) indexExists(ctx context.Context, op, index string) (bool, error) {
	err := c.do(ctx, op, &opensearchapi.IndicesExistsReq{Indices: []string{index}}, nil)
	return existence(err)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, engine.OpPing, &opensearchapi.PingReq{}, nil)
}

func existence(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, engine.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
