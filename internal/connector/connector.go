// Package connector is the CRUD adapter: it compiles criteria, calls the engine
// and reshapes engine documents into model documents.
package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"strconv"

	"go.uber.org/zap"

	"github.com/kailas-cloud/esbridge/internal/compiler"
	"github.com/kailas-cloud/esbridge/internal/domain"
	"github.com/kailas-cloud/esbridge/internal/domain/criteria"
	"github.com/kailas-cloud/esbridge/internal/engine"
	logpkg "github.com/kailas-cloud/esbridge/internal/logger"
	"github.com/kailas-cloud/esbridge/internal/model"
)

// Page is the result of a criteria query.
type Page struct {
	Total     int64            `json:"total"`
	Documents []map[string]any `json:"documents"`
	// Suggest holds the engine suggestions when the criteria carried suggests.
	Suggest map[string]any `json:"suggest,omitempty"`
	// Unsupported lists criteria keys that were accepted but ignored.
	Unsupported []string `json:"unsupported,omitempty"`
}

// Connector executes CRUD operations for registered models.
type Connector struct {
	compiler *compiler.Compiler
	models   *model.Registry
	client   engine.Client
	logger   *zap.Logger
}

// New creates a Connector.
func New(client engine.Client, comp *compiler.Compiler, models *model.Registry, logger *zap.Logger) *Connector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Connector{compiler: comp, models: models, client: client, logger: logger}
}

// Models returns the registered model names.
func (c *Connector) Models() []string { return c.models.Names() }

// Create stores data and returns the document id. Without an id value the
// engine generates one.
func (c *Connector) Create(ctx context.Context, modelName string, data map[string]any) (string, error) {
	def, target, err := c.resolve(modelName)
	if err != nil {
		return "", err
	}

	var id string
	if v, ok := def.IDValue(data); ok {
		if id, err = NormalizeID(v); err != nil {
			return "", err
		}
	}

	res, err := c.client.Create(ctx, target, id, maps.Clone(data))
	if err != nil {
		return "", c.engineErr(ctx, "create", modelName, err)
	}
	return res.ID, nil
}

// Find returns the document stored under id, or nil without error when absent.
func (c *Connector) Find(ctx context.Context, modelName string, id any) (map[string]any, error) {
	def, target, err := c.resolve(modelName)
	if err != nil {
		return nil, err
	}
	docID, err := NormalizeID(id)
	if err != nil {
		return nil, err
	}

	hit, err := c.client.Get(ctx, target, docID)
	if errors.Is(err, engine.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, c.engineErr(ctx, "find", modelName, err)
	}
	return def.FromSource(hit.ID, hit.Source), nil
}

// Exists reports whether a document is stored under id.
func (c *Connector) Exists(ctx context.Context, modelName string, id any) (bool, error) {
	_, target, err := c.resolve(modelName)
	if err != nil {
		return false, err
	}
	docID, err := NormalizeID(id)
	if err != nil {
		return false, err
	}

	ok, err := c.client.Exists(ctx, target, docID)
	if err != nil {
		return false, c.engineErr(ctx, "exists", modelName, err)
	}
	return ok, nil
}

// All runs the compiled criteria. size and offset are the caller's defaults,
// overridden by the criteria's own limit and skip.
func (c *Connector) All(ctx context.Context, modelName string, cr *criteria.Criteria, size, offset int) (*Page, error) {
	def, _, err := c.resolve(modelName)
	if err != nil {
		return nil, err
	}
	req, err := c.compiler.Compile(modelName, def.IDName, cr, size, offset)
	if err != nil {
		return nil, err
	}
	target := engine.Target{Index: req.Routing.Index, Type: req.Routing.Type}

	if req.Kind == compiler.KindSuggest {
		suggest, err := c.client.Suggest(ctx, target, req.Body)
		if err != nil {
			return nil, c.engineErr(ctx, "suggest", modelName, err)
		}
		return &Page{Documents: []map[string]any{}, Suggest: suggest, Unsupported: req.Unsupported}, nil
	}

	res, err := c.client.Search(ctx, engine.SearchRequest{
		Target: target,
		Body:   req.Body,
		Size:   req.Size,
		From:   req.From,
	})
	if err != nil {
		return nil, c.engineErr(ctx, "all", modelName, err)
	}

	docs := make([]map[string]any, 0, len(res.Hits))
	for _, hit := range res.Hits {
		docs = append(docs, def.FromSource(hit.ID, hit.Source))
	}
	return &Page{Total: res.Total, Documents: docs, Unsupported: req.Unsupported}, nil
}

// Count returns the number of documents matching the criteria's where clause.
func (c *Connector) Count(ctx context.Context, modelName string, cr *criteria.Criteria) (int64, error) {
	def, target, err := c.resolve(modelName)
	if err != nil {
		return 0, err
	}
	query, err := c.compiler.CompileQuery(def.IDName, cr)
	if err != nil {
		return 0, err
	}
	n, err := c.client.Count(ctx, target, query)
	if err != nil {
		return 0, c.engineErr(ctx, "count", modelName, err)
	}
	return n, nil
}

// Destroy deletes the document stored under id and reports whether it existed.
func (c *Connector) Destroy(ctx context.Context, modelName string, id any) (bool, error) {
	_, target, err := c.resolve(modelName)
	if err != nil {
		return false, err
	}
	docID, err := NormalizeID(id)
	if err != nil {
		return false, err
	}

	_, err = c.client.Delete(ctx, target, docID)
	if errors.Is(err, engine.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, c.engineErr(ctx, "destroy", modelName, err)
	}
	return true, nil
}

// DestroyAll deletes every document matching the criteria's where clause and
// returns the number deleted.
func (c *Connector) DestroyAll(ctx context.Context, modelName string, cr *criteria.Criteria) (int64, error) {
	def, target, err := c.resolve(modelName)
	if err != nil {
		return 0, err
	}
	query, err := c.compiler.CompileQuery(def.IDName, cr)
	if err != nil {
		return 0, err
	}
	n, err := c.client.DeleteByQuery(ctx, target, query)
	if err != nil {
		return 0, c.engineErr(ctx, "destroy_all", modelName, err)
	}
	return n, nil
}

// UpdateAll would apply data to every document matching cr. Update-by-query
// is not offered by the connector: the call validates its input and then
// fails with domain.ErrNotImplemented, wrapping engine.ErrNotSupported.
func (c *Connector) UpdateAll(ctx context.Context, modelName string, cr *criteria.Criteria, data map[string]any) (int64, error) {
	def, _, err := c.resolve(modelName)
	if err != nil {
		return 0, err
	}
	if _, err := c.compiler.CompileQuery(def.IDName, cr); err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, domain.InvalidArgument("update data is required")
	}
	logpkg.FromContextOr(ctx, c.logger).Debug("update_all rejected",
		zap.String("model", modelName),
	)
	return 0, fmt.Errorf("%w: update_all: %w", domain.ErrNotImplemented, engine.ErrNotSupported)
}

// Save writes the declared properties of data under its id, creating the
// document if needed.
func (c *Connector) Save(ctx context.Context, modelName string, data map[string]any) (map[string]any, error) {
	doc, _, err := c.upsert(ctx, "save", modelName, data)
	return doc, err
}

// UpdateOrCreate is Save that also reports whether the document was created.
func (c *Connector) UpdateOrCreate(ctx context.Context, modelName string, data map[string]any) (map[string]any, bool, error) {
	return c.upsert(ctx, "update_or_create", modelName, data)
}

// UpdateAttributes merges data into the existing document stored under id.
// It fails with domain.ErrNotFound when there is no such document.
func (c *Connector) UpdateAttributes(ctx context.Context, modelName string, id any, data map[string]any) (map[string]any, error) {
	def, target, err := c.resolve(modelName)
	if err != nil {
		return nil, err
	}
	docID, err := NormalizeID(id)
	if err != nil {
		return nil, err
	}

	doc := body(def, data)
	delete(doc, def.IDName)
	_, err = c.client.Update(ctx, target, docID, doc, false)
	if errors.Is(err, engine.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s %q", domain.ErrNotFound, modelName, docID)
	}
	if err != nil {
		return nil, c.engineErr(ctx, "update_attributes", modelName, err)
	}
	doc[def.IDName] = docID
	return doc, nil
}

// Ping checks engine connectivity.
func (c *Connector) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx); err != nil {
		return c.engineErr(ctx, "ping", "", err)
	}
	return nil
}

func (c *Connector) upsert(ctx context.Context, op, modelName string, data map[string]any) (map[string]any, bool, error) {
	def, target, err := c.resolve(modelName)
	if err != nil {
		return nil, false, err
	}
	v, ok := def.IDValue(data)
	if !ok {
		return nil, false, domain.InvalidArgument("%s: document id is required", op)
	}
	docID, err := NormalizeID(v)
	if err != nil {
		return nil, false, err
	}

	doc := body(def, data)
	res, err := c.client.Update(ctx, target, docID, doc, true)
	if err != nil {
		return nil, false, c.engineErr(ctx, op, modelName, err)
	}
	out := maps.Clone(doc)
	out[def.IDName] = docID
	return out, res.Created(), nil
}

func (c *Connector) resolve(modelName string) (model.Definition, engine.Target, error) {
	def, ok := c.models.Lookup(modelName)
	if !ok {
		return model.Definition{}, engine.Target{}, fmt.Errorf("%w: model %q", domain.ErrNotFound, modelName)
	}
	r := c.compiler.Routing(modelName)
	return def, engine.Target{Index: r.Index, Type: r.Type}, nil
}

// engineErr logs an engine failure once and tags it with the domain sentinel.
func (c *Connector) engineErr(ctx context.Context, op, modelName string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	logpkg.FromContextOr(ctx, c.logger).Error("engine call failed",
		zap.String("op", op),
		zap.String("model", modelName),
		zap.Error(err),
	)
	if errors.Is(err, engine.ErrConflict) {
		return fmt.Errorf("%w: %w", domain.ErrAlreadyExists, err)
	}
	if ctx.Err() != nil {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrEngine, err)
}

// body is the stored form of data: the declared properties when the model
// declares any, otherwise a copy of data.
func body(def model.Definition, data map[string]any) map[string]any {
	if len(def.Properties) > 0 {
		return def.Match(data)
	}
	doc := maps.Clone(data)
	if doc == nil {
		doc = map[string]any{}
	}
	return doc
}

// NormalizeID converts an id value to the engine's string form. Missing and
// empty ids are rejected.
func NormalizeID(v any) (string, error) {
	var id string
	switch x := v.(type) {
	case nil:
		return "", domain.InvalidArgument("document id is required")
	case string:
		id = x
	case json.Number:
		id = x.String()
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			id = strconv.FormatInt(int64(x), 10)
		} else {
			id = strconv.FormatFloat(x, 'f', -1, 64)
		}
	case fmt.Stringer:
		id = x.String()
	default:
		id = fmt.Sprint(x)
	}
	if id == "" {
		return "", domain.InvalidArgument("document id is required")
	}
	return id, nil
}
