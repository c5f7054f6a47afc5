// Package compiler turns ORM-shaped criteria into engine search requests.
// Compilation is pure: no I/O, no shared mutable state, safe for concurrent use.
package compiler

import (
	"go.uber.org/zap"

	"github.com/kailas-cloud/esbridge/internal/domain"
	"github.com/kailas-cloud/esbridge/internal/domain/criteria"
	"github.com/kailas-cloud/esbridge/internal/model"
)

// Settings are the connector-wide defaults.
type Settings struct {
	Index       string
	Type        string
	DefaultSize int
	// SortIDKey replaces the id field in sort clauses. Defaults to SortIDKey.
	SortIDKey string
}

// Models resolves model metadata.
type Models interface {
	Lookup(name string) (model.Definition, bool)
}

// Declarations resolves routing from declared mappings.
type Declarations interface {
	Routing(model string) (index, typ string, ok bool)
}

// Kind selects the engine endpoint a request targets.
type Kind int

const (
	// KindSearch targets the search endpoint.
	KindSearch Kind = iota
	// KindSuggest targets the suggestion endpoint.
	KindSuggest
)

// Request is a compiled engine request.
type Request struct {
	Kind    Kind
	Routing Routing
	Size    *int
	From    *int
	// Body is nil when no criteria were given.
	Body map[string]any
	// Unsupported lists criteria keys that were accepted but not applied.
	Unsupported []string
}

// Compiler composes normalizer, where, order and routing into requests.
type Compiler struct {
	settings     Settings
	models       Models
	declarations Declarations
	logger       *zap.Logger
}

// New creates a Compiler. models may be nil.
func New(settings Settings, models Models) *Compiler {
	if settings.SortIDKey == "" {
		settings.SortIDKey = SortIDKey
	}
	if models == nil {
		models = (*model.Registry)(nil)
	}
	return &Compiler{settings: settings, models: models, logger: zap.NewNop()}
}

// WithDeclarations adds mapping declarations as a routing source.
func (c *Compiler) WithDeclarations(d Declarations) *Compiler {
	c.declarations = d
	return c
}

// WithLogger sets the logger used to report unsupported criteria.
func (c *Compiler) WithLogger(l *zap.Logger) *Compiler {
	c.logger = l
	return c
}

// Compile builds the request for modelName. Body precedence is
// where > suggests > native > match_all.
func (c *Compiler) Compile(modelName, idName string, cr *criteria.Criteria, size, offset int) (*Request, error) {
	p, err := c.normalize(idName, cr, size, offset)
	if err != nil {
		return nil, err
	}

	req := &Request{
		Kind:    KindSearch,
		Routing: c.Routing(modelName),
		Size:    p.size,
		From:    p.from,
	}
	if cr == nil {
		return req, nil
	}

	if cr.Fields != nil {
		req.Unsupported = append(req.Unsupported, "fields")
		c.logger.Warn("field projection is not supported, returning full documents",
			zap.String("model", modelName),
		)
	}

	switch {
	case cr.Where != nil:
		req.Body = map[string]any{
			"query": CompileWhere(idName, *cr.Where),
			"sort":  c.sort(modelName, idName, cr.Order),
		}
	case cr.Suggests != nil:
		body, err := objectBody("suggests", cr.Suggests)
		if err != nil {
			return nil, err
		}
		req.Kind = KindSuggest
		req.Body = body
	case cr.Native != nil:
		body, err := objectBody("native", cr.Native)
		if err != nil {
			return nil, err
		}
		req.Body = body
	case cr.IsEmpty():
		req.Body = map[string]any{"query": CompileWhere(idName, criteria.Where{})}
	default:
		req.Body = map[string]any{
			"query": CompileWhere(idName, criteria.Where{}),
			"sort":  c.sort(modelName, idName, cr.Order),
		}
	}
	return req, nil
}

// CompileQuery compiles only the query part of criteria, for count and delete-by-query.
func (c *Compiler) CompileQuery(idName string, cr *criteria.Criteria) (Query, error) {
	if idName == "" {
		return nil, domain.InvalidArgument("id field name is required")
	}
	if cr == nil || cr.Where == nil {
		return CompileWhere(idName, criteria.Where{}), nil
	}
	return CompileWhere(idName, *cr.Where), nil
}

func (c *Compiler) sort(modelName, idName string, order criteria.Order) []any {
	if len(order) > 0 {
		return compileOrder(idName, order, c.settings.SortIDKey)
	}
	generated := true
	if def, ok := c.models.Lookup(modelName); ok {
		generated = def.IDGenerated
	}
	return defaultSort(idName, generated, c.settings.SortIDKey)
}

func objectBody(key string, v any) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, domain.InvalidArgument("%s: expected object, got %T", key, v)
	}
	return m, nil
}
