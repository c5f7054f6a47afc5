package esbridge

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/esbridge/internal/mapping"
	"github.com/kailas-cloud/esbridge/internal/model"
)

// Engine drivers.
const (
	DriverElasticsearch = "elasticsearch"
	DriverOpenSearch    = "opensearch"
)

// PropertyKind is the declared value type of a model property.
type PropertyKind = model.Kind

// Property kinds.
const (
	KindAny     = model.KindAny
	KindString  = model.KindString
	KindNumber  = model.KindNumber
	KindBoolean = model.KindBoolean
	KindDate    = model.KindDate
	KindArray   = model.KindArray
	KindObject  = model.KindObject
)

// Mapping declares the engine mapping of one model.
type Mapping = mapping.Declaration

// Option configures a Client.
type Option func(*clientConfig)

// ModelOption configures one model registered with WithModel.
type ModelOption func(*model.Definition)

type breakerConfig struct {
	maxRequests uint32
	interval    time.Duration
	timeout     time.Duration
	threshold   uint32
}

type lockConfig struct {
	addrs    []string
	username string
	password string
	db       int
	key      string
	ttl      time.Duration
	wait     time.Duration
}

type clientConfig struct {
	driver         string
	hosts          []string
	username       string
	password       string
	requestTimeout time.Duration
	caFile         string
	insecure       bool
	refresh        string
	transport      http.RoundTripper

	index       string
	typ         string
	defaultSize int
	sortIDKey   string

	models       []model.Definition
	mappings     []Mapping
	mappingsFile string

	breaker *breakerConfig
	lock    *lockConfig
	metrics bool
	logger  *zap.Logger
}

// WithElasticsearch selects the Elasticsearch driver.
func WithElasticsearch(hosts ...string) Option {
	return func(c *clientConfig) {
		c.driver = DriverElasticsearch
		c.hosts = hosts
	}
}

// WithOpenSearch selects the OpenSearch driver.
func WithOpenSearch(hosts ...string) Option {
	return func(c *clientConfig) {
		c.driver = DriverOpenSearch
		c.hosts = hosts
	}
}

// WithBasicAuth sets engine credentials.
func WithBasicAuth(username, password string) Option {
	return func(c *clientConfig) {
		c.username = username
		c.password = password
	}
}

// WithRequestTimeout bounds every engine call.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.requestTimeout = d }
}

// WithTLS sets the CA bundle and whether certificates are verified.
func WithTLS(caFile string, rejectUnauthorized bool) Option {
	return func(c *clientConfig) {
		c.caFile = caFile
		c.insecure = !rejectUnauthorized
	}
}

// WithRefresh sets the refresh policy of write calls: "true", "false" or "wait_for".
func WithRefresh(policy string) Option {
	return func(c *clientConfig) { c.refresh = policy }
}

// WithTransport overrides the HTTP transport used to reach the engine.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *clientConfig) { c.transport = rt }
}

// WithIndex sets the datasource-level index and type used by models without
// their own routing.
func WithIndex(index, typ string) Option {
	return func(c *clientConfig) {
		c.index = index
		c.typ = typ
	}
}

// WithDefaultSize sets the page size used when criteria carry no limit.
func WithDefaultSize(n int) Option {
	return func(c *clientConfig) { c.defaultSize = n }
}

// WithSortIDKey sets the field that replaces the id field in sort clauses.
func WithSortIDKey(key string) Option {
	return func(c *clientConfig) { c.sortIDKey = key }
}

// WithModel registers a model. Ids are engine-generated unless ManualIDs is given.
func WithModel(name string, opts ...ModelOption) Option {
	return func(c *clientConfig) {
		def := model.Definition{Name: name, IDName: model.DefaultIDName, IDGenerated: true}
		for _, o := range opts {
			o(&def)
		}
		c.models = append(c.models, def)
	}
}

// IDName names the id field of the model.
func IDName(name string) ModelOption {
	return func(d *model.Definition) { d.IDName = name }
}

// ManualIDs makes callers supply ids.
func ManualIDs() ModelOption {
	return func(d *model.Definition) { d.IDGenerated = false }
}

// Route overrides the index and type of the model.
func Route(index, typ string) ModelOption {
	return func(d *model.Definition) {
		d.Index = index
		d.Type = typ
	}
}

// WithProperty declares a typed property of the model.
func WithProperty(name string, kind PropertyKind) ModelOption {
	return func(d *model.Definition) {
		if d.Properties == nil {
			d.Properties = make(map[string]model.Property)
		}
		d.Properties[name] = model.Property{Kind: kind}
	}
}

// WithMappings adds mapping declarations.
func WithMappings(mappings ...Mapping) Option {
	return func(c *clientConfig) { c.mappings = append(c.mappings, mappings...) }
}

// WithMappingsFile loads mapping declarations from a JSON file.
func WithMappingsFile(path string) Option {
	return func(c *clientConfig) { c.mappingsFile = path }
}

// WithCircuitBreaker trips after threshold consecutive engine failures and
// rejects calls for timeout before probing again.
func WithCircuitBreaker(threshold uint32, timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.breaker = &breakerConfig{threshold: threshold, timeout: timeout}
	}
}

// WithRedisLock serializes mapping migrations across processes through Redis.
// wait is how long a migration waits for another one to finish.
func WithRedisLock(wait time.Duration, addrs ...string) Option {
	return func(c *clientConfig) {
		c.lock = &lockConfig{addrs: addrs, wait: wait}
	}
}

// WithMetrics records engine and migration metrics in the default Prometheus registry.
func WithMetrics() Option {
	return func(c *clientConfig) { c.metrics = true }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) { c.logger = l }
}
