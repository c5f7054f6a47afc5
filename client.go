// Package esbridge maps an ORM-style model layer onto Elasticsearch or OpenSearch:
// criteria become bool queries, models become typeless indices and declared
// mappings are reconciled on demand.
package esbridge

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/esbridge/internal/compiler"
	"github.com/kailas-cloud/esbridge/internal/config"
	"github.com/kailas-cloud/esbridge/internal/connector"
	"github.com/kailas-cloud/esbridge/internal/engine"
	"github.com/kailas-cloud/esbridge/internal/engine/elasticsearch"
	"github.com/kailas-cloud/esbridge/internal/engine/opensearch"
	"github.com/kailas-cloud/esbridge/internal/lock"
	"github.com/kailas-cloud/esbridge/internal/mapping"
	"github.com/kailas-cloud/esbridge/internal/metrics"
	"github.com/kailas-cloud/esbridge/internal/model"
	healthuc "github.com/kailas-cloud/esbridge/internal/usecase/health"
	migrationuc "github.com/kailas-cloud/esbridge/internal/usecase/migration"
)

// Client is the esbridge entry point.
type Client struct {
	engine     engine.Client
	connector  *connector.Connector
	migrations *migrationuc.Service
	health     *healthuc.Service
	locker     *lock.Locker
	logger     *zap.Logger
}

// New creates a Client. No engine request is issued until the first call.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{driver: DriverElasticsearch}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if len(cfg.hosts) == 0 {
		return nil, errors.New("esbridge: engine host required (use WithElasticsearch or WithOpenSearch)")
	}

	registry, err := model.NewRegistry(cfg.models...)
	if err != nil {
		return nil, fmt.Errorf("esbridge: %w", err)
	}

	decls, err := loadDeclarations(cfg)
	if err != nil {
		return nil, err
	}

	client, err := createEngine(cfg)
	if err != nil {
		return nil, err
	}

	var locker *lock.Locker
	if cfg.lock != nil {
		locker, err = lock.New(lock.Config{
			Addrs:    cfg.lock.addrs,
			Username: cfg.lock.username,
			Password: cfg.lock.password,
			DB:       cfg.lock.db,
			Key:      cfg.lock.key,
			TTL:      cfg.lock.ttl,
			Wait:     cfg.lock.wait,
		})
		if err != nil {
			return nil, fmt.Errorf("esbridge: create migration lock: %w", err)
		}
	}

	return wireClient(cfg, client, registry, decls, locker), nil
}

func loadDeclarations(cfg *clientConfig) (*mapping.Declarations, error) {
	list := cfg.mappings
	if cfg.mappingsFile != "" {
		fromFile, err := mapping.LoadDeclarations(cfg.mappingsFile)
		if err != nil {
			return nil, fmt.Errorf("esbridge: %w", err)
		}
		for _, name := range fromFile.Names() {
			d, err := fromFile.For(name)
			if err != nil {
				return nil, fmt.Errorf("esbridge: %w", err)
			}
			list = append(list, *d)
		}
	}
	return mapping.NewDeclarations(list...), nil
}

func createEngine(cfg *clientConfig) (engine.Client, error) {
	conn := engine.ConnConfig{
		Hosts:              cfg.hosts,
		Username:           cfg.username,
		Password:           cfg.password,
		RequestTimeout:     cfg.requestTimeout,
		CAFile:             cfg.caFile,
		InsecureSkipVerify: cfg.insecure,
		Refresh:            cfg.refresh,
		Transport:          cfg.transport,
	}

	var base engine.Client
	switch cfg.driver {
	case DriverElasticsearch:
		c, err := elasticsearch.New(conn)
		if err != nil {
			return nil, fmt.Errorf("esbridge: create elasticsearch client: %w", err)
		}
		base = c
	case DriverOpenSearch:
		c, err := opensearch.New(conn)
		if err != nil {
			return nil, fmt.Errorf("esbridge: create opensearch client: %w", err)
		}
		base = c
	default:
		return nil, fmt.Errorf("esbridge: unknown driver %q", cfg.driver)
	}

	// Breaker inside instrumentation so rejected calls are still counted.
	if b := cfg.breaker; b != nil {
		base = engine.NewBreaker(base, engine.BreakerConfig{
			MaxRequests:      b.maxRequests,
			Interval:         b.interval,
			Timeout:          b.timeout,
			FailureThreshold: b.threshold,
		}, cfg.logger)
	}
	if cfg.metrics {
		metrics.RegisterEngineMetrics()
		base = engine.NewInstrumented(base, metrics.EngineRecorder{})
	}
	return base, nil
}

func wireClient(
	cfg *clientConfig,
	client engine.Client,
	registry *model.Registry,
	decls *mapping.Declarations,
	locker *lock.Locker,
) *Client {
	comp := compiler.New(compiler.Settings{
		Index:       cfg.index,
		Type:        cfg.typ,
		DefaultSize: cfg.defaultSize,
		SortIDKey:   cfg.sortIDKey,
	}, registry).WithDeclarations(decls).WithLogger(cfg.logger)

	reconciler := mapping.New(client, decls, cfg.logger).WithRouter(comp)

	var (
		migLocker   migrationuc.Locker
		recorder    migrationuc.Recorder
		lockChecker healthuc.Pinger
	)
	if locker != nil {
		migLocker = locker
		lockChecker = locker
	}
	if cfg.metrics {
		recorder = metrics.MigrationRecorder{}
	}

	return &Client{
		engine:     client,
		connector:  connector.New(client, comp, registry, cfg.logger),
		migrations: migrationuc.New(reconciler, migLocker, recorder, cfg.logger),
		health:     healthuc.New(client, lockChecker),
		locker:     locker,
		logger:     cfg.logger,
	}
}

// FromConfig creates a Client from the service configuration.
func FromConfig(cfg config.Config, logger *zap.Logger) (*Client, error) {
	opts := []Option{
		WithLogger(logger),
		WithBasicAuth(cfg.Engine.Username, cfg.Engine.Password),
		WithRequestTimeout(cfg.Engine.RequestTimeout),
		WithRefresh(cfg.Engine.Refresh),
		WithIndex(cfg.Engine.Index, cfg.Engine.Type),
		WithDefaultSize(cfg.Engine.DefaultSize),
		WithSortIDKey(cfg.Engine.SortIDField),
		WithMetrics(),
	}

	switch cfg.Engine.Driver {
	case config.DriverOpenSearch:
		opts = append(opts, WithOpenSearch(cfg.Engine.Hosts...))
	default:
		opts = append(opts, WithElasticsearch(cfg.Engine.Hosts...))
	}

	reject := cfg.Engine.SSL.RejectUnauthorized == nil || *cfg.Engine.SSL.RejectUnauthorized
	opts = append(opts, WithTLS(cfg.Engine.SSL.CAFile, reject))

	for _, m := range cfg.Models {
		mopts := []ModelOption{IDName(m.IDName), Route(m.Index, m.Type)}
		if m.IDGenerated != nil && !*m.IDGenerated {
			mopts = append(mopts, ManualIDs())
		}
		for name, kind := range m.Properties {
			mopts = append(mopts, WithProperty(name, PropertyKind(kind)))
		}
		opts = append(opts, WithModel(m.Name, mopts...))
	}

	if cfg.MappingsFile != "" {
		opts = append(opts, WithMappingsFile(cfg.MappingsFile))
	}

	if cfg.Breaker.Enabled {
		opts = append(opts, func(c *clientConfig) {
			c.breaker = &breakerConfig{
				maxRequests: cfg.Breaker.MaxRequests,
				interval:    cfg.Breaker.Interval,
				timeout:     cfg.Breaker.Timeout,
				threshold:   cfg.Breaker.FailureThreshold,
			}
		})
	}

	if cfg.Lock.Enabled() {
		opts = append(opts, func(c *clientConfig) {
			c.lock = &lockConfig{
				addrs:    cfg.Lock.Addrs,
				username: cfg.Lock.Username,
				password: cfg.Lock.Password,
				db:       cfg.Lock.DB,
				key:      cfg.Lock.Key,
				ttl:      cfg.Lock.TTL,
				wait:     cfg.Lock.Wait,
			}
		})
	}

	return New(opts...)
}

// Close releases all resources.
func (c *Client) Close() {
	if c.locker != nil {
		c.locker.Close()
	}
}

// Ping checks engine connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.engine.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Model returns the repository of a registered model.
func (c *Client) Model(name string) *Repository {
	return &Repository{model: name, conn: c.connector}
}

// Models returns the registered model names.
func (c *Client) Models() []string { return c.connector.Models() }

// SetupMappings puts the declared mapping of each model, creating indices as needed.
// No models means every declared model.
func (c *Client) SetupMappings(ctx context.Context, models ...string) (*MigrationReport, error) {
	return c.migrations.Run(ctx, migrationuc.ActionSetup, models...)
}

// RemoveMappings deletes the type of each model. Absent types are skipped.
func (c *Client) RemoveMappings(ctx context.Context, models ...string) (*MigrationReport, error) {
	return c.migrations.Run(ctx, migrationuc.ActionRemove, models...)
}

// Automigrate removes then sets up the mappings of models.
func (c *Client) Automigrate(ctx context.Context, models ...string) (*MigrationReport, error) {
	return c.migrations.Run(ctx, migrationuc.ActionMigrate, models...)
}

// Documents exposes the CRUD adapter to the HTTP transport.
func (c *Client) Documents() *connector.Connector { return c.connector }

// Migrations exposes the locked reconciliation service.
func (c *Client) Migrations() *migrationuc.Service { return c.migrations }

// Health exposes the health service.
func (c *Client) Health() *healthuc.Service { return c.health }

// MigrationReport lists what a mapping reconciliation did per model.
type MigrationReport = mapping.Report
