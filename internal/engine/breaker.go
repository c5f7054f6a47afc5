package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Compile-time check: Breaker implements Client.
var _ Client = (*Breaker)(nil)

// BreakerConfig tunes the circuit breaker around the engine client.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// Breaker rejects engine calls with ErrUnavailable while the engine keeps failing.
// It never retries. Not-found and conflict responses count as successes.
type Breaker struct {
	inner Client
	cb    *gobreaker.CircuitBreaker
}

// NewBreaker wraps inner with a circuit breaker.
func NewBreaker(inner Client, cfg BreakerConfig, logger *zap.Logger) *Breaker {
	if cfg.Name == "" {
		cfg.Name = "engine"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	threshold := cfg.FailureThreshold
	st := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("engine circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: isBreakerSuccess,
	}
	return &Breaker{inner: inner, cb: gobreaker.NewCircuitBreaker(st)}
}

// State returns the current breaker state name.
func (b *Breaker) State() string { return b.cb.State().String() }

func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status < 500
	}
	return false
}

func guard[T any](b *Breaker, op string, fn func() (T, error)) (T, error) {
	v, err := b.cb.Execute(func() (any, error) { return fn() })
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, &Error{Op: op, Err: fmt.Errorf("%w: %w", ErrUnavailable, err)}
	}
	out, _ := v.(T)
	return out, err
}

func guardErr(b *Breaker, op string, fn func() error) error {
	_, err := guard(b, op, func() (struct{}, error) { return struct{}{}, fn() })
	return err
}

func (b *Breaker) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	return guard(b, OpSearch, func() (*SearchResult, error) { return b.inner.Search(ctx, req) })
}

func (b *Breaker) Suggest(ctx context.Context, t Target, body map[string]any) (map[string]any, error) {
	return guard(b, OpSuggest, func() (map[string]any, error) { return b.inner.Suggest(ctx, t, body) })
}

func (b *Breaker) Count(ctx context.Context, t Target, query map[string]any) (int64, error) {
	return guard(b, OpCount, func() (int64, error) { return b.inner.Count(ctx, t, query) })
}

func (b *Breaker) Get(ctx context.Context, t Target, id string) (*Hit, error) {
	return guard(b, OpGet, func() (*Hit, error) { return b.inner.Get(ctx, t, id) })
}

func (b *Breaker) Exists(ctx context.Context, t Target, id string) (bool, error) {
	return guard(b, OpExists, func() (bool, error) { return b.inner.Exists(ctx, t, id) })
}

func (b *Breaker) Create(ctx context.Context, t Target, id string, doc map[string]any) (*WriteResult, error) {
	return guard(b, OpCreate, func() (*WriteResult, error) { return b.inner.Create(ctx, t, id, doc) })
}

func (b *Breaker) Update(
	ctx context.Context, t Target, id string, doc map[string]any, upsert bool,
) (*WriteResult, error) {
	return guard(b, OpUpdate, func() (*WriteResult, error) { return b.inner.Update(ctx, t, id, doc, upsert) })
}

func (b *Breaker) Delete(ctx context.Context, t Target, id string) (*WriteResult, error) {
	return guard(b, OpDelete, func() (*WriteResult, error) { return b.inner.Delete(ctx, t, id) })
}

func (b *Breaker) DeleteByQuery(ctx context.Context, t Target, query map[string]any) (int64, error) {
	return guard(b, OpDeleteByQuery, func() (int64, error) { return b.inner.DeleteByQuery(ctx, t, query) })
}

func (b *Breaker) EnsureIndex(ctx context.Context, t Target) error {
	return guardErr(b, OpEnsureIndex, func() error { return b.inner.EnsureIndex(ctx, t) })
}

func (b *Breaker) PutMapping(ctx context.Context, t Target, properties map[string]any) error {
	return guardErr(b, OpPutMapping, func() error { return b.inner.PutMapping(ctx, t, properties) })
}

func (b *Breaker) DeleteMapping(ctx context.Context, t Target) error {
	return guardErr(b, OpDeleteMapping, func() error { return b.inner.DeleteMapping(ctx, t) })
}

func (b *Breaker) TypeExists(ctx context.Context, t Target) (bool, error) {
	return guard(b, OpTypeExists, func() (bool, error) { return b.inner.TypeExists(ctx, t) })
}

func (b *Breaker) Ping(ctx context.Context) error {
	return guardErr(b, OpPing, func() error { return b.inner.Ping(ctx) })
}
