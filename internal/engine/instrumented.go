package engine

import (
	"context"
	"time"
)

// Compile-time check: Instrumented implements Client.
var _ Client = (*Instrumented)(nil)

// Recorder receives one observation per engine call.
type Recorder interface {
	ObserveEngineCall(op string, d time.Duration, err error)
}

// Instrumented reports latency and outcome of every engine call.
type Instrumented struct {
	inner    Client
	recorder Recorder
	now      func() time.Time
}

// NewInstrumented wraps inner with call observations.
func NewInstrumented(inner Client, recorder Recorder) *Instrumented {
	return &Instrumented{inner: inner, recorder: recorder, now: time.Now}
}

func observe[T any](i *Instrumented, op string, fn func() (T, error)) (T, error) {
	start := i.now()
	v, err := fn()
	i.recorder.ObserveEngineCall(op, i.now().Sub(start), err)
	return v, err
}

func observeErr(i *Instrumented, op string, fn func() error) error {
	start := i.now()
	err := fn()
	i.recorder.ObserveEngineCall(op, i.now().Sub(start), err)
	return err
}

func (i *Instrumented) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	return observe(i, OpSearch, func() (*SearchResult, error) { return i.inner.Search(ctx, req) })
}

func (i *Instrumented) Suggest(ctx context.Context, t Target, body map[string]any) (map[string]any, error) {
	return observe(i, OpSuggest, func() (map[string]any, error) { return i.inner.Suggest(ctx, t, body) })
}

func (i *Instrumented) Count(ctx context.Context, t Target, query map[string]any) (int64, error) {
	return observe(i, OpCount, func() (int64, error) { return i.inner.Count(ctx, t, query) })
}

func (i *Instrumented) Get(ctx context.Context, t Target, id string) (*Hit, error) {
	return observe(i, OpGet, func() (*Hit, error) { return i.inner.Get(ctx, t, id) })
}

func (i *Instrumented) Exists(ctx context.Context, t Target, id string) (bool, error) {
	return observe(i, OpExists, func() (bool, error) { return i.inner.Exists(ctx, t, id) })
}

func (i *Instrumented) Create(ctx context.Context, t Target, id string, doc map[string]any) (*WriteResult, error) {
	return observe(i, OpCreate, func() (*WriteResult, error) { return i.inner.Create(ctx, t, id, doc) })
}

func (i *Instrumented) Update(
	ctx context.Context, t Target, id string, doc map[string]any, upsert bool,
) (*WriteResult, error) {
	return observe(i, OpUpdate, func() (*WriteResult, error) { return i.inner.Update(ctx, t, id, doc, upsert) })
}

func (i *Instrumented) Delete(ctx context.Context, t Target, id string) (*WriteResult, error) {
	return observe(i, OpDelete, func() (*WriteResult, error) { return i.inner.Delete(ctx, t, id) })
}

func (i *Instrumented) DeleteByQuery(ctx context.Context, t Target, query map[string]any) (int64, error) {
	return observe(i, OpDeleteByQuery, func() (int64, error) { return i.inner.DeleteByQuery(ctx, t, query) })
}

func (i *Instrumented) EnsureIndex(ctx context.Context, t Target) error {
	return observeErr(i, OpEnsureIndex, func() error { return i.inner.EnsureIndex(ctx, t) })
}

func (i *Instrumented) PutMapping(ctx context.Context, t Target, properties map[string]any) error {
	return observeErr(i, OpPutMapping, func() error { return i.inner.PutMapping(ctx, t, properties) })
}

func (i *Instrumented) DeleteMapping(ctx context.Context, t Target) error {
	return observeErr(i, OpDeleteMapping, func() error { return i.inner.DeleteMapping(ctx, t) })
}

func (i *Instrumented) TypeExists(ctx context.Context, t Target) (bool, error) {
	return observe(i, OpTypeExists, func() (bool, error) { return i.inner.TypeExists(ctx, t) })
}

func (i *Instrumented) Ping(ctx context.Context) error {
	return observeErr(i, OpPing, func() error { return i.inner.Ping(ctx) })
}
