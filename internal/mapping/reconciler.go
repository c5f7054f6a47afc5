package mapping

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/esbridge/internal/compiler"
	"github.com/kailas-cloud/esbridge/internal/domain"
	"github.com/kailas-cloud/esbridge/internal/engine"
)

// Stage names reported in domain.PartialMigrationError.
const (
	StageSetup  = "setup"
	StageRemove = "remove"
)

// Router resolves the index and type a model lives in.
type Router interface {
	Routing(model string) compiler.Routing
}

// Report lists what a reconciliation did, per model.
type Report struct {
	// Setup holds models whose mapping was put.
	Setup []string `json:"setup,omitempty"`
	// Removed holds models whose type was deleted.
	Removed []string `json:"removed,omitempty"`
	// Absent holds models whose type did not exist, so removal was a no-op.
	Absent []string `json:"absent,omitempty"`
	// Skipped holds requested models without a declaration.
	Skipped []string `json:"skipped,omitempty"`
}

// Reconciler brings live mappings into agreement with declarations.
// Models are processed one at a time in request order and the first failure
// stops the sequence. Every operation is safe to re-run.
type Reconciler struct {
	client engine.Mappings
	decls  *Declarations
	router Router
	logger *zap.Logger
}

// New creates a Reconciler. decls may be empty.
func New(client engine.Mappings, decls *Declarations, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{client: client, decls: decls, logger: logger}
}

// WithRouter resolves targets through r instead of the declarations alone.
func (r *Reconciler) WithRouter(router Router) *Reconciler {
	r.router = router
	return r
}

// SetupMappings ensures the target index exists and puts the declared
// properties, for models or for every declared model when models is empty.
func (r *Reconciler) SetupMappings(ctx context.Context, models ...string) (*Report, error) {
	report := &Report{}
	return report, r.setup(ctx, report, r.candidates(models))
}

// RemoveMappings deletes the type of each declared model. A type that does not
// exist is skipped without a delete call.
func (r *Reconciler) RemoveMappings(ctx context.Context, models ...string) (*Report, error) {
	report := &Report{}
	return report, r.remove(ctx, report, r.candidates(models))
}

// Automigrate removes then sets up the same models. A removal failure stops
// before any setup.
func (r *Reconciler) Automigrate(ctx context.Context, models ...string) (*Report, error) {
	report := &Report{}
	names := r.candidates(models)
	if err := r.remove(ctx, report, names); err != nil {
		return report, err
	}
	return report, r.setup(ctx, report, names)
}

func (r *Reconciler) candidates(models []string) []string {
	if len(models) > 0 {
		return models
	}
	return r.decls.Names()
}

func (r *Reconciler) setup(ctx context.Context, report *Report, names []string) error {
	for _, name := range names {
		decl, err := r.decls.For(name)
		if err != nil {
			return r.fail(StageSetup, name, report.Setup, err)
		}
		if decl == nil {
			report.Skipped = appendOnce(report.Skipped, name)
			r.logger.Debug("no mapping declared, leaving schema to the engine", zap.String("model", name))
			continue
		}
		if err := ctx.Err(); err != nil {
			return r.fail(StageSetup, name, report.Setup, err)
		}

		target := r.target(decl)
		if err := r.client.EnsureIndex(ctx, target); err != nil {
			return r.fail(StageSetup, name, report.Setup, err)
		}
		if err := r.client.PutMapping(ctx, target, decl.Properties); err != nil {
			return r.fail(StageSetup, name, report.Setup, err)
		}
		report.Setup = append(report.Setup, name)
		r.logger.Info("mapping set up",
			zap.String("model", name),
			zap.String("index", target.Index),
			zap.String("type", target.Type),
		)
	}
	return nil
}

func (r *Reconciler) remove(ctx context.Context, report *Report, names []string) error {
	var done []string
	for _, name := range names {
		decl, err := r.decls.For(name)
		if err != nil {
			return r.fail(StageRemove, name, done, err)
		}
		if decl == nil {
			report.Skipped = appendOnce(report.Skipped, name)
			continue
		}
		if err := ctx.Err(); err != nil {
			return r.fail(StageRemove, name, done, err)
		}

		target := r.target(decl)
		exists, err := r.client.TypeExists(ctx, target)
		if err != nil {
			return r.fail(StageRemove, name, done, err)
		}
		if !exists {
			report.Absent = append(report.Absent, name)
			done = append(done, name)
			continue
		}
		if err := r.client.DeleteMapping(ctx, target); err != nil {
			return r.fail(StageRemove, name, done, err)
		}
		report.Removed = append(report.Removed, name)
		done = append(done, name)
		r.logger.Info("mapping removed",
			zap.String("model", name),
			zap.String("index", target.Index),
			zap.String("type", target.Type),
		)
	}
	return nil
}

func (r *Reconciler) target(decl *Declaration) engine.Target {
	if r.router != nil {
		rt := r.router.Routing(decl.Name)
		return engine.Target{Index: rt.Index, Type: rt.Type}
	}
	t := engine.Target{Index: decl.Index, Type: decl.Type}
	if t.Type == "" {
		t.Type = decl.Name
	}
	return t
}

func (r *Reconciler) fail(stage, model string, done []string, err error) error {
	r.logger.Error("mapping reconciliation stopped",
		zap.String("stage", stage),
		zap.String("model", model),
		zap.Strings("completed", done),
		zap.Error(err),
	)
	return &domain.PartialMigrationError{
		Stage: stage,
		Model: model,
		Done:  append([]string(nil), done...),
		Err:   err,
	}
}

func appendOnce(list []string, name string) []string {
	for _, v := range list {
		if v == name {
			return list
		}
	}
	return append(list, name)
}
