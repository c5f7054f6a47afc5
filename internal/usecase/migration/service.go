package migration

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/esbridge/internal/domain"
	"github.com/kailas-cloud/esbridge/internal/mapping"
)

// Action selects which reconciliation to run.
type Action string

// Supported actions.
const (
	ActionSetup   Action = "setup"
	ActionRemove  Action = "remove"
	ActionMigrate Action = "migrate"
)

// ParseAction validates an action name.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionSetup, ActionRemove, ActionMigrate:
		return a, nil
	default:
		return "", domain.InvalidArgument("unknown mapping action %q", s)
	}
}

const releaseTimeout = 5 * time.Second

// Service runs reconciliations under the migration lock.
type Service struct {
	reconciler Reconciler
	locker     Locker
	recorder   Recorder
	logger     *zap.Logger
}

// New creates a Service. locker and recorder may be nil.
func New(reconciler Reconciler, locker Locker, recorder Recorder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{reconciler: reconciler, locker: locker, recorder: recorder, logger: logger}
}

// Run executes action for models (all declared models when empty).
func (s *Service) Run(ctx context.Context, action Action, models ...string) (*mapping.Report, error) {
	run, err := s.runner(action)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx)
		if err != nil {
			status := "error"
			if errors.Is(err, domain.ErrMigrationLocked) {
				status = "locked"
			}
			s.observe(action, status, start)
			return nil, err
		}
		defer s.release(ctx, unlock)
	}

	report, err := run(ctx, models...)
	if err != nil {
		s.observe(action, "error", start)
		return report, err
	}
	s.observe(action, "ok", start)
	s.logger.Info("mappings reconciled",
		zap.String("action", string(action)),
		zap.Strings("setup", report.Setup),
		zap.Strings("removed", report.Removed),
		zap.Strings("skipped", report.Skipped),
		zap.Duration("duration", time.Since(start)),
	)
	return report, nil
}

func (s *Service) runner(action Action) (func(context.Context, ...string) (*mapping.Report, error), error) {
	switch action {
	case ActionSetup:
		return s.reconciler.SetupMappings, nil
	case ActionRemove:
		return s.reconciler.RemoveMappings, nil
	case ActionMigrate:
		return s.reconciler.Automigrate, nil
	default:
		return nil, domain.InvalidArgument("unknown mapping action %q", action)
	}
}

// release runs on a context detached from ctx so that a canceled request
// still gives the lock back.
func (s *Service) release(ctx context.Context, unlock func(context.Context) error) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := unlock(rctx); err != nil {
		s.logger.Warn("failed to release migration lock", zap.Error(err))
	}
}

func (s *Service) observe(action Action, status string, start time.Time) {
	if s.recorder != nil {
		s.recorder.ObserveMigration(string(action), status, time.Since(start))
	}
}
