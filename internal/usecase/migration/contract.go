package migration

import (
	"context"
	"time"

	"github.com/kailas-cloud/esbridge/internal/mapping"
)

// Reconciler applies declared mappings.
type Reconciler interface {
	SetupMappings(ctx context.Context, models ...string) (*mapping.Report, error)
	RemoveMappings(ctx context.Context, models ...string) (*mapping.Report, error)
	Automigrate(ctx context.Context, models ...string) (*mapping.Report, error)
}

// Locker serializes migrations across processes.
type Locker interface {
	Lock(ctx context.Context) (unlock func(context.Context) error, err error)
}

// Recorder observes migration runs.
type Recorder interface {
	ObserveMigration(action, status string, d time.Duration)
}
