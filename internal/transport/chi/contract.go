package chi

import (
	"context"

	"github.com/kailas-cloud/esbridge/internal/connector"
	"github.com/kailas-cloud/esbridge/internal/domain/criteria"
	"github.com/kailas-cloud/esbridge/internal/mapping"
	healthuc "github.com/kailas-cloud/esbridge/internal/usecase/health"
	migrationuc "github.com/kailas-cloud/esbridge/internal/usecase/migration"
)

// Documents is the CRUD surface served under /models.
type Documents interface {
	Models() []string
	Create(ctx context.Context, model string, data map[string]any) (string, error)
	Find(ctx context.Context, model string, id any) (map[string]any, error)
	Exists(ctx context.Context, model string, id any) (bool, error)
	All(ctx context.Context, model string, cr *criteria.Criteria, size, offset int) (*connector.Page, error)
	Count(ctx context.Context, model string, cr *criteria.Criteria) (int64, error)
	Destroy(ctx context.Context, model string, id any) (bool, error)
	DestroyAll(ctx context.Context, model string, cr *criteria.Criteria) (int64, error)
	UpdateAll(ctx context.Context, model string, cr *criteria.Criteria, data map[string]any) (int64, error)
	UpdateOrCreate(ctx context.Context, model string, data map[string]any) (map[string]any, bool, error)
	UpdateAttributes(ctx context.Context, model string, id any, data map[string]any) (map[string]any, error)
}

// Migrator runs mapping reconciliations.
type Migrator interface {
	Run(ctx context.Context, action migrationuc.Action, models ...string) (*mapping.Report, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
