package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates the search engine is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentEngine = "engine"
	ComponentLock   = "lock"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	engine Pinger
	lock   Pinger
}

// New creates a Service. lock can be nil when migrations run unlocked.
func New(engine, lock Pinger) *Service {
	return &Service{engine: engine, lock: lock}
}

// Check pings every component. Nothing works without the engine, so its
// failure is Unhealthy; a lock failure only blocks migrations and is Degraded.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 2)
	status := Healthy

	if err := s.engine.Ping(ctx); err != nil {
		checks[ComponentEngine] = CheckError
		status = Unhealthy
	} else {
		checks[ComponentEngine] = CheckOK
	}

	if s.lock != nil {
		if err := s.lock.Ping(ctx); err != nil {
			checks[ComponentLock] = CheckError
			if status == Healthy {
				status = Degraded
			}
		} else {
			checks[ComponentLock] = CheckOK
		}
	}

	return Report{Status: status, Checks: checks}
}
