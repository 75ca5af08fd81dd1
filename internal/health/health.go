// Package health aggregates liveness checks over the service dependencies.
package health

import "context"

// Pinger checks one dependency's availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

type namedCheck struct {
	name   string
	pinger Pinger
}

// Service coordinates health checks.
type Service struct {
	checks []namedCheck
}

// New creates a Service checking the document database.
func New(db Pinger) *Service {
	return &Service{checks: []namedCheck{{name: "database", pinger: db}}}
}

// WithCheck registers an additional named dependency check.
func (s *Service) WithCheck(name string, p Pinger) *Service {
	s.checks = append(s.checks, namedCheck{name: name, pinger: p})
	return s
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.checks))
	status := Healthy
	for _, c := range s.checks {
		if err := c.pinger.Ping(ctx); err != nil {
			checks[c.name] = CheckError
			status = Degraded
		} else {
			checks[c.name] = CheckOK
		}
	}
	return Report{Status: status, Checks: checks}
}
