// Package tenant wires a validated manifest into a live tenant: a scoped
// database handle plus one detached reconciliation job per declared
// collection.
package tenant

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/labfoundry/expstore/internal/db"
	"github.com/labfoundry/expstore/internal/domain"
	"github.com/labfoundry/expstore/internal/logger"
	"github.com/labfoundry/expstore/internal/manifest"
	"github.com/labfoundry/expstore/internal/metrics"
	"github.com/labfoundry/expstore/internal/scope"
	"github.com/labfoundry/expstore/internal/tasks"
)

// Registrar registers tenants against the shared physical database.
type Registrar struct {
	phys  db.Database
	tasks *tasks.Registry
	log   *zap.Logger

	pollInterval time.Duration
	buildTimeout time.Duration
	dropTimeout  time.Duration
}

// NewRegistrar creates a registrar backed by the shared database and the
// background task registry.
func NewRegistrar(phys db.Database, registry *tasks.Registry, log *zap.Logger) *Registrar {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registrar{phys: phys, tasks: registry, log: log}
}

// WithPolling sets the reconciliation poll interval and timeouts handed to
// each tenant's index managers. Zero values keep the reconciler defaults.
func (r *Registrar) WithPolling(interval, buildTimeout, dropTimeout time.Duration) *Registrar {
	r.pollInterval = interval
	r.buildTimeout = buildTimeout
	r.dropTimeout = dropTimeout
	return r
}

// Job is the handle of one fire-and-forget reconciliation submission.
type Job struct {
	ID         string
	Collection string
	Submitted  bool
}

// Tenant is a registered tenant: its scope, its scoped database handle and
// the reconciliation jobs submitted on its behalf.
type Tenant struct {
	ID   string
	DB   *scope.Database
	Jobs []Job
}

// Register builds the tenant's scoped database from its manifest, ensures
// every declared physical collection exists and submits one reconciliation
// job per collection. A failure on one collection is logged and skipped so
// the tenant still comes up with partial functionality; jobs are ephemeral
// and a fresh registration cycle re-derives and re-submits them.
func (r *Registrar) Register(ctx context.Context, m manifest.Manifest) (*Tenant, error) {
	ts, err := m.Scope()
	if err != nil {
		return nil, err
	}

	log := r.log.With(zap.String("tenant", ts.WriteScope()))
	sdb := scope.Resolve(ts, r.phys, r.log).
		WithPolling(r.pollInterval, r.buildTimeout, r.dropTimeout)

	indexes := m.Indexes()
	jobs := make([]Job, 0, len(indexes))
	for _, logical := range m.CollectionNames() {
		col, err := sdb.EnsureCollection(ctx, logical)
		if err != nil {
			log.Error("failed to ensure collection, skipping its indexes",
				zap.String("collection", logical),
				zap.Error(err),
			)
			continue
		}
		desired := indexes[logical]
		if len(desired) == 0 {
			continue
		}
		jobs = append(jobs, r.SubmitReconciliation(col, ts.WriteScope(), desired))
	}

	log.Info("tenant registered",
		zap.Int("collections", len(m.Collections)),
		zap.Int("reconcile_jobs", len(jobs)),
	)
	return &Tenant{ID: ts.WriteScope(), DB: sdb, Jobs: jobs}, nil
}

// SubmitReconciliation launches one detached reconciliation job for a
// collection. The job is bounded by the task registry; at capacity it is
// rejected and reported through the returned handle, never queued.
func (r *Registrar) SubmitReconciliation(col *scope.Collection, tenant string, desired []domain.IndexDefinition) Job {
	job := Job{ID: uuid.NewString(), Collection: col.Name()}
	log := r.log.With(
		zap.String("job_id", job.ID),
		zap.String("tenant", tenant),
		zap.String("collection", col.Name()),
	)

	job.Submitted = r.tasks.Submit("reconcile:"+col.Name(), func(ctx context.Context) {
		outcomes := col.IndexManager().Reconcile(ctx, desired)
		failed := 0
		for _, out := range outcomes {
			if out.Err != nil {
				failed++
			}
		}
		logger.FromContext(ctx).Info("reconciliation job finished",
			zap.String("job_id", job.ID),
			zap.String("tenant", tenant),
			zap.Int("indexes", len(outcomes)),
			zap.Int("failed", failed),
		)
	})
	if !job.Submitted {
		metrics.ReconcileJobsRejectedTotal.Inc()
		log.Warn("reconciliation job rejected at capacity")
	}
	return job
}
