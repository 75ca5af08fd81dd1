// Package reconcile brings live index state into agreement with the indexes a
// tenant declares. Synchronous secondary indexes are diffed by key signature;
// asynchronous search indexes are diffed by normalized definition equality and
// awaited through a polling state machine.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/labfoundry/expstore/internal/db"
	"github.com/labfoundry/expstore/internal/domain"
	"github.com/labfoundry/expstore/internal/metrics"
)

// Default polling parameters for asynchronous index builds.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultBuildTimeout = 600 * time.Second
	DefaultDropTimeout  = 300 * time.Second
)

// Action describes what the reconciler did for one index.
type Action string

const (
	// ActionNone means the observed index already matched the desired one.
	ActionNone Action = "none"
	// ActionSkipped means the definition targets the implicit _id index.
	ActionSkipped Action = "skipped"
	// ActionCreated means the index was created.
	ActionCreated Action = "created"
	// ActionRecreated means a keyed index was dropped and recreated on key drift.
	ActionRecreated Action = "recreated"
	// ActionUpdated means a search index definition was updated in place.
	ActionUpdated Action = "updated"
	// ActionFailed means the index could not be reconciled.
	ActionFailed Action = "failed"
)

// Outcome is the per-index result of a reconciliation pass.
type Outcome struct {
	Index  string
	Action Action
	Err    error
}

// Reconciler applies desired index definitions to one physical collection.
// Definitions are applied sequentially so two operations never race on the
// same collection; distinct collections reconcile independently.
type Reconciler struct {
	collection string
	tenant     string
	indexes    db.IndexStore
	search     db.SearchIndexStore
	log        *zap.Logger

	pollInterval time.Duration
	buildTimeout time.Duration
	dropTimeout  time.Duration
}

// New creates a reconciler for one collection's index views.
func New(collection, tenant string, indexes db.IndexStore, search db.SearchIndexStore, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{
		collection:   collection,
		tenant:       tenant,
		indexes:      indexes,
		search:       search,
		log:          log.With(zap.String("collection", collection), zap.String("tenant", tenant)),
		pollInterval: DefaultPollInterval,
		buildTimeout: DefaultBuildTimeout,
		dropTimeout:  DefaultDropTimeout,
	}
}

// WithPolling overrides the poll interval and wall-clock timeouts.
func (r *Reconciler) WithPolling(interval, buildTimeout, dropTimeout time.Duration) *Reconciler {
	if interval > 0 {
		r.pollInterval = interval
	}
	if buildTimeout > 0 {
		r.buildTimeout = buildTimeout
	}
	if dropTimeout > 0 {
		r.dropTimeout = dropTimeout
	}
	return r
}

// Reconcile applies every desired definition independently and in order.
// A failure for one index never aborts its siblings. Calling Reconcile again
// with an unchanged list converges with zero additional store mutations.
func (r *Reconciler) Reconcile(ctx context.Context, desired []domain.IndexDefinition) []Outcome {
	outcomes := make([]Outcome, 0, len(desired))
	for _, def := range desired {
		out := r.apply(ctx, def)
		outcomes = append(outcomes, out)
		metrics.ReconcileOpsTotal.WithLabelValues(string(out.Action)).Inc()
		if out.Err != nil {
			metrics.ReconcileFailuresTotal.WithLabelValues(failureReason(out.Err)).Inc()
			r.log.Error("index reconciliation failed",
				zap.String("index", out.Index),
				zap.Error(out.Err),
			)
			continue
		}
		r.log.Info("index reconciled",
			zap.String("index", out.Index),
			zap.String("action", string(out.Action)),
		)
	}
	return outcomes
}

func (r *Reconciler) apply(ctx context.Context, def domain.IndexDefinition) Outcome {
	name := def.NamespacedName(r.tenant)
	if err := def.Validate(); err != nil {
		return Outcome{Index: name, Action: ActionFailed, Err: err}
	}
	if def.IsImplicitID() {
		// The store manages {_id: 1} itself; it cannot be customized.
		return Outcome{Index: name, Action: ActionSkipped}
	}
	if def.Kind.Keyed() {
		return r.applyKeyed(ctx, name, def)
	}
	return r.applySearch(ctx, name, def)
}

// applyKeyed reconciles a synchronous secondary index. A name collision with
// different keys is not updatable in place, so drift means drop + recreate.
func (r *Reconciler) applyKeyed(ctx context.Context, name string, def domain.IndexDefinition) Outcome {
	specs, err := r.indexes.List(ctx)
	if err != nil {
		return Outcome{Index: name, Action: ActionFailed, Err: fmt.Errorf("list indexes: %w", err)}
	}

	desiredKeys := keysToBSON(def.Keys)
	var existing *db.IndexSpec
	for i := range specs {
		if specs[i].Name == name {
			existing = &specs[i]
			break
		}
	}

	if existing != nil {
		if keysEqual(existing.Keys, desiredKeys) {
			return Outcome{Index: name, Action: ActionNone}
		}
		if err := r.indexes.Drop(ctx, name); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
			return Outcome{Index: name, Action: ActionFailed, Err: fmt.Errorf("drop stale index: %w", err)}
		}
		if err := r.createKeyed(ctx, name, desiredKeys, def.Options); err != nil {
			return Outcome{Index: name, Action: ActionFailed, Err: err}
		}
		return Outcome{Index: name, Action: ActionRecreated}
	}

	if err := r.createKeyed(ctx, name, desiredKeys, def.Options); err != nil {
		return Outcome{Index: name, Action: ActionFailed, Err: err}
	}
	return Outcome{Index: name, Action: ActionCreated}
}

func (r *Reconciler) createKeyed(ctx context.Context, name string, keys bson.D, opts domain.IndexOptions) error {
	model := db.IndexModel{
		Name:               name,
		Keys:               keys,
		Unique:             opts.Unique,
		Sparse:             opts.Sparse,
		ExpireAfterSeconds: opts.ExpireAfterSeconds,
	}
	if opts.PartialFilter != nil {
		model.PartialFilter = bson.M(opts.PartialFilter)
	}
	err := r.indexes.Create(ctx, model)
	if errors.Is(err, db.ErrIndexExists) {
		// A concurrent reconciler won the race; converged either way.
		return nil
	}
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// applySearch reconciles an asynchronous search/vector index. Drift is
// detected on the kind's comparable sub-object only, after canonicalization.
func (r *Reconciler) applySearch(ctx context.Context, name string, def domain.IndexDefinition) Outcome {
	specs, err := r.search.List(ctx, name)
	if err != nil {
		return Outcome{Index: name, Action: ActionFailed, Err: fmt.Errorf("list search indexes: %w", err)}
	}

	if len(specs) == 0 {
		err := r.search.Create(ctx, name, def.Kind.SearchType(), bson.M(def.Definition))
		if err != nil && !errors.Is(err, db.ErrIndexExists) {
			return Outcome{Index: name, Action: ActionFailed, Err: fmt.Errorf("create search index: %w", err)}
		}
		if err := r.waitForQueryable(ctx, name); err != nil {
			return Outcome{Index: name, Action: ActionFailed, Err: err}
		}
		return Outcome{Index: name, Action: ActionCreated}
	}

	spec := specs[0]
	key := driftKey(def.Kind)
	desiredPart, ok := def.Definition[key]
	if !ok {
		r.log.Warn("cannot reliably detect drift, leaving index untouched",
			zap.String("index", name),
			zap.String("kind", string(def.Kind)),
			zap.String("expected_key", key),
		)
		return Outcome{Index: name, Action: ActionNone}
	}
	observedPart := spec.LatestDefinition[key]

	equal, err := Equal(desiredPart, observedPart)
	if err != nil {
		r.log.Warn("cannot reliably detect drift, leaving index untouched",
			zap.String("index", name),
			zap.Error(err),
		)
		return Outcome{Index: name, Action: ActionNone}
	}

	if equal {
		switch {
		case spec.Queryable:
			return Outcome{Index: name, Action: ActionNone}
		case spec.Status == db.SearchStatusFailed:
			// Terminal; requires manual intervention, never auto-retried here.
			return Outcome{Index: name, Action: ActionFailed,
				Err: fmt.Errorf("search index %q: %w", name, domain.ErrBuildFailed)}
		default:
			if err := r.waitForQueryable(ctx, name); err != nil {
				return Outcome{Index: name, Action: ActionFailed, Err: err}
			}
			return Outcome{Index: name, Action: ActionNone}
		}
	}

	if err := r.search.Update(ctx, name, bson.M(def.Definition)); err != nil {
		return Outcome{Index: name, Action: ActionFailed, Err: fmt.Errorf("update search index: %w", err)}
	}
	if err := r.waitForQueryable(ctx, name); err != nil {
		return Outcome{Index: name, Action: ActionFailed, Err: err}
	}
	return Outcome{Index: name, Action: ActionUpdated}
}

// Drop removes an index, tolerating a concurrent removal, and for search
// kinds polls until the catalog no longer lists the name.
func (r *Reconciler) Drop(ctx context.Context, def domain.IndexDefinition) error {
	name := def.NamespacedName(r.tenant)
	if def.Kind.Keyed() {
		err := r.indexes.Drop(ctx, name)
		if err != nil && !errors.Is(err, db.ErrIndexNotFound) && !errors.Is(err, db.ErrNamespaceNotFound) {
			return fmt.Errorf("drop index %q: %w", name, err)
		}
		return nil
	}

	err := r.search.Drop(ctx, name)
	if err != nil && !errors.Is(err, db.ErrIndexNotFound) && !errors.Is(err, db.ErrNamespaceNotFound) {
		return fmt.Errorf("drop search index %q: %w", name, err)
	}
	return r.waitForAbsent(ctx, name)
}

// waitForQueryable polls the search-index catalog until the index is
// queryable, the build fails terminally, or the wall-clock deadline elapses.
// Transient catalog errors are logged and retried on the next interval.
func (r *Reconciler) waitForQueryable(ctx context.Context, name string) error {
	start := time.Now()
	deadline := start.Add(r.buildTimeout)
	defer func() { metrics.IndexBuildWaitSeconds.Observe(time.Since(start).Seconds()) }()

	for {
		specs, err := r.search.List(ctx, name)
		switch {
		case err != nil:
			r.log.Warn("transient error polling index status, retrying",
				zap.String("index", name),
				zap.Error(err),
			)
		case len(specs) > 0:
			spec := specs[0]
			if spec.Status == db.SearchStatusFailed {
				return fmt.Errorf("search index %q: %w", name, domain.ErrBuildFailed)
			}
			if spec.Queryable {
				return nil
			}
			r.log.Debug("index build in progress",
				zap.String("index", name),
				zap.String("status", spec.Status),
			)
		}

		if !time.Now().Before(deadline) {
			return domain.NewWaitTimeout(name, r.buildTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.pollInterval):
		}
	}
}

// waitForAbsent polls until the catalog stops listing the name or the drop
// timeout elapses.
func (r *Reconciler) waitForAbsent(ctx context.Context, name string) error {
	deadline := time.Now().Add(r.dropTimeout)
	for {
		specs, err := r.search.List(ctx, name)
		switch {
		case err != nil:
			r.log.Warn("transient error polling index status, retrying",
				zap.String("index", name),
				zap.Error(err),
			)
		case len(specs) == 0:
			return nil
		}

		if !time.Now().Before(deadline) {
			return domain.NewWaitTimeout(name, r.dropTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.pollInterval):
		}
	}
}

// driftKey is the only sub-object compared for drift per kind: the backend
// rewrites the rest of the stored definition, so comparing more would flag
// spurious rebuilds.
func driftKey(kind domain.IndexKind) string {
	if kind == domain.KindVectorSearch {
		return "fields"
	}
	return "mappings"
}

func keysToBSON(keys []domain.IndexKey) bson.D {
	d := make(bson.D, 0, len(keys))
	for _, k := range keys {
		d = append(d, bson.E{Key: k.Field, Value: k.Value})
	}
	return d
}

// keysEqual compares key signatures pairwise, tolerating the integer widening
// the server applies to stored key directions.
func keysEqual(a, b bson.D) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Key != b[i].Key {
			return false
		}
		if !keyValueEqual(a[i].Value, b[i].Value) {
			return false
		}
	}
	return true
}

func keyValueEqual(a, b any) bool {
	na, aNum := asInt64(a)
	nb, bNum := asInt64(b)
	if aNum && bNum {
		return na == nb
	}
	if aNum != bNum {
		return false
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func asInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case float64:
		return int64(t), t == float64(int64(t))
	}
	return 0, false
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrBuildFailed):
		return "build_failed"
	case errors.Is(err, domain.ErrWaitTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrInvalidIndex):
		return "invalid_definition"
	default:
		return "error"
	}
}
