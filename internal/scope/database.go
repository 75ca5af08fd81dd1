// Package scope mediates every tenant operation against the shared physical
// database. A scoped database resolves tenant-relative collection names to
// prefixed physical collections; a scoped collection injects the tenant's
// visibility filter into reads and the tenant stamp into writes.
package scope

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/labfoundry/expstore/internal/db"
	"github.com/labfoundry/expstore/internal/domain"
)

// Database resolves logical collection names for one tenant. Wrappers are
// created lazily and cached by physical name for the lifetime of the proxy,
// so repeated lookups return the same instance and every collection has a
// single shared index manager.
type Database struct {
	scope domain.TenantScope
	phys  db.Database
	log   *zap.Logger

	pollInterval time.Duration
	buildTimeout time.Duration
	dropTimeout  time.Duration

	mu   sync.Mutex
	cols map[string]*Collection
}

// Resolve constructs the scoped database proxy for a tenant.
func Resolve(scope domain.TenantScope, phys db.Database, log *zap.Logger) *Database {
	if log == nil {
		log = zap.NewNop()
	}
	return &Database{
		scope: scope,
		phys:  phys,
		log:   log.With(zap.String("tenant", scope.WriteScope())),
		cols:  make(map[string]*Collection),
	}
}

// WithPolling sets the poll interval and timeouts handed to each collection's
// index manager. Zero values keep the reconciler defaults.
func (d *Database) WithPolling(interval, buildTimeout, dropTimeout time.Duration) *Database {
	d.pollInterval = interval
	d.buildTimeout = buildTimeout
	d.dropTimeout = dropTimeout
	return d
}

// Scope returns the tenant scope this proxy enforces.
func (d *Database) Scope() domain.TenantScope { return d.scope }

// Collection resolves a logical name to its scoped wrapper. The physical
// collection must already exist; access never creates one.
func (d *Database) Collection(ctx context.Context, logical string) (*Collection, error) {
	physName := d.scope.PhysicalName(logical)

	d.mu.Lock()
	defer d.mu.Unlock()
	if col, ok := d.cols[physName]; ok {
		return col, nil
	}

	names, err := d.phys.ListCollectionNames(ctx, bson.M{"name": physName})
	if err != nil {
		return nil, fmt.Errorf("resolve collection %q: %w", logical, err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrNotACollection, logical)
	}

	col := d.wrap(physName)
	d.cols[physName] = col
	return col, nil
}

// EnsureCollection resolves a logical name, creating the physical collection
// if it is missing. Registration is the only sanctioned creation path.
func (d *Database) EnsureCollection(ctx context.Context, logical string) (*Collection, error) {
	physName := d.scope.PhysicalName(logical)

	d.mu.Lock()
	defer d.mu.Unlock()
	if col, ok := d.cols[physName]; ok {
		return col, nil
	}

	err := d.phys.CreateCollection(ctx, physName)
	if err != nil && !errors.Is(err, db.ErrNamespaceExists) {
		return nil, fmt.Errorf("create collection %q: %w", logical, err)
	}

	col := d.wrap(physName)
	d.cols[physName] = col
	return col, nil
}

func (d *Database) wrap(physName string) *Collection {
	return newCollection(d.scope, d.phys.Collection(physName), d.log).
		withPolling(d.pollInterval, d.buildTimeout, d.dropTimeout)
}
