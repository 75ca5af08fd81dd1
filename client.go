// Package expstore is the embedded client for the experiment-scoped document
// store. It connects to the backing database, registers tenants from their
// manifests and hands out scoped handles that enforce tenant visibility on
// every operation.
package expstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbMongo "github.com/labfoundry/expstore/internal/db/mongo"
	"github.com/labfoundry/expstore/internal/manifest"
	"github.com/labfoundry/expstore/internal/tasks"
	"github.com/labfoundry/expstore/internal/tenant"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultTaskCapacity     = 16
)

// Options configures a Client. URI and Database are required; everything else
// has a sensible default.
type Options struct {
	// URI is the database connection string.
	URI string
	// Database is the database name holding all physical collections.
	Database string

	MaxPoolSize uint64
	MinPoolSize uint64

	// ReadinessTimeout bounds the initial connectivity wait. Default 10s.
	ReadinessTimeout time.Duration

	// TaskCapacity bounds concurrent background reconciliation jobs. Default 16.
	TaskCapacity int64

	// PollInterval, BuildTimeout and DropTimeout tune the index reconcilers.
	// Zero values keep the reconciler defaults.
	PollInterval time.Duration
	BuildTimeout time.Duration
	DropTimeout  time.Duration

	// Logger receives structured logs. Defaults to a no-op logger.
	Logger *zap.Logger
}

func (o *Options) applyDefaults() {
	if o.ReadinessTimeout <= 0 {
		o.ReadinessTimeout = defaultReadinessTimeout
	}
	if o.TaskCapacity <= 0 {
		o.TaskCapacity = defaultTaskCapacity
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

func (o *Options) validate() error {
	if o.URI == "" {
		return errors.New("expstore: database uri required")
	}
	if o.Database == "" {
		return errors.New("expstore: database name required")
	}
	return nil
}

// Client is the expstore entry point.
type Client struct {
	client    *dbMongo.Client
	registry  *tasks.Registry
	registrar *tenant.Registrar
	log       *zap.Logger
}

// Open connects to the database and wires the tenant registrar.
func Open(ctx context.Context, opts Options) (*Client, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	opts.applyDefaults()

	client, err := dbMongo.Connect(dbMongo.Config{
		URI:         opts.URI,
		Database:    opts.Database,
		MaxPoolSize: opts.MaxPoolSize,
		MinPoolSize: opts.MinPoolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("expstore: connect: %w", err)
	}
	if err := client.WaitForReady(ctx, opts.ReadinessTimeout); err != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Close(closeCtx)
		return nil, fmt.Errorf("expstore: database not ready: %w", err)
	}

	registry := tasks.NewRegistry(opts.TaskCapacity, opts.Logger)
	registrar := tenant.NewRegistrar(client.Database(), registry, opts.Logger).
		WithPolling(opts.PollInterval, opts.BuildTimeout, opts.DropTimeout)

	return &Client{
		client:    client,
		registry:  registry,
		registrar: registrar,
		log:       opts.Logger,
	}, nil
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Wait blocks until every in-flight reconciliation job has finished.
func (c *Client) Wait() {
	c.registry.Wait()
}

// Close waits for in-flight reconciliation jobs and releases the connection.
func (c *Client) Close(ctx context.Context) error {
	c.registry.Wait()
	if err := c.client.Close(ctx); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

// Register registers a tenant from manifest bytes: the manifest is validated
// as a whole, every declared physical collection is ensured and one detached
// reconciliation job is submitted per collection.
func (c *Client) Register(ctx context.Context, manifestYAML []byte) (*Tenant, error) {
	m, err := manifest.Parse(manifestYAML)
	if err != nil {
		return nil, err
	}
	return c.register(ctx, m)
}

// RegisterFile registers a tenant from a manifest file.
func (c *Client) RegisterFile(ctx context.Context, path string) (*Tenant, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	return c.register(ctx, m)
}

// RegisterDir registers every tenant manifest in a directory, sorted by file
// name. A parse failure in any file fails the whole call before anything is
// registered.
func (c *Client) RegisterDir(ctx context.Context, dir string) ([]*Tenant, error) {
	manifests, err := manifest.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	tenants := make([]*Tenant, 0, len(manifests))
	for _, m := range manifests {
		t, err := c.register(ctx, m)
		if err != nil {
			return tenants, fmt.Errorf("register tenant %q: %w", m.Experiment, err)
		}
		tenants = append(tenants, t)
	}
	return tenants, nil
}

func (c *Client) register(ctx context.Context, m manifest.Manifest) (*Tenant, error) {
	t, err := c.registrar.Register(ctx, m)
	if err != nil {
		return nil, err
	}
	return newTenant(t), nil
}
