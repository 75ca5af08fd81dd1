// Package mongo adapts the MongoDB driver to the db interfaces.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/labfoundry/expstore/internal/db"
)

// Config holds connection settings for the shared client.
type Config struct {
	URI         string
	Database    string
	MaxPoolSize uint64
	MinPoolSize uint64
}

// Client owns the process-wide driver client. The connection pool is a shared
// resource; proxies and reconcilers borrow from it, none owns a connection.
type Client struct {
	client *mongo.Client
	dbName string
}

// Connect creates the shared client. The driver connects lazily; use
// WaitForReady to block until the deployment answers pings.
func Connect(cfg Config) (*Client, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	if cfg.MinPoolSize > 0 {
		opts.SetMinPoolSize(cfg.MinPoolSize)
	}
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return &Client{client: client, dbName: cfg.Database}, nil
}

// Database returns the unscoped handle to the configured database.
func (c *Client) Database() db.Database {
	return &database{db: c.client.Database(c.dbName)}
}

// Ping checks connectivity against the primary.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// WaitForReady pings until the deployment responds or the timeout elapses.
func (c *Client) WaitForReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		pingCtx, cancel := context.WithTimeout(ctx, time.Second)
		lastErr = c.client.Ping(pingCtx, readpref.Primary())
		cancel()
		if lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	return fmt.Errorf("database not ready after %s: %w", timeout, lastErr)
}

// Close disconnects the client, releasing the pool.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
