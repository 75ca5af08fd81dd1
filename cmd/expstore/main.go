package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/labfoundry/expstore/internal/config"
	dbMongo "github.com/labfoundry/expstore/internal/db/mongo"
	"github.com/labfoundry/expstore/internal/health"
	logpkg "github.com/labfoundry/expstore/internal/logger"
	"github.com/labfoundry/expstore/internal/manifest"
	"github.com/labfoundry/expstore/internal/metrics"
	"github.com/labfoundry/expstore/internal/tasks"
	"github.com/labfoundry/expstore/internal/tenant"
	transport "github.com/labfoundry/expstore/internal/transport/chi"
	"github.com/labfoundry/expstore/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting expstore",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("database", cfg.Database.Name),
	)

	client, err := dbMongo.Connect(dbMongo.Config{
		URI:         cfg.Database.URI,
		Database:    cfg.Database.Name,
		MaxPoolSize: cfg.Database.MaxPoolSize,
		MinPoolSize: cfg.Database.MinPoolSize,
	})
	if err != nil {
		logger.Fatal("Failed to create database client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Close(closeCtx)
	}()

	// Wait for database to be ready
	ctx := context.Background()
	if err := client.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register reconciliation metrics explicitly (no init())
	metrics.RegisterReconcileMetrics()

	registry := tasks.NewRegistry(cfg.Tasks.Capacity, logger)
	registrar := tenant.NewRegistrar(client.Database(), registry, logger).
		WithPolling(
			time.Duration(cfg.Reconcile.PollIntervalSec)*time.Second,
			time.Duration(cfg.Reconcile.BuildTimeoutSec)*time.Second,
			time.Duration(cfg.Reconcile.DropTimeoutSec)*time.Second,
		)

	// Register every tenant declared in the manifest directory. Reconciliation
	// runs detached; registration only submits the jobs.
	manifests, err := manifest.LoadDir(cfg.Manifests.Dir)
	if err != nil {
		logger.Fatal("Failed to load tenant manifests", zap.Error(err))
	}
	for _, m := range manifests {
		t, err := registrar.Register(ctx, m)
		if err != nil {
			logger.Error("Tenant registration failed",
				zap.String("tenant", m.Experiment),
				zap.Error(err),
			)
			continue
		}
		for _, job := range t.Jobs {
			if !job.Submitted {
				logger.Warn("Reconciliation job not admitted",
					zap.String("tenant", t.ID),
					zap.String("collection", job.Collection),
				)
			}
		}
	}

	// Operational endpoints: health + metrics
	healthSvc := health.New(client)
	server := transport.NewServer(healthSvc, logger).WithAPIKeys(cfg.HTTP.APIKeys)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	// Let in-flight reconciliation jobs finish before the pool closes.
	registry.Wait()

	logger.Info("Server stopped gracefully")
}
