// Package tasks is a capacity-limited registry for detached background work.
// Submission either starts the task immediately or is rejected outright; the
// registry never queues.
package tasks

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/labfoundry/expstore/internal/logger"
)

// Registry admits up to capacity concurrent background tasks.
type Registry struct {
	sem      *semaphore.Weighted
	capacity int64
	log      *zap.Logger
	wg       sync.WaitGroup
}

// NewRegistry creates a registry with the given concurrency ceiling.
func NewRegistry(capacity int64, log *zap.Logger) *Registry {
	if capacity <= 0 {
		capacity = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		sem:      semaphore.NewWeighted(capacity),
		capacity: capacity,
		log:      log,
	}
}

// Submit starts fn on its own goroutine, detached from the caller's context.
// The task context carries a logger tagged with the task name. Returns false
// without running anything when the registry is at capacity.
func (r *Registry) Submit(name string, fn func(ctx context.Context)) bool {
	if !r.sem.TryAcquire(1) {
		r.log.Warn("background task rejected at capacity",
			zap.String("task", name),
			zap.Int64("capacity", r.capacity),
		)
		return false
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.sem.Release(1)
		defer func() {
			if rvr := recover(); rvr != nil {
				r.log.Error("background task panicked",
					zap.String("task", name),
					zap.Any("panic", rvr),
					zap.Stack("stacktrace"),
				)
			}
		}()
		taskLog := r.log.With(zap.String("task", name))
		fn(logger.ContextWithLogger(context.Background(), taskLog))
	}()
	return true
}

// Wait blocks until every admitted task has finished.
func (r *Registry) Wait() {
	r.wg.Wait()
}
