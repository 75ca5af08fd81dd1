package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotACollection signals a logical name that does not resolve to an existing physical collection.
	ErrNotACollection = errors.New("not a collection")
	// ErrInvalidIndex signals a malformed index definition.
	ErrInvalidIndex = errors.New("invalid index definition")
	// ErrInvalidManifest signals a malformed tenant manifest.
	ErrInvalidManifest = errors.New("invalid manifest")

	// ErrBuildFailed signals a terminal FAILED status reported by the index builder.
	ErrBuildFailed = errors.New("index build failed")
	// ErrWaitTimeout signals that an index did not reach the awaited state before the deadline.
	ErrWaitTimeout = errors.New("timed out waiting for index")
)

// WaitTimeoutError wraps ErrWaitTimeout with the index name and the elapsed deadline.
type WaitTimeoutError struct {
	Index   string
	Timeout time.Duration
}

func (e *WaitTimeoutError) Error() string {
	return fmt.Sprintf("%s %q after %s", ErrWaitTimeout.Error(), e.Index, e.Timeout)
}

func (e *WaitTimeoutError) Unwrap() error { return ErrWaitTimeout }

// NewWaitTimeout creates a wait timeout error for an index.
func NewWaitTimeout(index string, timeout time.Duration) error {
	return &WaitTimeoutError{Index: index, Timeout: timeout}
}
