package expstore

import (
	"github.com/labfoundry/expstore/internal/db"
	"github.com/labfoundry/expstore/internal/domain"
)

// Sentinel errors surfaced by the client. Match with errors.Is.
var (
	// ErrNotACollection is returned when a logical collection was never
	// declared for the tenant.
	ErrNotACollection = domain.ErrNotACollection
	// ErrInvalidManifest is returned when a tenant manifest fails validation.
	ErrInvalidManifest = domain.ErrInvalidManifest
	// ErrInvalidIndex is returned when an index definition is malformed.
	ErrInvalidIndex = domain.ErrInvalidIndex
	// ErrBuildFailed is returned when a search index build fails terminally.
	ErrBuildFailed = domain.ErrBuildFailed
	// ErrWaitTimeout is returned when an asynchronous index build or drop
	// does not finish within its timeout.
	ErrWaitTimeout = domain.ErrWaitTimeout
	// ErrNoDocuments is returned by FindOne when nothing matches.
	ErrNoDocuments = db.ErrNoDocuments
)
