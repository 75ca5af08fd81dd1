package mongo

import (
	"errors"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/labfoundry/expstore/internal/db"
)

// Server error codes this layer cares about.
const (
	codeNamespaceNotFound     = 26
	codeIndexNotFound         = 27
	codeNamespaceExists       = 48
	codeIndexAlreadyExists    = 68
	codeIndexOptionsConflict  = 85
	codeIndexKeySpecsConflict = 86
)

// classify maps driver errors onto db sentinels, preserving the op name.
// Concurrent reconcilers race on index create/drop; the sentinels let callers
// treat "already exists" and "already gone" as success.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &db.Error{Op: op, Err: db.ErrNoDocuments}
	}
	var srv mongo.ServerError
	if errors.As(err, &srv) {
		switch {
		case srv.HasErrorCode(codeNamespaceNotFound):
			return &db.Error{Op: op, Err: db.ErrNamespaceNotFound}
		case srv.HasErrorCode(codeNamespaceExists):
			return &db.Error{Op: op, Err: db.ErrNamespaceExists}
		case srv.HasErrorCode(codeIndexNotFound):
			return &db.Error{Op: op, Err: db.ErrIndexNotFound}
		case srv.HasErrorCode(codeIndexAlreadyExists),
			srv.HasErrorCode(codeIndexOptionsConflict),
			srv.HasErrorCode(codeIndexKeySpecsConflict):
			return &db.Error{Op: op, Err: db.ErrIndexExists}
		}
	}
	return &db.Error{Op: op, Err: err}
}
