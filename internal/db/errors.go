package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrNamespaceNotFound = errors.New("db: namespace not found")
	ErrNamespaceExists   = errors.New("db: namespace already exists")
	ErrIndexNotFound     = errors.New("db: index not found")
	ErrIndexExists       = errors.New("db: index already exists")
	ErrNoDocuments       = errors.New("db: no documents in result")
)

// Op constants map to driver command names for error context.
const (
	OpFind              = "find"
	OpAggregate         = "aggregate"
	OpCount             = "count"
	OpInsert            = "insert"
	OpUpdate            = "update"
	OpDelete            = "delete"
	OpCreateCollection  = "create"
	OpListCollections   = "listCollections"
	OpCreateIndex       = "createIndexes"
	OpDropIndex         = "dropIndexes"
	OpListIndexes       = "listIndexes"
	OpCreateSearchIndex = "createSearchIndexes"
	OpUpdateSearchIndex = "updateSearchIndex"
	OpDropSearchIndex   = "dropSearchIndex"
	OpListSearchIndexes = "listSearchIndexes"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
