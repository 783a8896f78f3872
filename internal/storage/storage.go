// Package storage defines the access contract for derived collections and the
// typed stores the indexers and analytics read and write through.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Backend.Get when no record has the id.
var ErrNotFound = errors.New("record not found")

// Record is one stored entity. Records of a collection are grouped by
// Partition and ordered inside it by Sort, compared bytewise.
type Record struct {
	ID        string
	Partition string
	Sort      string
	Data      []byte
}

// Query selects records of one partition. Bounds are exclusive and ignored
// when empty. Results are in descending sort order unless Ascending is set.
type Query struct {
	GT        string
	LT        string
	Limit     int
	Ascending bool
}

// Backend is the persistence engine behind every collection.
type Backend interface {
	Get(ctx context.Context, collection, id string) (Record, error)
	Query(ctx context.Context, collection, partition string, q Query) ([]Record, error)
	Put(ctx context.Context, collection string, record Record) error
	// Delete removes the record with id. Deleting a missing id is not an error.
	Delete(ctx context.Context, collection, id string) error
}
