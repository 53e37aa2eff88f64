package storage

import (
	"context"
	"errors"

	"github.com/nasdf/meeple/record"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrExists   = errors.New("record already exists")
)

// Entry is a record and its identifier within a collection.
type Entry struct {
	ID     string
	Record record.Record
}

// UpdateFunc returns the updated record for a matching entry and true, or false to leave it unchanged.
type UpdateFunc func(id string, rec record.Record) (record.Record, bool, error)

// MatchFunc returns true if the entry should be removed.
type MatchFunc func(id string, rec record.Record) (bool, error)

// Storage is the mutable record substrate shared by both query dialects.
//
// Collections are created implicitly on first write and are never removed
// except by Drop or Clear.
type Storage interface {
	// Get returns a copy of the record with the given id.
	Get(ctx context.Context, collection, id string) (record.Record, error)
	// CreateAll stores new records in order.
	//
	// If any id is already taken or repeated in entries ErrExists is returned and nothing is written.
	CreateAll(ctx context.Context, collection string, entries []Entry) error
	// Put replaces the record with the given id.
	Put(ctx context.Context, collection, id string, rec record.Record) error
	// Merge overwrites the top level fields of a record with the fields in patch and returns the result.
	//
	// If create is false and the collection or record does not exist ErrNotFound is returned.
	Merge(ctx context.Context, collection, id string, patch record.Record, create bool) (record.Record, error)
	// Delete removes the record with the given id and returns it.
	Delete(ctx context.Context, collection, id string) (record.Record, error)
	// Scan returns copies of all records in the collection in enumeration order.
	Scan(ctx context.Context, collection string) ([]Entry, error)
	// UpdateWhere atomically applies fn to every record in the collection and returns the updated entries.
	UpdateWhere(ctx context.Context, collection string, fn UpdateFunc) ([]Entry, error)
	// DeleteWhere atomically removes every record matched by fn and returns the removed entries.
	DeleteWhere(ctx context.Context, collection string, fn MatchFunc) ([]Entry, error)
	// HasCollection returns true if the collection has ever been written to.
	HasCollection(ctx context.Context, collection string) (bool, error)
	// Collections returns the sorted names of all collections.
	Collections(ctx context.Context) ([]string, error)
	// Drop removes the collection and all of its records.
	Drop(ctx context.Context, collection string) error
	// Clear removes all collections.
	Clear(ctx context.Context) error
}
