package types

import (
	"context"
	"errors"
)

// Table provides uniform CRUD operations over one named sequence of records.
type Table interface {
	// List returns the records of the table. sortField selects an ordering
	// field; a leading "-" sorts descending. limit <= 0 means unlimited.
	List(ctx context.Context, sortField string, limit int) ([]Record, error)

	// Get retrieves the record with the given ID.
	// Returns ErrNotFound if no record exists with that ID.
	Get(ctx context.Context, id string) (Record, error)

	// Create appends a record, assigning id (when absent), created_at,
	// created_date and user_id. Returns the stored record.
	Create(ctx context.Context, rec Record) (Record, error)

	// Update shallow-merges patch into the record with the given ID.
	// Returns ErrNotFound if no record exists with that ID.
	Update(ctx context.Context, id string, patch Patch) (Record, error)

	// Delete removes the record with the given ID. Deleting a missing ID
	// succeeds.
	Delete(ctx context.Context, id string) error

	// DeleteBy removes every record whose field equals value and returns
	// the number of removed records. Zero matches is not an error.
	DeleteBy(ctx context.Context, field string, value any) (int, error)
}

// Table operation errors.
var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidID    = errors.New("invalid record ID")
	ErrDuplicateID  = errors.New("record ID already exists")
	ErrInvalidData  = errors.New("invalid record data")
	ErrInvalidField = errors.New("invalid field name")
)

// Overlay errors.
var (
	ErrRateLimited     = errors.New("rate limited")
	ErrCryptoFailure   = errors.New("crypto failure")
	ErrStorageCorrupt  = errors.New("storage corrupt")
	ErrUnauthenticated = errors.New("not authenticated")
)
