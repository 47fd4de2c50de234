package types

import "errors"

// Store defines the interface for backend-agnostic entity storage.
// Callers attach to a backend, access tables by name, and detach when done.
type Store interface {
	// Table returns the Table for the given name. Standard names and any
	// other valid name are accepted; the table itself is created on first
	// write. Returns ErrInvalidTable for malformed names.
	Table(name string) (Table, error)

	// Attach connects the Store to the slot described by config.
	// Returns ErrAlreadyAttached if called while already attached.
	Attach(config Config) error

	// Detach releases the slot. Idempotent: multiple calls succeed.
	// After Detach, table operations return ErrStoreDetached.
	Detach() error
}

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
	ErrInvalidTable    = errors.New("invalid table name")
)
