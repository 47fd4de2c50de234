// Package storage implements the single named storage slot that holds the
// serialized entity snapshot. Backends: a JSON file, an embedded SQLite
// database, a Postgres database and process memory.
package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mesh-intelligence/trackerhub/pkg/types"
)

// Slot reads and overwrites one opaque blob.
type Slot interface {
	// Read returns the stored blob, or nil with no error when the slot has
	// never been written.
	Read(ctx context.Context) ([]byte, error)

	// Write replaces the stored blob.
	Write(ctx context.Context, data []byte) error

	// Close releases backend resources.
	Close() error
}

// sqliteFileName is the embedded database file inside DataDir.
const sqliteFileName = "trackerhub.db"

// Open creates the slot selected by cfg.Backend. cfg must have passed
// Validate; the slot name defaults to types.DefaultSlot.
func Open(ctx context.Context, cfg types.Config) (Slot, error) {
	cfg = cfg.WithDefaults()
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "."
	}

	switch cfg.Backend {
	case types.BackendFile:
		return NewFileSlot(dataDir, cfg.Slot)
	case types.BackendSQLite:
		return OpenSQLite(ctx, filepath.Join(dataDir, sqliteFileName), cfg.Slot)
	case types.BackendPostgres:
		return OpenPostgres(ctx, cfg.DSN, cfg.Slot)
	case types.BackendMemory:
		return NewMemorySlot(), nil
	default:
		return nil, fmt.Errorf("open slot %q: %w", cfg.Backend, types.ErrBackendUnknown)
	}
}
