// Package trackerhub is the public entry point to the Tracker Hub store.
// It exposes a factory for attached stores while keeping the implementation
// internal.
package trackerhub

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/trackerhub/internal/store"
	"github.com/mesh-intelligence/trackerhub/pkg/types"
)

// Version is the module version reported by the CLI.
const Version = "0.3.0"

// ModulePath is the Go module path.
const ModulePath = "github.com/mesh-intelligence/trackerhub"

// NewStore creates a store that is not yet attached. A nil logger discards
// diagnostics.
//
// Example:
//
//	s := trackerhub.NewStore(nil)
//	err := s.Attach(types.Config{
//	    Backend: types.BackendFile,
//	    DataDir: ".trackerhub-db",
//	})
//	defer s.Detach()
func NewStore(log *zap.Logger) types.Store {
	if log == nil {
		log = zap.NewNop()
	}
	return store.NewBackend(store.WithLogger(log))
}

// Open creates a store and attaches it to cfg.
func Open(cfg types.Config, log *zap.Logger) (types.Store, error) {
	s := NewStore(log)
	if err := s.Attach(cfg); err != nil {
		return nil, fmt.Errorf("attach store: %w", err)
	}
	return s, nil
}
