package store

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/trackerhub/internal/storage"
	"github.com/mesh-intelligence/trackerhub/pkg/types"
)

var fixedTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// sequentialIDs returns an id generator producing id-1, id-2, ...
func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("id-%d", n.Add(1))
	}
}

// newTestBackend returns an attached backend over a memory slot with a fixed
// clock and sequential ids.
func newTestBackend(t *testing.T, opts ...Option) (*Backend, *storage.MemorySlot) {
	t.Helper()
	slot := storage.NewMemorySlot()
	all := append([]Option{
		WithSlot(slot),
		WithClock(func() time.Time { return fixedTime }),
		WithIDGenerator(sequentialIDs()),
	}, opts...)

	b := NewBackend(all...)
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendMemory}))
	t.Cleanup(func() { b.Detach() })
	return b, slot
}

func mustTable(t *testing.T, b *Backend, name string) types.Table {
	t.Helper()
	tbl, err := b.Table(name)
	require.NoError(t, err)
	return tbl
}

func mustCreate(t *testing.T, tbl types.Table, rec types.Record) types.Record {
	t.Helper()
	out, err := tbl.Create(context.Background(), rec)
	require.NoError(t, err)
	return out
}
