// Package store implements the persistent entity table store. The whole
// database is one JSON snapshot, mapping table name to an ordered list of
// records, kept in a single storage slot. Every operation reads the slot and
// every mutation rewrites the complete snapshot.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/trackerhub/internal/storage"
	"github.com/mesh-intelligence/trackerhub/pkg/types"
)

// Backend implements types.Store over a storage.Slot.
//
// All table operations on a Backend are serialized by mu, so two mutations
// issued concurrently never read the same stale snapshot.
type Backend struct {
	mu       sync.Mutex
	attached bool
	config   types.Config
	slot     storage.Slot
	injected storage.Slot

	log     *zap.Logger
	now     func() time.Time
	newID   func() string
	latency time.Duration
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used for corruption and delete diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(b *Backend) { b.log = log }
}

// WithClock overrides the time source used for created_at.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) { b.now = now }
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(newID func() string) Option {
	return func(b *Backend) { b.newID = newID }
}

// WithSlot makes Attach use slot instead of opening one from the config.
// The Backend takes ownership and closes it on Detach.
func WithSlot(slot storage.Slot) Option {
	return func(b *Backend) { b.injected = slot }
}

// NewBackend creates a new store. The store is not attached; call Attach
// with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		log:   zap.NewNop(),
		now:   time.Now,
		newID: generateUUID,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Table returns the Table for name. Returns ErrStoreDetached if the store is
// not attached and ErrInvalidTable if the name is malformed.
func (b *Backend) Table(name string) (types.Table, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	if !types.ValidTableName(name) {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidTable, name)
	}
	return &table{name: name, backend: b}, nil
}

// Attach validates config and opens the slot it describes.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	config = config.WithDefaults()

	slot := b.injected
	if slot == nil {
		var err error
		slot, err = storage.Open(context.Background(), config)
		if err != nil {
			return fmt.Errorf("open slot: %w", err)
		}
	}

	b.slot = slot
	b.config = config
	b.latency = config.Latency
	b.attached = true

	b.log.Debug("store attached",
		zap.String("backend", config.Backend),
		zap.String("slot", config.Slot))
	return nil
}

// Detach closes the slot. After Detach all table operations return
// ErrStoreDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	b.attached = false
	b.injected = nil
	slot := b.slot
	b.slot = nil
	if err := slot.Close(); err != nil {
		return fmt.Errorf("close slot: %w", err)
	}
	return nil
}

// Config returns the configuration the store was attached with.
func (b *Backend) Config() types.Config {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.config
}

// view runs fn on the current snapshot without persisting it.
func (b *Backend) view(ctx context.Context, fn func(snapshot) error) error {
	return b.run(ctx, func(s snapshot) (bool, error) {
		return false, fn(s)
	})
}

// update runs fn on the current snapshot and persists it when fn reports a
// change. A failing fn leaves the slot untouched.
func (b *Backend) update(ctx context.Context, fn func(snapshot) (bool, error)) error {
	return b.run(ctx, fn)
}

func (b *Backend) run(ctx context.Context, fn func(snapshot) (bool, error)) error {
	if err := b.delay(ctx); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStoreDetached
	}

	// Once started an operation runs to completion.
	ctx = context.WithoutCancel(ctx)

	snap, err := b.load(ctx)
	if err != nil {
		return err
	}
	changed, err := fn(snap)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return b.save(ctx, snap)
}

// load reads and decodes the slot. A blob that does not decode is replaced
// with a fresh snapshot, which is written back immediately.
func (b *Backend) load(ctx context.Context) (snapshot, error) {
	data, err := b.slot.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read slot: %w", err)
	}
	snap, err := decodeSnapshot(data)
	if err == nil {
		return snap, nil
	}

	b.log.Warn("storage corruption, resetting to empty snapshot",
		zap.String("slot", b.config.Slot),
		zap.Int("bytes", len(data)),
		zap.Error(err))

	snap = newSnapshot()
	if err := b.save(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (b *Backend) save(ctx context.Context, snap snapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := b.slot.Write(ctx, data); err != nil {
		return fmt.Errorf("write slot: %w", err)
	}
	return nil
}

// delay emulates a network round trip before an operation starts.
func (b *Backend) delay(ctx context.Context) error {
	b.mu.Lock()
	d := b.latency
	b.mu.Unlock()
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// timestamp formats the creation time stored in created_at.
func (b *Backend) timestamp() string {
	return b.now().UTC().Format(time.RFC3339Nano)
}

// generateUUID generates a new UUID v7 for record IDs.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}
