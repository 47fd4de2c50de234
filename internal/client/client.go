// Package client composes the overlays UI collaborators go through to reach
// the store: input is sanitized, sensitive fields are encrypted, and every
// call is admitted by the rate limiter.
package client

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/trackerhub/internal/ratelimit"
	"github.com/mesh-intelligence/trackerhub/internal/sanitize"
	"github.com/mesh-intelligence/trackerhub/internal/vault"
	"github.com/mesh-intelligence/trackerhub/pkg/types"
)

// Default quota applied per table operation.
const (
	DefaultMaxRequests = 100
	DefaultWindow      = time.Minute
)

// Options configures a Client. Zero values select the defaults.
type Options struct {
	MaxRequests int
	Window      time.Duration

	// UserID keys field encryption.
	UserID string

	// EncryptedFields lists, per table, the fields stored as ciphertext.
	EncryptedFields map[string][]string

	// RichFields lists, per table, the fields that keep inline formatting.
	RichFields map[string][]string

	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxRequests <= 0 {
		o.MaxRequests = DefaultMaxRequests
	}
	if o.Window <= 0 {
		o.Window = DefaultWindow
	}
	if o.UserID == "" {
		o.UserID = types.DefaultUserID
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Client hands out guarded entity handles.
type Client struct {
	store   types.Store
	limiter *ratelimit.Limiter
	vault   *vault.Vault
	opts    Options
}

// New returns a Client. A nil vault disables field encryption.
func New(store types.Store, limiter *ratelimit.Limiter, v *vault.Vault, opts Options) *Client {
	return &Client{
		store:   store,
		limiter: limiter,
		vault:   v,
		opts:    opts.withDefaults(),
	}
}

// Entities returns the handle for the named table.
func (c *Client) Entities(name string) (*Entities, error) {
	tbl, err := c.store.Table(name)
	if err != nil {
		return nil, err
	}
	e := &Entities{
		client: c,
		name:   name,
		table:  tbl,
		rich:   c.opts.RichFields[name],
	}
	if c.vault != nil {
		e.encrypted = c.opts.EncryptedFields[name]
	}
	return e, nil
}

// Table returns the guarded handle for name as a types.Table.
func (c *Client) Table(name string) (types.Table, error) {
	e, err := c.Entities(name)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Entities is a guarded view of one table. It satisfies types.Table.
type Entities struct {
	client    *Client
	name      string
	table     types.Table
	rich      []string
	encrypted []string
}

var _ types.Table = (*Entities)(nil)

// Name returns the table name.
func (e *Entities) Name() string {
	return e.name
}

func guard[T any](e *Entities, op string, fn func() (T, error)) (T, error) {
	key := "entities:" + e.name + ":" + op
	out, err := ratelimit.Guard(e.client.limiter, key, e.client.opts.MaxRequests, e.client.opts.Window, fn)
	if ratelimit.IsRateLimited(err) {
		e.client.opts.Logger.Warn("request rejected", zap.String("key", key))
	}
	return out, err
}

// List returns the table's records with sensitive fields decrypted.
// Sorting by an encrypted field orders ciphertexts.
func (e *Entities) List(ctx context.Context, sortField string, limit int) ([]types.Record, error) {
	return guard(e, "list", func() ([]types.Record, error) {
		rows, err := e.table.List(ctx, sortField, limit)
		if err != nil {
			return nil, err
		}
		for i, row := range rows {
			rows[i] = e.open(row)
		}
		return rows, nil
	})
}

// Get returns one record with sensitive fields decrypted.
func (e *Entities) Get(ctx context.Context, id string) (types.Record, error) {
	return guard(e, "get", func() (types.Record, error) {
		rec, err := e.table.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return e.open(rec), nil
	})
}

// Create sanitizes and seals rec before storing it.
func (e *Entities) Create(ctx context.Context, rec types.Record) (types.Record, error) {
	return guard(e, "create", func() (types.Record, error) {
		sealed, err := e.seal(sanitize.Record(rec, e.rich))
		if err != nil {
			return nil, err
		}
		out, err := e.table.Create(ctx, sealed)
		if err != nil {
			return nil, err
		}
		return e.open(out), nil
	})
}

// Update sanitizes and seals the patched fields before merging them.
func (e *Entities) Update(ctx context.Context, id string, patch types.Patch) (types.Record, error) {
	return guard(e, "update", func() (types.Record, error) {
		sealed, err := e.seal(sanitize.Record(patch.Fields(), e.rich))
		if err != nil {
			return nil, err
		}
		out, err := e.table.Update(ctx, id, types.NewPatch(sealed))
		if err != nil {
			return nil, err
		}
		return e.open(out), nil
	})
}

// Delete removes the record with the given id.
func (e *Entities) Delete(ctx context.Context, id string) error {
	_, err := guard(e, "delete", func() (struct{}, error) {
		return struct{}{}, e.table.Delete(ctx, id)
	})
	return err
}

// DeleteBy removes the records whose field equals value. Encrypted fields
// cannot be matched and return ErrInvalidField.
func (e *Entities) DeleteBy(ctx context.Context, field string, value any) (int, error) {
	return guard(e, "deleteBy", func() (int, error) {
		if slices.Contains(e.encrypted, field) {
			return 0, fmt.Errorf("%w: %s.%s is encrypted", types.ErrInvalidField, e.name, field)
		}
		return e.table.DeleteBy(ctx, field, value)
	})
}

func (e *Entities) seal(rec types.Record) (types.Record, error) {
	if len(e.encrypted) == 0 {
		return rec, nil
	}
	return e.client.vault.EncryptFields(rec, e.encrypted, e.client.opts.UserID)
}

func (e *Entities) open(rec types.Record) types.Record {
	if len(e.encrypted) == 0 {
		return rec
	}
	return e.client.vault.DecryptFields(rec, e.encrypted, e.client.opts.UserID)
}
