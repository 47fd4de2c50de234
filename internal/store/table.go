package store

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/trackerhub/pkg/types"
)

// table implements types.Table for one named table of a Backend.
type table struct {
	name    string
	backend *Backend
}

// List returns the table's records, optionally sorted and truncated.
func (t *table) List(ctx context.Context, sortField string, limit int) ([]types.Record, error) {
	var out []types.Record
	err := t.backend.view(ctx, func(s snapshot) error {
		rows := s[t.name]
		out = make([]types.Record, len(rows))
		for i, rec := range rows {
			out[i] = rec.Clone()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortRecords(out, sortField)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Get retrieves a record by id.
// Returns ErrInvalidID if id is empty, ErrNotFound if not found.
func (t *table) Get(ctx context.Context, id string) (types.Record, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}

	var out types.Record
	err := t.backend.view(ctx, func(s snapshot) error {
		i := indexOf(s[t.name], id)
		if i < 0 {
			return t.notFound(id)
		}
		out = s[t.name][i].Clone()
		return nil
	})
	return out, err
}

// Create stores a new record. A supplied id must be a non-empty string not
// already present in the table.
func (t *table) Create(ctx context.Context, rec types.Record) (types.Record, error) {
	rec, err := normalize(rec)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = types.Record{}
	}
	if raw, ok := rec[types.FieldID]; ok && raw != nil {
		if id, ok := raw.(string); !ok || id == "" {
			return nil, types.ErrInvalidID
		}
	}

	var out types.Record
	err = t.backend.update(ctx, func(s snapshot) (bool, error) {
		rows := s[t.name]
		id := rec.ID()
		if id != "" {
			if indexOf(rows, id) >= 0 {
				return false, fmt.Errorf("%w: %s/%s", types.ErrDuplicateID, t.name, id)
			}
		} else {
			id = t.backend.newID()
			for indexOf(rows, id) >= 0 {
				id = t.backend.newID()
			}
		}

		stamp := t.backend.timestamp()
		rec[types.FieldID] = id
		rec[types.FieldCreatedAt] = stamp
		rec[types.FieldCreatedDate] = stamp
		rec[types.FieldUserID] = t.backend.config.UserID

		s[t.name] = append(rows, rec)
		out = rec.Clone()
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update shallow-merges patch into the record with the given id.
// Returns ErrInvalidID if id is empty, ErrNotFound if not found.
func (t *table) Update(ctx context.Context, id string, patch types.Patch) (types.Record, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	fields, err := normalize(patch.Fields())
	if err != nil {
		return nil, err
	}
	patch = types.NewPatch(fields)

	var out types.Record
	err = t.backend.update(ctx, func(s snapshot) (bool, error) {
		rows := s[t.name]
		i := indexOf(rows, id)
		if i < 0 {
			return false, t.notFound(id)
		}
		merged := patch.Apply(rows[i])
		updated := slices.Clone(rows)
		updated[i] = merged
		s[t.name] = updated
		out = merged.Clone()
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the record with the given id. A missing id is not an
// error; it is logged at debug level.
func (t *table) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}

	return t.backend.update(ctx, func(s snapshot) (bool, error) {
		rows := s[t.name]
		i := indexOf(rows, id)
		if i < 0 {
			t.backend.log.Debug("delete of missing record",
				zap.String("table", t.name),
				zap.String("id", id))
			return false, nil
		}
		s[t.name] = slices.Delete(slices.Clone(rows), i, i+1)
		return true, nil
	})
}

// DeleteBy removes every record whose field strictly equals value.
func (t *table) DeleteBy(ctx context.Context, field string, value any) (int, error) {
	if field == "" {
		return 0, types.ErrInvalidField
	}

	removed := 0
	err := t.backend.update(ctx, func(s snapshot) (bool, error) {
		rows := s[t.name]
		kept := make([]types.Record, 0, len(rows))
		for _, rec := range rows {
			if v, ok := rec[field]; ok && valuesEqual(v, value) {
				removed++
				continue
			}
			kept = append(kept, rec)
		}
		if removed == 0 {
			return false, nil
		}
		s[t.name] = kept
		return true, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (t *table) notFound(id string) error {
	return fmt.Errorf("%w: %s/%s", types.ErrNotFound, t.name, id)
}

func indexOf(rows []types.Record, id string) int {
	return slices.IndexFunc(rows, func(rec types.Record) bool {
		return rec.ID() == id
	})
}
