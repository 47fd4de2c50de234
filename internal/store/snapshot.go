package store

import (
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/trackerhub/pkg/types"
)

// snapshot is the unit of durability: table name to ordered records.
type snapshot map[string][]types.Record

// newSnapshot returns an empty snapshot holding every standard table.
func newSnapshot() snapshot {
	s := make(snapshot, len(types.StandardTableNames))
	s.ensureStandard()
	return s
}

func (s snapshot) ensureStandard() {
	for _, name := range types.StandardTableNames {
		if s[name] == nil {
			s[name] = []types.Record{}
		}
	}
}

// decodeSnapshot parses a slot blob. Empty input is a fresh snapshot; input
// that is not a JSON object of record arrays is reported as corrupt.
func decodeSnapshot(data []byte) (snapshot, error) {
	if len(data) == 0 {
		return newSnapshot(), nil
	}

	var raw map[string][]types.Record
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStorageCorrupt, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: snapshot is null", types.ErrStorageCorrupt)
	}

	s := make(snapshot, len(raw))
	for name, rows := range raw {
		kept := make([]types.Record, 0, len(rows))
		for _, rec := range rows {
			if rec == nil {
				continue
			}
			kept = append(kept, rec)
		}
		s[name] = kept
	}
	s.ensureStandard()
	return s, nil
}

// encodeSnapshot serializes the full snapshot. Table names and record fields
// are written in sorted order.
func encodeSnapshot(s snapshot) ([]byte, error) {
	s.ensureStandard()
	return json.Marshal(map[string][]types.Record(s))
}

// normalize round-trips v through JSON so that stored values have the same
// shape as values read back from the slot (numbers become float64).
func normalize[T any](v T) (T, error) {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("%w: %v", types.ErrInvalidData, err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("%w: %v", types.ErrInvalidData, err)
	}
	return out, nil
}
