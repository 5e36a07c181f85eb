package inventory

import (
	"encoding/json"
	"fmt"
)

// wireChange is the persisted form of a Change inside a change set row.
type wireChange struct {
	Kind  string `json:"kind"`
	LotID int64  `json:"lot_id"`
	Old   int64  `json:"old,omitempty"`
	New   int64  `json:"new,omitempty"`
}

const (
	wireKindCount     = "count"
	wireKindWarehouse = "warehouse"
	wireKindInsert    = "insert"
)

// EncodeChanges serialises an ordered change list for storage.
func EncodeChanges(changes []Change) ([]byte, error) {
	wire := make([]wireChange, 0, len(changes))
	for _, change := range changes {
		switch c := change.(type) {
		case CountChange:
			wire = append(wire, wireChange{Kind: wireKindCount, LotID: c.LotID, Old: c.Old, New: c.New})
		case WarehouseChange:
			wire = append(wire, wireChange{Kind: wireKindWarehouse, LotID: c.LotID, Old: c.Old, New: c.New})
		case LotInsert:
			wire = append(wire, wireChange{Kind: wireKindInsert, LotID: c.LotID})
		default:
			return nil, fmt.Errorf("inventory: unsupported change type %T", change)
		}
	}
	return json.Marshal(wire)
}

// DecodeChanges restores an ordered change list from its stored form.
func DecodeChanges(data []byte) ([]Change, error) {
	var wire []wireChange
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("inventory: decode changes: %w", err)
	}
	changes := make([]Change, 0, len(wire))
	for _, w := range wire {
		switch w.Kind {
		case wireKindCount:
			changes = append(changes, CountChange{LotID: w.LotID, Old: w.Old, New: w.New})
		case wireKindWarehouse:
			changes = append(changes, WarehouseChange{LotID: w.LotID, Old: w.Old, New: w.New})
		case wireKindInsert:
			changes = append(changes, LotInsert{LotID: w.LotID})
		default:
			return nil, fmt.Errorf("inventory: unknown change kind %q", w.Kind)
		}
	}
	return changes, nil
}
