package client

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/noodlevault/noodlevault/internal/client/changeset"
)

// WireChange is the `[value|null, timestamp]` tuple the remote service uses
// for one key's change. A null value is a tombstone. Exported because the
// development stand-in server speaks the same encoding.
type WireChange struct {
	Value     []byte
	Deleted   bool
	Timestamp int64
}

func (w WireChange) MarshalJSON() ([]byte, error) {
	if w.Deleted {
		return json.Marshal([2]any{nil, w.Timestamp})
	}
	return json.Marshal([2]any{base64.StdEncoding.EncodeToString(w.Value), w.Timestamp})
}

func (w *WireChange) UnmarshalJSON(data []byte) error {
	var tuple [2]json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("change tuple: %w", err)
	}
	if err := json.Unmarshal(tuple[1], &w.Timestamp); err != nil {
		return fmt.Errorf("change timestamp: %w", err)
	}
	if string(tuple[0]) == "null" {
		w.Deleted = true
		w.Value = nil
		return nil
	}
	var encoded string
	if err := json.Unmarshal(tuple[0], &encoded); err != nil {
		return fmt.Errorf("change value: %w", err)
	}
	value, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("change value base64: %w", err)
	}
	w.Value = value
	return nil
}

func WireFromChange(c changeset.Change) WireChange {
	return WireChange{
		Value:     c.Value,
		Deleted:   c.Kind == changeset.Deleted,
		Timestamp: c.Time(),
	}
}

func (w WireChange) ToChange() changeset.Change {
	if w.Deleted {
		return changeset.NewDelete(w.Timestamp)
	}
	return changeset.NewUpdate(w.Value, w.Timestamp)
}

func WireUpdates(updates map[string]changeset.Change) map[string]WireChange {
	out := make(map[string]WireChange, len(updates))
	for k, c := range updates {
		out[k] = WireFromChange(c)
	}
	return out
}

func ChangesFromWire(updates map[string]WireChange) map[string]changeset.Change {
	out := make(map[string]changeset.Change, len(updates))
	for k, w := range updates {
		out[k] = w.ToChange()
	}
	return out
}
