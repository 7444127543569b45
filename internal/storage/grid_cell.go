package storage

import (
	"encoding/json"
	"strings"
)

// gridCellFields has GridCell's layout without its JSON methods.
type gridCellFields GridCell

var gridCellKeys = []string{"i", "x", "y", "w", "h", "minW", "maxW", "minH", "maxH", "static"}

func (c GridCell) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(gridCellFields(c))
	if err != nil || len(c.Extra) == 0 {
		return known, err
	}

	merged := make(map[string]json.RawMessage, len(c.Extra)+len(gridCellKeys))
	for key, value := range c.Extra {
		if !isGridCellKey(key) {
			merged[key] = value
		}
	}
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	return json.Marshal(merged)
}

func (c *GridCell) UnmarshalJSON(data []byte) error {
	var known gridCellFields
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	known.Extra = nil
	for key, value := range all {
		if isGridCellKey(key) {
			continue
		}
		if known.Extra == nil {
			known.Extra = map[string]json.RawMessage{}
		}
		known.Extra[key] = value
	}
	*c = GridCell(known)
	return nil
}

// isGridCellKey matches case-insensitively, the same way encoding/json binds
// object keys to struct fields.
func isGridCellKey(key string) bool {
	for _, known := range gridCellKeys {
		if strings.EqualFold(key, known) {
			return true
		}
	}
	return false
}
