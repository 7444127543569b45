package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func ensureID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

// nowUTC is truncated to millisecond precision so values read back from the
// integer columns compare equal to what was written.
func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func encodeLayout(cells []GridCell) (string, error) {
	if cells == nil {
		cells = []GridCell{}
	}
	payload, err := json.Marshal(cells)
	if err != nil {
		return "", fmt.Errorf("encode layout: %w", err)
	}
	return string(payload), nil
}

func decodeLayout(raw string) ([]GridCell, error) {
	out := []GridCell{}
	if raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode layout: %w", err)
	}
	return out, nil
}
