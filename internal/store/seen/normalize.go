package seen

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"feedwatch/internal/domain/entity"
)

// Format identifies the on-disk shape a seen-items file was loaded from.
type Format int

const (
	// FormatMissing means no file existed or it could not be read.
	FormatMissing Format = iota
	// FormatCurrent is a JSON object of identifier to timestamp.
	FormatCurrent
	// FormatLegacy is a JSON array of identifiers without timestamps.
	FormatLegacy
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatCurrent:
		return "current"
	case FormatLegacy:
		return "legacy"
	default:
		return "missing"
	}
}

var errUnsupportedShape = errors.New("seen items must be a JSON object or array")

// normalize converts either on-disk shape into the canonical identifier to timestamp map.
// Legacy identifiers are stamped with now. Non-string values in the object form are
// kept as their raw JSON text so they are treated as malformed rather than dropped.
func normalize(data []byte, now time.Time) (map[string]string, Format, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return map[string]string{}, FormatCurrent, nil
	}

	switch trimmed[0] {
	case '{':
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, FormatCurrent, err
		}
		entries := make(map[string]string, len(raw))
		for id, value := range raw {
			var ts string
			if err := json.Unmarshal(value, &ts); err != nil {
				ts = string(value)
			}
			entries[id] = ts
		}
		return entries, FormatCurrent, nil

	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, FormatLegacy, err
		}
		stamp := entity.FormatTimestamp(now)
		entries := make(map[string]string, len(raw))
		for _, value := range raw {
			var id string
			if err := json.Unmarshal(value, &id); err != nil || id == "" {
				continue
			}
			entries[id] = stamp
		}
		return entries, FormatLegacy, nil

	default:
		return nil, FormatMissing, errUnsupportedShape
	}
}
