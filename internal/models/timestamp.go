package models

import (
	"bytes"
	"encoding/json"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp is a lenient JSON time. Missing or malformed values decode to an
// invalid Timestamp instead of failing the enclosing document.
type Timestamp struct {
	time.Time
	Valid bool
}

// NewTimestamp wraps t as a valid timestamp.
func NewTimestamp(t time.Time) Timestamp { return Timestamp{Time: t, Valid: true} }

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	*t = Timestamp{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				*t = NewTimestamp(parsed)
				return nil
			}
		}
		return nil
	}
	// epoch milliseconds
	var ms float64
	if err := json.Unmarshal(b, &ms); err == nil && ms > 0 {
		*t = NewTimestamp(time.UnixMilli(int64(ms)).UTC())
	}
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.UTC().Format(time.RFC3339Nano))
}

// Ptr returns the time or nil when invalid.
func (t Timestamp) Ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
