package fetch

import (
	"encoding/json"
	"time"
)

// Entry is a cached successful GET response.
type Entry struct {
	Key       string
	Value     json.RawMessage
	FetchedAt time.Time
}

// fresh reports whether the entry is younger than maxAge at now.
func (e Entry) fresh(now time.Time, maxAge time.Duration) bool {
	return now.Sub(e.FetchedAt) < maxAge
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}
