package util

import (
	"fmt"
	"strings"
	"time"
)

// ParseDateParam parses an optional date query parameter.
// Accepts RFC 3339 timestamps or plain YYYY-MM-DD dates (interpreted as UTC midnight).
// An empty string returns nil.
func ParseDateParam(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q", s)
}
