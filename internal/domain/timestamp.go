package domain

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// zonelessLayouts cover ISO 8601 timestamps without a zone designator. The
// detection API emits these for naive datetimes.
var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Epoch millisecond bounds accepted by ParseTimestamp: years 0001 through 9999.
var (
	minEpochMillis = float64(time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli())
	maxEpochMillis = float64(time.Date(9999, 12, 31, 23, 59, 59, 999e6, time.UTC).UnixMilli())
)

// ParseTimestamp decodes a raw JSON timestamp: an RFC 3339 string, a
// zone-less ISO 8601 string (read as UTC) or a number of epoch milliseconds.
func ParseTimestamp(raw []byte) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, fmt.Errorf("timestamp missing")
	}

	if raw[0] != '"' {
		ms, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse epoch timestamp: %w", err)
		}
		// Written as a negated range check so NaN is rejected too.
		if !(ms >= minEpochMillis && ms <= maxEpochMillis) {
			return time.Time{}, fmt.Errorf("epoch timestamp %s out of range", raw)
		}
		return time.UnixMilli(int64(ms)).UTC(), nil
	}

	s, err := strconv.Unquote(string(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp string: %w", err)
	}
	s = strings.TrimSpace(s)

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range zonelessLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
