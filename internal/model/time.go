package model

import (
	"strings"
	"time"
)

// TimestampLayout is RFC 3339 with a fixed nanosecond width, so formatted
// timestamps sort the same way as strings and as times.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// CompareTimestamps orders two RFC 3339 timestamps by the instant they name.
// Values that do not parse sort before every valid timestamp and by string
// among themselves.
func CompareTimestamps(a, b string) int {
	ta, errA := time.Parse(time.RFC3339Nano, a)
	tb, errB := time.Parse(time.RFC3339Nano, b)
	switch {
	case errA == nil && errB == nil:
		return ta.Compare(tb)
	case errA != nil && errB != nil:
		return strings.Compare(a, b)
	case errA != nil:
		return -1
	default:
		return 1
	}
}
