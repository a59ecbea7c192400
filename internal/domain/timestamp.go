package domain

import (
	"fmt"
	"time"

	"github.com/araddon/dateparse"
)

// NormalizeTime converts t to naive UTC, the canonical representation for
// stored instants. Normalizing an already-UTC value returns it unchanged.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC()
}

// ParseTimestamp parses a free-form timestamp string and returns the instant
// in naive UTC. Strings carrying explicit offset or zone information convert
// directly; strings without any are interpreted in loc (pass time.Local to
// assume the process zone, the deliberate policy for clients that do not send
// theirs). Unparsable input returns ErrInvalidTimestamp; it is never silently
// replaced with the current time.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := dateparse.ParseIn(s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidTimestamp, s, err)
	}
	return NormalizeTime(t), nil
}
