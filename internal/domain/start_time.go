package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseStartTime accepts an RFC 3339 timestamp or a decimal count of epoch milliseconds,
// which is what the mobile client echoes back after reading an event.
func ParseStartTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: start time is required", ErrInvalidInput)
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: start time must be RFC 3339 or epoch milliseconds", ErrInvalidInput)
	}
	return t.UTC(), nil
}

// EpochMillis renders t the way the mobile client parses it.
func EpochMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
