package utils

import (
	"fmt"
	"math"
	"sync"
	"time"
)

const (
	dbDateTimeLayout = "2006-01-02 15:04:05"
	dateOnlyLayout   = "2006-01-02"
	displayLayout    = "02/01/2006 15:04"
)

var (
	locMu       sync.RWMutex
	businessLoc = time.UTC
)

// SetBusinessLocation sets the timezone used when presenting timestamps.
// Stored timestamps are always UTC.
func SetBusinessLocation(name string) error {
	if name == "" {
		return nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("load location %q: %w", name, err)
	}
	locMu.Lock()
	businessLoc = loc
	locMu.Unlock()
	return nil
}

// BusinessLocation returns the presentation timezone.
func BusinessLocation() *time.Location {
	locMu.RLock()
	defer locMu.RUnlock()
	return businessLoc
}

// FormatDateTimeForDB formats a time for the VARCHAR datetime columns (UTC).
// Fixed width means lexical order equals chronological order, which the
// conditional UPDATE on expires_at relies on.
func FormatDateTimeForDB(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dbDateTimeLayout)
}

// ParseDBDate parses date strings retrieved from the database.
func ParseDBDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time string")
	}

	if ts, err := time.ParseInLocation(dbDateTimeLayout, value, time.UTC); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts.UTC(), nil
	}
	if ts, err := time.ParseInLocation(dateOnlyLayout, value, time.UTC); err == nil {
		return ts, nil
	}

	return time.Time{}, fmt.Errorf("unsupported db time format: %s", value)
}

// FormatDisplay renders a time in the business timezone.
func FormatDisplay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(BusinessLocation()).Format(displayLayout)
}

// DaysRemaining returns the remaining whole days until expiresAt, rounded up.
// Negative once the deadline has passed.
func DaysRemaining(expiresAt, now time.Time) int {
	diff := expiresAt.Sub(now)
	return int(math.Ceil(diff.Hours() / 24))
}
