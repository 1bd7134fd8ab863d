// Package schedule implements the weekly activity scheduling engine:
// overlap detection across recurring and date-specific activities,
// conflict scanning, and adjacent-slot suggestion. The engine is a pure
// computation over the snapshot it is handed; it performs no I/O and
// reads no ambient state.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidClock reports a wall-clock string that is not a valid "HH:MM" value.
var ErrInvalidClock = errors.New("invalid clock value")

// ParseClock converts a 24-hour "HH:MM" string to minutes since midnight.
// Hours and minutes are range-checked here rather than trusted from
// upstream validation, so malformed input surfaces at the first parse.
func ParseClock(clock string) (int, error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, clock)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, clock)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, clock)
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, clock)
	}
	return hours*60 + minutes, nil
}

// FormatClock converts minutes since midnight back to "HH:MM". Values past
// 1439 wrap: the hour component is taken modulo 24 and the date is left
// unchanged, so a suggestion computed past midnight renders as an
// earlier-looking time on the same day.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", (minutes/60)%24, minutes%60)
}
