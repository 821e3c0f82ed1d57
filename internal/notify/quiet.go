package notify

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rcliao/daypulse/internal/model"
)

// ParseClock parses "HH:MM" into minutes since midnight. Both fields are
// exactly two ASCII digits.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || !twoDigits(hh) || !twoDigits(mm) {
		return 0, errors.New("expected HH:MM")
	}
	h, _ := strconv.Atoi(hh)
	if h > 23 {
		return 0, errors.New("invalid hour")
	}
	m, _ := strconv.Atoi(mm)
	if m > 59 {
		return 0, errors.New("invalid minute")
	}
	return h*60 + m, nil
}

func twoDigits(s string) bool {
	return len(s) == 2 && s[0] >= '0' && s[0] <= '9' && s[1] >= '0' && s[1] <= '9'
}

// InWindow reports whether minute m falls in [from, to). A window with
// from > to wraps past midnight; from == to is empty.
func InWindow(m, from, to int) bool {
	if from == to {
		return false
	}
	if from < to {
		return m >= from && m < to
	}
	return m >= from || m < to
}

// ValidateQuietHours accepts both bounds empty or both valid "HH:MM".
func ValidateQuietHours(start, end string) error {
	if start == "" && end == "" {
		return nil
	}
	if start == "" || end == "" {
		return fmt.Errorf("%w: both start and end are required", ErrInvalidQuietHours)
	}
	if _, err := ParseClock(start); err != nil {
		return fmt.Errorf("%w: start: %w", ErrInvalidQuietHours, err)
	}
	if _, err := ParseClock(end); err != nil {
		return fmt.Errorf("%w: end: %w", ErrInvalidQuietHours, err)
	}
	return nil
}

// InQuietHours reports whether minute-of-day m is inside the preference's
// quiet window. Missing or unparsable bounds mean no quiet hours.
func InQuietHours(p model.Preferences, m int) bool {
	if p.QuietHoursStart == "" || p.QuietHoursEnd == "" {
		return false
	}
	from, err := ParseClock(p.QuietHoursStart)
	if err != nil {
		return false
	}
	to, err := ParseClock(p.QuietHoursEnd)
	if err != nil {
		return false
	}
	return InWindow(m, from, to)
}
