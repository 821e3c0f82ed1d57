package notify

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/rcliao/daypulse/internal/model"
)

func repeatOption(start time.Time, interval model.RepeatInterval) (rrule.ROption, error) {
	var freq rrule.Frequency
	switch interval {
	case model.RepeatDaily:
		freq = rrule.DAILY
	case model.RepeatWeekly:
		freq = rrule.WEEKLY
	default:
		return rrule.ROption{}, fmt.Errorf("%w: %q", ErrInvalidInterval, interval)
	}
	// UTC keeps every step exactly 24h or 168h long across DST changes.
	return rrule.ROption{Freq: freq, Interval: 1, Dtstart: start.UTC().Truncate(time.Second)}, nil
}

// NextOccurrence returns the first step of the series anchored at start
// that lies strictly after both start and now. Late fires land on the
// original grid instead of drifting.
func NextOccurrence(start time.Time, interval model.RepeatInterval, now time.Time) (time.Time, error) {
	opt, err := repeatOption(start, interval)
	if err != nil {
		return time.Time{}, err
	}
	r, err := rrule.NewRRule(opt)
	if err != nil {
		return time.Time{}, fmt.Errorf("build recurrence: %w", err)
	}
	after := start
	if now.After(after) {
		after = now
	}
	// The recurrence runs on whole seconds; frac carries the sub-second
	// part of start onto every step.
	frac := start.Sub(start.Truncate(time.Second))
	next := r.After(after.Add(-frac).UTC(), false)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("no occurrence after %s", after.Format(time.RFC3339))
	}
	return next.Add(frac), nil
}

// RepeatRule renders the RRULE value for a repeat interval, e.g.
// "FREQ=DAILY;INTERVAL=1".
func RepeatRule(interval model.RepeatInterval) (string, error) {
	opt, err := repeatOption(time.Time{}, interval)
	if err != nil {
		return "", err
	}
	return opt.RRuleString(), nil
}
