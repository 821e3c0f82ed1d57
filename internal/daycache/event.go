package daycache

import (
	"context"

	"github.com/rcliao/daypulse/internal/model"
)

// Cache keys used by the app.
const (
	KeyDailyEvent  = "dailyEvent"
	KeyAdWatch     = "adWatch"
	KeyReveal      = "revealState"
	KeyUserProfile = "userProfile"
)

// DailyEvent returns today's cached event.
func (m *Manager) DailyEvent(ctx context.Context) (model.DailyEvent, bool) {
	return GetToday[model.DailyEvent](ctx, m, KeyDailyEvent)
}

// SetDailyEvent caches ev as today's event.
func (m *Manager) SetDailyEvent(ctx context.Context, ev model.DailyEvent) {
	PutToday(ctx, m, KeyDailyEvent, ev)
}

// RecordAdWatch counts one watched ad and returns today's total.
func (m *Manager) RecordAdWatch(ctx context.Context) int {
	return m.IncrementDailyCounter(ctx, KeyAdWatch)
}

// AdWatchCount returns today's ad-watch count.
func (m *Manager) AdWatchCount(ctx context.Context) int {
	return m.DailyCounter(ctx, KeyAdWatch)
}

// MarkRevealed records that today's event has been revealed.
func (m *Manager) MarkRevealed(ctx context.Context) {
	PutToday(ctx, m, KeyReveal, true)
}

// IsRevealed reports whether today's event has been revealed.
func (m *Manager) IsRevealed(ctx context.Context) bool {
	v, ok := GetToday[bool](ctx, m, KeyReveal)
	return ok && v
}

// Unlocked reports whether today's event may be shown: it was revealed, or
// enough ads were watched today.
func (m *Manager) Unlocked(ctx context.Context, adThreshold int) bool {
	return m.IsRevealed(ctx) || m.IsThresholdReached(ctx, KeyAdWatch, adThreshold)
}

// UserProfile returns the permanently cached profile.
func (m *Manager) UserProfile(ctx context.Context) (model.UserProfile, bool) {
	return GetPermanent[model.UserProfile](ctx, m, KeyUserProfile)
}

// SetUserProfile caches the profile without a day stamp.
func (m *Manager) SetUserProfile(ctx context.Context, p model.UserProfile) {
	PutPermanent(ctx, m, KeyUserProfile, p)
}
