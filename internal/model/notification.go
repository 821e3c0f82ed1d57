package model

import "time"

// NotificationRequest is a declarative request to show an alert.
type NotificationRequest struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Category  string            `json:"category"`
	ImageURL  string            `json:"image_url,omitempty"`
	ActionURL string            `json:"action_url,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
}

// RepeatInterval is the period of a repeating schedule.
type RepeatInterval string

const (
	RepeatDaily  RepeatInterval = "daily"
	RepeatWeekly RepeatInterval = "weekly"
)

// ScheduledNotification is a request bound to a wall-clock delivery time.
type ScheduledNotification struct {
	NotificationRequest
	ScheduledTime  time.Time      `json:"scheduled_time"`
	Repeating      bool           `json:"repeating,omitempty"`
	RepeatInterval RepeatInterval `json:"repeat_interval,omitempty"`
}

// Trigger selects which geofence transitions fire a location notification.
type Trigger string

const (
	TriggerEnter Trigger = "enter"
	TriggerExit  Trigger = "exit"
	TriggerBoth  Trigger = "both"
)

// Matches reports whether a transition satisfies the trigger.
func (t Trigger) Matches(tr Transition) bool {
	return t == TriggerBoth || string(t) == string(tr)
}

// LocationNotification is delivered when the user crosses a geofence.
type LocationNotification struct {
	NotificationRequest
	GeofenceID string  `json:"geofence_id"`
	Trigger    Trigger `json:"trigger"`
}

// Notification categories known to the app.
const (
	CategoryDailyEvent    = "daily_event"
	CategoryEventReminder = "event_reminder"
	CategoryNearby        = "nearby"
	CategoryMessages      = "messages"
	CategorySystem        = "system"
)

// KnownCategories are enabled by default.
var KnownCategories = []string{
	CategoryDailyEvent,
	CategoryEventReminder,
	CategoryNearby,
	CategoryMessages,
	CategorySystem,
}

// ValidRepeatIntervals are the allowed repeat periods.
var ValidRepeatIntervals = map[RepeatInterval]bool{
	RepeatDaily:  true,
	RepeatWeekly: true,
}

// ValidTriggers are the allowed location triggers.
var ValidTriggers = map[Trigger]bool{
	TriggerEnter: true,
	TriggerExit:  true,
	TriggerBoth:  true,
}

// Preferences holds the user's notification settings.
// QuietHoursStart and QuietHoursEnd are "HH:MM" in the configured time zone.
type Preferences struct {
	Enabled         bool            `json:"enabled"`
	Categories      map[string]bool `json:"categories"`
	QuietHoursStart string          `json:"quiet_hours_start,omitempty"`
	QuietHoursEnd   string          `json:"quiet_hours_end,omitempty"`
}

// DefaultPreferences enables every known category with no quiet hours.
func DefaultPreferences() Preferences {
	cats := make(map[string]bool, len(KnownCategories))
	for _, c := range KnownCategories {
		cats[c] = true
	}
	return Preferences{Enabled: true, Categories: cats}
}

// Clone returns a deep copy.
func (p Preferences) Clone() Preferences {
	out := p
	out.Categories = make(map[string]bool, len(p.Categories))
	for k, v := range p.Categories {
		out.Categories[k] = v
	}
	return out
}

// Permission is the state of a platform capability.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionPrompt  Permission = "prompt"
	PermissionUnknown Permission = "unknown"
)
