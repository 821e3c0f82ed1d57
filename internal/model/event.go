// Package model defines the value types shared by the cache, geofence and
// notification components.
package model

import "encoding/json"

// DailyEvent is the event of the day. The payload is owned by the UI layer
// and stored as-is.
type DailyEvent struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// UserProfile is an opaque profile document cached permanently.
type UserProfile struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
