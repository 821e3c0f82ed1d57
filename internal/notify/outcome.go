package notify

import (
	"context"
	"time"

	"github.com/rcliao/daypulse/internal/model"
)

// Presenter displays a notification to the user.
type Presenter interface {
	Present(ctx context.Context, req model.NotificationRequest) error
	Permission(ctx context.Context) (model.Permission, error)
}

// TapSource is implemented by presenters that report user taps. The
// scheduler subscribes on construction and routes taps to Acknowledge.
type TapSource interface {
	OnTap(fn func(id string))
}

// Status is the result of one delivery attempt.
type Status string

const (
	StatusDelivered  Status = "delivered"
	StatusSuppressed Status = "suppressed"
	StatusFailed     Status = "failed"
)

// Reason explains a suppressed or failed delivery.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonDisabled   Reason = "disabled"
	ReasonCategory   Reason = "category"
	ReasonQuietHours Reason = "quiet_hours"
	ReasonPermission Reason = "permission"
	ReasonPresenter  Reason = "presenter"
)

// Origin says which path requested the delivery.
type Origin string

const (
	OriginImmediate Origin = "immediate"
	OriginScheduled Origin = "scheduled"
	OriginLocation  Origin = "location"
)

// Outcome records one pass through the suppression-and-deliver path.
type Outcome struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Category string    `json:"category"`
	Origin   Origin    `json:"origin"`
	Status   Status    `json:"status"`
	Reason   Reason    `json:"reason,omitempty"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

// Delivered is shorthand for Status == StatusDelivered.
func (o Outcome) Delivered() bool { return o.Status == StatusDelivered }
