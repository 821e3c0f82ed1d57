// Package bridge routes geofence transitions into location-triggered
// notifications.
package bridge

import (
	"context"

	"go.uber.org/zap"

	"github.com/rcliao/daypulse/internal/geo"
	"github.com/rcliao/daypulse/internal/model"
	"github.com/rcliao/daypulse/internal/notify"
)

// Match returns the registry entries bound to the event's region whose
// trigger accepts the event's direction, in registry order.
func Match(ev geo.Event, registry []model.LocationNotification) []model.LocationNotification {
	var out []model.LocationNotification
	for _, ln := range registry {
		if ln.GeofenceID == ev.Region.ID && ln.Trigger.Matches(ev.Transition) {
			out = append(out, ln)
		}
	}
	return out
}

// Bridge delivers matching location notifications for every transition.
type Bridge struct {
	scheduler *notify.Scheduler
	log       *zap.Logger
}

func New(s *notify.Scheduler, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{scheduler: s, log: log}
}

// Handle routes one transition and returns the delivery outcomes.
func (b *Bridge) Handle(ctx context.Context, ev geo.Event) []notify.Outcome {
	matches := Match(ev, b.scheduler.LocationNotifications())
	if len(matches) == 0 {
		return nil
	}
	outcomes := make([]notify.Outcome, 0, len(matches))
	for _, ln := range matches {
		outcomes = append(outcomes, b.scheduler.Deliver(ctx, ln.NotificationRequest, notify.OriginLocation))
	}
	b.log.Debug("location notifications routed",
		zap.String("region", ev.Region.ID),
		zap.String("transition", string(ev.Transition)),
		zap.Int("matches", len(matches)))
	return outcomes
}

// Attach subscribes the bridge to m and returns the listener id.
func (b *Bridge) Attach(m *geo.Monitor) string {
	return m.OnTransition(func(ev geo.Event) {
		b.Handle(context.Background(), ev)
	})
}
