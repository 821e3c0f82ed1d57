package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rcliao/daypulse/internal/model"
	"github.com/rcliao/daypulse/internal/store"
)

func validateLocation(ln model.LocationNotification) error {
	if err := validateRequest(ln.NotificationRequest); err != nil {
		return err
	}
	if strings.TrimSpace(ln.GeofenceID) == "" {
		return fmt.Errorf("%w: geofence id is required", ErrInvalidRequest)
	}
	if !model.ValidTriggers[ln.Trigger] {
		return fmt.Errorf("%w: %q", ErrInvalidTrigger, ln.Trigger)
	}
	return nil
}

// RegisterLocationNotification adds ln to the registry, replacing any entry
// with the same id.
func (s *Scheduler) RegisterLocationNotification(ctx context.Context, ln model.LocationNotification) error {
	if err := validateLocation(ln); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocationLocked(ln)
	_ = store.SetJSON(ctx, s.ns, locationKey(ln.ID), storedLocation{Seq: s.locSeq[ln.ID], Notification: ln})
	s.log.Debug("location notification registered",
		zap.String("id", ln.ID),
		zap.String("geofence", ln.GeofenceID),
		zap.String("trigger", string(ln.Trigger)))
	return nil
}

// UnregisterLocationNotification removes an entry and its persisted key.
// Unknown ids are ignored.
func (s *Scheduler) UnregisterLocationNotification(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeKeyLocked(ctx, locationKey(id))
	if _, ok := s.locations[id]; !ok {
		return
	}
	delete(s.locations, id)
	delete(s.locSeq, id)
	for i, lid := range s.locOrder {
		if lid == id {
			s.locOrder = append(s.locOrder[:i:i], s.locOrder[i+1:]...)
			break
		}
	}
}

// LocationNotifications returns the registry in registration order.
func (s *Scheduler) LocationNotifications() []model.LocationNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locationsLocked()
}

func (s *Scheduler) locationsLocked() []model.LocationNotification {
	out := make([]model.LocationNotification, 0, len(s.locOrder))
	for _, id := range s.locOrder {
		out = append(out, s.locations[id])
	}
	return out
}

// putLocationLocked keeps the registration slot of a replaced entry.
func (s *Scheduler) putLocationLocked(ln model.LocationNotification) {
	if _, ok := s.locations[ln.ID]; !ok {
		s.locOrder = append(s.locOrder, ln.ID)
		s.locSeq[ln.ID] = s.nextSeqLocked()
	}
	s.locations[ln.ID] = ln
}
