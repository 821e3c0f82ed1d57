package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/daypulse/internal/clock"
	"github.com/rcliao/daypulse/internal/geo"
	"github.com/rcliao/daypulse/internal/model"
	"github.com/rcliao/daypulse/internal/notify"
	"github.com/rcliao/daypulse/internal/store"
)

var park = model.GeofenceRegion{
	ID:           "park",
	Center:       model.Coordinates{Latitude: 40.7829, Longitude: -73.9654},
	RadiusMeters: 300,
}

func loc(id, geofence string, tr model.Trigger) model.LocationNotification {
	return model.LocationNotification{
		NotificationRequest: model.NotificationRequest{ID: id, Title: id, Category: model.CategoryNearby},
		GeofenceID:          geofence,
		Trigger:             tr,
	}
}

func TestMatch(t *testing.T) {
	registry := []model.LocationNotification{
		loc("enter-park", "park", model.TriggerEnter),
		loc("exit-park", "park", model.TriggerExit),
		loc("both-park", "park", model.TriggerBoth),
		loc("enter-museum", "museum", model.TriggerEnter),
	}
	ids := func(lns []model.LocationNotification) []string {
		var out []string
		for _, ln := range lns {
			out = append(out, ln.ID)
		}
		return out
	}

	enter := geo.Event{Region: park, Transition: model.TransitionEnter}
	exit := geo.Event{Region: park, Transition: model.TransitionExit}
	other := geo.Event{Region: model.GeofenceRegion{ID: "zoo"}, Transition: model.TransitionEnter}

	assert.Equal(t, []string{"enter-park", "both-park"}, ids(Match(enter, registry)))
	assert.Equal(t, []string{"exit-park", "both-park"}, ids(Match(exit, registry)))
	assert.Empty(t, Match(other, registry))
	assert.Empty(t, Match(enter, nil))
}

type presenter struct {
	mu    sync.Mutex
	shown []string
}

func (p *presenter) Present(_ context.Context, req model.NotificationRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shown = append(p.shown, req.ID)
	return nil
}

func (p *presenter) Permission(context.Context) (model.Permission, error) {
	return model.PermissionGranted, nil
}

func TestBridgeDeliversOnTransitions(t *testing.T) {
	ctx := context.Background()
	fc := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	cal := clock.New(fc, time.UTC)
	p := &presenter{}
	s := notify.New(store.NewNamespace(store.NewMemoryStore(), "test:", nil), cal, p, nil, nil)
	require.NoError(t, s.RegisterLocationNotification(ctx, loc("welcome", "park", model.TriggerEnter)))
	require.NoError(t, s.RegisterLocationNotification(ctx, loc("bye", "park", model.TriggerExit)))

	m := geo.NewMonitor(nil, cal, nil, nil, geo.Options{})
	b := New(s, nil)
	b.Attach(m)
	require.NoError(t, m.RegisterRegion(park, nil))

	inside := model.LocationSample{Coordinates: park.Center}
	outside := model.LocationSample{Coordinates: model.Coordinates{Latitude: 40.80, Longitude: -73.9654}}
	for _, sample := range []model.LocationSample{outside, inside, inside, outside, outside} {
		require.NoError(t, m.Evaluate(sample))
	}
	assert.Equal(t, []string{"welcome", "bye"}, p.shown)

	hist, err := s.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, notify.OriginLocation, hist[0].Origin)
}

func TestBridgeRespectsPreferences(t *testing.T) {
	ctx := context.Background()
	fc := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	p := &presenter{}
	s := notify.New(store.NewNamespace(store.NewMemoryStore(), "test:", nil), clock.New(fc, time.UTC), p, nil, nil)
	require.NoError(t, s.RegisterLocationNotification(ctx, loc("welcome", "park", model.TriggerBoth)))
	require.NoError(t, s.SetCategoryEnabled(ctx, model.CategoryNearby, false))

	outcomes := New(s, nil).Handle(ctx, geo.Event{Region: park, Transition: model.TransitionEnter})
	require.Len(t, outcomes, 1)
	assert.Equal(t, notify.StatusSuppressed, outcomes[0].Status)
	assert.Equal(t, notify.ReasonCategory, outcomes[0].Reason)
	assert.Empty(t, p.shown)
}
