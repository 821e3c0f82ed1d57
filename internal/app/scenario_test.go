package app

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/daypulse/internal/geo"
	"github.com/rcliao/daypulse/internal/model"
	"github.com/rcliao/daypulse/internal/notify"
	"github.com/rcliao/daypulse/internal/store"
)

const scenarioYAML = `
regions:
  - id: park
    name: Central Park
    center: {latitude: 40.7829, longitude: -73.9654}
    radius_meters: 300
notifications:
  - id: park-hello
    title: Welcome to the park
    category: nearby
    geofence_id: park
    trigger: enter
  - id: park-bye
    title: Come back soon
    category: nearby
    geofence_id: park
    trigger: exit
`

func TestParseScenario(t *testing.T) {
	sc, err := ParseScenario([]byte(scenarioYAML))
	require.NoError(t, err)
	require.Len(t, sc.Regions, 1)
	assert.Equal(t, 300.0, sc.Regions[0].RadiusMeters)
	require.Len(t, sc.Notifications, 2)

	ln := sc.Notifications[1].LocationNotification()
	assert.Equal(t, "park-bye", ln.ID)
	assert.Equal(t, model.TriggerExit, ln.Trigger)
	assert.Equal(t, "park", ln.GeofenceID)
}

func TestParseScenarioRejectsBadRegion(t *testing.T) {
	_, err := ParseScenario([]byte("regions:\n  - id: x\n    radius_meters: 0\n"))
	assert.ErrorIs(t, err, geo.ErrInvalidRegion)
}

func TestApplyAndReplay(t *testing.T) {
	ctx := context.Background()
	fc := clockwork.NewFakeClockAt(start)
	p := &recordingPresenter{}
	outside := model.Coordinates{Latitude: 40.80, Longitude: -73.9654}
	inside := model.Coordinates{Latitude: 40.7829, Longitude: -73.9654}
	src := geo.NewReplaySource(fc, []model.LocationSample{
		{Coordinates: outside},
		{Coordinates: inside},
		{Coordinates: inside},
		{Coordinates: outside},
	}, 0)
	a := newTestApp(t, testConfig(t), Options{Clock: fc, Store: store.NewMemoryStore(), Presenter: p, Source: src})

	sc, err := ParseScenario([]byte(scenarioYAML))
	require.NoError(t, err)
	require.NoError(t, a.Apply(ctx, sc))

	var seen int
	rctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, a.Replay(rctx, func(model.LocationSample) { seen++ }))

	assert.Equal(t, 4, seen)
	assert.Equal(t, []string{"park-hello", "park-bye"}, p.ids())
	assert.False(t, a.Monitor.Watching())
}

func TestApplyRejectsUnknownTrigger(t *testing.T) {
	a := newTestApp(t, testConfig(t), Options{Store: store.NewMemoryStore(), Presenter: &recordingPresenter{}})
	sc := Scenario{Notifications: []ScenarioNotification{{ID: "x", Title: "x", GeofenceID: "park", Trigger: "sideways"}}}
	assert.ErrorIs(t, a.Apply(context.Background(), sc), notify.ErrInvalidTrigger)
}
