package geo

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/daypulse/internal/clock"
	"github.com/rcliao/daypulse/internal/model"
)

const track = `
# walk into the park and back out
{"latitude":40.80,"longitude":-73.9654,"accuracy":10}
{"latitude":40.7829,"longitude":-73.9654,"accuracy":5}

{"latitude":40.7830,"longitude":-73.9654,"accuracy":5}
{"latitude":40.80,"longitude":-73.9654,"accuracy":10,"timestamp":"2024-06-01T10:05:00Z"}
`

func TestLoadTrack(t *testing.T) {
	samples, err := LoadTrack(strings.NewReader(track))
	require.NoError(t, err)
	require.Len(t, samples, 4)
	assert.Equal(t, 40.7829, samples[1].Latitude)
	assert.Equal(t, 5.0, samples[1].Accuracy)
	assert.Equal(t, time.Date(2024, 6, 1, 10, 5, 0, 0, time.UTC), samples[3].Timestamp.UTC())
}

func TestLoadTrackRejectsBadLine(t *testing.T) {
	_, err := LoadTrack(strings.NewReader("{\"latitude\":95,\"longitude\":0}\n"))
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
	assert.Contains(t, err.Error(), "line 1")

	_, err = LoadTrack(strings.NewReader("not json\n"))
	assert.Error(t, err)
}

func TestLoadRegions(t *testing.T) {
	data := []byte(`
regions:
  - id: park
    name: Central Park
    center: {latitude: 40.7829, longitude: -73.9654}
    radius_meters: 500
  - id: museum
    center: {latitude: 40.7794, longitude: -73.9632}
    radius_meters: 100
`)
	regions, err := LoadRegions(data)
	require.NoError(t, err)
	require.Len(t, regions, 2)
	assert.Equal(t, "Central Park", regions[0].Name)
	assert.Equal(t, 100.0, regions[1].RadiusMeters)
	assert.False(t, regions[0].IsActive)
}

func TestLoadRegionsValidation(t *testing.T) {
	_, err := LoadRegions([]byte("regions:\n  - id: a\n    radius_meters: 0\n"))
	assert.ErrorIs(t, err, ErrInvalidRegion)

	dup := "regions:\n  - id: a\n    radius_meters: 5\n  - id: a\n    radius_meters: 5\n"
	_, err = LoadRegions([]byte(dup))
	assert.ErrorIs(t, err, ErrDuplicateRegion)
}

func TestReplayCurrentStaysOnLastSample(t *testing.T) {
	fc := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
	src := NewReplaySource(fc, []model.LocationSample{at(0), at(0.01)}, 0)
	ctx := context.Background()

	s1, err := src.Current(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, fc.Now(), s1.Timestamp)
	s2, _ := src.Current(ctx, Options{})
	s3, _ := src.Current(ctx, Options{})
	assert.Equal(t, s2, s3)

	src.SetPermission(model.PermissionDenied)
	_, err = src.Current(ctx, Options{})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = src.Watch(ctx, Options{}, func(model.LocationSample) {}, nil)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestReplayEmptyTrackUnavailable(t *testing.T) {
	src := NewReplaySource(nil, nil, 0)
	_, err := src.Current(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestReplayDrivesMonitor(t *testing.T) {
	samples, err := LoadTrack(strings.NewReader(track))
	require.NoError(t, err)

	fc := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
	src := NewReplaySource(fc, samples, 0)
	m := NewMonitor(src, clock.New(fc, time.UTC), nil, nil, DefaultOptions())
	rec := &recorder{}
	require.NoError(t, m.RegisterRegion(park, rec.record))

	require.NoError(t, m.StartContinuousUpdates(context.Background(), nil))
	done := m.Done()
	require.NotNil(t, done)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("replay did not finish")
	}
	assert.Equal(t, []model.Transition{model.TransitionEnter, model.TransitionExit}, rec.transitions())
	m.Stop()
}

func TestReplayWaitsForInterval(t *testing.T) {
	fc := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
	src := NewReplaySource(fc, []model.LocationSample{at(0), at(0.01)}, time.Minute)

	var mu sync.Mutex
	var got []model.LocationSample
	sub, err := src.Watch(context.Background(), Options{}, func(s model.LocationSample) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, s)
	}, nil)
	require.NoError(t, err)
	defer sub.Stop()

	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(got)
	}
	assert.Eventually(t, func() bool { return count() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	assert.Equal(t, 1, count())

	fc.Advance(time.Minute)
	assert.Eventually(t, func() bool { return count() == 2 }, time.Second, 5*time.Millisecond)
	<-sub.(*replaySubscription).Done()
}
