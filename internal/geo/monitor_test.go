package geo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/daypulse/internal/clock"
	"github.com/rcliao/daypulse/internal/model"
)

var park = model.GeofenceRegion{
	ID:           "park",
	Name:         "Central Park",
	Center:       model.Coordinates{Latitude: 40.7829, Longitude: -73.9654},
	RadiusMeters: 500,
}

// ~111 m per 0.001 degree of latitude.
func at(latOffset float64) model.LocationSample {
	return model.LocationSample{
		Coordinates: model.Coordinates{Latitude: park.Center.Latitude + latOffset, Longitude: park.Center.Longitude},
		Accuracy:    5,
	}
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) transitions() []model.Transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Transition, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Transition)
	}
	return out
}

// stubSource is a Source driven by the test.
type stubSource struct {
	mu         sync.Mutex
	current    model.LocationSample
	currentErr error
	block      bool
	permission model.Permission
	watches    int
	stops      int
	onSample   func(model.LocationSample)
}

func (s *stubSource) Current(ctx context.Context, _ Options) (model.LocationSample, error) {
	s.mu.Lock()
	block, sample, err := s.block, s.current, s.currentErr
	s.mu.Unlock()
	if block {
		<-ctx.Done()
		return model.LocationSample{}, ctx.Err()
	}
	return sample, err
}

func (s *stubSource) Watch(_ context.Context, _ Options, onSample func(model.LocationSample), _ func(error)) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watches++
	s.onSample = onSample
	return stubSub{s}, nil
}

func (s *stubSource) Permission(context.Context) (model.Permission, error) {
	return s.permission, nil
}

func (s *stubSource) RequestPermission(context.Context) (model.Permission, error) {
	return s.permission, nil
}

func (s *stubSource) push(sample model.LocationSample) {
	s.mu.Lock()
	fn := s.onSample
	s.mu.Unlock()
	fn(sample)
}

type stubSub struct{ s *stubSource }

func (u stubSub) Stop() {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	u.s.stops++
}

func newTestMonitor(t *testing.T, src Source) (*Monitor, *clockwork.FakeClock) {
	t.Helper()
	fc := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
	if src == nil {
		src = &stubSource{permission: model.PermissionGranted}
	}
	return NewMonitor(src, clock.New(fc, time.UTC), nil, nil, Options{Timeout: 50 * time.Millisecond}), fc
}

func TestEvaluateEdgeTriggered(t *testing.T) {
	m, _ := newTestMonitor(t, nil)
	rec := &recorder{}
	require.NoError(t, m.RegisterRegion(park, rec.record))

	samples := []model.LocationSample{
		at(0.01),  // outside
		at(0.001), // inside -> enter
		at(0),     // inside
		at(0.002), // inside
		at(0.02),  // outside -> exit
		at(0.03),  // outside
		at(0),     // inside -> enter
	}
	for _, s := range samples {
		require.NoError(t, m.Evaluate(s))
	}

	assert.Equal(t, []model.Transition{model.TransitionEnter, model.TransitionExit, model.TransitionEnter}, rec.transitions())
	r, _ := m.Region("park")
	assert.True(t, r.IsActive)
}

func TestRegisterWhileInsideFiresEnter(t *testing.T) {
	m, _ := newTestMonitor(t, nil)
	require.NoError(t, m.Evaluate(at(0.0005)))

	rec := &recorder{}
	require.NoError(t, m.RegisterRegion(park, rec.record))
	assert.Equal(t, []model.Transition{model.TransitionEnter}, rec.transitions())

	// Still inside: no second enter.
	require.NoError(t, m.Evaluate(at(0)))
	assert.Len(t, rec.transitions(), 1)
}

func TestRegisterWithoutSampleStartsOutside(t *testing.T) {
	m, _ := newTestMonitor(t, nil)
	rec := &recorder{}
	require.NoError(t, m.RegisterRegion(park, rec.record))
	assert.Empty(t, rec.transitions())

	r, ok := m.Region("park")
	require.True(t, ok)
	assert.False(t, r.IsActive)
}

func TestUnregisterFiresNothing(t *testing.T) {
	m, _ := newTestMonitor(t, nil)
	rec := &recorder{}
	require.NoError(t, m.RegisterRegion(park, rec.record))
	require.NoError(t, m.Evaluate(at(0)))

	m.UnregisterRegion("park")
	require.NoError(t, m.Evaluate(at(0.05)))

	assert.Equal(t, []model.Transition{model.TransitionEnter}, rec.transitions())
	assert.Empty(t, m.Regions())
	m.UnregisterRegion("park") // idempotent
}

func TestRegisterRejectsInvalidAndDuplicate(t *testing.T) {
	m, _ := newTestMonitor(t, nil)

	bad := park
	bad.RadiusMeters = -1
	assert.ErrorIs(t, m.RegisterRegion(bad, nil), ErrInvalidRegion)

	require.NoError(t, m.RegisterRegion(park, nil))
	assert.ErrorIs(t, m.RegisterRegion(park, nil), ErrDuplicateRegion)
}

func TestEvaluateRejectsMalformedSample(t *testing.T) {
	m, _ := newTestMonitor(t, nil)
	err := m.Evaluate(model.LocationSample{Coordinates: model.Coordinates{Latitude: 120}})
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
	_, ok := m.LastKnownLocation()
	assert.False(t, ok)
}

func TestListenersRunAfterRegionCallback(t *testing.T) {
	m, _ := newTestMonitor(t, nil)
	var order []string
	require.NoError(t, m.RegisterRegion(park, func(Event) { order = append(order, "region") }))
	id := m.OnTransition(func(Event) { order = append(order, "listener") })

	require.NoError(t, m.Evaluate(at(0)))
	assert.Equal(t, []string{"region", "listener"}, order)

	m.RemoveListener(id)
	require.NoError(t, m.Evaluate(at(0.05)))
	assert.Equal(t, []string{"region", "listener", "region"}, order)
}

func TestCallbackMayReenterMonitor(t *testing.T) {
	m, _ := newTestMonitor(t, nil)
	other := park
	other.ID = "other"

	require.NoError(t, m.RegisterRegion(park, func(ev Event) {
		if ev.Transition == model.TransitionEnter {
			m.UnregisterRegion("park")
		}
	}))
	require.NoError(t, m.RegisterRegion(other, nil))
	require.NoError(t, m.Evaluate(at(0)))

	assert.Len(t, m.Regions(), 1)
}

func TestCurrentLocationUpdatesLastKnown(t *testing.T) {
	src := &stubSource{current: at(0.001), permission: model.PermissionGranted}
	m, _ := newTestMonitor(t, src)

	got, err := m.CurrentLocation(context.Background(), Options{})
	require.NoError(t, err)
	assert.InDelta(t, park.Center.Latitude+0.001, got.Latitude, 1e-9)
	assert.False(t, got.Timestamp.IsZero())

	last, ok := m.LastKnownLocation()
	require.True(t, ok)
	assert.Equal(t, got, last)
}

func TestCurrentLocationUsesFreshCache(t *testing.T) {
	src := &stubSource{current: at(0.001)}
	m, fc := newTestMonitor(t, src)
	first, err := m.CurrentLocation(context.Background(), Options{})
	require.NoError(t, err)

	src.mu.Lock()
	src.current = at(0.01)
	src.mu.Unlock()

	got, err := m.CurrentLocation(context.Background(), Options{MaximumAge: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, first, got)

	fc.Advance(2 * time.Minute)
	got, err = m.CurrentLocation(context.Background(), Options{MaximumAge: time.Minute})
	require.NoError(t, err)
	assert.NotEqual(t, first.Latitude, got.Latitude)
}

func TestCurrentLocationErrors(t *testing.T) {
	src := &stubSource{currentErr: ErrPermissionDenied}
	m, _ := newTestMonitor(t, src)
	_, err := m.CurrentLocation(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	src.mu.Lock()
	src.currentErr = nil
	src.block = true
	src.mu.Unlock()
	_, err = m.CurrentLocation(context.Background(), Options{Timeout: 10 * time.Millisecond})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestContinuousUpdatesSingleSubscription(t *testing.T) {
	src := &stubSource{permission: model.PermissionGranted}
	m, _ := newTestMonitor(t, src)
	rec := &recorder{}
	require.NoError(t, m.RegisterRegion(park, rec.record))

	var seen int
	require.NoError(t, m.StartContinuousUpdates(context.Background(), func(model.LocationSample) { seen++ }))
	require.NoError(t, m.StartContinuousUpdates(context.Background(), func(model.LocationSample) { seen++ }))

	src.mu.Lock()
	assert.Equal(t, 2, src.watches)
	assert.Equal(t, 1, src.stops)
	src.mu.Unlock()

	src.push(at(0))
	assert.Equal(t, 1, seen)
	assert.Equal(t, []model.Transition{model.TransitionEnter}, rec.transitions())

	m.Stop()
	assert.False(t, m.Watching())
	src.mu.Lock()
	assert.Equal(t, 2, src.stops)
	src.mu.Unlock()
}

func TestPermissionFallsBackToProbe(t *testing.T) {
	src := &stubSource{permission: model.PermissionUnknown, current: at(0)}
	m, _ := newTestMonitor(t, src)
	assert.Equal(t, model.PermissionGranted, m.Permission(context.Background()))

	src.mu.Lock()
	src.currentErr = ErrPermissionDenied
	src.mu.Unlock()
	assert.Equal(t, model.PermissionDenied, m.Permission(context.Background()))

	src.mu.Lock()
	src.currentErr = ErrUnavailable
	src.mu.Unlock()
	assert.Equal(t, model.PermissionPrompt, m.Permission(context.Background()))
}

func TestRequestPermissionDenied(t *testing.T) {
	m, _ := newTestMonitor(t, &stubSource{permission: model.PermissionDenied})
	p, err := m.RequestPermission(context.Background())
	assert.Equal(t, model.PermissionDenied, p)
	assert.True(t, errors.Is(err, ErrPermissionDenied))
}
