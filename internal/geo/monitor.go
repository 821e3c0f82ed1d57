package geo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rcliao/daypulse/internal/clock"
	"github.com/rcliao/daypulse/internal/metrics"
	"github.com/rcliao/daypulse/internal/model"
)

// Event is one geofence crossing.
type Event struct {
	Region     model.GeofenceRegion
	Transition model.Transition
	Sample     model.LocationSample
	Distance   float64
}

// TransitionFunc receives geofence events.
type TransitionFunc func(Event)

type regionEntry struct {
	region       model.GeofenceRegion
	onTransition TransitionFunc
}

type listener struct {
	id string
	fn TransitionFunc
}

type dispatch struct {
	event Event
	fns   []TransitionFunc
}

// Monitor keeps the region registry and the inside/outside state of each
// region. Samples are evaluated one at a time; all transitions for a sample
// fire before the next sample is accepted.
type Monitor struct {
	source  Source
	cal     *clock.Calendar
	log     *zap.Logger
	metrics metrics.Recorder
	opts    Options

	evalMu sync.Mutex

	mu        sync.Mutex
	regions   map[string]*regionEntry
	order     []string
	listeners []listener
	last      *model.LocationSample
	sub       Subscription
	subCancel context.CancelFunc
}

// NewMonitor creates a Monitor reading from src.
func NewMonitor(src Source, cal *clock.Calendar, log *zap.Logger, rec metrics.Recorder, opts Options) *Monitor {
	if log == nil {
		log = zap.NewNop()
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Monitor{
		source:  src,
		cal:     cal,
		log:     log,
		metrics: rec,
		opts:    opts,
		regions: make(map[string]*regionEntry),
	}
}

// OnTransition subscribes fn to every region's events and returns an id
// for RemoveListener. Listeners run after the region's own callback, in
// subscription order.
func (m *Monitor) OnTransition(fn TransitionFunc) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.listeners = append(m.listeners, listener{id: id, fn: fn})
	return id
}

// RemoveListener drops a listener added with OnTransition.
func (m *Monitor) RemoveListener(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range m.listeners {
		if l.id == id {
			m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
			return
		}
	}
}

// RegisterRegion adds r to the registry. When the last known sample is
// already inside r, the region starts inside and an enter event fires
// before RegisterRegion returns.
func (m *Monitor) RegisterRegion(r model.GeofenceRegion, onTransition TransitionFunc) error {
	if err := ValidateRegion(r); err != nil {
		return err
	}

	m.mu.Lock()
	if _, exists := m.regions[r.ID]; exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateRegion, r.ID)
	}
	r.IsActive = false
	entry := &regionEntry{region: r, onTransition: onTransition}

	var pending []dispatch
	if m.last != nil {
		d := Distance(m.last.Coordinates, r.Center)
		if d <= r.RadiusMeters {
			entry.region.IsActive = true
			pending = append(pending, m.collect(entry, model.TransitionEnter, *m.last, d))
		}
	}
	m.regions[r.ID] = entry
	m.order = append(m.order, r.ID)
	m.mu.Unlock()

	m.log.Debug("geofence registered",
		zap.String("region", r.ID),
		zap.Float64("radius_m", r.RadiusMeters),
		zap.Bool("inside", entry.region.IsActive))
	m.fire(pending)
	return nil
}

// UnregisterRegion removes a region without firing an exit event.
func (m *Monitor) UnregisterRegion(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.regions[id]; !ok {
		return
	}
	delete(m.regions, id)
	for i, rid := range m.order {
		if rid == id {
			m.order = append(m.order[:i:i], m.order[i+1:]...)
			break
		}
	}
}

// Regions returns a snapshot of the registry in registration order.
func (m *Monitor) Regions() []model.GeofenceRegion {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.GeofenceRegion, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.regions[id].region)
	}
	return out
}

// Region returns one registered region.
func (m *Monitor) Region(id string) (model.GeofenceRegion, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.regions[id]
	if !ok {
		return model.GeofenceRegion{}, false
	}
	return e.region, true
}

// LastKnownLocation returns the most recent sample.
func (m *Monitor) LastKnownLocation() (model.LocationSample, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return model.LocationSample{}, false
	}
	return *m.last, true
}

// Evaluate checks sample against every region and fires enter/exit events
// for regions whose state flips. Unchanged regions fire nothing.
func (m *Monitor) Evaluate(sample model.LocationSample) error {
	if err := ValidateCoordinates(sample.Coordinates); err != nil {
		m.log.Warn("ignoring malformed sample", zap.Error(err))
		return err
	}

	m.evalMu.Lock()
	defer m.evalMu.Unlock()

	m.mu.Lock()
	s := sample
	m.last = &s
	var pending []dispatch
	for _, id := range m.order {
		e := m.regions[id]
		d := Distance(sample.Coordinates, e.region.Center)
		inside := d <= e.region.RadiusMeters
		switch {
		case inside && !e.region.IsActive:
			e.region.IsActive = true
			pending = append(pending, m.collect(e, model.TransitionEnter, sample, d))
		case !inside && e.region.IsActive:
			e.region.IsActive = false
			pending = append(pending, m.collect(e, model.TransitionExit, sample, d))
		}
	}
	m.mu.Unlock()

	m.fire(pending)
	return nil
}

// collect snapshots one transition and its callbacks. Caller holds m.mu.
func (m *Monitor) collect(e *regionEntry, tr model.Transition, sample model.LocationSample, d float64) dispatch {
	ev := Event{Region: e.region, Transition: tr, Sample: sample, Distance: d}
	fns := make([]TransitionFunc, 0, len(m.listeners)+1)
	if e.onTransition != nil {
		fns = append(fns, e.onTransition)
	}
	for _, l := range m.listeners {
		fns = append(fns, l.fn)
	}
	return dispatch{event: ev, fns: fns}
}

// fire runs callbacks without holding m.mu so they may call back into the
// monitor.
func (m *Monitor) fire(pending []dispatch) {
	for _, p := range pending {
		m.metrics.IncGeofenceTransition(string(p.event.Transition))
		m.log.Info("geofence transition",
			zap.String("region", p.event.Region.ID),
			zap.String("transition", string(p.event.Transition)),
			zap.Float64("distance_m", p.event.Distance))
		for _, fn := range p.fns {
			fn(p.event)
		}
	}
}

// CurrentLocation performs a one-shot read. A cached sample no older than
// opts.MaximumAge is returned without asking the source.
func (m *Monitor) CurrentLocation(ctx context.Context, opts Options) (model.LocationSample, error) {
	if opts.MaximumAge > 0 {
		if last, ok := m.LastKnownLocation(); ok && !last.Timestamp.IsZero() &&
			m.cal.Now().Sub(last.Timestamp) <= opts.MaximumAge {
			return last, nil
		}
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	sample, err := m.source.Current(ctx, opts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
			err = fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return model.LocationSample{}, err
	}
	if err := ValidateCoordinates(sample.Coordinates); err != nil {
		return model.LocationSample{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if sample.Timestamp.IsZero() {
		sample.Timestamp = m.cal.Now()
	}

	m.mu.Lock()
	m.last = &sample
	m.mu.Unlock()
	return sample, nil
}

// StartContinuousUpdates subscribes to the source. Each sample goes to
// onSample and then through Evaluate. A running subscription is stopped
// first.
func (m *Monitor) StartContinuousUpdates(ctx context.Context, onSample func(model.LocationSample)) error {
	m.Stop()

	ctx, cancel := context.WithCancel(ctx)
	sub, err := m.source.Watch(ctx, m.opts,
		func(s model.LocationSample) {
			if s.Timestamp.IsZero() {
				s.Timestamp = m.cal.Now()
			}
			if onSample != nil {
				onSample(s)
			}
			_ = m.Evaluate(s)
		},
		func(err error) {
			m.log.Warn("location stream error", zap.Error(err))
		})
	if err != nil {
		cancel()
		return err
	}

	m.mu.Lock()
	m.sub = sub
	m.subCancel = cancel
	m.mu.Unlock()
	m.log.Info("continuous location updates started")
	return nil
}

// Stop ends the active subscription, if any.
func (m *Monitor) Stop() {
	m.mu.Lock()
	sub, cancel := m.sub, m.subCancel
	m.sub, m.subCancel = nil, nil
	m.mu.Unlock()

	if sub != nil {
		sub.Stop()
	}
	if cancel != nil {
		cancel()
		m.log.Info("continuous location updates stopped")
	}
}

// Done returns a channel closed when the active subscription's source runs
// out of samples. It is nil when nothing is watching or the source streams
// indefinitely.
func (m *Monitor) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.sub.(interface{ Done() <-chan struct{} }); ok {
		return f.Done()
	}
	return nil
}

// Watching reports whether a subscription is active.
func (m *Monitor) Watching() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sub != nil
}

// Permission resolves the location permission state.
func (m *Monitor) Permission(ctx context.Context) model.Permission {
	timeout := m.opts.Timeout
	if timeout <= 0 {
		timeout = DefaultOptions().Timeout
	}
	return ResolvePermission(ctx, m.source, timeout)
}

// RequestPermission asks the source for access. A denial is returned as
// ErrPermissionDenied.
func (m *Monitor) RequestPermission(ctx context.Context) (model.Permission, error) {
	p, err := m.source.RequestPermission(ctx)
	if err != nil {
		return p, err
	}
	if p == model.PermissionDenied {
		return p, ErrPermissionDenied
	}
	return p, nil
}
