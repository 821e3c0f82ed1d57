package geo

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/daypulse/internal/model"
)

// ReplaySource plays back a recorded track. It stands in for the platform
// position provider in simulations and tests.
type ReplaySource struct {
	clock    clockwork.Clock
	interval time.Duration

	mu         sync.Mutex
	samples    []model.LocationSample
	pos        int
	permission model.Permission
}

// NewReplaySource replays samples, one every interval on clock.
func NewReplaySource(c clockwork.Clock, samples []model.LocationSample, interval time.Duration) *ReplaySource {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	return &ReplaySource{
		clock:      c,
		interval:   interval,
		samples:    samples,
		permission: model.PermissionGranted,
	}
}

// SetPermission overrides the reported permission state.
func (r *ReplaySource) SetPermission(p model.Permission) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.permission = p
}

func (r *ReplaySource) next() (model.LocationSample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.permission == model.PermissionDenied {
		return model.LocationSample{}, ErrPermissionDenied
	}
	if len(r.samples) == 0 {
		return model.LocationSample{}, ErrUnavailable
	}
	i := r.pos
	if i >= len(r.samples) {
		i = len(r.samples) - 1
	} else {
		r.pos++
	}
	s := r.samples[i]
	if s.Timestamp.IsZero() {
		s.Timestamp = r.clock.Now()
	}
	return s, nil
}

// Current returns the next sample of the track, or the final one once the
// track is exhausted.
func (r *ReplaySource) Current(ctx context.Context, _ Options) (model.LocationSample, error) {
	if err := ctx.Err(); err != nil {
		return model.LocationSample{}, fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return r.next()
}

// Watch streams the remaining samples. The returned subscription's Done
// channel closes when the track ends or the subscription stops.
func (r *ReplaySource) Watch(ctx context.Context, _ Options, onSample func(model.LocationSample), onError func(error)) (Subscription, error) {
	r.mu.Lock()
	denied := r.permission == model.PermissionDenied
	r.mu.Unlock()
	if denied {
		return nil, ErrPermissionDenied
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &replaySubscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		first := true
		for {
			r.mu.Lock()
			remaining := r.pos < len(r.samples)
			r.mu.Unlock()
			if !remaining {
				return
			}
			if !first && r.interval > 0 {
				select {
				case <-ctx.Done():
					return
				case <-r.clock.After(r.interval):
				}
			}
			first = false
			if ctx.Err() != nil {
				return
			}
			s, err := r.next()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				return
			}
			onSample(s)
		}
	}()
	return sub, nil
}

func (r *ReplaySource) Permission(context.Context) (model.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.permission, nil
}

func (r *ReplaySource) RequestPermission(ctx context.Context) (model.Permission, error) {
	return r.Permission(ctx)
}

type replaySubscription struct {
	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *replaySubscription) Stop() {
	s.once.Do(s.cancel)
}

// Done closes when the replay goroutine exits.
func (s *replaySubscription) Done() <-chan struct{} {
	return s.done
}

// LoadTrack reads JSON-lines samples, one object per line:
//
//	{"latitude":40.78,"longitude":-73.96,"accuracy":5,"timestamp":"2024-06-01T10:00:00Z"}
func LoadTrack(r io.Reader) ([]model.LocationSample, error) {
	var samples []model.LocationSample
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var s model.LocationSample
		if err := json.Unmarshal([]byte(text), &s); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := ValidateCoordinates(s.Coordinates); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		samples = append(samples, s)
	}
	return samples, sc.Err()
}

// LoadTrackFile reads a track file from disk.
func LoadTrackFile(path string) ([]model.LocationSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadTrack(f)
}

// RegionFile is the YAML layout of a region definition file.
type RegionFile struct {
	Regions []model.GeofenceRegion `yaml:"regions"`
}

// LoadRegions parses and validates a YAML region file.
func LoadRegions(data []byte) ([]model.GeofenceRegion, error) {
	var rf RegionFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse regions: %w", err)
	}
	seen := map[string]bool{}
	for _, r := range rf.Regions {
		if err := ValidateRegion(r); err != nil {
			return nil, err
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRegion, r.ID)
		}
		seen[r.ID] = true
	}
	return rf.Regions, nil
}
