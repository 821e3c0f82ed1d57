// Package notify gates and time-shifts notification delivery. Requests pass
// through user preferences (global switch, per-category switches, quiet
// hours) before reaching the Presenter. Pending schedules are persisted and
// re-armed after a restart.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/rcliao/daypulse/internal/clock"
	"github.com/rcliao/daypulse/internal/metrics"
	"github.com/rcliao/daypulse/internal/model"
	"github.com/rcliao/daypulse/internal/store"
)

// DefaultHistoryLimit is how many delivery outcomes are kept.
const DefaultHistoryLimit = 500

var (
	ErrInvalidRequest    = errors.New("invalid notification request")
	ErrInvalidQuietHours = errors.New("invalid quiet hours")
	ErrInvalidInterval   = errors.New("invalid repeat interval")
	ErrInvalidTrigger    = errors.New("invalid trigger")
	ErrNotDelivered      = errors.New("notification was not delivered")
)

// TapHandler runs when the user acknowledges a delivered notification.
type TapHandler func(req model.NotificationRequest)

type tapEntry struct {
	id string
	fn TapHandler
}

// pending owns the one armed timer of a scheduled notification. The map
// entry's identity is the generation guard: a timer whose entry has been
// replaced or removed does nothing when it fires.
type pending struct {
	sn    model.ScheduledNotification
	timer clockwork.Timer
}

// Scheduler is the notification engine.
type Scheduler struct {
	ns        *store.Namespace
	cal       *clock.Calendar
	presenter Presenter
	log       *zap.Logger
	metrics   metrics.Recorder

	// detached is set for a store that keeps nothing; Sync then has no
	// other writers to merge with.
	detached bool

	mu        sync.Mutex
	prefs     model.Preferences
	pending   map[string]*pending
	locations map[string]model.LocationNotification
	locSeq    map[string]string
	locOrder  []string
	taps      []tapEntry
	observers []func(Outcome)
	delivered map[string]model.NotificationRequest
	// gen advances on Reset. A delivery that started under an older gen
	// leaves no trace.
	gen          uint64
	historyLimit int
	entropy      io.Reader
}

// New creates a Scheduler with default preferences. Call Rehydrate to load
// persisted state.
func New(ns *store.Namespace, cal *clock.Calendar, p Presenter, log *zap.Logger, rec metrics.Recorder) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	s := &Scheduler{
		ns:        ns,
		cal:       cal,
		presenter: p,
		log:       log,
		metrics:   rec,
		prefs:     model.DefaultPreferences(),
		pending:   make(map[string]*pending),
		locations: make(map[string]model.LocationNotification),
		locSeq:    make(map[string]string),
		delivered: make(map[string]model.NotificationRequest),
		entropy:   ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),

		historyLimit: DefaultHistoryLimit,
	}
	_, s.detached = ns.Store().(store.Unavailable)
	if ts, ok := p.(TapSource); ok {
		ts.OnTap(func(id string) {
			if err := s.Acknowledge(id); err != nil {
				s.log.Warn("tap ignored", zap.String("id", id), zap.Error(err))
			}
		})
	}
	return s
}

// Preferences returns a copy of the current preferences.
func (s *Scheduler) Preferences() model.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs.Clone()
}

// UpdatePreferences replaces the preferences and persists them.
func (s *Scheduler) UpdatePreferences(ctx context.Context, p model.Preferences) error {
	if err := ValidateQuietHours(p.QuietHoursStart, p.QuietHoursEnd); err != nil {
		return err
	}
	p = p.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs = p
	s.persistPreferencesLocked(ctx)
	return nil
}

// SetEnabled flips the global switch.
func (s *Scheduler) SetEnabled(ctx context.Context, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.Enabled = enabled
	s.persistPreferencesLocked(ctx)
}

// SetCategoryEnabled flips one category. Unknown categories may be enabled
// explicitly; until then they are suppressed.
func (s *Scheduler) SetCategoryEnabled(ctx context.Context, category string, enabled bool) error {
	if strings.TrimSpace(category) == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidRequest)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.Categories[category] = enabled
	s.persistPreferencesLocked(ctx)
	return nil
}

// SetQuietHours sets the quiet window. Empty start and end clear it.
func (s *Scheduler) SetQuietHours(ctx context.Context, start, end string) error {
	if err := ValidateQuietHours(start, end); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.QuietHoursStart = start
	s.prefs.QuietHoursEnd = end
	s.persistPreferencesLocked(ctx)
	return nil
}

// OnOutcome registers fn to observe every delivery attempt.
func (s *Scheduler) OnOutcome(fn func(Outcome)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// ShowNow runs req through the suppression-and-deliver path. Suppression is
// reported in the Outcome, not as an error.
func (s *Scheduler) ShowNow(ctx context.Context, req model.NotificationRequest) (Outcome, error) {
	if err := validateRequest(req); err != nil {
		return Outcome{}, err
	}
	return s.Deliver(ctx, req, OriginImmediate), nil
}

// Deliver applies preferences and presenter permission, then presents req.
func (s *Scheduler) Deliver(ctx context.Context, req model.NotificationRequest, origin Origin) Outcome {
	now := s.cal.Now()
	out := Outcome{ID: req.ID, Title: req.Title, Category: req.Category, Origin: origin, At: now}

	s.mu.Lock()
	gen := s.gen
	reason := suppression(s.prefs, req.Category, s.cal.MinutesSinceMidnight(now))
	s.mu.Unlock()

	if reason == ReasonNone {
		if p, err := s.presenter.Permission(ctx); err != nil || p != model.PermissionGranted {
			reason = ReasonPermission
		}
	}

	switch {
	case reason != ReasonNone:
		out.Status = StatusSuppressed
		out.Reason = reason
		s.log.Debug("notification suppressed",
			zap.String("id", req.ID),
			zap.String("category", req.Category),
			zap.String("reason", string(reason)))
	default:
		if err := s.presenter.Present(ctx, req); err != nil {
			out.Status = StatusFailed
			out.Reason = ReasonPresenter
			out.Error = err.Error()
			s.log.Warn("present notification failed", zap.String("id", req.ID), zap.Error(err))
		} else {
			out.Status = StatusDelivered
			s.log.Info("notification delivered",
				zap.String("id", req.ID),
				zap.String("origin", string(origin)))
		}
	}

	s.mu.Lock()
	// A Reset while the presenter ran wiped the state this outcome
	// belongs to.
	if s.gen == gen {
		if out.Delivered() {
			s.delivered[req.ID] = req
		}
		s.recordHistoryLocked(ctx, out)
	}
	observers := append([]func(Outcome){}, s.observers...)
	s.mu.Unlock()

	s.metrics.IncDelivery(string(out.Status), string(out.Reason))
	for _, fn := range observers {
		fn(out)
	}
	return out
}

// suppression returns why a request in category must not be shown at
// minute-of-day m, or ReasonNone.
func suppression(p model.Preferences, category string, m int) Reason {
	switch {
	case !p.Enabled:
		return ReasonDisabled
	case !p.Categories[category]:
		return ReasonCategory
	case InQuietHours(p, m):
		return ReasonQuietHours
	}
	return ReasonNone
}

// Schedule arms a timer for sn. A ScheduledTime at or before now is
// discarded without error. An existing schedule with the same id is
// replaced. The timer fires at ScheduledTime exactly, sub-second part
// included.
func (s *Scheduler) Schedule(ctx context.Context, sn model.ScheduledNotification) error {
	if err := validateScheduled(sn); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !sn.ScheduledTime.After(s.cal.Now()) {
		s.metrics.IncScheduleDropped("past_due")
		s.log.Info("discarding schedule in the past",
			zap.String("id", sn.ID),
			zap.Time("scheduled_time", sn.ScheduledTime))
		return nil
	}
	s.armLocked(sn)
	s.persistScheduleLocked(ctx, sn)
	s.metrics.SetPendingSchedules(len(s.pending))
	return nil
}

// Cancel disarms the schedule with id and removes its persisted entry,
// which another process may have written. Unknown ids are ignored.
func (s *Scheduler) Cancel(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pending[id]; ok {
		p.timer.Stop()
		delete(s.pending, id)
	}
	s.removeKeyLocked(ctx, scheduledKey(id))
	s.metrics.SetPendingSchedules(len(s.pending))
}

// CancelAll disarms every schedule and removes the persisted set.
func (s *Scheduler) CancelAll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopAllLocked()
	if _, err := s.ns.ClearPrefix(ctx, scheduledPrefix); err != nil {
		s.log.Warn("remove persisted schedules failed", zap.Error(err))
	}
	s.metrics.SetPendingSchedules(0)
}

// Stop disarms the in-memory timers and leaves the persisted set intact,
// so the next Rehydrate re-arms them.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopAllLocked()
}

// Reset disarms every schedule, forgets the in-memory registry and
// preferences, and runs wipe while no other scheduler operation can
// interleave.
func (s *Scheduler) Reset(ctx context.Context, wipe func(context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.stopAllLocked()
	s.prefs = model.DefaultPreferences()
	s.locations = make(map[string]model.LocationNotification)
	s.locSeq = make(map[string]string)
	s.locOrder = nil
	s.delivered = make(map[string]model.NotificationRequest)
	s.metrics.SetPendingSchedules(0)
	if wipe == nil {
		return nil
	}
	return wipe(ctx)
}

// Pending returns the armed schedules ordered by time, then id.
func (s *Scheduler) Pending() []model.ScheduledNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingLocked()
}

func (s *Scheduler) pendingLocked() []model.ScheduledNotification {
	out := make([]model.ScheduledNotification, 0, len(s.pending))
	for _, p := range s.pending {
		out = append(out, p.sn)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledTime.Equal(out[j].ScheduledTime) {
			return out[i].ScheduledTime.Before(out[j].ScheduledTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Scheduler) armLocked(sn model.ScheduledNotification) {
	if old, ok := s.pending[sn.ID]; ok {
		old.timer.Stop()
	}
	p := &pending{sn: sn}
	p.timer = s.cal.AfterFunc(sn.ScheduledTime.Sub(s.cal.Now()), func() { s.fire(p) })
	s.pending[sn.ID] = p
	s.log.Debug("schedule armed",
		zap.String("id", sn.ID),
		zap.Time("scheduled_time", sn.ScheduledTime),
		zap.Bool("repeating", sn.Repeating))
}

func (s *Scheduler) fire(p *pending) {
	ctx := context.Background()
	id := p.sn.ID

	s.mu.Lock()
	current := s.pending[id] == p
	s.mu.Unlock()
	if !current {
		return
	}

	s.Deliver(ctx, p.sn.NotificationRequest, OriginScheduled)

	s.mu.Lock()
	defer s.mu.Unlock()
	// Cancelled or replaced while the presenter ran.
	if s.pending[id] != p {
		return
	}
	delete(s.pending, id)
	defer func() { s.metrics.SetPendingSchedules(len(s.pending)) }()

	if !s.detached {
		stored, found, err := s.storedScheduleLocked(ctx, id)
		switch {
		case err != nil:
			s.log.Warn("read persisted schedule failed", zap.String("id", id), zap.Error(err))
		case !found:
			s.log.Debug("schedule removed by another writer", zap.String("id", id))
			return
		case !sameSchedule(stored, p.sn):
			// Replaced by another writer while it was due.
			if stored.ScheduledTime.After(s.cal.Now()) && validateScheduled(stored) == nil {
				s.armLocked(stored)
			} else {
				s.removeKeyLocked(ctx, scheduledKey(id))
			}
			return
		}
	}
	s.advanceLocked(ctx, p.sn)
}

// advanceLocked re-arms a repeating schedule on its grid, or forgets a
// one-shot one.
func (s *Scheduler) advanceLocked(ctx context.Context, sn model.ScheduledNotification) {
	if !sn.Repeating {
		s.removeKeyLocked(ctx, scheduledKey(sn.ID))
		return
	}
	next, err := NextOccurrence(sn.ScheduledTime, sn.RepeatInterval, s.cal.Now())
	if err != nil {
		s.log.Error("compute next occurrence failed", zap.String("id", sn.ID), zap.Error(err))
		s.removeKeyLocked(ctx, scheduledKey(sn.ID))
		return
	}
	sn.ScheduledTime = next.In(s.cal.Location())
	s.armLocked(sn)
	s.persistScheduleLocked(ctx, sn)
}

func (s *Scheduler) stopAllLocked() {
	for id, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, id)
	}
}

func (s *Scheduler) persistPreferencesLocked(ctx context.Context) {
	_ = store.SetJSON(ctx, s.ns, keyPreferences, s.prefs)
}

func validateRequest(req model.NotificationRequest) error {
	if strings.TrimSpace(req.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRequest)
	}
	if req.Title == "" && req.Body == "" {
		return fmt.Errorf("%w: title or body is required", ErrInvalidRequest)
	}
	return nil
}

func validateScheduled(sn model.ScheduledNotification) error {
	if err := validateRequest(sn.NotificationRequest); err != nil {
		return err
	}
	if sn.ScheduledTime.IsZero() {
		return fmt.Errorf("%w: scheduled time is required", ErrInvalidRequest)
	}
	if sn.Repeating && !model.ValidRepeatIntervals[sn.RepeatInterval] {
		return fmt.Errorf("%w: %q", ErrInvalidInterval, sn.RepeatInterval)
	}
	return nil
}

// RegisterTapHandler appends fn and returns its id. Handlers run in
// registration order.
func (s *Scheduler) RegisterTapHandler(fn TapHandler) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.taps = append(s.taps, tapEntry{id: id, fn: fn})
	return id
}

// UnregisterTapHandler removes a handler.
func (s *Scheduler) UnregisterTapHandler(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.taps {
		if t.id == id {
			s.taps = append(s.taps[:i:i], s.taps[i+1:]...)
			return
		}
	}
}

// Acknowledge reports a user tap on the notification with id. Every tap
// handler receives the last delivered request with that id.
func (s *Scheduler) Acknowledge(id string) error {
	s.mu.Lock()
	req, ok := s.delivered[id]
	taps := append([]tapEntry{}, s.taps...)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotDelivered, id)
	}
	for _, t := range taps {
		t.fn(req)
	}
	return nil
}

func newULID(t time.Time, entropy io.Reader) string {
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// recordHistoryLocked stores out and drops the oldest outcomes beyond
// historyLimit. ULID keys sort oldest first.
func (s *Scheduler) recordHistoryLocked(ctx context.Context, out Outcome) {
	if err := store.SetJSON(ctx, s.ns, historyPrefix+newULID(out.At, s.entropy), out); err != nil {
		return
	}
	if s.historyLimit <= 0 {
		return
	}
	entries, err := s.ns.List(ctx, historyPrefix)
	if err != nil || len(entries) <= s.historyLimit {
		return
	}
	for _, e := range entries[:len(entries)-s.historyLimit] {
		s.removeKeyLocked(ctx, e.Key)
	}
}

// History returns up to limit recorded outcomes, newest first. A limit of
// zero or less returns everything.
func (s *Scheduler) History(ctx context.Context, limit int) ([]Outcome, error) {
	entries, err := s.ns.List(ctx, historyPrefix)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key > entries[j].Key })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]Outcome, 0, len(entries))
	for _, e := range entries {
		var o Outcome
		if err := json.Unmarshal(e.Value, &o); err != nil {
			s.log.Warn("discarding malformed history entry", zap.String("key", e.Key), zap.Error(err))
			continue
		}
		out = append(out, o)
	}
	return out, nil
}
