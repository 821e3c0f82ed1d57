package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/rcliao/daypulse/internal/model"
	"github.com/rcliao/daypulse/internal/store"
)

// Every schedule and location notification lives under its own key so
// several processes sharing one database never overwrite each other's
// entries.
const (
	scheduledPrefix = "notifications:scheduled:"
	locationPrefix  = "notifications:location:"
	keyPreferences  = "notifications:preferences"
	historyPrefix   = "notifications:history:"
)

func scheduledKey(id string) string { return scheduledPrefix + id }

func locationKey(id string) string { return locationPrefix + id }

// storedLocation is the persisted form of a registry entry. Seq is a ULID
// taken at first registration and orders the registry across processes.
type storedLocation struct {
	Seq          string                     `json:"seq"`
	Notification model.LocationNotification `json:"notification"`
}

// SyncResult counts what one Sync changed.
type SyncResult struct {
	Armed    int `json:"armed"`
	Disarmed int `json:"disarmed"`
	Dropped  int `json:"dropped"`
}

// Rehydrate loads preferences, the location registry and pending schedules
// from the store. Schedules whose time has already passed are dropped
// without delivery.
func (s *Scheduler) Rehydrate(ctx context.Context) {
	res := s.Sync(ctx)
	s.mu.Lock()
	pendingN, locN := len(s.pending), len(s.locOrder)
	s.mu.Unlock()
	s.log.Info("notifications rehydrated",
		zap.Int("pending", pendingN),
		zap.Int("dropped", res.Dropped),
		zap.Int("location", locN))
}

// Sync merges the persisted state into memory by id. Schedules written by
// another process are armed, changed ones re-armed and removed ones
// disarmed; timers whose entry is unchanged keep running. Preferences and
// the location registry are reloaded. Past-due entries are dropped and
// their keys removed.
func (s *Scheduler) Sync(ctx context.Context) SyncResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res SyncResult
	if s.detached {
		return res
	}
	s.syncPreferencesLocked(ctx)
	s.syncLocationsLocked(ctx)

	entries, err := s.ns.List(ctx, scheduledPrefix)
	if err != nil {
		s.log.Warn("list persisted schedules failed", zap.Error(err))
		return res
	}
	now := s.cal.Now()
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		sn, err := decodeScheduled(e)
		if err != nil {
			s.log.Warn("discarding persisted schedule", zap.String("key", e.Key), zap.Error(err))
			s.removeKeyLocked(ctx, e.Key)
			continue
		}
		seen[sn.ID] = true
		p, armed := s.pending[sn.ID]
		if armed && sameSchedule(p.sn, sn) {
			continue
		}
		if !sn.ScheduledTime.After(now) {
			if armed {
				p.timer.Stop()
				delete(s.pending, sn.ID)
			}
			res.Dropped++
			s.metrics.IncScheduleDropped("rehydrate_past_due")
			s.log.Info("dropping past-due schedule",
				zap.String("id", sn.ID),
				zap.Time("scheduled_time", sn.ScheduledTime))
			s.removeKeyLocked(ctx, e.Key)
			continue
		}
		s.armLocked(sn)
		res.Armed++
	}
	for id, p := range s.pending {
		if seen[id] {
			continue
		}
		p.timer.Stop()
		delete(s.pending, id)
		res.Disarmed++
		s.log.Debug("schedule removed from store, disarmed", zap.String("id", id))
	}
	s.metrics.SetPendingSchedules(len(s.pending))
	if res != (SyncResult{}) {
		s.log.Debug("schedules synced",
			zap.Int("armed", res.Armed),
			zap.Int("disarmed", res.Disarmed),
			zap.Int("dropped", res.Dropped))
	}
	return res
}

// syncPreferencesLocked reloads preferences. A missing or malformed value
// reads as the defaults; a failed read keeps the current ones.
func (s *Scheduler) syncPreferencesLocked(ctx context.Context) {
	prefs := model.DefaultPreferences()
	raw, err := s.ns.Get(ctx, keyPreferences)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		s.log.Warn("read preferences failed", zap.Error(err))
		return
	default:
		var p model.Preferences
		if err := json.Unmarshal(raw, &p); err != nil {
			s.log.Warn("discarding malformed preferences", zap.Error(err))
			break
		}
		prefs = p
	}
	if prefs.Categories == nil {
		prefs.Categories = make(map[string]bool)
	}
	s.prefs = prefs
}

func (s *Scheduler) syncLocationsLocked(ctx context.Context) {
	entries, err := s.ns.List(ctx, locationPrefix)
	if err != nil {
		s.log.Warn("list location notifications failed", zap.Error(err))
		return
	}
	stored := make([]storedLocation, 0, len(entries))
	for _, e := range entries {
		var sl storedLocation
		err := json.Unmarshal(e.Value, &sl)
		if err == nil {
			err = validateLocation(sl.Notification)
		}
		if err == nil && locationKey(sl.Notification.ID) != e.Key {
			err = fmt.Errorf("key %q does not match id %q", e.Key, sl.Notification.ID)
		}
		if err != nil {
			s.log.Warn("discarding persisted location notification", zap.String("key", e.Key), zap.Error(err))
			s.removeKeyLocked(ctx, e.Key)
			continue
		}
		stored = append(stored, sl)
	}
	sort.SliceStable(stored, func(i, j int) bool { return stored[i].Seq < stored[j].Seq })

	s.locations = make(map[string]model.LocationNotification, len(stored))
	s.locSeq = make(map[string]string, len(stored))
	s.locOrder = s.locOrder[:0]
	for _, sl := range stored {
		id := sl.Notification.ID
		s.locations[id] = sl.Notification
		s.locSeq[id] = sl.Seq
		s.locOrder = append(s.locOrder, id)
	}
}

func decodeScheduled(e store.Entry) (model.ScheduledNotification, error) {
	var sn model.ScheduledNotification
	if err := json.Unmarshal(e.Value, &sn); err != nil {
		return sn, err
	}
	if err := validateScheduled(sn); err != nil {
		return sn, err
	}
	if scheduledKey(sn.ID) != e.Key {
		return sn, fmt.Errorf("key %q does not match id %q", e.Key, sn.ID)
	}
	return sn, nil
}

// storedScheduleLocked reads the persisted definition of id. found is
// false when another writer removed it.
func (s *Scheduler) storedScheduleLocked(ctx context.Context, id string) (sn model.ScheduledNotification, found bool, err error) {
	raw, err := s.ns.Get(ctx, scheduledKey(id))
	if errors.Is(err, store.ErrNotFound) {
		return sn, false, nil
	}
	if err != nil {
		return sn, false, err
	}
	if err := json.Unmarshal(raw, &sn); err != nil {
		return sn, false, err
	}
	return sn, true, nil
}

// sameSchedule compares two definitions the way they round-trip through
// the store.
func sameSchedule(a, b model.ScheduledNotification) bool {
	if !a.ScheduledTime.Equal(b.ScheduledTime) {
		return false
	}
	a.ScheduledTime, b.ScheduledTime = a.ScheduledTime.UTC(), b.ScheduledTime.UTC()
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && string(ja) == string(jb)
}

func (s *Scheduler) persistScheduleLocked(ctx context.Context, sn model.ScheduledNotification) {
	_ = store.SetJSON(ctx, s.ns, scheduledKey(sn.ID), sn)
}

func (s *Scheduler) removeKeyLocked(ctx context.Context, key string) {
	if err := s.ns.Remove(ctx, key); err != nil && !errors.Is(err, store.ErrNotFound) {
		s.log.Warn("remove persisted entry failed", zap.String("key", key), zap.Error(err))
	}
}

// nextSeqLocked returns a registration ULID ordered after every earlier
// one taken by this scheduler.
func (s *Scheduler) nextSeqLocked() string {
	return newULID(s.cal.Now(), s.entropy)
}
