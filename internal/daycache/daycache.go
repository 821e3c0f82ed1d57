// Package daycache implements values that are only valid for the current
// calendar day. Expiry is lazy: a read compares the stored day stamp with
// today and treats a mismatch as absent. Nothing sweeps at midnight.
package daycache

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/rcliao/daypulse/internal/clock"
	"github.com/rcliao/daypulse/internal/metrics"
	"github.com/rcliao/daypulse/internal/store"
)

const (
	dayPrefix       = "cache:"
	permanentPrefix = "data:"
)

// Entry is the stored form of a day-scoped value.
type Entry[T any] struct {
	Value    T      `json:"value"`
	DayStamp string `json:"dayStamp"`
}

// Manager reads and writes day-scoped values.
type Manager struct {
	ns      *store.Namespace
	cal     *clock.Calendar
	log     *zap.Logger
	metrics metrics.Recorder

	// mu serializes writes so read-modify-write sequences on a key never
	// interleave.
	mu sync.Mutex
}

// New creates a Manager.
func New(ns *store.Namespace, cal *clock.Calendar, log *zap.Logger, rec metrics.Recorder) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Manager{ns: ns, cal: cal, log: log, metrics: rec}
}

// Today returns the current day stamp.
func (m *Manager) Today() string { return m.cal.Today() }

// GetToday returns the value stored under key if it was written today.
func GetToday[T any](ctx context.Context, m *Manager, key string) (T, bool) {
	var zero T
	e, ok := store.GetJSON[Entry[T]](ctx, m.ns, dayPrefix+key)
	if !ok || e.DayStamp != m.cal.Today() {
		return zero, false
	}
	return e.Value, true
}

// PutToday stores value under key stamped with today.
func PutToday[T any](ctx context.Context, m *Manager, key string, value T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_ = store.SetJSON(ctx, m.ns, dayPrefix+key, Entry[T]{Value: value, DayStamp: m.cal.Today()})
}

// Remove deletes a day-scoped key.
func (m *Manager) Remove(ctx context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ns.Remove(ctx, dayPrefix+key); err != nil {
		m.log.Warn("remove cached value failed", zap.String("key", key), zap.Error(err))
	}
}

// IncrementDailyCounter bumps the counter under key and returns the new
// value. The first call of a new day starts again at 1.
func (m *Manager) IncrementDailyCounter(ctx context.Context, key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	today := m.cal.Today()
	e, ok := store.GetJSON[Entry[int]](ctx, m.ns, dayPrefix+key)
	if !ok || e.DayStamp != today {
		if ok {
			m.log.Debug("daily counter reset", zap.String("key", key), zap.String("previous_day", e.DayStamp))
		}
		m.metrics.IncDailyCounterReset(key)
		e = Entry[int]{Value: 0, DayStamp: today}
	}
	e.Value++
	_ = store.SetJSON(ctx, m.ns, dayPrefix+key, e)
	return e.Value
}

// DailyCounter returns today's counter value, 0 when unset or stale.
func (m *Manager) DailyCounter(ctx context.Context, key string) int {
	v, _ := GetToday[int](ctx, m, key)
	return v
}

// IsThresholdReached reports whether today's counter is at least threshold.
func (m *Manager) IsThresholdReached(ctx context.Context, key string, threshold int) bool {
	return m.DailyCounter(ctx, key) >= threshold
}

// GetPermanent reads a value that never expires.
func GetPermanent[T any](ctx context.Context, m *Manager, key string) (T, bool) {
	return store.GetJSON[T](ctx, m.ns, permanentPrefix+key)
}

// PutPermanent writes a value that never expires.
func PutPermanent[T any](ctx context.Context, m *Manager, key string, value T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_ = store.SetJSON(ctx, m.ns, permanentPrefix+key, value)
}
