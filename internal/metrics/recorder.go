package metrics

// Recorder defines observability hooks. Components default to NoopRecorder
// when none is injected.
type Recorder interface {
	IncDailyCounterReset(key string)
	IncDelivery(status, reason string) // status: delivered|suppressed|failed
	IncScheduleDropped(reason string)  // reason: past_due|rehydrate_past_due
	SetPendingSchedules(n int)
	IncGeofenceTransition(transition string)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) IncDailyCounterReset(string)  {}
func (NoopRecorder) IncDelivery(string, string)   {}
func (NoopRecorder) IncScheduleDropped(string)    {}
func (NoopRecorder) SetPendingSchedules(int)      {}
func (NoopRecorder) IncGeofenceTransition(string) {}
