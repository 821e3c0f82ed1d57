package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.IncDelivery("delivered", "")
	pr.IncDelivery("suppressed", "quiet_hours")
	pr.IncDelivery("suppressed", "quiet_hours")
	pr.IncScheduleDropped("past_due")
	pr.SetPendingSchedules(3)
	pr.IncGeofenceTransition("enter")
	pr.IncDailyCounterReset("adWatch")

	if got := testutil.ToFloat64(pr.deliveries.WithLabelValues("suppressed", "quiet_hours")); got != 2 {
		t.Errorf("expected 2 suppressed deliveries, got %v", got)
	}
	if got := testutil.ToFloat64(pr.pending); got != 3 {
		t.Errorf("expected pending gauge 3, got %v", got)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) != 5 {
		t.Fatalf("expected 5 metric families, got %d", len(mfs))
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncGeofenceTransition("exit")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "daypulse_geofence_transitions_total") {
		t.Error("expected transitions metric in output")
	}
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncDelivery("delivered", "")
	r.SetPendingSchedules(1)
}

func TestRecordersOnSeparateRegistriesAreIndependent(t *testing.T) {
	a := NewPrometheusRecorder(prom.NewRegistry())
	b := NewPrometheusRecorder(nil)

	a.SetPendingSchedules(2)
	b.SetPendingSchedules(5)
	a.IncScheduleDropped("past_due")

	if got := testutil.ToFloat64(a.pending); got != 2 {
		t.Errorf("expected first gauge 2, got %v", got)
	}
	if got := testutil.ToFloat64(b.pending); got != 5 {
		t.Errorf("expected second gauge 5, got %v", got)
	}
	if got := testutil.ToFloat64(b.dropped.WithLabelValues("past_due")); got != 0 {
		t.Errorf("expected no drops on the second recorder, got %v", got)
	}
}
