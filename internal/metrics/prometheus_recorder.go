package metrics

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	counterResets *prom.CounterVec
	deliveries    *prom.CounterVec
	dropped       *prom.CounterVec
	pending       prom.Gauge
	transitions   *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		counterResets: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "daypulse",
			Name:      "daily_counter_resets_total",
			Help:      "Daily counters restarted because the day changed",
		}, []string{"key"}),
		deliveries: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "daypulse",
			Name:      "notification_deliveries_total",
			Help:      "Notification delivery attempts by status and suppression reason",
		}, []string{"status", "reason"}),
		dropped: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "daypulse",
			Name:      "notification_schedules_dropped_total",
			Help:      "Schedules discarded without delivery",
		}, []string{"reason"}),
		pending: prom.NewGauge(prom.GaugeOpts{
			Namespace: "daypulse",
			Name:      "notification_pending_schedules",
			Help:      "Armed notification timers",
		}),
		transitions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "daypulse",
			Name:      "geofence_transitions_total",
			Help:      "Geofence enter/exit events",
		}, []string{"transition"}),
	}
	reg.MustRegister(pr.counterResets, pr.deliveries, pr.dropped, pr.pending, pr.transitions)
	return pr
}

// Handler returns an HTTP handler exposing reg.
func Handler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func (p *PrometheusRecorder) IncDailyCounterReset(key string) {
	p.counterResets.WithLabelValues(key).Inc()
}

func (p *PrometheusRecorder) IncDelivery(status, reason string) {
	p.deliveries.WithLabelValues(status, reason).Inc()
}

func (p *PrometheusRecorder) IncScheduleDropped(reason string) {
	p.dropped.WithLabelValues(reason).Inc()
}

func (p *PrometheusRecorder) SetPendingSchedules(n int) {
	p.pending.Set(float64(n))
}

func (p *PrometheusRecorder) IncGeofenceTransition(transition string) {
	p.transitions.WithLabelValues(transition).Inc()
}
