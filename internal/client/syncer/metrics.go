package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	replayed *prometheus.CounterVec
	failed   *prometheus.CounterVec
	drains   *prometheus.CounterVec
	pending  prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		replayed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dropsync_replayed_operations_total",
			Help: "Queued operations replayed against the backend",
		}, []string{"kind", "op"}),
		failed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dropsync_failed_operations_total",
			Help: "Queued operations whose replay failed",
		}, []string{"kind", "op"}),
		drains: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dropsync_drains_total",
			Help: "Queue drains by outcome",
		}, []string{"result"}),
		pending: f.NewGauge(prometheus.GaugeOpts{
			Name: "dropsync_pending_operations",
			Help: "Operations left in the queue after the last drain",
		}),
	}
}
