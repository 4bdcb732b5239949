package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "verin"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	buildDuration     prom.Histogram
	buildOutcome      *prom.CounterVec
	documentResults   *prom.CounterVec
	subscribers       prom.Gauge
	triggers          *prom.CounterVec
	broadcasts        prom.Counter
	droppedSubscriber *prom.CounterVec
}

// NewPrometheusRecorder constructs the metrics and registers them with reg.
// A nil registry gets a private one.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		documentResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents processed by result",
		}, []string{"result"}),
		subscribers: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "refresh_subscribers",
			Help:      "Currently connected refresh subscribers",
		}),
		triggers: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_triggers_total",
			Help:      "Refresh triggers received by source",
		}, []string{"source"}),
		broadcasts: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_broadcasts_total",
			Help:      "Reload notifications fanned out",
		}),
		droppedSubscriber: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_subscribers_dropped_total",
			Help:      "Subscribers removed by the service",
		}, []string{"reason"}),
	}
	reg.MustRegister(pr.buildDuration, pr.buildOutcome, pr.documentResults, pr.subscribers, pr.triggers, pr.broadcasts, pr.droppedSubscriber)
	return pr
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcome) {
	if p == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncDocumentResult(result ResultLabel) {
	if p == nil {
		return
	}
	p.documentResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) SetSubscribers(n int) {
	if p == nil {
		return
	}
	p.subscribers.Set(float64(n))
}

func (p *PrometheusRecorder) IncTrigger(source string) {
	if p == nil {
		return
	}
	p.triggers.WithLabelValues(source).Inc()
}

func (p *PrometheusRecorder) IncBroadcast() {
	if p == nil {
		return
	}
	p.broadcasts.Inc()
}

func (p *PrometheusRecorder) IncSubscriberDropped(reason string) {
	if p == nil {
		return
	}
	p.droppedSubscriber.WithLabelValues(reason).Inc()
}
