// Package metrics exposes Prometheus instrumentation for sign-in, access
// decisions and profile storage.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	obserrors "github.com/Chavhanmoin/CrackBatu/internal/observability/errors"
)

const namespace = "portal"

// Result constants for metric labels.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Recorder holds the portal's collectors. A nil *Recorder is valid and
// records nothing, so components can take one optionally.
type Recorder struct {
	signIns        *prometheus.CounterVec
	gateDecisions  *prometheus.CounterVec
	storeFailures  *prometheus.CounterVec
	profileReads   *prometheus.HistogramVec
	profileUpserts *prometheus.CounterVec
	subscriptions  prometheus.Gauge
	sessionEvents  *prometheus.CounterVec
	gatherer       prometheus.Gatherer
}

// New registers the collectors with reg. Pass prometheus.NewRegistry() in
// tests to keep registrations isolated.
func New(reg *prometheus.Registry) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		gatherer: reg,
		signIns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sign_ins_total",
			Help:      "Sign-in attempts by method, audience and result.",
		}, []string{"method", "audience", "result"}),
		gateDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Page access decisions by capability, outcome and reason.",
		}, []string{"capability", "outcome", "reason"}),
		storeFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_store_failures_total",
			Help:      "Profile store failures by operation and error class.",
		}, []string{"operation", "error_class"}),
		profileReads: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "profile_read_duration_seconds",
			Help:      "Latency of profile reads issued by the session resolver.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
		profileUpserts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_upserts_total",
			Help:      "Profile upserts by path (create or merge) and result.",
		}, []string{"path", "result"}),
		subscriptions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_subscriptions",
			Help:      "Open session context subscriptions.",
		}),
		sessionEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session change notifications published by kind.",
		}, []string{"kind"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

func (r *Recorder) SignIn(method, audience, result string) {
	if r == nil {
		return
	}
	r.signIns.WithLabelValues(method, audience, result).Inc()
}

func (r *Recorder) GateDecision(capability, outcome, reason string) {
	if r == nil {
		return
	}
	r.gateDecisions.WithLabelValues(capability, outcome, reason).Inc()
}

// StoreFailure counts a profile store error, labelled by its innermost type.
func (r *Recorder) StoreFailure(operation string, err error) {
	if r == nil || err == nil {
		return
	}
	r.storeFailures.WithLabelValues(operation, obserrors.Classify(err)).Inc()
}

func (r *Recorder) ProfileRead(d time.Duration, result string) {
	if r == nil {
		return
	}
	r.profileReads.WithLabelValues(result).Observe(d.Seconds())
}

func (r *Recorder) ProfileUpsert(path, result string) {
	if r == nil {
		return
	}
	r.profileUpserts.WithLabelValues(path, result).Inc()
}

func (r *Recorder) SubscriptionOpened() {
	if r == nil {
		return
	}
	r.subscriptions.Inc()
}

func (r *Recorder) SubscriptionClosed() {
	if r == nil {
		return
	}
	r.subscriptions.Dec()
}

func (r *Recorder) SessionEvent(kind string) {
	if r == nil {
		return
	}
	r.sessionEvents.WithLabelValues(kind).Inc()
}
