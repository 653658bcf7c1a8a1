package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns the service's Prometheus collectors. A nil *Registry is valid
// and records nothing.
type Registry struct {
	reg               *prometheus.Registry
	OrdersCommitted   prometheus.Counter
	OrdersPartial     prometheus.Counter
	OrdersRecovered   prometheus.Counter
	OrdersAbandoned   prometheus.Counter
	CatalogFallbacks  *prometheus.CounterVec
	SequenceFallbacks prometheus.Counter
	DialogEvents      *prometheus.CounterVec
	CommitLatencySec  prometheus.Histogram
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	committed := prometheus.NewCounter(prometheus.CounterOpts{Name: "orderbot_orders_committed_total"})
	partial := prometheus.NewCounter(prometheus.CounterOpts{Name: "orderbot_orders_partial_total"})
	recovered := prometheus.NewCounter(prometheus.CounterOpts{Name: "orderbot_orders_recovered_total"})
	abandoned := prometheus.NewCounter(prometheus.CounterOpts{Name: "orderbot_orders_abandoned_total"})
	fallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "orderbot_catalog_fallbacks_total"}, []string{"entity"})
	seqFallbacks := prometheus.NewCounter(prometheus.CounterOpts{Name: "orderbot_sequence_fallbacks_total"})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "orderbot_dialog_events_total"}, []string{"kind"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orderbot_commit_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(committed, partial, recovered, abandoned, fallbacks, seqFallbacks, events, latency)
	return &Registry{
		reg:               r,
		OrdersCommitted:   committed,
		OrdersPartial:     partial,
		OrdersRecovered:   recovered,
		OrdersAbandoned:   abandoned,
		CatalogFallbacks:  fallbacks,
		SequenceFallbacks: seqFallbacks,
		DialogEvents:      events,
		CommitLatencySec:  latency,
	}
}

func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

func (r *Registry) CommitSucceeded(seconds float64) {
	if r == nil {
		return
	}
	r.OrdersCommitted.Inc()
	r.CommitLatencySec.Observe(seconds)
}

func (r *Registry) CommitPartial() {
	if r != nil {
		r.OrdersPartial.Inc()
	}
}

func (r *Registry) CommitRecovered() {
	if r != nil {
		r.OrdersRecovered.Inc()
	}
}

func (r *Registry) CommitAbandoned() {
	if r != nil {
		r.OrdersAbandoned.Inc()
	}
}

func (r *Registry) CatalogFallback(entity string) {
	if r != nil {
		r.CatalogFallbacks.WithLabelValues(entity).Inc()
	}
}

func (r *Registry) SequenceFallback() {
	if r != nil {
		r.SequenceFallbacks.Inc()
	}
}

func (r *Registry) DialogEvent(kind string) {
	if r != nil {
		r.DialogEvents.WithLabelValues(kind).Inc()
	}
}
