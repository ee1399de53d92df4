// Package metrics defines the Prometheus collectors the service exports.
//
// All recording methods are safe on a nil *Metrics so components can be
// constructed without metrics in tests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Email kinds and outcomes used as label values.
const (
	KindSealed   = "sealed"
	KindDelivery = "delivery"

	OutcomeSent      = "sent"
	OutcomeFailed    = "failed"
	OutcomeDelivered = "delivered"
	OutcomeSkipped   = "skipped"
)

// Metrics holds every collector. Build it once with New.
type Metrics struct {
	BottlesCreated prometheus.Counter
	EmailsSent     *prometheus.CounterVec
	SweepBottles   *prometheus.CounterVec
	SweepDuration  prometheus.Histogram
	HTTPRequests   *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests;
// main passes prometheus.DefaultRegisterer so Go runtime metrics come along.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{
		BottlesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "bottled_bottles_created_total",
			Help: "Total number of bottles created",
		}),
		EmailsSent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bottled_emails_sent_total",
			Help: "Emails handed to the transport, by kind and outcome",
		}, []string{"kind", "outcome"}),
		SweepBottles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bottled_sweep_bottles_total",
			Help: "Bottles processed by the delivery sweep, by outcome",
		}, []string{"outcome"}),
		SweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bottled_sweep_duration_seconds",
			Help:    "Wall time of one delivery sweep",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bottled_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// Handler serves the registry the metrics were built on.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) BottleCreated() {
	if m == nil {
		return
	}
	m.BottlesCreated.Inc()
}

func (m *Metrics) EmailSent(kind string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSent
	if err != nil {
		outcome = OutcomeFailed
	}
	m.EmailsSent.WithLabelValues(kind, outcome).Inc()
}

// SweepFinished records one sweep's counts and duration.
func (m *Metrics) SweepFinished(delivered, failed, skipped int, took time.Duration) {
	if m == nil {
		return
	}
	m.SweepBottles.WithLabelValues(OutcomeDelivered).Add(float64(delivered))
	m.SweepBottles.WithLabelValues(OutcomeFailed).Add(float64(failed))
	m.SweepBottles.WithLabelValues(OutcomeSkipped).Add(float64(skipped))
	m.SweepDuration.Observe(took.Seconds())
}

// Request counts one HTTP request. route is the chi route pattern, never the
// raw path, to keep label cardinality bounded.
func (m *Metrics) Request(method, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
