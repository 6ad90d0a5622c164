// Package metrics provides Prometheus metrics for the movie ranking app.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the app exports. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	UpstreamRequests *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	Reranks          prometheus.Counter
	RankedMovies     prometheus.Gauge
	MovieChanges     *prometheus.CounterVec
	registry         *prometheus.Registry
}

// New creates the collectors and registers them with registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		registry: registry,
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tmdb_requests_total",
			Help: "Total number of TMDB lookups by operation and outcome.",
		}, []string{"op", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tmdb_request_duration_seconds",
			Help:    "Duration of TMDB requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"op"}),
		Reranks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "movie_rerank_total",
			Help: "Total number of ranking recalculations.",
		}),
		RankedMovies: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "movie_ranked_count",
			Help: "Number of movies in the last ranking recalculation.",
		}),
		MovieChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "movie_changes_total",
			Help: "Total number of movie mutations by kind.",
		}, []string{"kind"}),
	}

	for _, c := range []prometheus.Collector{
		m.UpstreamRequests, m.UpstreamDuration, m.Reranks, m.RankedMovies, m.MovieChanges,
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return m, nil
}

// ObserveUpstream records one TMDB call. Cache hits count but carry no
// duration.
func (m *Metrics) ObserveUpstream(op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(op, outcome).Inc()
	if outcome != "cache_hit" {
		m.UpstreamDuration.WithLabelValues(op).Observe(d.Seconds())
	}
}

// RecordRerank records a ranking recalculation over n movies.
func (m *Metrics) RecordRerank(n int) {
	if m == nil {
		return
	}
	m.Reranks.Inc()
	m.RankedMovies.Set(float64(n))
}

// RecordChange counts a create, update or delete.
func (m *Metrics) RecordChange(kind string) {
	if m == nil {
		return
	}
	m.MovieChanges.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
