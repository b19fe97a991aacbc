package metrics

import (
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "calendar"

// Prometheus implements Sink with client_golang collectors.
// Registration failures are logged and the collector keeps working unregistered.
type Prometheus struct {
	mutationsTotal      *prometheus.CounterVec
	splitsTotal         prometheus.Counter
	expansionsTotal     *prometheus.CounterVec
	occurrencesReturned prometheus.Histogram
	expansionDuration   prometheus.Histogram
	unmatchedTotal      *prometheus.CounterVec
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	rateLimitedTotal    prometheus.Counter

	logger *slog.Logger
}

// NewPrometheus creates the collectors and registers them with reg.
func NewPrometheus(reg prometheus.Registerer, logger *slog.Logger) *Prometheus {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Prometheus{logger: logger}
	s.initMutationMetrics(reg)
	s.initExpansionMetrics(reg)
	s.initHTTPMetrics(reg)
	return s
}

func (s *Prometheus) initMutationMetrics(reg prometheus.Registerer) {
	s.mutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mutations_total",
		Help:      "Event mutations by operation, scope and result.",
	}, []string{"op", "scope", "result"})
	s.splitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "series_splits_total",
		Help:      "Series split into a truncated original and a new segment.",
	})

	s.register(reg, s.mutationsTotal, "mutations_total")
	s.register(reg, s.splitsTotal, "series_splits_total")
}

func (s *Prometheus) initExpansionMetrics(reg prometheus.Registerer) {
	s.expansionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "expansions_total",
		Help:      "Range expansions, labelled by whether the occurrence cap was hit.",
	}, []string{"truncated"})
	s.occurrencesReturned = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "expansion_occurrences",
		Help:      "Occurrences returned per range expansion.",
		Buckets:   []float64{0, 1, 10, 50, 100, 500, 1000, 5000},
	})
	s.expansionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "expansion_duration_seconds",
		Help:      "Time spent expanding a user's events over a range.",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})
	s.unmatchedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unmatched_occurrence_dates_total",
		Help:      "occurrenceDate values that matched no generated anchor.",
	}, []string{"op"})

	s.register(reg, s.expansionsTotal, "expansions_total")
	s.register(reg, s.occurrencesReturned, "expansion_occurrences")
	s.register(reg, s.expansionDuration, "expansion_duration_seconds")
	s.register(reg, s.unmatchedTotal, "unmatched_occurrence_dates_total")
}

func (s *Prometheus) initHTTPMetrics(reg prometheus.Registerer) {
	s.requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status class.",
	}, []string{"method", "route", "status_class"})
	s.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
	s.rateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	})

	s.register(reg, s.requestsTotal, "http_requests_total")
	s.register(reg, s.requestDuration, "http_request_duration_seconds")
	s.register(reg, s.rateLimitedTotal, "http_rate_limited_total")
}

func (s *Prometheus) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if reg == nil {
		return
	}
	if err := reg.Register(c); err != nil {
		s.logger.Warn("failed to register metric", "name", namespace+"_"+name, "error", err)
	}
}

func (s *Prometheus) MutationCompleted(op, scope string, err error) {
	s.mutationsTotal.WithLabelValues(op, scope, resultLabel(err)).Inc()
}

func (s *Prometheus) SeriesSplit() {
	s.splitsTotal.Inc()
}

func (s *Prometheus) ExpansionCompleted(occurrences int, truncated bool, duration time.Duration) {
	label := "false"
	if truncated {
		label = "true"
	}
	s.expansionsTotal.WithLabelValues(label).Inc()
	s.occurrencesReturned.Observe(float64(occurrences))
	s.expansionDuration.Observe(duration.Seconds())
}

func (s *Prometheus) UnmatchedOccurrenceDate(op string) {
	s.unmatchedTotal.WithLabelValues(op).Inc()
}

func (s *Prometheus) RequestCompleted(method, route string, status int, duration time.Duration) {
	s.requestsTotal.WithLabelValues(method, route, StatusClass(status)).Inc()
	s.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (s *Prometheus) RateLimited() {
	s.rateLimitedTotal.Inc()
}
