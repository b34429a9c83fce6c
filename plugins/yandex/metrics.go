package yandex

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "yandex"

// Metrics records API and stream acquisition outcomes. A nil *Metrics is valid and records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	sources  *prometheus.CounterVec
}

// NewMetrics creates the connector collectors and registers them on reg.
// Collectors already registered by another connector instance are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "api_requests_total",
			Help:      "API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "api_request_duration_seconds",
			Help:      "API request latency by endpoint.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		sources: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "stream_source_total",
			Help:      "Stream link acquisitions by source and outcome.",
		}, []string{"source", "outcome"}),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	if m.requests, err = register(reg, m.requests); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	if m.sources, err = register(reg, m.sources); err != nil {
		return nil, err
	}
	return m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) observeRequest(endpoint, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(endpoint, outcome).Inc()
	m.duration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func (m *Metrics) observeSource(source, outcome string) {
	if m == nil {
		return
	}
	m.sources.WithLabelValues(source, outcome).Inc()
}

// outcome labels an error for metrics.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var (
		challenge *ChallengeError
		notFound  *NotFoundError
		badSign   *BadSignatureError
		apiErr    *APIError
		restrict  *RegionRestrictedError
	)
	switch {
	case errors.As(err, &challenge):
		return "challenge"
	case errors.As(err, &badSign):
		return "bad_signature"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &restrict):
		return "restricted"
	case errors.As(err, &apiErr):
		return "api_error"
	default:
		return "bad_response"
	}
}
