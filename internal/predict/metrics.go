package predict

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KI7MT/ki7mt-hfprop/internal/raytrace"
)

// Metrics bundles the engine's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	Solutions    *prometheus.CounterVec // by status and reason
	PointLatency prometheus.Histogram
	CacheLookups *prometheus.CounterVec // by result: hit, miss
}

// NewMetrics registers the engine metrics against reg, defaulting to the
// global registry when nil. Registering twice returns the existing collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	solutions, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hfprop_solutions_total",
		Help: "Band solutions computed, labeled by status and no-mode reason.",
	}, []string{"status", "reason"}), "hfprop_solutions_total")
	if err != nil {
		return nil, err
	}

	latency, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hfprop_point_duration_seconds",
		Help:    "Time to predict one circuit across all requested bands.",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
	}), "hfprop_point_duration_seconds")
	if err != nil {
		return nil, err
	}

	lookups, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hfprop_profile_cache_lookups_total",
		Help: "Control point profile cache lookups, labeled by result.",
	}, []string{"result"}), "hfprop_profile_cache_lookups_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		gatherer:     gatherer,
		Solutions:    solutions,
		PointLatency: latency,
		CacheLookups: lookups,
	}, nil
}

// Handler exposes a /metrics handler for the registry the metrics live in.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) observeSolution(sol *raytrace.Solution) {
	if m == nil || sol == nil {
		return
	}
	m.Solutions.WithLabelValues(sol.Status.String(), sol.Reason.String()).Inc()
}

func (m *Metrics) observePoint(d time.Duration) {
	if m == nil {
		return
	}
	m.PointLatency.Observe(d.Seconds())
}

func (m *Metrics) observeCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}
