package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "texbuilder"

// PrometheusRecorder forwards build metrics to a Prometheus registry.
type PrometheusRecorder struct {
	runDuration      prom.Histogram
	rootDuration     *prom.HistogramVec
	runOutcomes      *prom.CounterVec
	rootResults      *prom.CounterVec
	resolvedRoots    prom.Gauge
	artifactsEvicted prom.Counter
}

// NewPrometheusRecorder creates a recorder registered on reg. Root label
// cardinality is bounded by the number of top-level documents in the
// corpus, so per-root histograms are safe.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	r := &PrometheusRecorder{
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of complete build runs",
			Buckets:   prom.ExponentialBuckets(0.5, 2, 12),
		}),
		rootDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "root_duration_seconds",
			Help:      "Wall time of single document compilations",
			Buckets:   prom.ExponentialBuckets(0.5, 2, 10),
		}, []string{"root", "success"}),
		runOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Build runs by outcome",
		}, []string{"outcome"}),
		rootResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "roots_total",
			Help:      "Document compilations by result",
		}, []string{"result"}),
		resolvedRoots: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "resolved_roots",
			Help:      "Roots selected for rebuild by the most recent run",
		}),
		artifactsEvicted: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_evicted_total",
			Help:      "Artifacts deleted by retention",
		}),
	}
	reg.MustRegister(
		r.runDuration, r.rootDuration, r.runOutcomes,
		r.rootResults, r.resolvedRoots, r.artifactsEvicted,
	)
	return r
}

func (r *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	r.runDuration.Observe(d.Seconds())
}

func (r *PrometheusRecorder) ObserveRootDuration(root string, d time.Duration, success bool) {
	r.rootDuration.WithLabelValues(root, boolLabel(success)).Observe(d.Seconds())
}

func (r *PrometheusRecorder) IncRunOutcome(outcome string) {
	r.runOutcomes.WithLabelValues(outcome).Inc()
}

func (r *PrometheusRecorder) IncRootResult(success bool) {
	if success {
		r.rootResults.WithLabelValues("success").Inc()
		return
	}
	r.rootResults.WithLabelValues("failed").Inc()
}

func (r *PrometheusRecorder) SetResolvedRoots(n int) {
	r.resolvedRoots.Set(float64(n))
}

func (r *PrometheusRecorder) AddArtifactsEvicted(n int) {
	r.artifactsEvicted.Add(float64(n))
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
