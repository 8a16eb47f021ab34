package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "docxref"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration   *prom.HistogramVec
	buildDuration   prom.Histogram
	stageResults    *prom.CounterVec
	buildOutcome    *prom.CounterVec
	xrefResolutions *prom.CounterVec
	xrefCacheHits   prom.Counter
	uidConflicts    prom.Counter
	extractResults  *prom.CounterVec
	registrySize    prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		xrefResolutions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "xref_resolutions_total",
			Help:      "Xref resolutions by answering source",
		}, []string{"source"}),
		xrefCacheHits: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "xref_cache_hits_total",
			Help:      "Xref resolutions answered from the resolver cache",
		}),
		uidConflicts: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "uid_conflicts_total",
			Help:      "Uids dropped because of conflicting definitions",
		}),
		extractResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "extract_results_total",
			Help:      "Per-file extraction results",
		}, []string{"result"}),
		registrySize: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_uids",
			Help:      "Number of uids in the last frozen registry",
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.stageResults, pr.buildOutcome,
		pr.xrefResolutions, pr.xrefCacheHits, pr.uidConflicts, pr.extractResults, pr.registrySize)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}
func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}
func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}
func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncXrefResolution(source XrefSource) {
	if p == nil || p.xrefResolutions == nil {
		return
	}
	p.xrefResolutions.WithLabelValues(string(source)).Inc()
}

func (p *PrometheusRecorder) IncXrefCacheHit() {
	if p == nil || p.xrefCacheHits == nil {
		return
	}
	p.xrefCacheHits.Inc()
}

func (p *PrometheusRecorder) IncUIDConflict() {
	if p == nil || p.uidConflicts == nil {
		return
	}
	p.uidConflicts.Inc()
}

func (p *PrometheusRecorder) IncExtractResult(success bool) {
	if p == nil || p.extractResults == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.extractResults.WithLabelValues(res).Inc()
}

func (p *PrometheusRecorder) SetRegistrySize(uids int) {
	if p == nil || p.registrySize == nil {
		return
	}
	p.registrySize.Set(float64(uids))
}
