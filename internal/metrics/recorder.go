package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// XrefSource labels where a uid resolution was answered from.
type XrefSource string

const (
	XrefInternal XrefSource = "internal"
	XrefExternal XrefSource = "external"
	XrefNotFound XrefSource = "not_found"
	XrefCycle    XrefSource = "cycle"
)

// Recorder defines observability hooks for build, stage and xref metrics. Implementations
// may forward to Prometheus, OpenTelemetry, etc. All methods must be safe for nil receivers
// when using the NoopRecorder (allowing optional injection).
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncBuildOutcome(outcome string) // outcome: success|warning|failed|canceled
	IncXrefResolution(source XrefSource)
	IncXrefCacheHit()
	IncUIDConflict()
	IncExtractResult(success bool)
	SetRegistrySize(uids int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncBuildOutcome(string)                     {}
func (NoopRecorder) IncXrefResolution(XrefSource)               {}
func (NoopRecorder) IncXrefCacheHit()                           {}
func (NoopRecorder) IncUIDConflict()                            {}
func (NoopRecorder) IncExtractResult(bool)                      {}
func (NoopRecorder) SetRegistrySize(int)                        {}

// OrNoop returns r, or NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
