// Package metrics provides observability hooks for docxref builds.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no nil checks are needed at call sites:
//
//	recorder := metrics.OrNoop(opts.Recorder)
//	recorder.IncXrefResolution(metrics.XrefInternal)
//
// PrometheusRecorder is activated by the build and serve commands when
// metrics are enabled in configuration; HTTPHandler exposes its registry.
package metrics
