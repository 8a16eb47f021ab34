package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StageName is a strongly-typed identifier for a build stage.
type StageName string

// Canonical stage names.
const (
	StageDiscover     StageName = "discover"
	StageExtract      StageName = "extract"
	StageRegistry     StageName = "registry"
	StageExternalMaps StageName = "external_maps"
	StageToc          StageName = "toc"
	StageRender       StageName = "render"
	StageWrite        StageName = "write"
)

// Outcome is the typed enumeration of final build result states.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeWarning  Outcome = "warning"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// BuildReport captures high-level results of a build run.
type BuildReport struct {
	SchemaVersion  int                         `json:"schema_version"`
	BuildID        string                      `json:"build_id"`
	Commit         string                      `json:"commit,omitempty"`
	Start          time.Time                   `json:"start"`
	End            time.Time                   `json:"end"`
	Files          int                         `json:"files"`
	Records        int                         `json:"records"`
	DroppedUIDs    int                         `json:"dropped_uids"`
	ExternalUIDs   int                         `json:"external_uids"`
	Tocs           int                         `json:"tocs"`
	RenderedPages  int                         `json:"rendered_pages"`
	StageDurations map[StageName]time.Duration `json:"stage_durations"`
	Issues         []Issue                     `json:"issues"`
	Fatal          string                      `json:"fatal,omitempty"`
	Outcome        Outcome                     `json:"outcome"`
}

// New constructs a report for the given build id.
func New(buildID string) *BuildReport {
	return &BuildReport{
		SchemaVersion:  1,
		BuildID:        buildID,
		Start:          time.Now(),
		StageDurations: make(map[StageName]time.Duration),
		Issues:         []Issue{},
	}
}

// RecordStage stores the duration of a completed stage.
func (r *BuildReport) RecordStage(stage StageName, d time.Duration) {
	r.StageDurations[stage] = d
}

// Fail records a fatal error.
func (r *BuildReport) Fail(err error) {
	if err != nil {
		r.Fatal = err.Error()
	}
}

// Finish sets the end time and derives the outcome.
func (r *BuildReport) Finish() {
	r.End = time.Now()
	SortIssues(r.Issues)
	r.DeriveOutcome()
}

// DeriveOutcome sets Outcome from the fatal error and collected issues.
func (r *BuildReport) DeriveOutcome() {
	if r.Fatal != "" {
		r.Outcome = OutcomeFailed
		return
	}
	for _, is := range r.Issues {
		if is.Severity == SeverityError || is.Severity == SeverityWarning {
			r.Outcome = OutcomeWarning
			return
		}
	}
	r.Outcome = OutcomeSuccess
}

// Counts returns the number of error and warning issues.
func (r *BuildReport) Counts() (errs, warnings int) {
	for _, is := range r.Issues {
		switch is.Severity {
		case SeverityError:
			errs++
		case SeverityWarning:
			warnings++
		case SeverityInfo:
		}
	}
	return errs, warnings
}

// Summary returns a human-readable single-line summary.
func (r *BuildReport) Summary() string {
	errs, warnings := r.Counts()
	dur := r.End.Sub(r.Start)
	return fmt.Sprintf("files=%d records=%d dropped=%d tocs=%d rendered=%d duration=%s errors=%d warnings=%d outcome=%s",
		r.Files, r.Records, r.DroppedUIDs, r.Tocs, r.RenderedPages, dur.Truncate(time.Millisecond), errs, warnings, r.Outcome)
}

// Persist writes build-report.json and build-report.txt atomically into root.
func (r *BuildReport) Persist(root string) error {
	if r.End.IsZero() {
		r.Finish()
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return fmt.Errorf("ensure root for report: %w", err)
	}
	jb, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	if err := writeAtomic(filepath.Join(root, "build-report.json"), jb); err != nil {
		return err
	}
	return writeAtomic(filepath.Join(root, "build-report.txt"), []byte(r.Summary()+"\n"))
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("atomic rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
