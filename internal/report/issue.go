package report

import (
	"cmp"
	"slices"
	"sync"
)

// IssueCode enumerates machine-parseable issue identifiers.
// These codes are a stable contract and should only be appended (no reuse on removal).
type IssueCode string

const (
	IssueUIDConflict       IssueCode = "UID_CONFLICT"
	IssueXrefNotFound      IssueCode = "XREF_NOT_FOUND"
	IssueCircularReference IssueCode = "CIRCULAR_REFERENCE"
	IssueSchemaNotFound    IssueCode = "SCHEMA_NOT_FOUND"
	IssueSchemaParse       IssueCode = "SCHEMA_PARSE"
	IssueInvalidTocHref    IssueCode = "INVALID_TOC_HREF"
	IssueDeprecatedField   IssueCode = "DEPRECATED_FIELD"
	IssueTocNotFound       IssueCode = "TOC_NOT_FOUND"
	IssueExtractFailure    IssueCode = "EXTRACT_FAILURE"
	IssuePropertyEval      IssueCode = "PROPERTY_EVALUATION"
)

// Severity represents normalized severity levels.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is a structured diagnostic attributed to a source file.
type Issue struct {
	Code     IssueCode `json:"code"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	File     string    `json:"file,omitempty"`
	Line     int       `json:"line,omitempty"`
	// Files lists every contributing file when more than one is involved.
	Files []string `json:"files,omitempty"`
}

// Collector gathers issues from concurrent build tasks.
type Collector struct {
	mu     sync.Mutex
	issues []Issue
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add appends issues.
func (c *Collector) Add(issues ...Issue) {
	if len(issues) == 0 {
		return
	}
	c.mu.Lock()
	c.issues = append(c.issues, issues...)
	c.mu.Unlock()
}

// Issues returns the collected issues ordered by file, line and code.
func (c *Collector) Issues() []Issue {
	c.mu.Lock()
	out := slices.Clone(c.issues)
	c.mu.Unlock()
	SortIssues(out)
	return out
}

// Count returns the number of collected issues with the given severity.
func (c *Collector) Count(severity Severity) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, is := range c.issues {
		if is.Severity == severity {
			n++
		}
	}
	return n
}

// SortIssues orders issues deterministically.
func SortIssues(issues []Issue) {
	slices.SortStableFunc(issues, func(a, b Issue) int {
		return cmp.Or(
			cmp.Compare(a.File, b.File),
			cmp.Compare(a.Line, b.Line),
			cmp.Compare(a.Code, b.Code),
			cmp.Compare(a.Message, b.Message),
		)
	})
}
