package commands

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"git.home.luguber.info/inful/docxref/internal/report"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen, color.Bold)
)

// printSummary writes the report diagnostics followed by a one-line summary.
func printSummary(w io.Writer, rep *report.BuildReport) {
	for _, is := range rep.Issues {
		c := infoColor
		switch is.Severity {
		case report.SeverityError:
			c = errorColor
		case report.SeverityWarning:
			c = warningColor
		case report.SeverityInfo:
		}
		loc := is.File
		if loc != "" && is.Line > 0 {
			loc = fmt.Sprintf("%s:%d", loc, is.Line)
		}
		if loc != "" {
			loc += ": "
		}
		_, _ = c.Fprintf(w, "%-7s %s", is.Severity, is.Code)
		_, _ = fmt.Fprintf(w, " %s%s\n", loc, is.Message)
	}

	c := successColor
	switch rep.Outcome {
	case report.OutcomeWarning:
		c = warningColor
	case report.OutcomeFailed, report.OutcomeCanceled:
		c = errorColor
	case report.OutcomeSuccess:
	}
	_, _ = c.Fprintln(w, rep.Summary())
}
