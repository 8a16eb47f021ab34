package extract

import (
	"fmt"

	"git.home.luguber.info/inful/docxref/internal/report"
)

// FileError is a per-file extraction failure. The file contributes no records.
type FileError struct {
	Code report.IssueCode
	File string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// IssueCode reports the diagnostic code the failure maps to.
func (e *FileError) IssueCode() report.IssueCode { return e.Code }
