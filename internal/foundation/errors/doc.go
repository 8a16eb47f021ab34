// Package errors provides the classified error primitives used across docxref.
//
// Errors carry a category (config, xref, toc, xrefmap, ...), a severity and
// structured context. Build stages recover most of them at file or uid
// granularity and surface them as report issues; only fatal errors abort a
// build.
//
// Example usage:
//
//	err := errors.NewError(errors.CategoryXrefMap, "xref map is not valid JSON").
//		Fatal().
//		WithContext("source", src).
//		WithCause(parseErr).
//		Build()
package errors
