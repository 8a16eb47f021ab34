package errors

import (
	"log/slog"
	"maps"
	"slices"
)

// ErrorCategory groups errors by the part of a build that produced them.
type ErrorCategory string

const (
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryNotFound   ErrorCategory = "not_found"
	CategoryNetwork    ErrorCategory = "network"
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryXref       ErrorCategory = "xref"
	CategoryXrefMap    ErrorCategory = "xrefmap"
	CategoryToc        ErrorCategory = "toc"
	CategorySchema     ErrorCategory = "schema"
	CategoryBuild      ErrorCategory = "build"
	CategoryInternal   ErrorCategory = "internal"
)

// ExitCode is the process exit status for a command failing with an error of
// this category.
func (c ErrorCategory) ExitCode() int {
	switch c {
	case CategoryValidation:
		return 2
	case CategoryConfig:
		return 7
	case CategoryNetwork:
		return 8
	case CategoryXrefMap:
		return 9
	case CategoryInternal:
		return 10
	case CategoryBuild, CategoryFileSystem, CategoryXref, CategoryToc, CategorySchema, CategoryNotFound:
		return 11
	default:
		return 1
	}
}

// ErrorSeverity says how far an error propagates: fatal aborts the build,
// error drops the file or uid, warning degrades output.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"
	SeverityError   ErrorSeverity = "error"
	SeverityWarning ErrorSeverity = "warning"
	SeverityInfo    ErrorSeverity = "info"
)

// Level maps the severity onto a slog level.
func (s ErrorSeverity) Level() slog.Level {
	switch s {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// RetryStrategy indicates whether repeating the operation can help.
type RetryStrategy string

const (
	RetryNever      RetryStrategy = "never"
	RetryBackoff    RetryStrategy = "backoff"
	RetryUserAction RetryStrategy = "user"
)

// Context keys shared by diagnostics.
const (
	ContextUID    = "uid"
	ContextFile   = "file"
	ContextLine   = "line"
	ContextPath   = "path"
	ContextSource = "source"
)

// ErrorContext is structured detail attached to an error.
type ErrorContext map[string]any

// Set adds or updates a value, allocating the map if needed.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = make(ErrorContext)
	}
	c[key] = value
	return c
}

// Get retrieves a value.
func (c ErrorContext) Get(key string) (any, bool) {
	value, ok := c[key]
	return value, ok
}

// GetString retrieves a string value.
func (c ErrorContext) GetString(key string) (string, bool) {
	s, ok := c[key].(string)
	return s, ok
}

// GetStrings retrieves a string slice value.
func (c ErrorContext) GetStrings(key string) ([]string, bool) {
	list, ok := c[key].([]string)
	return list, ok
}

// Merge combines two contexts into a new one; other wins on conflicts.
func (c ErrorContext) Merge(other ErrorContext) ErrorContext {
	if c == nil {
		return other
	}
	if other == nil {
		return c
	}
	result := make(ErrorContext, len(c)+len(other))
	maps.Copy(result, c)
	maps.Copy(result, other)
	return result
}

// Keys returns the context keys in sorted order.
func (c ErrorContext) Keys() []string {
	return slices.Sorted(maps.Keys(c))
}

// Attrs renders the context as slog attributes in key order.
func (c ErrorContext) Attrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, len(c))
	for _, k := range c.Keys() {
		attrs = append(attrs, slog.Any(k, c[k]))
	}
	return attrs
}
