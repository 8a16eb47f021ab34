package errors

// ErrorBuilder assembles a ClassifiedError.
type ErrorBuilder struct {
	err ClassifiedError
}

// NewError starts an error of the given category with severity error.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{err: ClassifiedError{
		category: category,
		severity: SeverityError,
		retry:    RetryNever,
		message:  message,
		context:  make(ErrorContext),
	}}
}

// WrapError starts an error that wraps err.
func WrapError(err error, category ErrorCategory, message string) *ErrorBuilder {
	return NewError(category, message).WithCause(err)
}

func (b *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	b.err.severity = severity
	return b
}

func (b *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	b.err.cause = err
	return b
}

func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.err.context = b.err.context.Set(key, value)
	return b
}

// ForUID records the uid the error is about.
func (b *ErrorBuilder) ForUID(uid string) *ErrorBuilder {
	return b.WithContext(ContextUID, uid)
}

// At records the source location. A line of 0 is left out.
func (b *ErrorBuilder) At(file string, line int) *ErrorBuilder {
	if file != "" {
		b.WithContext(ContextFile, file)
	}
	if line > 0 {
		b.WithContext(ContextLine, line)
	}
	return b
}

func (b *ErrorBuilder) Fatal() *ErrorBuilder   { return b.WithSeverity(SeverityFatal) }
func (b *ErrorBuilder) Warning() *ErrorBuilder { return b.WithSeverity(SeverityWarning) }

// Retryable marks the error as transient.
func (b *ErrorBuilder) Retryable() *ErrorBuilder {
	b.err.retry = RetryBackoff
	return b
}

// UserAction marks the error as fixable only by the user.
func (b *ErrorBuilder) UserAction() *ErrorBuilder {
	b.err.retry = RetryUserAction
	return b
}

// Build returns the error. The builder can keep being used; later changes do
// not affect errors already built.
func (b *ErrorBuilder) Build() *ClassifiedError {
	out := b.err
	out.context = make(ErrorContext, len(b.err.context)).Merge(b.err.context)
	return &out
}

func ConfigError(message string) *ErrorBuilder {
	return NewError(CategoryConfig, message).Fatal().UserAction()
}

func ValidationError(message string) *ErrorBuilder {
	return NewError(CategoryValidation, message).Fatal().UserAction()
}

func NetworkError(message string) *ErrorBuilder {
	return NewError(CategoryNetwork, message).Retryable()
}

func FileSystemError(message string) *ErrorBuilder {
	return NewError(CategoryFileSystem, message)
}

// XrefError is a resolution failure; it degrades output, so it defaults to
// warning.
func XrefError(message string) *ErrorBuilder {
	return NewError(CategoryXref, message).Warning()
}

// XrefMapError is a broken external map; the build cannot continue.
func XrefMapError(message string) *ErrorBuilder {
	return NewError(CategoryXrefMap, message).Fatal()
}

func TocError(message string) *ErrorBuilder {
	return NewError(CategoryToc, message)
}

func SchemaError(message string) *ErrorBuilder {
	return NewError(CategorySchema, message)
}

func BuildError(message string) *ErrorBuilder {
	return NewError(CategoryBuild, message).Fatal()
}

func InternalError(message string) *ErrorBuilder {
	return NewError(CategoryInternal, message).Fatal()
}
