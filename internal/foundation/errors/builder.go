package errors

// ErrorBuilder provides a fluent API for creating ClassifiedError instances.
type ErrorBuilder struct {
	category ErrorCategory
	severity ErrorSeverity
	message  string
	cause    error
	context  ErrorContext
}

// NewError creates a new ErrorBuilder with the specified category and message.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{
		category: category,
		severity: SeverityError,
		message:  message,
		context:  make(ErrorContext),
	}
}

// WrapError creates a new ErrorBuilder that wraps an existing error.
func WrapError(err error, category ErrorCategory, message string) *ErrorBuilder {
	return NewError(category, message).WithCause(err)
}

// WithCause sets the underlying error.
func (b *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	b.cause = err
	return b
}

// WithSeverity sets the error severity.
func (b *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	b.severity = severity
	return b
}

// WithContext adds a context key-value pair.
func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.context = b.context.Set(key, value)
	return b
}

// Fatal sets the severity to fatal.
func (b *ErrorBuilder) Fatal() *ErrorBuilder {
	return b.WithSeverity(SeverityFatal)
}

// Warning sets the severity to warning.
func (b *ErrorBuilder) Warning() *ErrorBuilder {
	return b.WithSeverity(SeverityWarning)
}

// Build creates the final ClassifiedError.
func (b *ErrorBuilder) Build() *ClassifiedError {
	return &ClassifiedError{
		category: b.category,
		severity: b.severity,
		message:  b.message,
		cause:    b.cause,
		context:  b.context,
	}
}

// Convenience constructors for the error taxonomy.

// ConfigError creates a configuration error.
func ConfigError(message string) *ErrorBuilder {
	return NewError(CategoryConfig, message).Fatal()
}

// ValidationError creates a validation error.
func ValidationError(message string) *ErrorBuilder {
	return NewError(CategoryValidation, message).Fatal()
}

// MalformedFrontmatter reports a missing delimiter, unparsable metadata or a missing field.
func MalformedFrontmatter(message string) *ErrorBuilder {
	return NewError(CategoryFrontmatter, message)
}

// InvalidDate reports a date that does not match the configured input pattern.
func InvalidDate(message string) *ErrorBuilder {
	return NewError(CategoryDate, message)
}

// TemplateNotFound reports a reference to an unknown template.
func TemplateNotFound(name string) *ErrorBuilder {
	return NewError(CategoryTemplate, "template not found").WithContext("template", name)
}

// UnsupportedHighlightLanguage reports a code fence language the highlighter cannot handle.
func UnsupportedHighlightLanguage(language string) *ErrorBuilder {
	return NewError(CategoryHighlight, "unsupported highlight language: "+language).WithContext("language", language)
}

// FileSystemError creates a filesystem error.
func FileSystemError(message string) *ErrorBuilder {
	return NewError(CategoryFileSystem, message)
}

// BuildError creates a build processing error.
func BuildError(message string) *ErrorBuilder {
	return NewError(CategoryBuild, message)
}

// SubscriberWriteFailure reports a refresh subscriber that could not be written to.
func SubscriberWriteFailure(id string) *ErrorBuilder {
	return NewError(CategorySubscriber, "subscriber write failed").WithContext("subscriber_id", id).Warning()
}

// ServerUnreachable reports a refresh server the trigger client could not contact.
func ServerUnreachable(addr string) *ErrorBuilder {
	return NewError(CategoryUnreachable, "refresh server unreachable").WithContext("addr", addr)
}

// InternalError creates an internal error.
func InternalError(message string) *ErrorBuilder {
	return NewError(CategoryInternal, message).Fatal()
}
