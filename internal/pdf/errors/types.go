package errors

import (
	"fmt"
	"strings"
)

// FormError describes a failure in the field model, the interchange codec or
// form synthesis, with enough context to report it per field or per entry.
type FormError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Context    string    `json:"context,omitempty"`
	FieldID    string    `json:"field_id,omitempty"`
	FieldName  string    `json:"field_name,omitempty"`
	Index      int       `json:"index,omitempty"`
	PageNumber int       `json:"page_number,omitempty"`
	Cause      error     `json:"-"`
}

// ErrorType represents the categories of form errors
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeInvalidField
	ErrorTypeUnknownFieldKind
	ErrorTypeInvalidDocument
	ErrorTypeOutOfRange
	ErrorTypeFieldNotFound
	ErrorTypeNoFields
	ErrorTypeSessionNotFound
)

// ErrorSeverity indicates how an error affects the enclosing operation
type ErrorSeverity int

const (
	SeverityWarning ErrorSeverity = iota
	SeverityError
	SeverityFatal
)

// Sentinels for errors.Is. Matching is by Type only.
var (
	ErrInvalidField     = &FormError{Type: ErrorTypeInvalidField, Message: "invalid field"}
	ErrUnknownFieldKind = &FormError{Type: ErrorTypeUnknownFieldKind, Message: "unknown field kind"}
	ErrInvalidDocument  = &FormError{Type: ErrorTypeInvalidDocument, Message: "invalid document"}
	ErrOutOfRange       = &FormError{Type: ErrorTypeOutOfRange, Message: "out of range"}
	ErrFieldNotFound    = &FormError{Type: ErrorTypeFieldNotFound, Message: "field not found"}
	ErrNoFields         = &FormError{Type: ErrorTypeNoFields, Message: "no fields to synthesize"}
	ErrSessionNotFound  = &FormError{Type: ErrorTypeSessionNotFound, Message: "session not found"}
)

// Error implements the error interface
func (e *FormError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Type.String(), e.Message)
	if e.Context != "" {
		fmt.Fprintf(&b, ": %s", e.Context)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Is reports whether target is a FormError of the same type
func (e *FormError) Is(target error) bool {
	t, ok := target.(*FormError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// Unwrap returns the underlying cause
func (e *FormError) Unwrap() error {
	return e.Cause
}

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeInvalidField:
		return "INVALID_FIELD"
	case ErrorTypeUnknownFieldKind:
		return "UNKNOWN_FIELD_KIND"
	case ErrorTypeInvalidDocument:
		return "INVALID_DOCUMENT"
	case ErrorTypeOutOfRange:
		return "OUT_OF_RANGE"
	case ErrorTypeFieldNotFound:
		return "FIELD_NOT_FOUND"
	case ErrorTypeNoFields:
		return "NO_FIELDS"
	case ErrorTypeSessionNotFound:
		return "SESSION_NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

// GetSeverity returns the severity level for a given error type
func (et ErrorType) GetSeverity() ErrorSeverity {
	switch et {
	case ErrorTypeInvalidDocument:
		return SeverityFatal
	default:
		return SeverityError
	}
}

// New creates a FormError of the given type
func New(errorType ErrorType, message string) *FormError {
	return &FormError{Type: errorType, Message: message}
}

// Newf creates a FormError with a formatted message
func Newf(errorType ErrorType, format string, args ...interface{}) *FormError {
	return &FormError{Type: errorType, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err as a FormError of the given type
func Wrap(errorType ErrorType, message string, err error) *FormError {
	return &FormError{Type: errorType, Message: message, Cause: err}
}

// WithContext adds context to an existing FormError
func (e *FormError) WithContext(context string) *FormError {
	e.Context = context
	return e
}

// WithField records the field the error refers to
func (e *FormError) WithField(id, name string) *FormError {
	e.FieldID = id
	e.FieldName = name
	return e
}

// WithIndex records the position of the offending entry in its batch
func (e *FormError) WithIndex(index int) *FormError {
	e.Index = index
	return e
}

// WithPage adds page number information to an existing FormError
func (e *FormError) WithPage(pageNumber int) *FormError {
	e.PageNumber = pageNumber
	return e
}

// GetSeverity returns the severity of this specific error
func (e *FormError) GetSeverity() ErrorSeverity {
	return e.Type.GetSeverity()
}

// ErrorCollection gathers per-entry errors and warnings for batch operations
type ErrorCollection struct {
	Errors   []*FormError `json:"errors"`
	Warnings []*FormError `json:"warnings"`
}

// NewErrorCollection creates a new error collection
func NewErrorCollection() *ErrorCollection {
	return &ErrorCollection{
		Errors:   make([]*FormError, 0),
		Warnings: make([]*FormError, 0),
	}
}

// Add records an error
func (ec *ErrorCollection) Add(err *FormError) {
	ec.Errors = append(ec.Errors, err)
}

// Warn records a warning
func (ec *ErrorCollection) Warn(err *FormError) {
	ec.Warnings = append(ec.Warnings, err)
}

// Count returns the total number of errors and warnings
func (ec *ErrorCollection) Count() (errors, warnings int) {
	return len(ec.Errors), len(ec.Warnings)
}

// Summary returns a text summary of all errors and warnings
func (ec *ErrorCollection) Summary() string {
	errorCount, warningCount := ec.Count()
	if errorCount == 0 && warningCount == 0 {
		return "No errors or warnings"
	}
	return fmt.Sprintf("Found %d error(s) and %d warning(s)", errorCount, warningCount)
}

// AsFormError extracts a *FormError from err, or wraps err as an unknown
// FormError when it carries none.
func AsFormError(err error) *FormError {
	if err == nil {
		return nil
	}
	for e := err; e != nil; {
		if fe, ok := e.(*FormError); ok {
			return fe
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return &FormError{Type: ErrorTypeUnknown, Message: err.Error()}
}
