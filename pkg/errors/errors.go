// Package errors provides coded errors for archive-level failures.
// Row-level problems never surface here; they are counted by the pipeline.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// Code identifies an error class for programmatic handling and exit codes.
type Code string

const (
	// Archive errors (1xx)
	CodeArchiveRootMissing Code = "E101"
	CodeYearNotFound       Code = "E102"
	CodeNoMonthFolders     Code = "E103"

	// Workbook errors (2xx)
	CodeWorkbookOpen Code = "E201"

	// Output errors (3xx)
	CodeWriteFailed  Code = "E301"
	CodeUploadFailed Code = "E302"

	// System errors (4xx)
	CodeCanceled Code = "E401"

	// Configuration errors (5xx)
	CodeInvalidConfig Code = "E501"

	CodeUnknown Code = "E999"
)

// Error is a coded error with optional context and cause.
type Error struct {
	Code       Code
	Message    string
	Cause      error
	Context    map[string]any
	StackTrace []Frame
}

// Frame represents a stack frame.
type Frame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface. Context keys are sorted so messages
// are stable.
func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", e.Code, e.Message)

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s=%v", k, e.Context[k])
		}
		sb.WriteString(")")
	}

	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors with the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext adds context to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// New creates a new Error.
func New(code Code, message string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		StackTrace: captureStack(2),
	}
}

// Wrap wraps an existing error. It returns nil for a nil err.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: captureStack(2),
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

func captureStack(skip int) []Frame {
	var frames []Frame
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)

	cf := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := cf.Next()
		frames = append(frames, Frame{Function: frame.Function, File: frame.File, Line: frame.Line})
		if !more || len(frames) >= 10 {
			break
		}
	}
	return frames
}

// FormatStack returns a formatted stack trace.
func (e *Error) FormatStack() string {
	var sb strings.Builder
	for _, f := range e.StackTrace {
		fmt.Fprintf(&sb, "  at %s\n    %s:%d\n", f.Function, f.File, f.Line)
	}
	return sb.String()
}

// --- Convenience constructors ---

// ArchiveRootMissing reports a missing or unreadable archive root.
func ArchiveRootMissing(root string, cause error) *Error {
	return &Error{
		Code:       CodeArchiveRootMissing,
		Message:    "archive root not found",
		Cause:      cause,
		Context:    map[string]any{"root": root},
		StackTrace: captureStack(2),
	}
}

// YearNotFound reports a missing year directory.
func YearNotFound(root string, year int, cause error) *Error {
	return &Error{
		Code:       CodeYearNotFound,
		Message:    "year directory not found",
		Cause:      cause,
		Context:    map[string]any{"root": root, "year": year},
		StackTrace: captureStack(2),
	}
}

// NoMonthFolders reports a year without month folders.
func NoMonthFolders(year int, cause error) *Error {
	return &Error{
		Code:       CodeNoMonthFolders,
		Message:    "no month folders",
		Cause:      cause,
		Context:    map[string]any{"year": year},
		StackTrace: captureStack(2),
	}
}

// Canceled reports a canceled operation.
func Canceled(operation string, cause error) *Error {
	return Wrap(cause, CodeCanceled, "operation canceled").WithContext("operation", operation)
}

// --- Error checking utilities ---

// IsCode checks if an error has a specific code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsFatal reports whether err aborts a whole run.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case CodeArchiveRootMissing, CodeYearNotFound, CodeNoMonthFolders, CodeInvalidConfig:
		return true
	default:
		return false
	}
}

// ExitCode maps an error to a process exit status. nil maps to 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch GetCode(err) {
	case CodeArchiveRootMissing:
		return 3
	case CodeYearNotFound:
		return 4
	case CodeNoMonthFolders:
		return 5
	case CodeWriteFailed, CodeUploadFailed:
		return 6
	case CodeInvalidConfig:
		return 7
	case CodeCanceled:
		return 130
	default:
		return 1
	}
}

// MultiError collects multiple errors.
type MultiError struct {
	Errors []error
}

// Error implements the error interface.
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d errors occurred:\n", len(m.Errors))
	for i, err := range m.Errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Add adds an error to the collection.
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// HasErrors returns true if any errors were collected.
func (m *MultiError) HasErrors() bool {
	return len(m.Errors) > 0
}

// Combined returns nil if no errors, the single error if one, or the MultiError.
func (m *MultiError) Combined() error {
	switch len(m.Errors) {
	case 0:
		return nil
	case 1:
		return m.Errors[0]
	default:
		return m
	}
}
