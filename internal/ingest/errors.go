package ingest

// errors.go defines the pipeline's single terminal failure type and its
// user-facing rendering.
//
// Every fatal condition surfaces as a *ParseError with one of four kinds.
// Encoding problems are deliberately absent from the taxonomy: they are
// downgraded to EncodingIssueReport entries and never fail a parse.

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies terminal parse failures.
type ErrorKind string

const (
	// KindIO means the input source could not be fully read. Rows parsed
	// before the failure are returned alongside the error.
	KindIO ErrorKind = "io_error"

	// KindMalformedQuoting means the input ended inside an unterminated
	// quoted field.
	KindMalformedQuoting ErrorKind = "malformed_quoting"

	// KindRowShapeMismatch means a row's field count disagreed with the
	// header while StrictFieldCount was set.
	KindRowShapeMismatch ErrorKind = "row_shape_mismatch"

	// KindCancelled means the caller aborted the parse mid-stream. No
	// partial rows are returned.
	KindCancelled ErrorKind = "cancelled"
)

// ParseError is the only error type the parsing entry points return.
type ParseError struct {
	Kind   ErrorKind
	Row    int    // 1-based data row number, set for KindRowShapeMismatch
	Detail string // human-readable specifics
	Err    error  // wrapped cause, if any
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Kind == KindRowShapeMismatch {
		fmt.Fprintf(&b, " at row %d", e.Row)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// KindOf extracts the ErrorKind from err, or "" when err is not a
// ParseError.
func KindOf(err error) ErrorKind {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// UserError is a user-facing rendering of a failure. The code gives support
// staff a stable reference when users quote it back.
type UserError struct {
	Code    string
	Message string
	Action  string
}

// MapError converts an internal error into a message suitable for end
// users. Technical detail stays in the error itself for logging.
func MapError(err error) UserError {
	switch KindOf(err) {
	case KindMalformedQuoting:
		return UserError{
			Code:    "CSV001",
			Message: "The file has an unclosed quote.",
			Action:  "Check for a field that opens a double quote without closing it, then re-upload.",
		}
	case KindRowShapeMismatch:
		var pe *ParseError
		errors.As(err, &pe)
		return UserError{
			Code:    "CSV002",
			Message: fmt.Sprintf("Row %d has a different number of columns than the header.", pe.Row),
			Action:  "Fix the row, or upload again without strict column checking.",
		}
	case KindIO:
		return UserError{
			Code:    "FILE001",
			Message: "The file could not be read completely.",
			Action:  "Please try uploading the file again.",
		}
	case KindCancelled:
		return UserError{
			Code:    "UPL001",
			Message: "The upload was cancelled.",
			Action:  "Start the upload again when ready.",
		}
	}
	return UserError{
		Code:    "SYS001",
		Message: "An unexpected error occurred.",
		Action:  "Please try again, or contact support with code SYS001.",
	}
}
