package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

type ErrorCode string

const (
	CodeInternal   ErrorCode = "INTERNAL_ERROR"
	CodeValidation ErrorCode = "VALIDATION_ERROR"
	CodeLoadShape  ErrorCode = "LOAD_SHAPE_ERROR"
	CodeFileUnread ErrorCode = "FILE_UNREADABLE"
)

// AppError is the only error type the tool surfaces. Load-shape and
// validation failures are the fatal conditions; data-quality problems are
// never errors, they travel as anomaly findings instead.
type AppError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Table     string    `json:"table,omitempty"`
	Cause     error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Cause:     err,
		Timestamp: time.Now().UTC(),
	}
}

// MissingColumn reports a required column absent from a table's header. The
// diagnostic names both the table and the column so the operator can fix the
// export instead of guessing.
func MissingColumn(table, column string) *AppError {
	e := New(CodeLoadShape, fmt.Sprintf("table %s is missing required column %q", table, column))
	e.Table = table
	e.Details = column
	return e
}

// EmptyTable reports a table with a header but no data rows.
func EmptyTable(table string) *AppError {
	e := New(CodeLoadShape, fmt.Sprintf("table %s contains no data rows", table))
	e.Table = table
	return e
}

// FileUnreadable reports a table file that could not be opened or scanned.
func FileUnreadable(table, path string, err error) *AppError {
	e := Wrap(err, CodeFileUnread, fmt.Sprintf("cannot read table %s from %s", table, path))
	e.Table = table
	e.Details = path
	return e
}

func Validation(message string) *AppError {
	return New(CodeValidation, message)
}

func ValidationWrap(err error, message string) *AppError {
	return Wrap(err, CodeValidation, message)
}

func Internal(message string) *AppError {
	return New(CodeInternal, message)
}

func InternalWrap(err error, message string) *AppError {
	return Wrap(err, CodeInternal, message)
}

// AsAppError unwraps err to the first AppError in its chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the error's code, mapping foreign errors to CodeInternal.
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return CodeInternal
}
