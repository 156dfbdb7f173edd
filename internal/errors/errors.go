package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents an mdbind error code.
type ErrorCode string

const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"      // 400
	ErrInputNotFound      ErrorCode = "INPUT_NOT_FOUND"      // 404
	ErrNotFound           ErrorCode = "NOT_FOUND"            // 404
	ErrNoContent          ErrorCode = "NO_CONTENT"           // 422
	ErrMissingContentFile ErrorCode = "MISSING_CONTENT_FILE" // 422
	ErrInvalidArchive     ErrorCode = "INVALID_ARCHIVE"      // 422
	ErrCancelled          ErrorCode = "CANCELLED"            // 499
	ErrFilesystem         ErrorCode = "FILESYSTEM_ERROR"     // 500
	ErrInternal           ErrorCode = "INTERNAL"             // 500
)

// BindError represents a structured error with code, status, and details.
type BindError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Err     error // underlying cause, if any
}

// Error implements the error interface.
func (e *BindError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *BindError) Unwrap() error {
	return e.Err
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *BindError {
	return &BindError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewInputNotFound creates a 404 error when the markdown source directory is absent.
func NewInputNotFound(path string) *BindError {
	return &BindError{
		Code:    ErrInputNotFound,
		Status:  404,
		Message: fmt.Sprintf("input directory not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewNotFound creates a 404 error for a missing build record or file.
func NewNotFound(identifier string) *BindError {
	return &BindError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewNoContent creates a 422 error when no markdown files were discovered.
func NewNoContent(inputDir string) *BindError {
	return &BindError{
		Code:    ErrNoContent,
		Status:  422,
		Message: fmt.Sprintf("no markdown files found in %s", inputDir),
		Details: map[string]any{"input_dir": inputDir},
	}
}

// NewMissingContentFile creates a 422 error listing registered hrefs whose
// backing files are absent at packaging time.
func NewMissingContentFile(hrefs []string) *BindError {
	return &BindError{
		Code:    ErrMissingContentFile,
		Status:  422,
		Message: fmt.Sprintf("missing required file: %s", strings.Join(hrefs, ", ")),
		Details: map[string]any{"hrefs": hrefs},
	}
}

// NewInvalidArchive creates a 422 error when post-build validation fails.
func NewInvalidArchive(reason, msg string) *BindError {
	return &BindError{
		Code:    ErrInvalidArchive,
		Status:  422,
		Message: msg,
		Details: map[string]any{"reason": reason},
	}
}

// NewCancelled creates a 499 error when an operation is cancelled by its context.
func NewCancelled(op string) *BindError {
	return &BindError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", op),
	}
}

// NewFilesystem creates a 500 error for I/O failures on the scaffold or output directory.
func NewFilesystem(op string, err error) *BindError {
	msg := op
	if err != nil {
		msg = fmt.Sprintf("%s: %v", op, err)
	}
	return &BindError{
		Code:    ErrFilesystem,
		Status:  500,
		Message: msg,
		Err:     err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *BindError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &BindError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Err:     err,
	}
}

// Is checks if an error (or anything it wraps) is a BindError with the given code.
func Is(err error, code ErrorCode) bool {
	var bErr *BindError
	if stderrors.As(err, &bErr) {
		return bErr.Code == code
	}
	return false
}
