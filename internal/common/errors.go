package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrModelOutput  = errors.New("unusable model output")
	ErrValidation   = errors.New("validation failed")
	ErrTimeout      = errors.New("timed out")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrUpstream     = errors.New("completion service unavailable")
)

// Error codes carried by AppError.
const (
	CodeInput       = "INPUT_ERROR"
	CodeModelOutput = "MODEL_OUTPUT_ERROR"
	CodeTimeout     = "TIMEOUT"
	CodeNotFound    = "NOT_FOUND"
	CodeConfig      = "CONFIG_ERROR"
	CodeStore       = "STORE_ERROR"
	CodeUpstream    = "UPSTREAM_ERROR"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewInputError reports missing or unusable caller input (empty notes, unsupported upload).
func NewInputError(message string) *AppError {
	return NewAppError(CodeInput, message, ErrInvalidInput)
}

// NewModelOutputError reports a completion response that could not be used after the retry.
func NewModelOutputError(message string, cause error) *AppError {
	if cause == nil {
		cause = ErrModelOutput
	} else {
		cause = fmt.Errorf("%w: %w", ErrModelOutput, cause)
	}
	return NewAppError(CodeModelOutput, message, cause)
}

// NewUpstreamError reports a failed call to the completion service.
func NewUpstreamError(message string, cause error) *AppError {
	if cause == nil {
		cause = ErrUpstream
	} else {
		cause = fmt.Errorf("%w: %w", ErrUpstream, cause)
	}
	return NewAppError(CodeUpstream, message, cause)
}

func NewNotFoundError(message string) *AppError {
	return NewAppError(CodeNotFound, message, ErrNotFound)
}

// NewTimeoutError reports a deadline that ran out. The cause stays in the chain.
func NewTimeoutError(message string, cause error) *AppError {
	if cause == nil {
		cause = ErrTimeout
	} else {
		cause = fmt.Errorf("%w: %w", ErrTimeout, cause)
	}
	return NewAppError(CodeTimeout, message, cause)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// UserMessage returns the single descriptive message surfaced to callers.
func UserMessage(err error) string {
	var ve ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}

func InternalErrorf(format string, args ...interface{}) error {
	return InternalError(fmt.Sprintf(format, args...))
}

// ToGRPCError maps the error taxonomy onto gRPC status codes.
func ToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	msg := UserMessage(err)
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidInput):
		return status.Error(codes.InvalidArgument, msg)
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, msg)
	case errors.Is(err, ErrModelOutput), errors.Is(err, ErrUpstream):
		return status.Error(codes.Unavailable, msg)
	case errors.Is(err, ErrTimeout):
		return status.Error(codes.DeadlineExceeded, msg)
	default:
		return status.Error(codes.Internal, msg)
	}
}
