package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
)

// Error codes carried by failure envelopes.
const (
	CodeUnsupportedOperation = "unsupported_operation"
	CodeInvalidConfiguration = "invalid_configuration"
	CodeInvalidQuery         = "invalid_query"
	CodeConnectionFailed     = "connection_failed"
	CodeAuthenticationFailed = "authentication_failed"
	CodePermissionDenied     = "permission_denied"
	CodeNotFound             = "not_found"
	CodeTransactionFailed    = "transaction_failed"
	CodeQueryFailed          = "query_failed"
	CodeCanceled             = "canceled"
	CodeTimeout              = "timeout"
	CodeInternalError        = "internal_error"
)

// ErrorInfo describes a failure inside an envelope.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Envelope is the uniform result wrapper for bridge operations.
// Exactly one of Data and Error is meaningful: success envelopes carry
// data and no error, failure envelopes carry an error and zero data.
type Envelope[T any] struct {
	Success        bool                      `json:"success"`
	Data           T                         `json:"data,omitempty"`
	Error          *ErrorInfo                `json:"error,omitempty"`
	Backend        dbcapabilities.DatabaseID `json:"backend"`
	AdapterVersion string                    `json:"adapterVersion,omitempty"`
	DurationMs     int64                     `json:"durationMs"`
}

// Execute runs work, times it and wraps the outcome. A returned error
// becomes a failure envelope here and nowhere else; panics are not
// absorbed.
func Execute[T any](backend dbcapabilities.DatabaseID, adapterVersion string, work func() (T, error)) Envelope[T] {
	start := time.Now()
	data, err := work()
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		var zero T
		return Envelope[T]{
			Success:        false,
			Data:           zero,
			Error:          &ErrorInfo{Code: ClassifyError(err), Message: err.Error()},
			Backend:        backend,
			AdapterVersion: adapterVersion,
			DurationMs:     elapsed,
		}
	}

	return Envelope[T]{
		Success:        true,
		Data:           data,
		Backend:        backend,
		AdapterVersion: adapterVersion,
		DurationMs:     elapsed,
	}
}

// FailWith builds a failure envelope from an error without running any
// work, for gates that reject an operation before it starts.
func FailWith[T any](backend dbcapabilities.DatabaseID, adapterVersion string, err error) Envelope[T] {
	var zero T
	return Envelope[T]{
		Success:        false,
		Data:           zero,
		Error:          &ErrorInfo{Code: ClassifyError(err), Message: err.Error()},
		Backend:        backend,
		AdapterVersion: adapterVersion,
		DurationMs:     0,
	}
}

// ClassifyError maps an error to an envelope error code.
func ClassifyError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case IsUnsupported(err):
		return CodeUnsupportedOperation
	case IsConfigurationError(err), errors.Is(err, ErrInvalidConfiguration):
		return CodeInvalidConfiguration
	case errors.Is(err, ErrInvalidQuery):
		return CodeInvalidQuery
	case errors.Is(err, ErrAuthenticationFailed):
		return CodeAuthenticationFailed
	case errors.Is(err, ErrPermissionDenied):
		return CodePermissionDenied
	case IsNotFound(err),
		errors.Is(err, ErrAdapterNotFound),
		errors.Is(err, ErrConnectionNotFound):
		return CodeNotFound
	case IsConnectionError(err),
		errors.Is(err, ErrConnectionFailed),
		errors.Is(err, ErrConnectionClosed):
		return CodeConnectionFailed
	case errors.Is(err, ErrTransactionFailed):
		return CodeTransactionFailed
	default:
		var dbErr *DatabaseError
		if errors.As(err, &dbErr) {
			return CodeQueryFailed
		}
		return CodeInternalError
	}
}
