package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrNetworkFailure indicates a connection or timeout failure. The engine
	// may or may not have seen the request; retrying is the caller's call.
	ErrNetworkFailure = errors.New("engine network failure")

	// ErrEngineRejected indicates a non-2xx response. The requested operation
	// failed hard; retrying without changes will not help.
	ErrEngineRejected = errors.New("engine rejected request")

	// ErrMalformedResponse indicates the body did not parse. Engine state is
	// unknown, so it is treated like a network failure for retry purposes.
	ErrMalformedResponse = errors.New("engine returned malformed response")

	// ErrExecutionNotFound indicates the engine no longer knows the execution
	// id. Cancelling such an execution is a successful no-op.
	ErrExecutionNotFound = errors.New("execution not found")
)

// callError carries an engine failure with its retryability, so the retry
// package can classify it without string matching.
type callError struct {
	sentinel error
	detail   string
}

func (e *callError) Error() string {
	if e.detail == "" {
		return e.sentinel.Error()
	}
	return fmt.Sprintf("%v: %s", e.sentinel, e.detail)
}

func (e *callError) Unwrap() error { return e.sentinel }

// IsRetryable implements retry.RetryableError. Network failures and
// malformed responses are transient; rejections and missing executions are
// permanent.
func (e *callError) IsRetryable() bool {
	return errors.Is(e.sentinel, ErrNetworkFailure) || errors.Is(e.sentinel, ErrMalformedResponse)
}

func networkErr(err error) error {
	return &callError{sentinel: ErrNetworkFailure, detail: err.Error()}
}

func rejectedErr(status int) error {
	return &callError{sentinel: ErrEngineRejected, detail: fmt.Sprintf("status %d", status)}
}

func malformedErr(err error) error {
	return &callError{sentinel: ErrMalformedResponse, detail: err.Error()}
}

func notFoundErr(executionID string) error {
	return &callError{sentinel: ErrExecutionNotFound, detail: executionID}
}
