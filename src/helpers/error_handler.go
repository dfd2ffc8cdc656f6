package helpers

import (
	"errors"
	"fmt"
	"sync"

	"gateway-dashboard/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type DashboardError struct {
	Message string
	Cause   error
}

func (e *DashboardError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DashboardError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As
type ConfigurationError struct{ DashboardError }
type AuthenticationFailedError struct{ DashboardError }
type TimeoutError struct{ DashboardError }
type TransportError struct{ DashboardError }
type UpstreamFetchError struct{ DashboardError }
type InvalidRequestError struct{ DashboardError }

// RemoteError carries the peer's error for the caller's actual request verbatim.
type RemoteError struct {
	DashboardError
	Code string
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: [%s] %s", e.DashboardError.Message, e.Code, e.Cause)
	}
	return e.DashboardError.Error()
}

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

func NewConfigurationError(message string, cause error) error {
	return &ConfigurationError{DashboardError{Message: message, Cause: cause}}
}

func NewInvalidRequest(format string, args ...interface{}) error {
	return &InvalidRequestError{DashboardError{Message: fmt.Sprintf(format, args...)}}
}

func NewAuthenticationFailed(peerMessage string) error {
	return &AuthenticationFailedError{DashboardError{Message: "gateway rejected connect", Cause: errors.New(peerMessage)}}
}

func NewRemoteError(method, code, message string) error {
	return &RemoteError{
		DashboardError: DashboardError{Message: fmt.Sprintf("gateway error for %s", method), Cause: errors.New(message)},
		Code:           code,
	}
}

func NewTimeout(method string, after fmt.Stringer) error {
	return &TimeoutError{DashboardError{Message: fmt.Sprintf("gateway call %s timed out after %s", method, after)}}
}

func NewTransportError(stage string, cause error) error {
	return &TransportError{DashboardError{Message: fmt.Sprintf("gateway transport failure while %s", stage), Cause: cause}}
}

func NewUpstreamFetchError(operation string, cause error) error {
	return &UpstreamFetchError{DashboardError{Message: fmt.Sprintf("%s failed", operation), Cause: cause}}
}

// -----------------------------------------------------------------------------
// Classification
// -----------------------------------------------------------------------------

// Kind names the taxonomy bucket of err, or "internal" when it has none.
func Kind(err error) string {
	var (
		auth     *AuthenticationFailedError
		remote   *RemoteError
		timeout  *TimeoutError
		trans    *TransportError
		upstream *UpstreamFetchError
		cfg      *ConfigurationError
		invalid  *InvalidRequestError
	)
	switch {
	case errors.As(err, &auth):
		return "authentication_failed"
	case errors.As(err, &remote):
		return "remote_error"
	case errors.As(err, &timeout):
		return "timeout"
	case errors.As(err, &trans):
		return "transport_error"
	case errors.As(err, &upstream):
		return "upstream_fetch_error"
	case errors.As(err, &cfg):
		return "configuration_error"
	case errors.As(err, &invalid):
		return "invalid_request"
	}
	return "internal"
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

// ErrorHandler logs swallowed errors and counts consecutive failures per operation.
// It never retries: a skipped cycle is the recovery.
type ErrorHandler struct {
	Logger *logger.Logger

	mu     sync.Mutex
	counts map[string]int
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	return &ErrorHandler{
		Logger: log,
		counts: make(map[string]int),
	}
}

// -----------------------------------------------------------------------------

// Handle logs err (if any) and returns true when it was an error
func (e *ErrorHandler) Handle(err error, operation string) bool {
	if err == nil {
		return false
	}

	e.mu.Lock()
	e.counts[operation]++
	n := e.counts[operation]
	e.mu.Unlock()

	if n == 1 {
		e.Logger.Warning("%s failed (%s): %v", operation, Kind(err), err)
	} else {
		e.Logger.Error("%s failed %d times in a row (%s): %v", operation, n, Kind(err), err)
	}
	return true
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) ResetErrorCount(operation string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.counts[operation] > 0 {
		e.Logger.Info("%s recovered after %d failures", operation, e.counts[operation])
	}
	e.counts[operation] = 0
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) ErrorCount(operation string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counts[operation]
}
