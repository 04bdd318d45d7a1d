package payroute

import (
	"errors"
	"fmt"
)

// Sentinel errors for the routing engine. Discovery never returns an error
// for "no liquidity" conditions; an empty result carries that meaning.

var (
	// ErrInvalidRequest indicates a request that cannot be interpreted,
	// such as an unresolvable token symbol.
	ErrInvalidRequest = errors.New("payroute: invalid payment request")

	// ErrInvalidAmount indicates a malformed or negative amount string.
	ErrInvalidAmount = errors.New("payroute: invalid amount")

	// ErrInvalidNetwork indicates an unknown or unsupported network.
	ErrInvalidNetwork = errors.New("payroute: invalid or unsupported network")

	// ErrInvalidAddress indicates an address that fails its network's
	// format rules.
	ErrInvalidAddress = errors.New("payroute: invalid address")

	// ErrTokenNotFound indicates the catalog has no record for a token on
	// the requested chain.
	ErrTokenNotFound = errors.New("payroute: token not found")

	// ErrGatewayUnavailable indicates no external gateway produced a
	// usable answer for any candidate source.
	ErrGatewayUnavailable = errors.New("payroute: quote gateway unavailable")

	// ErrQuoteStale indicates a quote exceeded its maximum age and could
	// not be refreshed within the route's bounds.
	ErrQuoteStale = errors.New("payroute: quote is stale")

	// ErrSlippageExceeded indicates a refreshed quote fell below the
	// route's enforced minimum output.
	ErrSlippageExceeded = errors.New("payroute: slippage bound exceeded")

	// ErrStepFailed indicates a deterministic on-chain failure during
	// route execution.
	ErrStepFailed = errors.New("payroute: step execution failed")

	// ErrTransientSubmission indicates a retryable submission failure.
	ErrTransientSubmission = errors.New("payroute: transient submission error")

	// ErrNoProvider indicates no provider adapter is registered for a
	// route's chain.
	ErrNoProvider = errors.New("payroute: no provider adapter for chain")

	// ErrExecutionCancelled indicates execution stopped before submitting
	// the next step because the context was cancelled.
	ErrExecutionCancelled = errors.New("payroute: execution cancelled")
)

// ErrorCode classifies a RouteError for programmatic handling.
type ErrorCode string

const (
	ErrCodeInvalidRequest      ErrorCode = "INVALID_REQUEST"
	ErrCodeGatewayUnavailable  ErrorCode = "GATEWAY_UNAVAILABLE"
	ErrCodeQuoteStale          ErrorCode = "QUOTE_STALE"
	ErrCodeStepFailed          ErrorCode = "STEP_EXECUTION_FAILED"
	ErrCodeTransientSubmission ErrorCode = "TRANSIENT_SUBMISSION"
)

// RouteError wraps an engine error with a stable code and optional details.
type RouteError struct {
	Code    ErrorCode
	Message string
	Err     error
	Details map[string]string
}

// NewRouteError creates a RouteError wrapping err.
func NewRouteError(code ErrorCode, message string, err error) *RouteError {
	return &RouteError{Code: code, Message: message, Err: err}
}

// WithDetail attaches a key/value detail and returns the error for chaining.
func (e *RouteError) WithDetail(key, value string) *RouteError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

func (e *RouteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RouteError) Unwrap() error {
	return e.Err
}
