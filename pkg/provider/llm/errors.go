package llm

import (
	"errors"
	"fmt"
)

// Sentinel error kinds surfaced by provider clients and the completion
// broker, matching spec §7's ten error kinds. Use errors.Is for the plain
// sentinels and errors.As for FailedResponseError.
var (
	// ErrUnsupportedModel is returned when a client has no model-id mapping
	// for the requested (provider, ModelTag) pair.
	ErrUnsupportedModel = errors.New("llm: no model-id mapping for this provider")

	// ErrWrongCredentialType is returned when a credential's provider kind
	// does not match the invoking client, before any HTTP call is made.
	ErrWrongCredentialType = errors.New("llm: credential does not match this provider")

	// ErrUnauthorized wraps an HTTP 401 response.
	ErrUnauthorized = errors.New("llm: unauthorized")

	// ErrSinkClosed is returned when a send to the caller's delta sink fails.
	ErrSinkClosed = errors.New("llm: delta sink closed")

	// ErrParseFailure is terminal only when no frame in the stream ever
	// parsed; individual malformed frames are logged and skipped.
	ErrParseFailure = errors.New("llm: no stream frame could be parsed")

	// ErrFunctionCallMissing is returned when a Function-role message lacks
	// its ToolReturn payload.
	ErrFunctionCallMissing = errors.New("llm: function-role message missing tool return payload")

	// ErrUserCancelled is returned when the call's context was cancelled,
	// either before dispatch or mid-stream.
	ErrUserCancelled = errors.New("llm: cancelled by caller")

	// ErrRetriesExhausted is returned by the Completion Broker after its
	// bounded attempt budget is spent without a successful attempt.
	ErrRetriesExhausted = errors.New("llm: retries exhausted")

	// ErrTransport wraps an underlying HTTP/network error.
	ErrTransport = errors.New("llm: transport error")
)

// FailedResponseError carries a non-2xx, non-401 HTTP response.
type FailedResponseError struct {
	Status int
	Body   string
}

func (e *FailedResponseError) Error() string {
	return fmt.Sprintf("llm: provider returned status %d: %s", e.Status, e.Body)
}

// Is allows errors.Is(err, ErrFailedResponse-like sentinels) to work against
// a FailedResponseError by comparing only the dynamic type, matching the
// teacher's style of sentinel-friendly custom error types.
func (e *FailedResponseError) Is(target error) bool {
	_, ok := target.(*FailedResponseError)
	return ok
}
