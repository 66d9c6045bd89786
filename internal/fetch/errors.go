package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrCircuitOpen is wrapped by a TransportError when the breaker rejects a call.
	ErrCircuitOpen = errors.New("circuit breaker open")
	// ErrBodyTooLarge is wrapped by a TransportError when the decoded body
	// exceeds Config.MaxBodyBytes.
	ErrBodyTooLarge = errors.New("response body too large")

	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid retry configuration")
)

// TransportError means the request could not be completed: the network call
// failed, the body could not be read, or the body was not JSON.
type TransportError struct {
	Endpoint string
	Status   int // zero when no response was received
	Err      error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transport error calling %s (status %d): %v", e.Endpoint, e.Status, e.Err)
	}
	return fmt.Sprintf("transport error calling %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// LogicalFailure means the backend answered with JSON whose success
// indicator was false (or missing).
type LogicalFailure struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *LogicalFailure) Error() string {
	return fmt.Sprintf("backend reported failure for %s: %s", e.Endpoint, e.Message)
}

// IsTransport reports whether err carries a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsLogical reports whether err carries a LogicalFailure.
func IsLogical(err error) bool {
	var lf *LogicalFailure
	return errors.As(err, &lf)
}
