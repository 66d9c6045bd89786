package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/i474232898/air-quality-explorer/internal/fetch"
)

var (
	// ErrNoSelection is returned when an event needs a station and sensor.
	ErrNoSelection = errors.New("select a station and a sensor first")
	// ErrNoWindow is returned when a date event arrives before a sensor
	// is selected.
	ErrNoWindow = errors.New("select a sensor before choosing dates")
	// ErrInvalidRange is returned for a start date after the window end.
	ErrInvalidRange = errors.New("start date must not be after the end date")
	// ErrUnknownOption is returned for a station or sensor not offered in
	// the current selector.
	ErrUnknownOption = errors.New("option is not available for the current selection")
	// ErrUnknownEvent is returned for event types without a reducer.
	ErrUnknownEvent = errors.New("unknown dashboard event")
)

// UserMessage turns a failed step into text for the end user. It keeps
// "the backend could not be reached" apart from "the backend answered but
// had no usable data".
func UserMessage(step string, err error) string {
	var lf *fetch.LogicalFailure
	switch {
	case errors.As(err, &lf):
		return fmt.Sprintf("%s: the backend returned no valid data: %s", step, lf.Message)
	case fetch.IsTransport(err):
		return fmt.Sprintf("%s: could not reach the backend. Check the connection and try again.", step)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Sprintf("%s: the request was interrupted before the backend answered.", step)
	default:
		return fmt.Sprintf("%s: %v", step, err)
	}
}

// IsInputError reports whether err was caused by the event itself rather
// than by the backend.
func IsInputError(err error) bool {
	return errors.Is(err, ErrNoSelection) ||
		errors.Is(err, ErrNoWindow) ||
		errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrUnknownOption) ||
		errors.Is(err, ErrUnknownEvent)
}
