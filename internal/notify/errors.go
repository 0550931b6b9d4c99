package notify

import "errors"

var (
	// ErrEmailDisabled is returned when no sender or recipient is configured.
	// Callers treat it as a skipped step rather than a failure.
	ErrEmailDisabled = errors.New("notify: email disabled")

	// ErrInvalidMessage rejects a message before any provider call.
	ErrInvalidMessage = errors.New("notify: invalid message")

	// ErrSendFailed wraps every provider-side failure.
	ErrSendFailed = errors.New("notify: send failed")
)
