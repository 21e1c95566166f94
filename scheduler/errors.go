package scheduler

import "errors"

var (
	// ErrChannelFull is returned by the non-suspending submission variants
	// when the control channel is at capacity. Recoverable; the caller may
	// retry or back off.
	ErrChannelFull = errors.New("control channel is full")

	// ErrChannelClosed signals scheduler shutdown or task abandonment. Not
	// retryable.
	ErrChannelClosed = errors.New("control channel is closed")

	// ErrMoreThreadsRequired is returned at startup when the engine reports
	// fewer threads than the configured minimum. Fatal to the runtime.
	ErrMoreThreadsRequired = errors.New("engine reports insufficient threads")

	// ErrIncludeNotFound is returned when the source location passed to
	// Include does not exist. Fatal to the runtime per the error taxonomy,
	// surfaced before the message is submitted.
	ErrIncludeNotFound = errors.New("include source not found")
)
