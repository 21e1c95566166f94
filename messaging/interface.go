// Package messaging defines the channel abstractions the scheduler is built
// against: a bounded multi-producer queue for control messages and a oneshot
// reply used to deliver exactly one task result back to the submitter.
package messaging

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrFull is returned by TryPublish when the queue is at capacity.
	ErrFull = errors.New("queue is full")

	// ErrClosed is returned once a queue has been closed and drained, or by
	// Reply.Recv when the reply was dropped without a value.
	ErrClosed = errors.New("queue is closed")

	// ErrTimeout is returned by ConsumeTimeout when no message arrives in
	// time.
	ErrTimeout = errors.New("consume timed out")
)

// Queue represents an abstract bounded queue for any payload type. Publishers
// may run on any goroutine; consumption order is FIFO.
type Queue[T any] interface {
	// Publish adds a new message, waiting for room in the queue.
	Publish(ctx context.Context, t *T) error

	// TryPublish adds a new message or fails immediately with ErrFull or
	// ErrClosed; it never blocks.
	TryPublish(t *T) error

	// Consume retrieves a single message, waiting until one is available.
	// After Close it keeps draining buffered messages before returning
	// ErrClosed.
	Consume(ctx context.Context) (*T, error)

	// ConsumeTimeout behaves like Consume bounded by d, returning
	// ErrTimeout when nothing arrives in time.
	ConsumeTimeout(ctx context.Context, d time.Duration) (*T, error)

	// Close marks the queue closed for publishing. Idempotent.
	Close()

	// Size returns the number of buffered messages.
	Size() int
}
