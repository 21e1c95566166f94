// Package memory provides the channel-backed in-memory queue used as the
// scheduler's control channel and as the call channel of persistent tasks.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/uniplex/uniplex/messaging"
)

// Config for the memory queue implementation.
type Config struct {
	Capacity int
}

// DefaultConfig returns a standard configuration for the memory queue.
func DefaultConfig() Config {
	return Config{Capacity: 100}
}

// Queue implements an in-memory messaging.Queue.
type Queue[T any] struct {
	messages  chan *T
	closeCh   chan struct{}
	closeOnce sync.Once
}

// NewQueue creates a new in-memory queue.
func NewQueue[T any](config Config) *Queue[T] {
	if config.Capacity <= 0 {
		config.Capacity = DefaultConfig().Capacity
	}
	return &Queue[T]{
		messages: make(chan *T, config.Capacity),
		closeCh:  make(chan struct{}),
	}
}

// Publish adds a new item to the queue, waiting for room.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	select {
	case <-q.closeCh:
		return messaging.ErrClosed
	default:
	}
	select {
	case q.messages <- t:
		return nil
	case <-q.closeCh:
		return messaging.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPublish adds a new item or fails immediately.
func (q *Queue[T]) TryPublish(t *T) error {
	select {
	case <-q.closeCh:
		return messaging.ErrClosed
	default:
	}
	select {
	case q.messages <- t:
		return nil
	default:
		return messaging.ErrFull
	}
}

// Consume retrieves a single item, draining buffered items after Close before
// reporting ErrClosed.
func (q *Queue[T]) Consume(ctx context.Context) (*T, error) {
	select {
	case t := <-q.messages:
		return t, nil
	default:
	}
	select {
	case t := <-q.messages:
		return t, nil
	case <-q.closeCh:
		select {
		case t := <-q.messages:
			return t, nil
		default:
			return nil, messaging.ErrClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ConsumeTimeout behaves like Consume bounded by d.
func (q *Queue[T]) ConsumeTimeout(ctx context.Context, d time.Duration) (*T, error) {
	select {
	case t := <-q.messages:
		return t, nil
	default:
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case t := <-q.messages:
		return t, nil
	case <-q.closeCh:
		select {
		case t := <-q.messages:
			return t, nil
		default:
			return nil, messaging.ErrClosed
		}
	case <-timer.C:
		return nil, messaging.ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close marks the queue closed for publishing.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() {
		close(q.closeCh)
	})
}

// Size returns the current number of buffered messages.
func (q *Queue[T]) Size() int {
	return len(q.messages)
}

// ensure Queue implements the messaging.Queue interface
var _ messaging.Queue[any] = (*Queue[any])(nil)
