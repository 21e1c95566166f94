package messaging

import (
	"context"
	"sync"
)

// Reply is a oneshot channel carrying a single value from a task back to its
// submitter. Every reply terminates in exactly one of two ways: Send delivers
// a value, or Close drops it - in which case Recv observes ErrClosed and the
// caller must treat the task as abandoned, never as silent success.
type Reply[T any] struct {
	ch   chan T
	once sync.Once
}

// NewReply creates an unsettled reply.
func NewReply[T any]() *Reply[T] {
	return &Reply[T]{ch: make(chan T, 1)}
}

// Send settles the reply with v. Only the first settlement wins; later Send
// or Close calls are no-ops.
func (r *Reply[T]) Send(v T) {
	r.once.Do(func() {
		r.ch <- v
		close(r.ch)
	})
}

// Close settles the reply without a value, signalling abandonment.
func (r *Reply[T]) Close() {
	r.once.Do(func() {
		close(r.ch)
	})
}

// Recv waits for the reply to settle. It returns ErrClosed when the reply was
// dropped without a value.
func (r *Reply[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	select {
	case v, ok := <-r.ch:
		if !ok {
			return zero, ErrClosed
		}
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
