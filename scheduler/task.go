package scheduler

import (
	"context"

	"github.com/uniplex/uniplex/engine"
)

// Outcome is the terminal result of a task, delivered through the submitter's
// reply exactly once.
type Outcome struct {
	Value engine.Value
	Err   error
}

// Task is a unit of work that may suspend while awaiting engine calls issued
// through its frame. Run executes off the driving goroutine; every engine
// call round-trips through the runtime loop.
type Task interface {
	Run(ctx context.Context, frame *Frame) (engine.Value, error)
}

// Registrable is implemented by task types that need one-time setup before
// their first submission, performed through the Registration API.
type Registrable interface {
	Register(ctx context.Context, frame *Frame) error
}

// BlockingFunc runs to completion inline on the driving goroutine, on the
// reserved slot, stalling all other progress until it returns. Keep blocking
// work short.
type BlockingFunc func(frame *Frame) (engine.Value, error)

// PersistentTask is a long-lived task that processes a stream of calls
// through its own bounded channel after one-time setup.
type PersistentTask interface {
	// Init prepares the task state. It runs once, before the first call.
	Init(ctx context.Context, frame *Frame) error

	// Call processes a single input. Each accepted call produces exactly
	// one reply.
	Call(ctx context.Context, frame *Frame, input engine.Value) (engine.Value, error)

	// Teardown runs after the last handle has been dropped and every
	// accepted call has been replied to.
	Teardown(frame *Frame)

	// ChannelCapacity fixes the size of the task's call channel.
	ChannelCapacity() int
}
