package scheduler

import (
	"context"
	"time"

	"github.com/uniplex/uniplex/engine"
	"github.com/uniplex/uniplex/internal/clock"
	"github.com/uniplex/uniplex/messaging"
)

// Frame is a task's loaned resource slot plus its only way into the engine.
// Frames never expose the engine itself: calls from async frames round-trip
// through the runtime loop, so the capability to enter the engine stays with
// the driving goroutine.
type Frame struct {
	slot      *slot
	capacity  int
	sched     *Scheduler
	direct    bool
	startedAt time.Time
}

func (s *Scheduler) asyncFrame(slotID, capacity int) *Frame {
	return &Frame{slot: s.pool.slots[slotID], capacity: capacity, sched: s, startedAt: clock.Now()}
}

func (s *Scheduler) directFrame(slotID, capacity int) *Frame {
	return &Frame{slot: s.pool.slots[slotID], capacity: capacity, sched: s, direct: true, startedAt: clock.Now()}
}

// Slot returns the index of the loaned resource slot.
func (f *Frame) Slot() int { return f.slot.id }

// Capacity returns the rooting capacity requested for this frame, zero when
// none was requested.
func (f *Frame) Capacity() int { return f.capacity }

// StartedAt returns the dispatch timestamp of the task owning this frame.
func (f *Frame) StartedAt() time.Time { return f.startedAt }

// Call invokes a named engine callable. From a blocking task the call runs
// immediately; from an async task the frame suspends until the driving
// goroutine has executed the call.
func (f *Frame) Call(ctx context.Context, name string, args ...engine.Value) (engine.Value, error) {
	return f.roundTrip(ctx, &engineCall{name: name, args: args})
}

// Eval evaluates source text in the engine, with the same suspension
// semantics as Call.
func (f *Frame) Eval(ctx context.Context, src string) (engine.Value, error) {
	return f.roundTrip(ctx, &engineCall{eval: true, src: src})
}

func (f *Frame) roundTrip(ctx context.Context, call *engineCall) (engine.Value, error) {
	if f.direct {
		return f.sched.execCall(call)
	}
	call.reply = messaging.NewReply[Outcome]()
	select {
	case f.sched.loopCh <- &message{kind: msgCall, call: call}:
	case <-ctx.Done():
		return engine.Value{}, ctx.Err()
	}
	out, err := call.reply.Recv(ctx)
	if err != nil {
		return engine.Value{}, err
	}
	return out.Value, out.Err
}
