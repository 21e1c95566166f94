package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/uniplex/uniplex/engine"
	"github.com/uniplex/uniplex/messaging"
	"github.com/uniplex/uniplex/messaging/memory"
)

// PersistentHandle invokes a spawned persistent task. Like Handle it is
// reference counted; dropping the last reference closes the call channel,
// after which the task drains queued calls, tears down and returns its slot.
type PersistentHandle struct {
	calls *memory.Queue[persistentCall]
	refs  *atomic.Int64
}

func newPersistentHandle(calls *memory.Queue[persistentCall]) *PersistentHandle {
	refs := &atomic.Int64{}
	refs.Store(1)
	return &PersistentHandle{calls: calls, refs: refs}
}

// Clone returns a new reference to the same persistent task.
func (h *PersistentHandle) Clone() *PersistentHandle {
	h.refs.Add(1)
	return &PersistentHandle{calls: h.calls, refs: h.refs}
}

// Close drops this reference; the last drop shuts the task down after it has
// drained calls already queued.
func (h *PersistentHandle) Close() {
	if h.refs.Add(-1) == 0 {
		h.calls.Close()
	}
}

// Call queues one invocation and returns a reply settled with its outcome.
// Blocks while the task's call channel is at capacity.
func (h *PersistentHandle) Call(ctx context.Context, input engine.Value) (*messaging.Reply[Outcome], error) {
	c := persistentCall{input: input, reply: messaging.NewReply[Outcome]()}
	if err := h.calls.Publish(ctx, &c); err != nil {
		return nil, mapQueueErr(err)
	}
	return c.reply, nil
}

// TryCall is Call without waiting for channel capacity.
func (h *PersistentHandle) TryCall(input engine.Value) (*messaging.Reply[Outcome], error) {
	c := persistentCall{input: input, reply: messaging.NewReply[Outcome]()}
	if err := h.calls.TryPublish(&c); err != nil {
		return nil, mapQueueErr(err)
	}
	return c.reply, nil
}

func (s *Scheduler) startPersistent(ctx context.Context, m *message, slotID int) {
	frame := s.asyncFrame(slotID, 0)
	go func() {
		defer m.reply.Close()
		err := s.registerPersistent(ctx, m.ptask, frame)
		if err == nil {
			err = runPersistentInit(ctx, m.ptask, frame)
		}
		if err != nil {
			// Initialization failed: refuse queued and future calls so
			// callers holding the persistent handle do not hang.
			m.calls.Close()
			drainCalls(m.calls)
			m.reply.Send(Outcome{Err: err})
			s.loopCh <- &message{kind: msgComplete, slot: slotID}
			return
		}
		m.reply.Send(Outcome{})
		for {
			c, cerr := m.calls.Consume(ctx)
			if cerr != nil {
				if !errors.Is(cerr, messaging.ErrClosed) {
					// Runtime shutdown, not handle closure: stop
					// accepting calls and fail the queued ones closed
					// before retiring the task.
					m.calls.Close()
					drainCalls(m.calls)
				}
				break
			}
			out := runPersistentCall(ctx, m.ptask, frame, c.input)
			c.reply.Send(out)
		}
		runPersistentTeardown(m.ptask, frame)
		s.loopCh <- &message{kind: msgComplete, slot: slotID}
	}()
}

// drainCalls closes the replies of calls accepted into a closed call channel
// that will never run.
func drainCalls(calls *memory.Queue[persistentCall]) {
	for {
		c, err := calls.Consume(context.Background())
		if err != nil {
			return
		}
		c.reply.Close()
	}
}

// registerPersistent runs one-time type registration for persistent tasks
// that declare it, sharing the async tasks' exactly-once guarantee.
func (s *Scheduler) registerPersistent(ctx context.Context, t PersistentTask, frame *Frame) error {
	r, ok := t.(Registrable)
	if !ok || s.registry.Registered(t) {
		return nil
	}
	if err := runRegister(ctx, r, frame); err != nil {
		return err
	}
	s.registry.Register(t)
	return nil
}

func runPersistentInit(ctx context.Context, t PersistentTask, frame *Frame) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("persistent init panicked: %v", r)
		}
	}()
	return t.Init(ctx, frame)
}

func runPersistentCall(ctx context.Context, t PersistentTask, frame *Frame, input engine.Value) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Err: fmt.Errorf("persistent call panicked: %v", r)}
		}
	}()
	v, err := t.Call(ctx, frame, input)
	return Outcome{Value: v, Err: err}
}

func runPersistentTeardown(t PersistentTask, frame *Frame) {
	defer func() {
		recover()
	}()
	t.Teardown(frame)
}
