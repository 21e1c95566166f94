package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/uniplex/uniplex/internal/idgen"
	"github.com/uniplex/uniplex/messaging"
	"github.com/uniplex/uniplex/messaging/memory"
)

// Handle submits work to a running scheduler. Handles are reference counted:
// Clone hands a handle to another goroutine, Close drops one reference, and
// when the last reference is dropped the control channel closes and the
// scheduler begins draining. Each method comes in a blocking flavor that
// waits for channel capacity and a Try flavor that fails fast with
// ErrChannelFull.
type Handle struct {
	sched *Scheduler
	refs  *atomic.Int64
}

func newHandle(s *Scheduler) *Handle {
	refs := &atomic.Int64{}
	refs.Store(1)
	return &Handle{sched: s, refs: refs}
}

// Clone returns a new reference to the same scheduler.
func (h *Handle) Clone() *Handle {
	h.refs.Add(1)
	return &Handle{sched: h.sched, refs: h.refs}
}

// Close drops this reference. When the last reference is dropped the control
// channel closes; tasks already running keep their completion path open while
// pending-but-unstarted work is abandoned.
func (h *Handle) Close() {
	if h.refs.Add(-1) == 0 {
		h.sched.closing.Store(true)
		h.sched.queue.Close()
	}
}

// Wait blocks until the scheduler has fully shut down.
func (h *Handle) Wait(ctx context.Context) error {
	return h.sched.Wait(ctx)
}

// Submit schedules an async task and returns a reply settled with the task
// outcome. Blocks while the control channel is at capacity.
func (h *Handle) Submit(ctx context.Context, task Task) (*messaging.Reply[Outcome], error) {
	return h.submit(ctx, &message{kind: msgTask, task: task})
}

// SubmitWithCapacity is Submit with an explicit rooting capacity request.
func (h *Handle) SubmitWithCapacity(ctx context.Context, task Task, capacity int) (*messaging.Reply[Outcome], error) {
	return h.submit(ctx, &message{kind: msgTask, task: task, capacity: capacity})
}

// TrySubmit is Submit without waiting for channel capacity.
func (h *Handle) TrySubmit(task Task) (*messaging.Reply[Outcome], error) {
	return h.trySubmit(&message{kind: msgTask, task: task})
}

// Register runs the task's one-time registration on a pool slot and records
// the task type. Registering an already registered type succeeds immediately.
func (h *Handle) Register(ctx context.Context, task Task) (*messaging.Reply[Outcome], error) {
	return h.submit(ctx, &message{kind: msgRegister, task: task})
}

// TryRegister is Register without waiting for channel capacity.
func (h *Handle) TryRegister(task Task) (*messaging.Reply[Outcome], error) {
	return h.trySubmit(&message{kind: msgRegister, task: task})
}

// Blocking runs fn inline on the driving goroutine using the reserved slot.
// No async task makes progress until fn returns; use for short engine-bound
// work that must not interleave.
func (h *Handle) Blocking(ctx context.Context, fn BlockingFunc) (*messaging.Reply[Outcome], error) {
	return h.submit(ctx, &message{kind: msgBlocking, blocking: fn})
}

// BlockingWithCapacity is Blocking with an explicit rooting capacity request.
func (h *Handle) BlockingWithCapacity(ctx context.Context, fn BlockingFunc, capacity int) (*messaging.Reply[Outcome], error) {
	return h.submit(ctx, &message{kind: msgBlocking, blocking: fn, capacity: capacity})
}

// TryBlocking is Blocking without waiting for channel capacity.
func (h *Handle) TryBlocking(fn BlockingFunc) (*messaging.Reply[Outcome], error) {
	return h.trySubmit(&message{kind: msgBlocking, blocking: fn})
}

// TryBlockingWithCapacity is BlockingWithCapacity without waiting for channel
// capacity.
func (h *Handle) TryBlockingWithCapacity(fn BlockingFunc, capacity int) (*messaging.Reply[Outcome], error) {
	return h.trySubmit(&message{kind: msgBlocking, blocking: fn, capacity: capacity})
}

// Include loads the source at location and evaluates it on the driving
// goroutine. The location is checked for existence before the message is
// enqueued.
func (h *Handle) Include(ctx context.Context, location string) (*messaging.Reply[Outcome], error) {
	if err := h.checkInclude(ctx, location); err != nil {
		return nil, err
	}
	return h.submit(ctx, &message{kind: msgInclude, location: location})
}

// TryInclude is Include without waiting for channel capacity.
func (h *Handle) TryInclude(ctx context.Context, location string) (*messaging.Reply[Outcome], error) {
	if err := h.checkInclude(ctx, location); err != nil {
		return nil, err
	}
	return h.trySubmit(&message{kind: msgInclude, location: location})
}

func (h *Handle) checkInclude(ctx context.Context, location string) error {
	ok, err := h.sched.fs.Exists(ctx, location)
	if err != nil {
		return fmt.Errorf("failed to check %v: %w", location, err)
	}
	if !ok {
		return fmt.Errorf("%w: %v", ErrIncludeNotFound, location)
	}
	return nil
}

// SetOption toggles a named engine option on the driving goroutine.
func (h *Handle) SetOption(ctx context.Context, option string, enabled bool) (*messaging.Reply[Outcome], error) {
	return h.submit(ctx, &message{kind: msgConfig, option: option, enabled: enabled})
}

// TrySetOption is SetOption without waiting for channel capacity.
func (h *Handle) TrySetOption(option string, enabled bool) (*messaging.Reply[Outcome], error) {
	return h.trySubmit(&message{kind: msgConfig, option: option, enabled: enabled})
}

// SpawnPersistent starts a persistent task on a pool slot. The returned
// handle's reply settles once initialization has finished; on success the
// persistent handle accepts calls until closed.
func (h *Handle) SpawnPersistent(ctx context.Context, task PersistentTask) (*PersistentHandle, *messaging.Reply[Outcome], error) {
	m := h.persistentMessage(task)
	reply, err := h.submit(ctx, m)
	if err != nil {
		return nil, nil, err
	}
	return newPersistentHandle(m.calls), reply, nil
}

// TrySpawnPersistent is SpawnPersistent without waiting for channel capacity.
func (h *Handle) TrySpawnPersistent(task PersistentTask) (*PersistentHandle, *messaging.Reply[Outcome], error) {
	m := h.persistentMessage(task)
	reply, err := h.trySubmit(m)
	if err != nil {
		return nil, nil, err
	}
	return newPersistentHandle(m.calls), reply, nil
}

func (h *Handle) persistentMessage(task PersistentTask) *message {
	capacity := task.ChannelCapacity()
	if capacity < 1 {
		capacity = 1
	}
	return &message{
		kind:  msgPersistent,
		ptask: task,
		calls: memory.NewQueue[persistentCall](memory.Config{Capacity: capacity}),
	}
}

func (h *Handle) submit(ctx context.Context, m *message) (*messaging.Reply[Outcome], error) {
	m.id = idgen.New()
	m.reply = messaging.NewReply[Outcome]()
	if err := h.sched.queue.Publish(ctx, m); err != nil {
		return nil, mapQueueErr(err)
	}
	return m.reply, nil
}

func (h *Handle) trySubmit(m *message) (*messaging.Reply[Outcome], error) {
	m.id = idgen.New()
	m.reply = messaging.NewReply[Outcome]()
	if err := h.sched.queue.TryPublish(m); err != nil {
		return nil, mapQueueErr(err)
	}
	return m.reply, nil
}

func mapQueueErr(err error) error {
	switch {
	case errors.Is(err, messaging.ErrFull):
		return ErrChannelFull
	case errors.Is(err, messaging.ErrClosed):
		return ErrChannelClosed
	default:
		return err
	}
}
