package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/uniplex/uniplex/engine"
	"github.com/uniplex/uniplex/messaging"
)

type accumulatorTask struct {
	sum      int
	initErr  error
	tornDown bool
	capacity int
}

func (t *accumulatorTask) Init(ctx context.Context, frame *Frame) error {
	return t.initErr
}

func (t *accumulatorTask) Call(ctx context.Context, frame *Frame, input engine.Value) (engine.Value, error) {
	n, ok := input.Interface().(int)
	if !ok {
		return engine.Value{}, errors.New("expected int input")
	}
	t.sum += n
	return engine.NewValue(t.sum), nil
}

func (t *accumulatorTask) Teardown(frame *Frame) {
	t.tornDown = true
}

func (t *accumulatorTask) ChannelCapacity() int {
	if t.capacity > 0 {
		return t.capacity
	}
	return 4
}

func TestPersistentTask(t *testing.T) {
	eng := echoEngine()
	s, h := startScheduler(t, eng)

	task := &accumulatorTask{}
	ph, initReply, err := h.SpawnPersistent(context.Background(), task)
	assert.NoError(t, err)

	out, err := initReply.Recv(context.Background())
	assert.NoError(t, err)
	assert.NoError(t, out.Err)

	for i, expect := range []int{3, 10} {
		input := 3
		if i == 1 {
			input = 7
		}
		reply, err := ph.Call(context.Background(), engine.NewValue(input))
		assert.NoError(t, err)
		out, err := reply.Recv(context.Background())
		assert.NoError(t, err)
		assert.NoError(t, out.Err)
		assert.Equal(t, expect, out.Value.Interface(), "calls run in order against shared state")
	}

	ph.Close()
	h.Close()
	assert.NoError(t, s.Wait(context.Background()))
	assert.True(t, task.tornDown, "teardown runs after the last handle drops")
}

func TestPersistentCallError(t *testing.T) {
	eng := echoEngine()
	s, h := startScheduler(t, eng)

	task := &accumulatorTask{}
	ph, initReply, err := h.SpawnPersistent(context.Background(), task)
	assert.NoError(t, err)
	_, err = initReply.Recv(context.Background())
	assert.NoError(t, err)

	reply, err := ph.Call(context.Background(), engine.NewValue("not an int"))
	assert.NoError(t, err)
	out, err := reply.Recv(context.Background())
	assert.NoError(t, err)
	assert.Error(t, out.Err)

	// An errored call does not kill the task.
	reply, err = ph.Call(context.Background(), engine.NewValue(5))
	assert.NoError(t, err)
	out, err = reply.Recv(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 5, out.Value.Interface())

	ph.Close()
	h.Close()
	assert.NoError(t, s.Wait(context.Background()))
}

func TestPersistentInitFailure(t *testing.T) {
	eng := echoEngine()
	s, h := startScheduler(t, eng)

	task := &accumulatorTask{initErr: errors.New("init boom")}
	ph, initReply, err := h.SpawnPersistent(context.Background(), task)
	assert.NoError(t, err)

	out, err := initReply.Recv(context.Background())
	assert.NoError(t, err)
	assert.ErrorContains(t, out.Err, "init boom")

	_, err = ph.Call(context.Background(), engine.NewValue(1))
	assert.ErrorIs(t, err, ErrChannelClosed, "failed init refuses calls")

	h.Close()
	assert.NoError(t, s.Wait(context.Background()))
}

func TestPersistentHandleClone(t *testing.T) {
	eng := echoEngine()
	s, h := startScheduler(t, eng)

	task := &accumulatorTask{}
	ph, initReply, err := h.SpawnPersistent(context.Background(), task)
	assert.NoError(t, err)
	_, err = initReply.Recv(context.Background())
	assert.NoError(t, err)

	clone := ph.Clone()
	ph.Close()

	reply, err := clone.Call(context.Background(), engine.NewValue(2))
	assert.NoError(t, err, "clone keeps the task alive")
	out, err := reply.Recv(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, out.Value.Interface())

	clone.Close()
	h.Close()
	assert.NoError(t, s.Wait(context.Background()))
}

func TestPersistentContextCancelFailsClosed(t *testing.T) {
	eng := echoEngine()
	s := New(eng)
	ctx, cancel := context.WithCancel(context.Background())
	h, err := s.Start(ctx)
	assert.NoError(t, err)

	task := &accumulatorTask{}
	ph, initReply, err := h.SpawnPersistent(context.Background(), task)
	assert.NoError(t, err)
	out, err := initReply.Recv(context.Background())
	assert.NoError(t, err)
	assert.NoError(t, out.Err)

	cancel()
	assert.NoError(t, s.Wait(context.Background()))
	assert.True(t, task.tornDown, "runtime shutdown retires the task")

	// The call channel closed with the runtime; a late call fails fast
	// instead of being accepted and never replied to.
	_, err = ph.Call(context.Background(), engine.NewValue(1))
	assert.ErrorIs(t, err, ErrChannelClosed)
}

func TestPersistentDrainsQueuedCallsOnClose(t *testing.T) {
	eng := echoEngine()
	s, h := startScheduler(t, eng)

	task := &accumulatorTask{capacity: 8}
	ph, initReply, err := h.SpawnPersistent(context.Background(), task)
	assert.NoError(t, err)
	_, err = initReply.Recv(context.Background())
	assert.NoError(t, err)

	var replies []*messaging.Reply[Outcome]
	for i := 0; i < 5; i++ {
		reply, err := ph.Call(context.Background(), engine.NewValue(1))
		assert.NoError(t, err)
		replies = append(replies, reply)
	}
	ph.Close()

	for _, reply := range replies {
		out, err := reply.Recv(context.Background())
		assert.NoError(t, err, "accepted calls are answered even after close")
		assert.NoError(t, out.Err)
	}

	h.Close()
	assert.NoError(t, s.Wait(context.Background()))
}
