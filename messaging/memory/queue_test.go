package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/uniplex/uniplex/messaging"
)

func TestPublishConsume(t *testing.T) {
	q := NewQueue[int](Config{Capacity: 4})
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		v := i
		assert.NoError(t, q.Publish(ctx, &v))
	}
	assert.Equal(t, 3, q.Size())

	for i := 1; i <= 3; i++ {
		got, err := q.Consume(ctx)
		assert.NoError(t, err)
		assert.Equal(t, i, *got, "FIFO order")
	}
	assert.Equal(t, 0, q.Size())
}

func TestTryPublishFull(t *testing.T) {
	q := NewQueue[int](Config{Capacity: 1})
	one, two := 1, 2

	assert.NoError(t, q.TryPublish(&one))
	assert.ErrorIs(t, q.TryPublish(&two), messaging.ErrFull)
}

func TestPublishAfterClose(t *testing.T) {
	q := NewQueue[int](Config{Capacity: 1})
	q.Close()
	q.Close()

	v := 1
	assert.ErrorIs(t, q.Publish(context.Background(), &v), messaging.ErrClosed)
	assert.ErrorIs(t, q.TryPublish(&v), messaging.ErrClosed)
}

func TestConsumeDrainsAfterClose(t *testing.T) {
	q := NewQueue[int](Config{Capacity: 4})
	ctx := context.Background()

	one, two := 1, 2
	assert.NoError(t, q.TryPublish(&one))
	assert.NoError(t, q.TryPublish(&two))
	q.Close()

	got, err := q.Consume(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, *got)

	got, err = q.Consume(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 2, *got)

	_, err = q.Consume(ctx)
	assert.ErrorIs(t, err, messaging.ErrClosed)
}

func TestConsumeTimeout(t *testing.T) {
	q := NewQueue[int](Config{Capacity: 1})

	_, err := q.ConsumeTimeout(context.Background(), 5*time.Millisecond)
	assert.ErrorIs(t, err, messaging.ErrTimeout)

	v := 7
	assert.NoError(t, q.TryPublish(&v))
	got, err := q.ConsumeTimeout(context.Background(), 5*time.Millisecond)
	assert.NoError(t, err)
	assert.Equal(t, 7, *got)
}

func TestConsumeContextCancel(t *testing.T) {
	q := NewQueue[int](Config{Capacity: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Consume(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConsumeUnblocksOnPublish(t *testing.T) {
	q := NewQueue[string](DefaultConfig())

	go func() {
		time.Sleep(5 * time.Millisecond)
		v := "late"
		_ = q.Publish(context.Background(), &v)
	}()

	got, err := q.Consume(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "late", *got)
}
