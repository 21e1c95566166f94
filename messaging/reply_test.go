package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReplySend(t *testing.T) {
	r := NewReply[int]()
	r.Send(42)

	v, err := r.Recv(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestReplyFirstSettlementWins(t *testing.T) {
	r := NewReply[int]()
	r.Send(1)
	r.Send(2)
	r.Close()

	v, err := r.Recv(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestReplyClosed(t *testing.T) {
	r := NewReply[int]()
	r.Close()
	r.Send(1)

	_, err := r.Recv(context.Background())
	assert.ErrorIs(t, err, ErrClosed, "abandonment is never silent success")
}

func TestReplyRecvContext(t *testing.T) {
	r := NewReply[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := r.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReplyAsyncSend(t *testing.T) {
	r := NewReply[string]()
	go func() {
		time.Sleep(5 * time.Millisecond)
		r.Send("done")
	}()

	v, err := r.Recv(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "done", v)
}
