package uniplex

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/uniplex/uniplex/engine"
	"github.com/uniplex/uniplex/engine/memengine"
	"github.com/uniplex/uniplex/scheduler"
)

type evalTask struct {
	src string
}

func (t *evalTask) Run(ctx context.Context, frame *scheduler.Frame) (engine.Value, error) {
	return frame.Eval(ctx, t.src)
}

func TestServiceEndToEnd(t *testing.T) {
	eng := memengine.New(memengine.WithEvalFunc(func(src string) (engine.Value, error) {
		return engine.NewValue(src), nil
	}))
	srv := New(WithEngine(eng))

	handle, err := srv.Start(context.Background())
	assert.NoError(t, err)

	reply, err := handle.Submit(context.Background(), &evalTask{src: "compute"})
	assert.NoError(t, err)
	out, err := reply.Recv(context.Background())
	assert.NoError(t, err)
	assert.NoError(t, out.Err)
	assert.Equal(t, "compute", out.Value.Interface())

	handle.Close()
	assert.NoError(t, srv.Wait(context.Background()))
	assert.True(t, eng.Down())
}

func TestServiceDefaults(t *testing.T) {
	srv := New()
	assert.NotNil(t, srv.Engine())
	assert.NotNil(t, srv.Registry())

	handle, err := srv.Start(context.Background())
	assert.NoError(t, err)
	handle.Close()
	assert.NoError(t, srv.Wait(context.Background()))
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.NoError(t, config.Validate())
	assert.Equal(t, "uniplex", config.Tracing.ServiceName)
}

func TestValidate(t *testing.T) {
	config := DefaultConfig()
	config.Tracing.Enabled = true
	config.Tracing.ServiceName = ""
	assert.Error(t, config.Validate())
}

func TestLoadConfig(t *testing.T) {
	location := filepath.Join(t.TempDir(), "config.yaml")
	data := `
scheduler:
  poolSize: 3
  channelCapacity: 16
  idleTimeoutMs: 25
  minThreads: 2
tracing:
  serviceName: custom
`
	assert.NoError(t, os.WriteFile(location, []byte(data), 0644))

	config, err := LoadConfig(context.Background(), location)
	assert.NoError(t, err)
	assert.Equal(t, 3, config.Scheduler.PoolSize)
	assert.Equal(t, 16, config.Scheduler.ChannelCapacity)
	assert.Equal(t, 25, config.Scheduler.IdleTimeoutMs)
	assert.Equal(t, 2, config.Scheduler.MinThreads)
	assert.Equal(t, "custom", config.Tracing.ServiceName)
}

func TestLoadConfigMissing(t *testing.T) {
	_, err := LoadConfig(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
