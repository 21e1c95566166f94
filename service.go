package uniplex

import (
	"context"

	"github.com/viant/afs"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/uniplex/uniplex/engine"
	"github.com/uniplex/uniplex/engine/memengine"
	"github.com/uniplex/uniplex/registry"
	"github.com/uniplex/uniplex/scheduler"
	"github.com/uniplex/uniplex/tracing"
)

// Service wires the engine, registry and scheduler into a single runtime.
type Service struct {
	config        *Config
	eng           engine.Engine
	registry      *registry.Service
	fs            afs.Service
	setup         func(ctx context.Context, frame *scheduler.Frame) error
	traceExporter sdktrace.SpanExporter
	sched         *scheduler.Scheduler
}

// New creates a service. Without options it runs the in-memory engine with
// default configuration.
func New(options ...Option) *Service {
	ret := &Service{}
	ret.init(options)
	return ret
}

func (s *Service) init(options []Option) {
	for _, option := range options {
		option(s)
	}
	s.ensureBaseSetup()
	s.sched = scheduler.New(s.eng,
		scheduler.WithConfig(s.config.Scheduler.toScheduler()),
		scheduler.WithFileService(s.fs),
		scheduler.WithRegistry(s.registry),
		scheduler.WithSetup(s.setup))
}

func (s *Service) ensureBaseSetup() {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if s.eng == nil {
		s.eng = memengine.New()
	}
	if s.registry == nil {
		s.registry = registry.New()
	}
	if s.fs == nil {
		s.fs = afs.New()
	}
}

// Start validates the configuration, initialises tracing when enabled, and
// launches the driving goroutine. The returned handle is the caller's first
// reference; dropping the last reference shuts the runtime down.
func (s *Service) Start(ctx context.Context) (*scheduler.Handle, error) {
	if err := s.config.Validate(); err != nil {
		return nil, err
	}
	if s.traceExporter != nil {
		if err := tracing.InitWithExporter(s.config.Tracing.ServiceName, s.config.Tracing.ServiceVersion, s.traceExporter); err != nil {
			return nil, err
		}
	} else if s.config.Tracing.Enabled {
		if err := tracing.Init(s.config.Tracing.ServiceName, s.config.Tracing.ServiceVersion, s.config.Tracing.OutputFile); err != nil {
			return nil, err
		}
	}
	return s.sched.Start(ctx)
}

// Registry returns the task-type registry.
func (s *Service) Registry() *registry.Service {
	return s.registry
}

// Engine returns the host engine.
func (s *Service) Engine() engine.Engine {
	return s.eng
}

// Wait blocks until the runtime has fully shut down.
func (s *Service) Wait(ctx context.Context) error {
	return s.sched.Wait(ctx)
}
