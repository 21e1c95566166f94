package uniplex

import (
	"context"

	"github.com/viant/afs"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/uniplex/uniplex/engine"
	"github.com/uniplex/uniplex/registry"
	"github.com/uniplex/uniplex/scheduler"
)

// Option customises the service.
type Option func(s *Service)

// WithConfig sets the service configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithEngine sets the host engine implementation.
func WithEngine(eng engine.Engine) Option {
	return func(s *Service) {
		s.eng = eng
	}
}

// WithRegistry sets the task-type registry.
func WithRegistry(reg *registry.Service) Option {
	return func(s *Service) {
		s.registry = reg
	}
}

// WithFileService sets the file service used for includes and config loading.
func WithFileService(fs afs.Service) Option {
	return func(s *Service) {
		s.fs = fs
	}
}

// WithSetup installs a one-time setup function run on the reserved slot right
// after engine initialization.
func WithSetup(fn func(ctx context.Context, frame *scheduler.Frame) error) Option {
	return func(s *Service) {
		s.setup = fn
	}
}

// WithTracingExporter routes spans to the supplied exporter instead of the
// stdout exporter configured through TracingConfig.
func WithTracingExporter(exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		s.traceExporter = exporter
	}
}
