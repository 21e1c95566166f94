package uniplex

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/uniplex/uniplex/scheduler"
)

// Config is a serialisable representation of the runtime configuration. It
// can be populated from JSON, YAML, environment variables, etc. The
// zero-value is useful; all nested fields inherit their package defaults.
type Config struct {
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler"`
	Tracing   TracingConfig   `json:"tracing" yaml:"tracing"`
}

// SchedulerConfig mirrors scheduler.Config in a wire-friendly shape.
type SchedulerConfig struct {
	PoolSize        int `json:"poolSize" yaml:"poolSize"`
	ChannelCapacity int `json:"channelCapacity" yaml:"channelCapacity"`
	IdleTimeoutMs   int `json:"idleTimeoutMs" yaml:"idleTimeoutMs"`
	MinThreads      int `json:"minThreads" yaml:"minThreads"`
	EngineThreads   int `json:"engineThreads" yaml:"engineThreads"`
}

// TracingConfig controls span export.
type TracingConfig struct {
	Enabled        bool   `json:"enabled" yaml:"enabled"`
	ServiceName    string `json:"serviceName" yaml:"serviceName"`
	ServiceVersion string `json:"serviceVersion" yaml:"serviceVersion"`
	OutputFile     string `json:"outputFile" yaml:"outputFile"`
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() *Config {
	def := scheduler.DefaultConfig()
	return &Config{
		Scheduler: SchedulerConfig{
			PoolSize:        def.PoolSize,
			ChannelCapacity: def.ChannelCapacity,
			IdleTimeoutMs:   int(def.IdleTimeout / time.Millisecond),
			MinThreads:      def.MinThreads,
		},
		Tracing: TracingConfig{ServiceName: "uniplex"},
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	sc := c.Scheduler.toScheduler()
	if err := sc.Validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if c.Tracing.Enabled && c.Tracing.ServiceName == "" {
		return fmt.Errorf("tracing.serviceName must not be empty when tracing is enabled")
	}
	return nil
}

func (c *SchedulerConfig) toScheduler() scheduler.Config {
	ret := scheduler.DefaultConfig()
	if c.PoolSize != 0 {
		ret.PoolSize = c.PoolSize
	}
	if c.ChannelCapacity != 0 {
		ret.ChannelCapacity = c.ChannelCapacity
	}
	if c.IdleTimeoutMs != 0 {
		ret.IdleTimeout = time.Duration(c.IdleTimeoutMs) * time.Millisecond
	}
	if c.MinThreads != 0 {
		ret.MinThreads = c.MinThreads
	}
	ret.EngineThreads = c.EngineThreads
	return ret
}

// LoadConfig reads and decodes a YAML configuration from the supplied
// location, which may be a local path or any URL the file service supports.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %v: %w", URL, err)
	}
	ret := DefaultConfig()
	if err := yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to parse config %v: %w", URL, err)
	}
	return ret, nil
}
