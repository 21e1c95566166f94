package scheduler

import (
	"fmt"
	"runtime"
	"time"
)

// Config represents scheduler configuration.
type Config struct {
	// PoolSize is the number of loanable resource slots; the reserved
	// blocking slot comes on top. A minimum of 1 is enforced.
	PoolSize int

	// ChannelCapacity bounds the control channel.
	ChannelCapacity int

	// IdleTimeout bounds how long the loop waits for a message while tasks
	// are running before performing a housekeeping pass. With no task
	// running the wait is unbounded. Purely a housekeeping cadence, never a
	// task timeout.
	IdleTimeout time.Duration

	// MinThreads is the parallelism budget the engine must report at
	// startup; falling short is fatal.
	MinThreads int

	// EngineThreads is passed to engine initialization; zero selects the
	// engine default.
	EngineThreads int
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		PoolSize:        runtime.NumCPU(),
		ChannelCapacity: 100,
		IdleTimeout:     10 * time.Millisecond,
		MinThreads:      1,
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c.ChannelCapacity < 0 {
		return fmt.Errorf("channel capacity must not be negative")
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("idle timeout must not be negative")
	}
	if c.MinThreads < 1 {
		return fmt.Errorf("minimum thread budget must be at least 1")
	}
	return nil
}

// normalize fills defaults for unset fields and enforces floors.
func (c *Config) normalize() {
	def := DefaultConfig()
	if c.PoolSize == 0 {
		c.PoolSize = def.PoolSize
	}
	if c.PoolSize < 1 {
		c.PoolSize = 1
	}
	if c.ChannelCapacity == 0 {
		c.ChannelCapacity = def.ChannelCapacity
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = def.IdleTimeout
	}
	if c.MinThreads == 0 {
		c.MinThreads = def.MinThreads
	}
}
