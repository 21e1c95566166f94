// Package engine defines the contract the scheduler drives: a host runtime
// that must only ever be entered from one goroutine and cannot be entered
// recursively. The C-level bootstrap of a real engine is out of scope; the
// interface below is what the runtime loop requires, and memengine provides
// an in-process implementation used by tests and examples.
package engine

import "errors"

var (
	// ErrAlreadyInitialized is returned by Init when the engine was
	// initialized before, by this process or another embedding. The
	// condition is fatal for the whole runtime, not for a single task.
	ErrAlreadyInitialized = errors.New("engine is already initialized")

	// ErrNotInitialized is returned by calls issued before Init succeeded.
	ErrNotInitialized = errors.New("engine is not initialized")
)

// Options configures engine initialization.
type Options struct {
	// Threads is the number of internal worker threads the engine may use.
	// Zero selects the engine default.
	Threads int
}

// Info describes a successfully initialized engine.
type Info struct {
	threads int
}

// NewInfo creates an Info value; implementations populate it during Init.
func NewInfo(threads int) Info {
	return Info{threads: threads}
}

// Threads returns the number of threads available to the engine.
func (i Info) Threads() int { return i.threads }

// Value is an opaque datum produced or consumed by engine calls.
type Value struct {
	v interface{}
}

// NewValue wraps v as an engine value.
func NewValue(v interface{}) Value {
	return Value{v: v}
}

// Interface returns the wrapped datum.
func (v Value) Interface() interface{} { return v.v }

// IsNil reports whether the value carries no datum.
func (v Value) IsNil() bool { return v.v == nil }

// Engine is the single-goroutine host runtime. None of its methods are safe
// for concurrent use; the scheduler owns the only reference that may call
// them and serializes every call onto its driving goroutine.
type Engine interface {
	// Init boots the engine. It must be called exactly once, before any
	// other method, and fails with ErrAlreadyInitialized otherwise.
	Init(options Options) error

	// Info describes the initialized engine.
	Info() Info

	// Eval evaluates a chunk of source text.
	Eval(src string) (Value, error)

	// Call invokes a named callable with the given arguments.
	Call(name string, args ...Value) (Value, error)

	// SetOption toggles a named global engine option.
	SetOption(name string, enabled bool) error

	// ProcessEvents runs one round of the engine's internal housekeeping.
	ProcessEvents()

	// Shutdown tears the engine down. Called exactly once, after the last
	// task has completed.
	Shutdown()
}
