// Package memengine provides an in-process implementation of the engine
// contract. It is used by tests and examples, and doubles as an executable
// description of the host runtime's single-entry discipline: every call
// asserts that no other call is in flight.
package memengine

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/uniplex/uniplex/engine"
)

// Func is a callable registered with the engine.
type Func func(args ...engine.Value) (engine.Value, error)

// Option configures an Engine.
type Option func(*Engine)

// WithFunc registers a named callable.
func WithFunc(name string, fn Func) Option {
	return func(e *Engine) {
		e.funcs[name] = fn
	}
}

// WithEvalFunc overrides the evaluator invoked by Eval.
func WithEvalFunc(fn func(src string) (engine.Value, error)) Option {
	return func(e *Engine) {
		e.evalFn = fn
	}
}

// WithThreads fixes the thread count reported by Info.
func WithThreads(n int) Option {
	return func(e *Engine) {
		e.threads = n
	}
}

// Engine is an in-memory host engine. Like the real thing it is strictly
// non-reentrant: concurrent or recursive calls panic instead of corrupting
// state, which makes scheduler bugs loud in tests.
type Engine struct {
	entered     int32
	initialized bool
	down        bool
	threads     int
	funcs       map[string]Func
	options     map[string]bool
	evaluated   []string
	events      int
	evalFn      func(src string) (engine.Value, error)
}

// New creates an engine; Init must still be called before use.
func New(options ...Option) *Engine {
	e := &Engine{
		threads: runtime.NumCPU(),
		funcs:   map[string]Func{},
		options: map[string]bool{},
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

func (e *Engine) enter() {
	if !atomic.CompareAndSwapInt32(&e.entered, 0, 1) {
		panic("memengine: reentrant or concurrent engine call")
	}
}

func (e *Engine) leave() {
	atomic.StoreInt32(&e.entered, 0)
}

// Init boots the engine. A second call fails with ErrAlreadyInitialized.
func (e *Engine) Init(options engine.Options) error {
	e.enter()
	defer e.leave()

	if e.initialized {
		return engine.ErrAlreadyInitialized
	}
	if options.Threads > 0 {
		e.threads = options.Threads
	}
	e.initialized = true
	return nil
}

// Info describes the engine.
func (e *Engine) Info() engine.Info {
	return engine.NewInfo(e.threads)
}

// Eval evaluates a chunk of source text. Without a custom evaluator the
// source is recorded and a nil value returned.
func (e *Engine) Eval(src string) (engine.Value, error) {
	e.enter()
	defer e.leave()

	if !e.initialized || e.down {
		return engine.Value{}, engine.ErrNotInitialized
	}
	e.evaluated = append(e.evaluated, src)
	if e.evalFn != nil {
		return e.evalFn(src)
	}
	return engine.Value{}, nil
}

// Call invokes a registered callable.
func (e *Engine) Call(name string, args ...engine.Value) (engine.Value, error) {
	e.enter()
	defer e.leave()

	if !e.initialized || e.down {
		return engine.Value{}, engine.ErrNotInitialized
	}
	fn, ok := e.funcs[name]
	if !ok {
		return engine.Value{}, fmt.Errorf("callable %q not found", name)
	}
	return fn(args...)
}

// SetOption toggles a named global option.
func (e *Engine) SetOption(name string, enabled bool) error {
	e.enter()
	defer e.leave()

	if !e.initialized || e.down {
		return engine.ErrNotInitialized
	}
	e.options[name] = enabled
	return nil
}

// ProcessEvents runs one housekeeping round.
func (e *Engine) ProcessEvents() {
	e.enter()
	defer e.leave()
	e.events++
}

// Shutdown tears the engine down.
func (e *Engine) Shutdown() {
	e.enter()
	defer e.leave()
	e.down = true
}

// Option reports the current state of a named option.
func (e *Engine) Option(name string) bool { return e.options[name] }

// Evaluated returns the sources passed to Eval, in order.
func (e *Engine) Evaluated() []string {
	return append([]string(nil), e.evaluated...)
}

// Events returns the number of housekeeping rounds run so far.
func (e *Engine) Events() int { return e.events }

// Down reports whether Shutdown has been called.
func (e *Engine) Down() bool { return e.down }

var _ engine.Engine = (*Engine)(nil)
