// Package scheduler multiplexes task execution onto the single goroutine
// allowed to drive the host engine. Tasks are submitted over a bounded
// control channel together with a oneshot reply; the runtime loop assigns
// free resource slots to runnable tasks, queues the overflow in FIFO order,
// runs blocking work inline on the reserved slot, and performs engine
// housekeeping whenever the control channel stays quiet while tasks run.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/viant/afs"

	"github.com/uniplex/uniplex/engine"
	"github.com/uniplex/uniplex/messaging"
	"github.com/uniplex/uniplex/messaging/memory"
	"github.com/uniplex/uniplex/registry"
	"github.com/uniplex/uniplex/tracing"
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithConfig sets the scheduler configuration.
func WithConfig(config Config) Option {
	return func(s *Scheduler) {
		s.config = config
	}
}

// WithQueue sets the control channel implementation.
func WithQueue(queue messaging.Queue[message]) Option {
	return func(s *Scheduler) {
		s.queue = queue
	}
}

// WithFileService sets the file service used to resolve include locations.
func WithFileService(fs afs.Service) Option {
	return func(s *Scheduler) {
		s.fs = fs
	}
}

// WithRegistry sets the task-type registry.
func WithRegistry(reg *registry.Service) Option {
	return func(s *Scheduler) {
		s.registry = reg
	}
}

// WithSetup installs a one-time setup function executed on the reserved slot
// after engine initialization, before any task runs.
func WithSetup(fn func(ctx context.Context, frame *Frame) error) Option {
	return func(s *Scheduler) {
		s.setup = fn
	}
}

// Scheduler owns the driving goroutine and with it the only capability to
// enter the engine.
type Scheduler struct {
	config   Config
	eng      engine.Engine
	fs       afs.Service
	registry *registry.Service
	setup    func(ctx context.Context, frame *Frame) error

	queue  messaging.Queue[message]
	loopCh chan *message

	pool     *pool
	pending  []*message
	nRunning int
	draining bool
	closing  atomic.Bool

	registering map[string]bool
	regWaiters  map[string][]*message

	ready chan error
	done  chan struct{}
}

// New creates a scheduler for the given engine. The engine must not have been
// initialized; the scheduler performs initialization and the one teardown.
func New(eng engine.Engine, options ...Option) *Scheduler {
	s := &Scheduler{
		config:      DefaultConfig(),
		eng:         eng,
		registering: map[string]bool{},
		regWaiters:  map[string][]*message{},
		ready:       make(chan error, 1),
		done:        make(chan struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	s.config.normalize()
	if s.queue == nil {
		s.queue = memory.NewQueue[message](memory.Config{Capacity: s.config.ChannelCapacity})
	}
	if s.fs == nil {
		s.fs = afs.New()
	}
	if s.registry == nil {
		s.registry = registry.New()
	}
	s.loopCh = make(chan *message, 2*(s.config.PoolSize+1))
	return s
}

// Start spawns the driving goroutine and waits for engine initialization to
// complete. Initialization failures (engine already initialized, insufficient
// parallelism) are fatal and returned here.
func (s *Scheduler) Start(ctx context.Context) (*Handle, error) {
	if err := s.config.Validate(); err != nil {
		return nil, err
	}
	go s.run(ctx)
	if err := <-s.ready; err != nil {
		return nil, err
	}
	return newHandle(s), nil
}

// Wait blocks until the scheduler has fully shut down: control channel
// closed, every running task completed, engine torn down.
func (s *Scheduler) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(s.done)

	if err := s.init(ctx); err != nil {
		s.closing.Store(true)
		s.queue.Close()
		s.abandonQueued()
		s.ready <- err
		return
	}
	s.ready <- nil

	go s.pump(ctx)
	s.loop(ctx)

	// Close the control channel before teardown so late submitters fail
	// fast, and fail closed anything that raced its way in.
	s.queue.Close()
	s.abandonQueued()

	// Last message processed, nothing running: the one and only teardown.
	s.eng.Shutdown()
}

// abandonQueued closes the replies of control messages that were accepted
// into the queue but will never be processed.
func (s *Scheduler) abandonQueued() {
	for {
		m, err := s.queue.Consume(context.Background())
		if err != nil {
			return
		}
		abandon(m)
	}
}

func abandon(m *message) {
	if m.reply != nil {
		m.reply.Close()
	}
	if m.calls != nil {
		m.calls.Close()
	}
}

func (s *Scheduler) init(ctx context.Context) error {
	if err := s.eng.Init(engine.Options{Threads: s.config.EngineThreads}); err != nil {
		return err
	}
	if n := s.eng.Info().Threads(); n < s.config.MinThreads {
		return fmt.Errorf("%w: have %d, need at least %d", ErrMoreThreadsRequired, n, s.config.MinThreads)
	}
	s.pool = newPool(s.config.PoolSize)
	if s.setup != nil {
		if err := s.setup(ctx, s.directFrame(0, 0)); err != nil {
			return fmt.Errorf("one-time setup failed: %w", err)
		}
	}
	return nil
}

// pump moves control messages from the bounded queue onto the loop channel,
// converting queue closure into the loop's termination signal.
func (s *Scheduler) pump(ctx context.Context) {
	for {
		m, err := s.queue.Consume(ctx)
		if err != nil {
			// Queue closed, or the runtime context was cancelled. Either
			// way the queue must stop accepting work before the loop
			// starts draining.
			s.closing.Store(true)
			s.queue.Close()
			s.loopCh <- &message{kind: msgClosed}
			return
		}
		s.loopCh <- m
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	for {
		var m *message
		if s.nRunning > 0 {
			timer := time.NewTimer(s.config.IdleTimeout)
			select {
			case m = <-s.loopCh:
				timer.Stop()
			case <-timer.C:
				// Best-effort housekeeping pass; bounded latency while
				// tasks run, no busy-spin while nothing is pending.
				s.eng.ProcessEvents()
				continue
			}
		} else {
			if s.draining {
				return
			}
			m = <-s.loopCh
		}
		s.handle(ctx, m)
		if s.draining && s.nRunning == 0 {
			return
		}
	}
}

func (s *Scheduler) handle(ctx context.Context, m *message) {
	switch m.kind {
	case msgTask, msgRegister, msgPersistent:
		if m.kind == msgRegister {
			name := registry.Name(m.task)
			if s.registry.Registered(m.task) {
				m.reply.Send(Outcome{})
				return
			}
			if s.registering[name] {
				// One-time setup is already in flight for this type;
				// settle this submission with its outcome.
				s.regWaiters[name] = append(s.regWaiters[name], m)
				return
			}
			s.registering[name] = true
		}
		idx, ok := s.pool.acquire()
		if !ok {
			s.pending = append(s.pending, m)
			return
		}
		s.start(ctx, m, idx)
	case msgComplete:
		s.nRunning--
		if m.regName != "" {
			s.settleRegWaiters(m.regName, m.regErr)
		}
		if len(s.pending) > 0 && !s.closing.Load() {
			// Hand the freed slot straight to the queue head, skipping
			// the free-list round trip. Once the last handle closed,
			// pending work is abandoned instead of promoted.
			next := s.pending[0]
			s.pending = s.pending[1:]
			s.start(ctx, next, m.slot)
			return
		}
		s.pool.release(m.slot)
	case msgBlocking:
		s.runBlocking(ctx, m)
	case msgInclude:
		s.runInclude(ctx, m)
	case msgConfig:
		s.runConfig(ctx, m)
	case msgCall:
		v, err := s.execCall(m.call)
		m.call.reply.Send(Outcome{Value: v, Err: err})
	case msgClosed:
		s.draining = true
		// Accepted but never started; fail the replies closed rather than
		// letting submitters hang.
		for _, p := range s.pending {
			abandon(p)
		}
		s.pending = nil
		for name, waiters := range s.regWaiters {
			for _, w := range waiters {
				abandon(w)
			}
			delete(s.regWaiters, name)
		}
	default:
		log.Printf("scheduler: dropping message of unknown kind %d", m.kind)
	}
}

func (s *Scheduler) start(ctx context.Context, m *message, slotID int) {
	s.nRunning++
	switch m.kind {
	case msgTask:
		s.startTask(ctx, m, slotID)
	case msgRegister:
		s.startRegister(ctx, m, slotID)
	case msgPersistent:
		s.startPersistent(ctx, m, slotID)
	}
}

func (s *Scheduler) startTask(ctx context.Context, m *message, slotID int) {
	frame := s.asyncFrame(slotID, m.capacity)
	go func() {
		ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("scheduler.task %s", m.id), "INTERNAL")
		span.WithAttributes(map[string]string{"task.slot": fmt.Sprintf("%d", slotID)})
		defer m.reply.Close()
		out := runTask(ctx, m.task, frame)
		tracing.EndSpan(span, out.Err)
		m.reply.Send(out)
		s.loopCh <- &message{kind: msgComplete, slot: slotID}
	}()
}

func (s *Scheduler) startRegister(ctx context.Context, m *message, slotID int) {
	frame := s.asyncFrame(slotID, 0)
	name := registry.Name(m.task)
	go func() {
		defer m.reply.Close()
		var err error
		if r, ok := m.task.(Registrable); ok {
			err = runRegister(ctx, r, frame)
		}
		if err == nil {
			s.registry.Register(m.task)
		}
		m.reply.Send(Outcome{Err: err})
		s.loopCh <- &message{kind: msgComplete, slot: slotID, regName: name, regErr: err}
	}()
}

// settleRegWaiters delivers a finished registration's outcome to submissions
// that arrived while it was in flight.
func (s *Scheduler) settleRegWaiters(name string, err error) {
	delete(s.registering, name)
	for _, w := range s.regWaiters[name] {
		w.reply.Send(Outcome{Err: err})
	}
	delete(s.regWaiters, name)
}

func (s *Scheduler) runBlocking(ctx context.Context, m *message) {
	_, span := tracing.StartSpan(ctx, "scheduler.blocking", "INTERNAL")
	defer m.reply.Close()
	out := runBlockingFunc(m.blocking, s.directFrame(0, m.capacity))
	tracing.EndSpan(span, out.Err)
	m.reply.Send(out)
}

func (s *Scheduler) runInclude(ctx context.Context, m *message) {
	_, span := tracing.StartSpan(ctx, fmt.Sprintf("scheduler.include %s", m.location), "INTERNAL")
	defer m.reply.Close()
	data, err := s.fs.DownloadWithURL(ctx, m.location)
	if err != nil {
		err = fmt.Errorf("failed to load %v: %w", m.location, err)
		tracing.EndSpan(span, err)
		m.reply.Send(Outcome{Err: err})
		return
	}
	v, err := s.eng.Eval(string(data))
	tracing.EndSpan(span, err)
	m.reply.Send(Outcome{Value: v, Err: err})
}

func (s *Scheduler) runConfig(ctx context.Context, m *message) {
	defer m.reply.Close()
	err := s.eng.SetOption(m.option, m.enabled)
	m.reply.Send(Outcome{Err: err})
}

func (s *Scheduler) execCall(c *engineCall) (engine.Value, error) {
	if c.eval {
		return s.eng.Eval(c.src)
	}
	return s.eng.Call(c.name, c.args...)
}

func runTask(ctx context.Context, t Task, frame *Frame) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Err: fmt.Errorf("task panicked: %v", r)}
		}
	}()
	v, err := t.Run(ctx, frame)
	return Outcome{Value: v, Err: err}
}

func runRegister(ctx context.Context, r Registrable, frame *Frame) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("registration panicked: %v", rec)
		}
	}()
	return r.Register(ctx, frame)
}

func runBlockingFunc(fn BlockingFunc, frame *Frame) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Err: fmt.Errorf("blocking task panicked: %v", r)}
		}
	}()
	v, err := fn(frame)
	return Outcome{Value: v, Err: err}
}
