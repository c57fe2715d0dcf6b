// Package scheduler runs named periodic and one-shot tasks that can be
// cancelled and restarted. Time comes from a clockwork.Clock so tests can
// drive ticks with a fake clock.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Handle controls one running task. Stop is idempotent and safe on a nil
// handle; it never waits for the task body, which may be blocked on I/O.
type Handle struct {
	ctx    context.Context
	cancel context.CancelFunc
	ticker clockwork.Ticker
	done   chan struct{}
	once   sync.Once
}

// Stop cancels the task. A stopped periodic task starts no further ticks.
func (h *Handle) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		h.cancel()
		if h.ticker != nil {
			h.ticker.Stop()
		}
	})
}

// Stopped reports whether Stop was called or the parent context ended
func (h *Handle) Stopped() bool {
	return h == nil || h.ctx.Err() != nil
}

// Done is closed once the task goroutine has returned
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Every calls fn every interval, first after one full interval
func Every(ctx context.Context, clock clockwork.Clock, interval time.Duration, fn func(context.Context)) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		ctx:    ctx,
		cancel: cancel,
		ticker: clock.NewTicker(interval),
		done:   make(chan struct{}),
	}

	go func() {
		defer close(h.done)
		defer h.ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-h.ticker.Chan():
				// select picks randomly when both are ready
				if ctx.Err() != nil {
					return
				}
				fn(ctx)
			}
		}
	}()
	return h
}

// Once runs fn a single time on its own goroutine
func Once(ctx context.Context, fn func(context.Context)) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(h.done)
		defer cancel()
		fn(ctx)
	}()
	return h
}

// Scheduler owns a set of named tasks. Starting a task under a name that is
// already in use cancels the previous one first.
type Scheduler struct {
	clock  clockwork.Clock
	ctx    context.Context
	cancel context.CancelFunc
	logger zerolog.Logger

	mu     sync.Mutex
	tasks  map[string]*Handle
	closed bool
}

// New creates a scheduler whose tasks end when ctx ends or Close is called
func New(ctx context.Context, clock clockwork.Clock) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Scheduler{
		clock:  clock,
		ctx:    ctx,
		cancel: cancel,
		logger: log.With().Str("component", "scheduler").Logger(),
		tasks:  make(map[string]*Handle),
	}
}

// Clock returns the clock driving the tasks
func (s *Scheduler) Clock() clockwork.Clock {
	return s.clock
}

// Every (re)starts the periodic task name. It returns nil after Close.
func (s *Scheduler) Every(name string, interval time.Duration, fn func(context.Context)) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.tasks[name].Stop()
	h := Every(s.ctx, s.clock, interval, fn)
	s.tasks[name] = h
	s.logger.Debug().Str("task", name).Dur("interval", interval).Msg("Task started")
	return h
}

// Go (re)starts the one-shot task name. It returns nil after Close.
func (s *Scheduler) Go(name string, fn func(context.Context)) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.tasks[name].Stop()
	h := Once(s.ctx, fn)
	s.tasks[name] = h
	return h
}

// Stop cancels the task name; unknown names are ignored
func (s *Scheduler) Stop(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.tasks[name]; ok {
		h.Stop()
		delete(s.tasks, name)
		s.logger.Debug().Str("task", name).Msg("Task stopped")
	}
}

// Running reports whether name is scheduled and not cancelled
func (s *Scheduler) Running(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.tasks[name]
	if !ok || h.Stopped() {
		return false
	}
	select {
	case <-h.Done():
		return false
	default:
		return true
	}
}

// Close cancels every task. Further Every/Go calls are no-ops.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for name, h := range s.tasks {
		h.Stop()
		delete(s.tasks, name)
	}
	s.cancel()
}
