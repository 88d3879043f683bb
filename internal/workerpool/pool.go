// Package workerpool runs action invocations on owned goroutines with an
// optional concurrency bound, panic isolation and a draining shutdown.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// ErrShutdown is returned when work is submitted to a shut-down pool.
	ErrShutdown = errors.New("workerpool: shut down")

	// ErrSaturated is returned by TrySubmit when every worker is busy.
	ErrSaturated = errors.New("workerpool: saturated")
)

// Metrics is a snapshot of pool counters.
type Metrics struct {
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Rejected  int64 `json:"rejected"`
	Panics    int64 `json:"panics"`
}

// PanicHandler receives a value recovered from a task.
type PanicHandler func(recovered any)

// Pool is a goroutine pool. Size 0 means no bound: every accepted task
// gets its own goroutine immediately.
type Pool struct {
	sem     chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	done    chan struct{}
	closed  bool
	onPanic PanicHandler

	active    atomic.Int64
	completed atomic.Int64
	rejected  atomic.Int64
	panics    atomic.Int64
}

// New creates a pool running at most size tasks at once. size <= 0 is unbounded.
func New(size int) *Pool {
	p := &Pool{done: make(chan struct{})}
	if size > 0 {
		p.sem = make(chan struct{}, size)
	}
	return p
}

// OnPanic installs a handler for panics recovered from tasks.
func (p *Pool) OnPanic(h PanicHandler) {
	p.mu.Lock()
	p.onPanic = h
	p.mu.Unlock()
}

// Size returns the concurrency bound, 0 when unbounded.
func (p *Pool) Size() int {
	return cap(p.sem)
}

// TrySubmit starts fn if a worker is free and returns ErrSaturated otherwise.
// It never blocks.
func (p *Pool) TrySubmit(fn func()) error {
	if p.sem != nil {
		select {
		case p.sem <- struct{}{}:
		default:
			p.rejected.Add(1)
			return ErrSaturated
		}
	}
	return p.start(fn)
}

// Submit starts fn, waiting for a free worker if the pool is bounded.
// Waiting stops on ctx cancellation or shutdown.
func (p *Pool) Submit(ctx context.Context, fn func()) error {
	if p.sem != nil {
		select {
		case p.sem <- struct{}{}:
		case <-ctx.Done():
			p.rejected.Add(1)
			return ctx.Err()
		case <-p.done:
			p.rejected.Add(1)
			return ErrShutdown
		}
	}
	return p.start(fn)
}

// start runs fn on a new goroutine. The caller already holds a slot when bounded.
func (p *Pool) start(fn func()) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.release()
		p.rejected.Add(1)
		return ErrShutdown
	}
	// wg.Add under the lock so Shutdown's Wait cannot miss this task.
	p.wg.Add(1)
	p.active.Add(1)
	onPanic := p.onPanic
	p.mu.Unlock()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.panics.Add(1)
				if onPanic != nil {
					onPanic(r)
				}
			}
			p.active.Add(-1)
			p.completed.Add(1)
			p.release()
			p.wg.Done()
		}()
		fn()
	}()
	return nil
}

func (p *Pool) release() {
	if p.sem != nil {
		<-p.sem
	}
}

// Wait blocks until every accepted task has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Shutdown refuses new work and waits for running tasks until ctx ends.
// Calling it again is a no-op that waits the same way.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.done)
	}
	p.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for %d running tasks: %w", p.active.Load(), ctx.Err())
	}
}

// Closed reports whether Shutdown has been called.
func (p *Pool) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Metrics returns a snapshot of the counters.
func (p *Pool) Metrics() Metrics {
	return Metrics{
		Active:    p.active.Load(),
		Completed: p.completed.Load(),
		Rejected:  p.rejected.Load(),
		Panics:    p.panics.Load(),
	}
}
