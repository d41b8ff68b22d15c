// Package executor provides a bounded worker pool for running submitted
// units of work. Each submission returns a Task handle that exposes the
// outcome, supports pre-start cancellation, and fires completion callbacks
// exactly once.
package executor

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrCancelled is the outcome of a task cancelled before it started.
var ErrCancelled = errors.New("task cancelled before execution")

// Func is a unit of work. It returns a value or an error; panics are caught
// by the worker and converted into errors.
type Func func() (any, error)

const (
	statePending = iota
	stateRunning
	stateDone
)

// Task is the handle for one submitted unit of work.
type Task struct {
	mu        sync.Mutex
	state     int
	run       Func
	cancelled bool
	value     any
	err       error
	done      chan struct{}
	callbacks []func(*Task)
}

// Done reports whether the task has reached its final outcome.
func (t *Task) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == stateDone
}

// Cancelled reports whether the task was cancelled before it started.
func (t *Task) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Wait blocks until the task finishes and returns its outcome. A task
// cancelled before starting returns ErrCancelled.
func (t *Task) Wait() (any, error) {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value, t.err
}

// TryCancel cancels the task if it has not started. It returns true only
// when the cancellation was accepted; a running or finished task is left
// untouched. On acceptance the task finishes immediately with ErrCancelled
// and its completion callbacks fire.
func (t *Task) TryCancel() bool {
	t.mu.Lock()
	if t.state != statePending {
		t.mu.Unlock()
		return false
	}
	t.cancelled = true
	t.finishLocked(nil, ErrCancelled)
	return true
}

// OnDone registers a callback invoked exactly once after the task's outcome
// is final. If the task is already done the callback runs immediately on the
// calling goroutine; otherwise it runs on whichever goroutine finishes the
// task.
func (t *Task) OnDone(fn func(*Task)) {
	t.mu.Lock()
	if t.state == stateDone {
		t.mu.Unlock()
		fn(t)
		return
	}
	t.callbacks = append(t.callbacks, fn)
	t.mu.Unlock()
}

// finishLocked records the outcome and releases waiters and callbacks.
// The caller must hold t.mu; the lock is released before callbacks run.
func (t *Task) finishLocked(value any, err error) {
	t.state = stateDone
	t.value = value
	t.err = err
	cbs := t.callbacks
	t.callbacks = nil
	close(t.done)
	t.mu.Unlock()

	for _, cb := range cbs {
		cb(t)
	}
}

// Pool runs up to a fixed number of tasks concurrently. Excess submissions
// queue in FIFO order until a worker frees up.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*Task
	closed  bool
	wg      sync.WaitGroup
	logger  *slog.Logger
	workers int
}

// New creates a pool with the given number of workers and starts them.
func New(workers int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	p := &Pool{
		logger:  logger,
		workers: workers,
	}
	p.cond = sync.NewCond(&p.mu)

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Workers returns the pool's concurrency limit.
func (p *Pool) Workers() int {
	return p.workers
}

// Submit enqueues a unit of work and returns its handle. Submit never blocks
// waiting on the unit itself. Submitting to a shut-down pool returns a task
// already finished with ErrCancelled.
func (p *Pool) Submit(fn Func) *Task {
	t := &Task{done: make(chan struct{})}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		t.mu.Lock()
		t.cancelled = true
		t.finishLocked(nil, ErrCancelled)
		return t
	}
	t.run = fn
	p.queue = append(p.queue, t)
	p.mu.Unlock()
	p.cond.Signal()

	return t
}

// Shutdown stops accepting submissions, finishes queued pending tasks as
// cancelled, and waits for in-flight tasks to complete.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.closed = true
	pending := p.queue
	p.queue = nil
	p.mu.Unlock()
	p.cond.Broadcast()

	for _, t := range pending {
		t.TryCancel()
	}
	p.wg.Wait()
}

// worker loops, picking the oldest queued task and running it to completion.
func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 && p.closed {
			p.mu.Unlock()
			return
		}
		t := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.runTask(t)
	}
}

// runTask transitions a task to running and executes it. Tasks cancelled
// while still queued are skipped; their outcome was already recorded by
// TryCancel.
func (p *Pool) runTask(t *Task) {
	t.mu.Lock()
	if t.state != statePending {
		t.mu.Unlock()
		return
	}
	t.state = stateRunning
	fn := t.run
	t.run = nil
	t.mu.Unlock()

	value, err := p.invoke(fn)

	t.mu.Lock()
	t.finishLocked(value, err)
}

// invoke runs a unit of work, converting panics into errors so a misbehaving
// unit can never take down a worker.
func (p *Pool) invoke(fn Func) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("unit of work panicked", "panic", r)
			err = fmt.Errorf("unit of work panicked: %v", r)
		}
	}()
	return fn()
}
