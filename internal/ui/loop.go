package ui

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Post once the loop has stopped accepting tasks.
var ErrClosed = errors.New("ui loop closed")

// Dispatcher accepts tasks for the UI goroutine.
type Dispatcher interface {
	Post(task func()) error
}

// Loop runs posted tasks one at a time, in order, on the goroutine that
// calls Run.
type Loop struct {
	mu      sync.Mutex
	pending []func()
	closed  bool
	wake    chan struct{}
}

// NewLoop returns an empty loop.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post queues task for the UI goroutine. It never blocks and fails with
// ErrClosed after Close. A task accepted by Post is always run.
func (l *Loop) Post(task func()) error {
	if task == nil {
		return errors.New("nil task")
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.pending = append(l.pending, task)
	l.mu.Unlock()
	l.signal()
	return nil
}

// Run executes tasks until Close is called or ctx is cancelled, then runs
// whatever was accepted before returning.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-l.wake:
		case <-ctx.Done():
			l.Close()
			l.runPending()
			return ctx.Err()
		}
		if closed := l.runPending(); closed {
			return nil
		}
	}
}

// Close stops accepting tasks.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.signal()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) runPending() bool {
	for {
		l.mu.Lock()
		tasks := l.pending
		l.pending = nil
		closed := l.closed
		l.mu.Unlock()

		if len(tasks) == 0 {
			return closed
		}
		for _, task := range tasks {
			task()
		}
	}
}
