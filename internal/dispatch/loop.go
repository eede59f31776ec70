// Package dispatch provides the serial event loop that owns all session
// state. Network completions, player events and user actions are posted here
// so that session logic never runs concurrently with itself.
package dispatch

import (
	"log"
	"sync"
)

// Loop runs posted functions one at a time on a single goroutine.
type Loop struct {
	jobs chan func()
	wg   sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

// New creates a loop with the given queue size.
func New(queueSize int) *Loop {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Loop{jobs: make(chan func(), queueSize)}
}

// Start launches the loop goroutine.
func (l *Loop) Start() {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for job := range l.jobs {
			job()
		}
	}()
}

// Stop drains the queue and waits for the loop goroutine to exit. Posts
// after Stop are dropped.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	l.mu.Unlock()

	close(l.jobs)
	l.wg.Wait()
}

// Post queues fn for execution. It never blocks; when the queue is full or
// the loop has stopped the job is dropped with a log entry.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		log.Printf("WARN dispatch: dropping job, loop stopped")
		return
	}
	select {
	case l.jobs <- fn:
	default:
		log.Printf("WARN dispatch: dropping job, queue full")
	}
}
