package modem

import (
	"context"
	"sync"
	"time"
)

// workQueue runs submitted tasks one at a time on a single goroutine.
type workQueue struct {
	tasks chan func()
	quit  chan struct{}
	once  sync.Once
}

func newWorkQueue() *workQueue {
	return &workQueue{
		tasks: make(chan func(), 8),
		quit:  make(chan struct{}),
	}
}

// run executes tasks until ctx is done or the queue is closed.
func (q *workQueue) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.quit:
			return
		case f := <-q.tasks:
			f()
		}
	}
}

func (q *workQueue) submit(f func()) {
	select {
	case q.tasks <- f:
	case <-q.quit:
	}
}

func (q *workQueue) close() {
	q.once.Do(func() { close(q.quit) })
}

// delayedWork is a task that can be (re)scheduled on a workQueue after a
// delay. Rescheduling replaces any earlier schedule that has not started
// yet, so at most one run is ever pending.
type delayedWork struct {
	q  *workQueue
	fn func()

	mu        sync.Mutex
	idle      *sync.Cond
	timer     *time.Timer
	seq       uint64
	running   bool
	canceling bool
}

func newDelayedWork(q *workQueue, fn func()) *delayedWork {
	w := &delayedWork{q: q, fn: fn}
	w.idle = sync.NewCond(&w.mu)
	return w
}

// Reschedule arranges for the task to run after d. It is a no-op while
// CancelSync is in progress.
func (w *delayedWork) Reschedule(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.canceling {
		return
	}
	w.seq++
	seq := w.seq
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(d, func() {
		w.q.submit(func() { w.exec(seq) })
	})
}

func (w *delayedWork) exec(seq uint64) {
	w.mu.Lock()
	if seq != w.seq || w.canceling {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.timer = nil
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.idle.Broadcast()
		w.mu.Unlock()
	}()
	w.fn()
}

// CancelSync drops any pending run and waits for a run in progress to
// return. It must not be called from the task itself.
func (w *delayedWork) CancelSync() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.canceling = true
	for w.running {
		w.idle.Wait()
	}
	w.seq++
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.canceling = false
}

// Pending reports whether a run is scheduled and has not started.
func (w *delayedWork) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.timer != nil
}
