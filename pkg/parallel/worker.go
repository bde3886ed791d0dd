package parallel

import "image"

// Worker is the execution context handed to every loop body. It identifies
// the goroutine running the chunk and carries that goroutine's local
// counters. A Worker is owned by exactly one goroutine at a time.
type Worker struct {
	ID int

	scheduler *Scheduler
	counters  map[string]int64
	reportGen uint64 // last stats report this worker flushed
}

// NewWorker creates a detached worker. Loops started on it run serially on
// the calling goroutine, which lets tests drive loop bodies without a pool.
func NewWorker(id int) *Worker {
	return &Worker{ID: id}
}

func newAttachedWorker(id int, s *Scheduler) *Worker {
	return &Worker{ID: id, scheduler: s}
}

// Scheduler returns the scheduler this worker belongs to, or nil if detached
func (w *Worker) Scheduler() *Scheduler {
	return w.scheduler
}

// AddCounter adds delta to a worker-local counter. Counters reach the
// scheduler's aggregate on the next MergeWorkerThreadStats.
func (w *Worker) AddCounter(name string, delta int64) {
	if w.counters == nil {
		w.counters = make(map[string]int64)
	}
	w.counters[name] += delta
}

// Counter returns the unmerged local value of a counter
func (w *Worker) Counter(name string) int64 {
	return w.counters[name]
}

// ForLoop runs fn for every index in [0, count), claiming chunks of
// chunkSize indices at a time. It may be called from inside another loop
// body; the nested loop is drained before it returns.
func (w *Worker) ForLoop(fn Func, count int64, chunkSize int) error {
	if count <= 0 {
		return nil
	}
	loop := newForLoop1D(fn, count, chunkSize)
	if w.scheduler == nil {
		return loop.runSerial(w)
	}
	return w.scheduler.drain(w, loop)
}

// ForLoop2D runs fn for every point in [0, dims.X) x [0, dims.Y), one point
// per chunk
func (w *Worker) ForLoop2D(fn Func2D, dims image.Point) error {
	if dims.X <= 0 || dims.Y <= 0 {
		return nil
	}
	loop := newForLoop2D(fn, dims)
	if w.scheduler == nil {
		return loop.runSerial(w)
	}
	return w.scheduler.drain(w, loop)
}
