// Package parallel runs render passes across a fixed pool of worker
// goroutines.
//
// Every parallel loop becomes a work item pushed at the head of one shared
// queue. Pool workers and the goroutine that started the loop compete to
// claim contiguous chunks of the item's index range. Because new items go to
// the head, a loop started from inside another loop's body is served before
// the outer one, and the goroutine that started it drains it before its own
// body continues.
package parallel

import (
	"errors"
	"image"
	"runtime"
	"sync"

	"github.com/df07/go-volumetric-raytracer/pkg/core"
)

// ErrAlreadyInitialized is returned by Init on a running scheduler
var ErrAlreadyInitialized = errors.New("parallel: scheduler already initialized")

// Scheduler owns the worker pool and the work queue
type Scheduler struct {
	config Config
	logger core.Logger

	mu       sync.Mutex
	cond     *sync.Cond // Signalled on enqueue, item completion, stats requests and shutdown
	workList *forLoop   // Queue head; newest item first
	running  bool
	shutdown bool

	main    *Worker   // Context for loops started from outside the pool (ID 0)
	workers []*Worker // Pool workers, IDs 1..N-1
	wg      sync.WaitGroup

	reportGen     uint64
	reportBarrier *Barrier

	statsMu sync.Mutex
	stats   map[string]int64
}

// NewScheduler creates a scheduler. No goroutines start until Init.
func NewScheduler(config Config, logger core.Logger) *Scheduler {
	if logger == nil {
		logger = core.NopLogger{}
	}
	s := &Scheduler{
		config: config,
		logger: logger,
		stats:  make(map[string]int64),
	}
	s.cond = sync.NewCond(&s.mu)
	s.main = newAttachedWorker(0, s)
	return s
}

// Init starts the pool. It returns once every worker goroutine is running
// with its ID assigned.
func (s *Scheduler) Init() error {
	n, err := s.config.resolveWorkers()
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyInitialized
	}
	s.running = true
	s.shutdown = false

	barrier := NewBarrier(n)
	s.workers = make([]*Worker, 0, n-1)
	for i := 1; i < n; i++ {
		w := newAttachedWorker(i, s)
		w.reportGen = s.reportGen
		s.workers = append(s.workers, w)
		s.wg.Add(1)
		go s.workerLoop(w, barrier)
	}
	s.mu.Unlock()

	barrier.Wait()
	s.logger.Printf("Scheduler started with %d workers (%d pool goroutines)\n", n, n-1)
	return nil
}

// Cleanup stops and joins every worker. Loops must not be running. It is a
// no-op on a scheduler that was never initialized.
func (s *Scheduler) Cleanup() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.shutdown = true
	s.cond.Broadcast()
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	s.workers = nil
	s.running = false
	s.mu.Unlock()
	s.logger.Printf("Scheduler stopped\n")
}

// NumWorkers returns the total parallelism, counting the calling goroutine
func (s *Scheduler) NumWorkers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.workers) + 1
}

// Main returns the worker context used by loops started outside the pool.
// Only one goroutine may drive the scheduler from outside at a time.
func (s *Scheduler) Main() *Worker {
	return s.main
}

// ForLoop runs fn over [0, count) in chunks of chunkSize and blocks until
// every index has run. The caller works on the loop itself. The first error
// returned (or panic raised) by fn abandons the indices not yet claimed and
// is returned once.
func (s *Scheduler) ForLoop(fn Func, count int64, chunkSize int) error {
	return s.main.ForLoop(fn, count, chunkSize)
}

// ForLoop2D runs fn over every point of the dims grid
func (s *Scheduler) ForLoop2D(fn Func2D, dims image.Point) error {
	return s.main.ForLoop2D(fn, dims)
}

// MergeWorkerThreadStats has every worker flush its local counters into
// the shared aggregate. It must not overlap running loops.
func (s *Scheduler) MergeWorkerThreadStats() {
	s.mu.Lock()
	barrier := NewBarrier(len(s.workers) + 1)
	s.reportGen++
	s.reportBarrier = barrier
	s.cond.Broadcast()
	s.mu.Unlock()

	s.mergeCounters(s.main)
	barrier.Wait()
}

// Counters returns a snapshot of the merged counters
func (s *Scheduler) Counters() map[string]int64 {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	snapshot := make(map[string]int64, len(s.stats))
	for name, value := range s.stats {
		snapshot[name] = value
	}
	return snapshot
}

func (s *Scheduler) mergeCounters(w *Worker) {
	if len(w.counters) == 0 {
		return
	}
	s.statsMu.Lock()
	for name, value := range w.counters {
		s.stats[name] += value
	}
	s.statsMu.Unlock()
	clear(w.counters)
}

// workerLoop is the body of every pool goroutine
func (s *Scheduler) workerLoop(w *Worker, barrier *Barrier) {
	defer s.wg.Done()
	if s.config.LockOSThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}
	barrier.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	for !s.shutdown {
		if w.reportGen != s.reportGen {
			w.reportGen = s.reportGen
			report := s.reportBarrier
			s.mu.Unlock()
			s.mergeCounters(w)
			report.Wait()
			s.mu.Lock()
			continue
		}
		if loop := s.firstClaimable(nil); loop != nil {
			s.runChunk(w, loop)
			continue
		}
		s.cond.Wait()
	}
}

// drain enqueues loop and works until it is finished. The caller prefers
// its own loop, then helps any newer loop ahead of it (typically nested
// loops spawned by chunks of its own), and only sleeps when nothing it
// could help with is claimable.
func (s *Scheduler) drain(w *Worker, loop *forLoop) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enqueue(loop)
	for !loop.isFinished() {
		if loop.claimable() {
			s.runChunk(w, loop)
			continue
		}
		if newer := s.firstClaimable(loop); newer != nil {
			s.runChunk(w, newer)
			continue
		}
		s.cond.Wait()
	}
	return loop.err
}

// enqueue links loop at the head of the queue. Caller holds s.mu.
func (s *Scheduler) enqueue(loop *forLoop) {
	loop.next = s.workList
	s.workList = loop
	s.cond.Broadcast()
}

// unlink removes a finished loop from the queue. Caller holds s.mu.
func (s *Scheduler) unlink(loop *forLoop) {
	for link := &s.workList; *link != nil; link = &(*link).next {
		if *link == loop {
			*link = loop.next
			loop.next = nil
			return
		}
	}
}

// firstClaimable returns the newest loop with unclaimed indices, looking
// only at loops ahead of stop (all loops when stop is nil). Caller holds s.mu.
func (s *Scheduler) firstClaimable(stop *forLoop) *forLoop {
	for loop := s.workList; loop != nil && loop != stop; loop = loop.next {
		if loop.claimable() {
			return loop
		}
	}
	return nil
}

// runChunk claims one chunk of loop and runs it with s.mu released. Caller
// holds s.mu on entry and gets it back on return.
func (s *Scheduler) runChunk(w *Worker, loop *forLoop) {
	start, end := loop.claim()
	s.mu.Unlock()
	err := loop.run(w, start, end)
	s.mu.Lock()

	loop.release(err)
	if loop.isFinished() {
		s.unlink(loop)
		s.cond.Broadcast()
	}
}
