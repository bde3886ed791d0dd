package parallel

import (
	"fmt"
	"image"
	"runtime/debug"
)

// Func is a 1D loop body
type Func func(w *Worker, index int64) error

// Func2D is a 2D loop body
type Func2D func(w *Worker, p image.Point) error

// PanicError reports a panic raised by a loop body
type PanicError struct {
	Index int64 // Flat index being processed
	Value any   // Value passed to panic
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("parallel: loop body panicked at index %d: %v", e.Index, e.Value)
}

// forLoop is one parallel-for invocation: its iteration space, the progress
// cursor and the number of workers currently running one of its chunks.
// All mutable fields are guarded by the scheduler's queue lock.
type forLoop struct {
	func1D    Func
	func2D    Func2D
	maxIndex  int64
	chunkSize int64
	nX        int // Row width for 2D loops, 0 for 1D

	nextIndex     int64
	activeWorkers int
	next          *forLoop
	err           error // First failure, reported once to the creator
}

func newForLoop1D(fn Func, count int64, chunkSize int) *forLoop {
	return &forLoop{
		func1D:    fn,
		maxIndex:  count,
		chunkSize: int64(max(1, chunkSize)),
	}
}

func newForLoop2D(fn Func2D, dims image.Point) *forLoop {
	return &forLoop{
		func2D:    fn,
		maxIndex:  int64(dims.X) * int64(dims.Y),
		chunkSize: 1,
		nX:        dims.X,
	}
}

// isFinished reports whether every index is claimed and no claimant is
// still running
func (l *forLoop) isFinished() bool {
	return l.nextIndex >= l.maxIndex && l.activeWorkers == 0
}

// claimable reports whether unclaimed indices remain
func (l *forLoop) claimable() bool {
	return l.nextIndex < l.maxIndex
}

// claim takes the next chunk and registers the caller as an active worker
func (l *forLoop) claim() (start, end int64) {
	start = l.nextIndex
	end = start + l.chunkSize
	if l.maxIndex-start < l.chunkSize {
		end = l.maxIndex
	}
	l.nextIndex = end
	l.activeWorkers++
	return start, end
}

// release unregisters a claimant and records its failure, if any. A failure
// abandons all indices not yet claimed.
func (l *forLoop) release(err error) {
	l.activeWorkers--
	if err == nil {
		return
	}
	if l.err == nil {
		l.err = err
	}
	l.nextIndex = l.maxIndex
}

// index2D maps a flat index onto the 2D grid
func (l *forLoop) index2D(i int64) image.Point {
	nX := int64(l.nX)
	return image.Pt(int(i%nX), int(i/nX))
}

// run executes indices [start, end) without holding any lock. It stops at
// the first failing index.
func (l *forLoop) run(w *Worker, start, end int64) (err error) {
	index := start
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Index: index, Value: r, Stack: debug.Stack()}
		}
	}()

	for ; index < end; index++ {
		if l.func1D != nil {
			err = l.func1D(w, index)
		} else {
			err = l.func2D(w, l.index2D(index))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// runSerial drains the whole loop on the calling goroutine
func (l *forLoop) runSerial(w *Worker) error {
	for l.claimable() {
		start, end := l.claim()
		l.release(l.run(w, start, end))
	}
	return l.err
}
