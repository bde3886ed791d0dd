package parallel

import (
	"errors"
	"fmt"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

var poolSizes = []int{1, 2, 8}

func startScheduler(t *testing.T, workers int) *Scheduler {
	t.Helper()
	s := NewScheduler(Config{NumWorkers: workers}, nil)
	require.NoError(t, s.Init())
	t.Cleanup(s.Cleanup)
	return s
}

// runWithTimeout fails the test instead of hanging when fn deadlocks
func runWithTimeout(t *testing.T, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out: scheduler appears deadlocked")
	}
}

func TestScheduler_VisitsEveryIndexOnce(t *testing.T) {
	for _, workers := range poolSizes {
		for _, chunkSize := range []int{1, 3, 64, 5000} {
			t.Run(fmt.Sprintf("workers=%d/chunk=%d", workers, chunkSize), func(t *testing.T) {
				s := startScheduler(t, workers)
				const count = 2500
				visits := make([]atomic.Int32, count)

				runWithTimeout(t, func() {
					err := s.ForLoop(func(_ *Worker, i int64) error {
						visits[i].Inc()
						return nil
					}, count, chunkSize)
					assert.NoError(t, err)
				})

				for i := range visits {
					if v := visits[i].Load(); v != 1 {
						t.Fatalf("index %d visited %d times", i, v)
					}
				}
			})
		}
	}
}

func TestScheduler_ZeroCountNeverCallsBody(t *testing.T) {
	s := startScheduler(t, 4)

	called := false
	err := s.ForLoop(func(*Worker, int64) error { called = true; return nil }, 0, 1)
	require.NoError(t, err)
	require.NoError(t, s.ForLoop2D(func(*Worker, image.Point) error { called = true; return nil }, image.Pt(0, 0)))

	assert.False(t, called)
	s.mu.Lock()
	assert.Nil(t, s.workList, "empty loops must not touch the queue")
	s.mu.Unlock()
}

func TestScheduler_SumOfIndices(t *testing.T) {
	for _, workers := range poolSizes {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			s := startScheduler(t, workers)

			var sum AtomicFloat
			runWithTimeout(t, func() {
				assert.NoError(t, s.ForLoop(func(_ *Worker, i int64) error {
					sum.Add(float64(i))
					return nil
				}, 10_000, 1))
			})

			assert.InDelta(t, 49995000.0, sum.Load(), 1e-6)
		})
	}
}

func TestScheduler_NestedLoops(t *testing.T) {
	for _, workers := range poolSizes {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			s := startScheduler(t, workers)
			const outer, middle, inner, innermost = 4, 5, 6, 3
			visits := make([]atomic.Int32, outer*middle*inner*innermost)

			runWithTimeout(t, func() {
				err := s.ForLoop(func(w *Worker, a int64) error {
					return w.ForLoop(func(w *Worker, b int64) error {
						return w.ForLoop(func(w *Worker, c int64) error {
							return w.ForLoop(func(_ *Worker, d int64) error {
								visits[((a*middle+b)*inner+c)*innermost+d].Inc()
								return nil
							}, innermost, 1)
						}, inner, 2)
					}, middle, 1)
				}, outer, 1)
				assert.NoError(t, err)
			})

			for i := range visits {
				if v := visits[i].Load(); v != 1 {
					t.Fatalf("nested index %d visited %d times", i, v)
				}
			}
			s.mu.Lock()
			assert.Nil(t, s.workList, "finished loops are unlinked")
			s.mu.Unlock()
		})
	}
}

func TestScheduler_ForLoop2DCoversGrid(t *testing.T) {
	for _, workers := range poolSizes {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			s := startScheduler(t, workers)
			dims := image.Pt(17, 9)
			visits := make([]atomic.Int32, dims.X*dims.Y)

			runWithTimeout(t, func() {
				assert.NoError(t, s.ForLoop2D(func(_ *Worker, p image.Point) error {
					if p.X < 0 || p.X >= dims.X || p.Y < 0 || p.Y >= dims.Y {
						return fmt.Errorf("point %v out of range", p)
					}
					visits[p.Y*dims.X+p.X].Inc()
					return nil
				}, dims))
			})

			for i := range visits {
				assert.Equal(t, int32(1), visits[i].Load(), "cell %d", i)
			}
		})
	}
}

func TestScheduler_CallerParticipates(t *testing.T) {
	s := startScheduler(t, 8)

	// The caller claims the first chunk before it releases the queue lock
	var firstID atomic.Int64
	firstID.Store(-1)
	require.NoError(t, s.ForLoop(func(w *Worker, i int64) error {
		if i == 0 {
			firstID.Store(int64(w.ID))
		}
		return nil
	}, 100, 1))

	assert.Equal(t, int64(0), firstID.Load())
}

func TestScheduler_WorkerIDs(t *testing.T) {
	const workers = 4
	s := startScheduler(t, workers)
	assert.Equal(t, workers, s.NumWorkers())

	var seen [workers]atomic.Bool
	require.NoError(t, s.ForLoop(func(w *Worker, i int64) error {
		if w.ID < 0 || w.ID >= workers {
			return fmt.Errorf("unexpected worker id %d", w.ID)
		}
		assert.Same(t, s, w.Scheduler())
		seen[w.ID].Store(true)
		time.Sleep(time.Millisecond)
		return nil
	}, 200, 1))

	assert.True(t, seen[0].Load(), "the calling goroutine runs chunks too")
}

func TestScheduler_ErrorAbandonsRemainingChunks(t *testing.T) {
	s := startScheduler(t, 1)
	failure := errors.New("bad sample")

	var calls atomic.Int32
	err := s.ForLoop(func(_ *Worker, i int64) error {
		calls.Inc()
		if i == 50 {
			return failure
		}
		return nil
	}, 1000, 1)

	assert.ErrorIs(t, err, failure)
	assert.Equal(t, int32(51), calls.Load())
}

func TestScheduler_ErrorReportedOnce(t *testing.T) {
	for _, workers := range poolSizes {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			s := startScheduler(t, workers)

			var err error
			runWithTimeout(t, func() {
				err = s.ForLoop(func(_ *Worker, i int64) error {
					return fmt.Errorf("index %d failed", i)
				}, 500, 4)
			})
			require.Error(t, err)
			assert.Regexp(t, `^index \d+ failed$`, err.Error())

			// The scheduler keeps working after a failed loop
			var sum AtomicFloat
			require.NoError(t, s.ForLoop(func(_ *Worker, i int64) error {
				sum.Add(1)
				return nil
			}, 300, 7))
			assert.Equal(t, 300.0, sum.Load())
		})
	}
}

func TestScheduler_PanicBecomesError(t *testing.T) {
	s := startScheduler(t, 4)

	var err error
	runWithTimeout(t, func() {
		err = s.ForLoop(func(_ *Worker, i int64) error {
			if i == 7 {
				panic(fmt.Sprintf("sample %d exploded", i))
			}
			return nil
		}, 64, 1)
	})

	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, int64(7), panicErr.Index)
	assert.Equal(t, "sample 7 exploded", panicErr.Value)
}

func TestScheduler_NestedErrorPropagates(t *testing.T) {
	s := startScheduler(t, 4)
	failure := errors.New("inner failure")

	var err error
	runWithTimeout(t, func() {
		err = s.ForLoop(func(w *Worker, a int64) error {
			return w.ForLoop(func(_ *Worker, b int64) error {
				if a == 2 && b == 3 {
					return failure
				}
				return nil
			}, 10, 1)
		}, 8, 1)
	})

	assert.ErrorIs(t, err, failure)
}

func TestScheduler_MergeWorkerThreadStats(t *testing.T) {
	for _, workers := range poolSizes {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			s := startScheduler(t, workers)

			require.NoError(t, s.ForLoop(func(w *Worker, i int64) error {
				w.AddCounter("visits", 1)
				w.AddCounter("index-sum", i)
				return nil
			}, 1000, 5))

			assert.Empty(t, s.Counters(), "nothing is shared before a merge")

			runWithTimeout(t, s.MergeWorkerThreadStats)
			counters := s.Counters()
			assert.Equal(t, int64(1000), counters["visits"])
			assert.Equal(t, int64(499500), counters["index-sum"])

			// A second merge must not count anything twice
			runWithTimeout(t, s.MergeWorkerThreadStats)
			assert.Equal(t, int64(1000), s.Counters()["visits"])

			// Scheduling resumes after the merge
			require.NoError(t, s.ForLoop(func(w *Worker, i int64) error {
				w.AddCounter("visits", 1)
				return nil
			}, 10, 1))
			runWithTimeout(t, s.MergeWorkerThreadStats)
			assert.Equal(t, int64(1010), s.Counters()["visits"])
		})
	}
}

func TestScheduler_Lifecycle(t *testing.T) {
	s := NewScheduler(Config{NumWorkers: 3}, nil)

	// Without a pool the caller drains the loop alone
	var sum AtomicFloat
	require.NoError(t, s.ForLoop(func(w *Worker, i int64) error {
		sum.Add(float64(i))
		return nil
	}, 10, 3))
	assert.Equal(t, 45.0, sum.Load())
	assert.Equal(t, 1, s.NumWorkers())

	require.NoError(t, s.Init())
	assert.Equal(t, 3, s.NumWorkers())
	assert.ErrorIs(t, s.Init(), ErrAlreadyInitialized)

	runWithTimeout(t, s.Cleanup)
	assert.Equal(t, 1, s.NumWorkers())
	s.Cleanup()

	// The scheduler can be started again after Cleanup
	require.NoError(t, s.Init())
	runWithTimeout(t, s.Cleanup)
}

func TestScheduler_InvalidConfig(t *testing.T) {
	s := NewScheduler(Config{NumWorkers: -1}, nil)
	assert.Error(t, s.Init())
	s.Cleanup()
}

func TestScheduler_DefaultConfigUsesSystemCores(t *testing.T) {
	assert.GreaterOrEqual(t, NumSystemCores(), 1)

	s := startScheduler(t, DefaultConfig().NumWorkers)
	assert.Equal(t, NumSystemCores(), s.NumWorkers())
}

func TestScheduler_LockOSThread(t *testing.T) {
	s := NewScheduler(Config{NumWorkers: 3, LockOSThread: true}, nil)
	require.NoError(t, s.Init())
	defer s.Cleanup()

	var sum AtomicFloat
	require.NoError(t, s.ForLoop(func(_ *Worker, i int64) error {
		sum.Add(1)
		return nil
	}, 100, 1))
	assert.Equal(t, 100.0, sum.Load())
}

func TestScheduler_QueueIsLIFO(t *testing.T) {
	s := NewScheduler(Config{NumWorkers: 1}, nil)
	noop := func(*Worker, int64) error { return nil }
	older := newForLoop1D(noop, 10, 1)
	newer := newForLoop1D(noop, 10, 1)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.enqueue(older)
	s.enqueue(newer)

	assert.Same(t, newer, s.workList)
	assert.Same(t, newer, s.firstClaimable(nil))
	assert.Nil(t, s.firstClaimable(newer), "nothing is ahead of the newest loop")

	// Fully claimed but running loops stay queued and are skipped
	for newer.claimable() {
		newer.claim()
	}
	assert.Same(t, older, s.firstClaimable(nil))
	assert.Same(t, newer, s.workList)

	s.unlink(newer)
	assert.Same(t, older, s.workList)
	s.unlink(older)
	assert.Nil(t, s.workList)
}
