package parallel

import "sync"

// Barrier is a one-shot rendezvous: Wait blocks until count goroutines have
// called it, then releases all of them. A released barrier is not reset;
// later Wait calls return immediately.
type Barrier struct {
	mu    sync.Mutex
	cond  *sync.Cond
	count int
}

// NewBarrier creates a barrier expecting count arrivals
func NewBarrier(count int) *Barrier {
	if count <= 0 {
		panic("parallel: barrier count must be > 0")
	}
	b := &Barrier{count: count}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Wait records an arrival and blocks until every expected arrival happened
func (b *Barrier) Wait() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.count--
	if b.count <= 0 {
		// Last arrival (or a late one after release): wake everyone.
		b.cond.Broadcast()
		return
	}
	for b.count > 0 {
		b.cond.Wait()
	}
}
