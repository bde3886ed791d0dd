package parallel

import (
	"math"
	"strconv"

	"go.uber.org/atomic"
)

// AtomicFloat is a float64 that many workers can accumulate into without a
// lock. The value lives as its IEEE-754 bit pattern in a 64-bit atomic
// integer. The zero value holds 0.
type AtomicFloat struct {
	bits atomic.Uint64
}

// NewAtomicFloat creates an accumulator holding v
func NewAtomicFloat(v float64) *AtomicFloat {
	f := &AtomicFloat{}
	f.bits.Store(math.Float64bits(v))
	return f
}

// Load returns the current value
func (f *AtomicFloat) Load() float64 {
	return math.Float64frombits(f.bits.Load())
}

// Store replaces the value. It is not ordered against concurrent Add calls:
// a racing Add may land before or after it.
func (f *AtomicFloat) Store(v float64) {
	f.bits.Store(math.Float64bits(v))
}

// Add adds v and returns the new value, retrying until its compare-and-swap
// wins against concurrent writers
func (f *AtomicFloat) Add(v float64) float64 {
	for {
		oldBits := f.bits.Load()
		newValue := math.Float64frombits(oldBits) + v
		if f.bits.CompareAndSwap(oldBits, math.Float64bits(newValue)) {
			return newValue
		}
	}
}

func (f *AtomicFloat) String() string {
	return strconv.FormatFloat(f.Load(), 'g', -1, 64)
}
