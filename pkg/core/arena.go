package core

// Arena is a bump allocator for values of a single type. Allocations are
// carved out of fixed-size blocks and released all at once with Reset.
// An Arena belongs to one goroutine; pointers returned by Alloc are invalid
// after Reset.
type Arena[T any] struct {
	blocks    [][]T
	blockSize int
	current   int // index of the block being filled
	offset    int // next free slot in the current block
}

// NewArena creates an arena that grows in blocks of blockSize values
func NewArena[T any](blockSize int) *Arena[T] {
	if blockSize <= 0 {
		blockSize = 256
	}
	return &Arena[T]{blockSize: blockSize}
}

// Alloc returns a pointer to a zeroed value owned by the arena
func (a *Arena[T]) Alloc() *T {
	if a.blockSize == 0 {
		a.blockSize = 256
	}
	if len(a.blocks) == 0 {
		a.blocks = append(a.blocks, make([]T, a.blockSize))
	}
	if a.offset == a.blockSize {
		a.current++
		a.offset = 0
		if a.current == len(a.blocks) {
			a.blocks = append(a.blocks, make([]T, a.blockSize))
		}
	}

	slot := &a.blocks[a.current][a.offset]
	a.offset++

	var zero T
	*slot = zero
	return slot
}

// Reset releases every allocation; blocks are kept for reuse
func (a *Arena[T]) Reset() {
	a.current = 0
	a.offset = 0
}

// Len returns the number of live allocations
func (a *Arena[T]) Len() int {
	if len(a.blocks) == 0 {
		return 0
	}
	return a.current*a.blockSize + a.offset
}

// Capacity returns the number of slots currently backed by blocks
func (a *Arena[T]) Capacity() int {
	return len(a.blocks) * a.blockSize
}
