package core

import "testing"

func TestArenaAllocGrowsInBlocks(t *testing.T) {
	arena := NewArena[Vec3](4)

	ptrs := make([]*Vec3, 0, 10)
	for i := 0; i < 10; i++ {
		p := arena.Alloc()
		p.X = float64(i)
		ptrs = append(ptrs, p)
	}

	if arena.Len() != 10 {
		t.Errorf("Expected 10 allocations, got %d", arena.Len())
	}
	if arena.Capacity() != 12 {
		t.Errorf("Expected 3 blocks of 4 (capacity 12), got %d", arena.Capacity())
	}

	// Earlier allocations survive block growth
	for i, p := range ptrs {
		if p.X != float64(i) {
			t.Errorf("Allocation %d clobbered: got %v", i, *p)
		}
	}
}

func TestArenaResetReusesBlocks(t *testing.T) {
	arena := NewArena[Vec3](2)
	for i := 0; i < 5; i++ {
		arena.Alloc().Y = 7
	}
	capacity := arena.Capacity()

	arena.Reset()
	if arena.Len() != 0 {
		t.Errorf("Expected empty arena after reset, got %d", arena.Len())
	}

	for i := 0; i < 5; i++ {
		if p := arena.Alloc(); !p.IsZero() {
			t.Errorf("Expected zeroed allocation after reset, got %v", *p)
		}
	}
	if arena.Capacity() != capacity {
		t.Errorf("Expected capacity %d to be reused, got %d", capacity, arena.Capacity())
	}
}

func TestArenaZeroValue(t *testing.T) {
	var arena Arena[int]
	*arena.Alloc() = 3
	if arena.Len() != 1 {
		t.Errorf("Expected zero-value arena to allocate, got len %d", arena.Len())
	}
}
