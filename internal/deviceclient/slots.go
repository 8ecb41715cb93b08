package deviceclient

import "sync"

// slotPool is a fixed arena of request-object slots with an explicit free list.
// A slot is reserved by acquire, filled by set and emptied by release.
type slotPool[T any] struct {
	mu    sync.Mutex
	items []T
	used  []bool
	free  []int
}

func newSlotPool[T any](size int) *slotPool[T] {
	if size < 0 {
		size = 0
	}
	p := &slotPool[T]{
		items: make([]T, size),
		used:  make([]bool, size),
		free:  make([]int, 0, size),
	}
	for i := size - 1; i >= 0; i-- {
		p.free = append(p.free, i)
	}
	return p
}

func (p *slotPool[T]) acquire() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) == 0 {
		return -1, false
	}
	slot := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.used[slot] = true
	return slot, true
}

func (p *slotPool[T]) set(slot int, v T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if slot >= 0 && slot < len(p.items) && p.used[slot] {
		p.items[slot] = v
	}
}

// release empties slot and returns what it held.
func (p *slotPool[T]) release(slot int) (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var zero T
	if slot < 0 || slot >= len(p.items) || !p.used[slot] {
		return zero, false
	}
	v := p.items[slot]
	p.items[slot] = zero
	p.used[slot] = false
	p.free = append(p.free, slot)
	return v, true
}

// releaseAll empties every slot and returns the objects that were held.
func (p *slotPool[T]) releaseAll() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	var zero T
	var out []T
	for i := range p.items {
		if !p.used[i] {
			continue
		}
		out = append(out, p.items[i])
		p.items[i] = zero
		p.used[i] = false
		p.free = append(p.free, i)
	}
	return out
}

func (p *slotPool[T]) inUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items) - len(p.free)
}
