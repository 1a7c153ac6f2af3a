package cache

import "chunkvault.dev/internal/grid"

// Iter walks the recency list from either end: Next yields indices from
// most- to least-recently-used, NextBack the reverse, and the two cursors
// meet in the middle. Restartable via Reset. Introspection and test aid,
// not a hot path; mutating the cache mid-walk invalidates the iterator.
type Iter struct {
	c     *Cache
	front link
	back  link
	done  bool
}

// DebugIter returns an iterator over the cached chunk indices in recency
// order.
func (c *Cache) DebugIter() *Iter {
	it := &Iter{c: c}
	it.Reset()
	return it
}

// Reset rewinds both cursors to the current list ends.
func (it *Iter) Reset() {
	it.front = it.c.first
	it.back = it.c.last
	it.done = !it.front.ok
}

// Next yields the next index from the most-recently-used end.
func (it *Iter) Next() (grid.ChunkIndex, bool) {
	if it.done {
		return grid.ChunkIndex{}, false
	}
	idx := it.front.index
	if it.back.ok && it.back.index == idx {
		it.done = true // cursors met
	}
	it.front = it.c.node(idx).next
	return idx, true
}

// NextBack yields the next index from the least-recently-used end.
func (it *Iter) NextBack() (grid.ChunkIndex, bool) {
	if it.done {
		return grid.ChunkIndex{}, false
	}
	idx := it.back.index
	if it.front.ok && it.front.index == idx {
		it.done = true
	}
	it.back = it.c.node(idx).prev
	return idx, true
}
