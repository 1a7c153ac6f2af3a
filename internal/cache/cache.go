// Package cache holds a bounded, recency-ordered set of chunks keyed by
// chunk index, with dirty tracking and write-back on eviction.
//
// The recency order is a doubly linked list stitched together with
// ChunkIndex values that are re-resolved through the owning map on every
// step, never with pointers into the map. Accessed only from the world
// goroutine; callers wanting concurrency serialize outside.
package cache

import (
	"fmt"

	"chunkvault.dev/internal/grid"
)

// MinLimit is the smallest capacity the cache operates with; lower
// configured limits are clamped up so eviction always has room to proceed.
const MinLimit = 4

// link is an optional ChunkIndex stitching the recency list together.
type link struct {
	index grid.ChunkIndex
	ok    bool
}

func some(idx grid.ChunkIndex) link { return link{index: idx, ok: true} }

// node is one cached chunk plus its recency neighbors: next is one step
// toward the least-recently-used end, prev one step toward the most.
type node struct {
	chunk *grid.Chunk
	next  link
	prev  link
}

type Cache struct {
	chunks map[grid.ChunkIndex]*node
	first  link // most recently used
	last   link // least recently used
	dirty  map[grid.ChunkIndex]struct{}
	limit  int
}

// New returns a cache holding at most limit chunks. Limits below MinLimit
// are clamped up.
func New(limit int) *Cache {
	if limit < MinLimit {
		limit = MinLimit
	}
	return &Cache{
		chunks: make(map[grid.ChunkIndex]*node, limit),
		dirty:  make(map[grid.ChunkIndex]struct{}),
		limit:  limit,
	}
}

func (c *Cache) Len() int   { return len(c.chunks) }
func (c *Cache) Limit() int { return c.limit }

// Dirty reports whether idx is cached and mutated since it was loaded.
func (c *Cache) Dirty(idx grid.ChunkIndex) bool {
	_, ok := c.dirty[idx]
	return ok
}

// node resolves a recency link through the map. A dangling link means the
// list is corrupt; there is nothing sane left to do but abort.
func (c *Cache) node(idx grid.ChunkIndex) *node {
	n, ok := c.chunks[idx]
	if !ok {
		panic(fmt.Sprintf("cache: recency link to missing chunk (%d,%d)", idx.X, idx.Y))
	}
	return n
}

// Chunk returns the cached chunk at idx, bumping its recency. Read-only by
// contract: mutate through ChunkMut so the write is tracked.
func (c *Cache) Chunk(idx grid.ChunkIndex) (*grid.Chunk, bool) {
	n, ok := c.chunks[idx]
	if !ok {
		return nil, false
	}
	c.touch(idx)
	return n.chunk, true
}

// ChunkMut returns the cached chunk at idx for mutation, bumping recency
// and marking it dirty.
func (c *Cache) ChunkMut(idx grid.ChunkIndex) (*grid.Chunk, bool) {
	n, ok := c.chunks[idx]
	if !ok {
		return nil, false
	}
	c.touch(idx)
	c.dirty[idx] = struct{}{}
	return n.chunk, true
}

// Entry reads one world cell; ok=false on cache miss. The cache never
// fetches on its own.
func (c *Cache) Entry(p grid.Point) (grid.Entry, bool) {
	ch, ok := c.Chunk(grid.UnpackChunk(p))
	if !ok {
		return grid.EntryUnknown, false
	}
	return *ch.At(grid.UnpackOffset(p)), true
}

// EntryMut returns one addressable world cell, marking its chunk dirty;
// ok=false on cache miss.
func (c *Cache) EntryMut(p grid.Point) (*grid.Entry, bool) {
	ch, ok := c.ChunkMut(grid.UnpackChunk(p))
	if !ok {
		return nil, false
	}
	return ch.At(grid.UnpackOffset(p)), true
}

// Load inserts chunk at idx as the most-recently-used entry. When idx is
// already present its existing node is evicted first and becomes the
// returned pair; otherwise, at capacity, the least-recently-used chunk is
// evicted. Either way the evicted pair is returned with ok=true only when
// it was dirty; clean data is re-derivable and discarded.
func (c *Cache) Load(idx grid.ChunkIndex, chunk *grid.Chunk) (grid.ChunkIndex, *grid.Chunk, bool) {
	var (
		evictedIdx grid.ChunkIndex
		evicted    *grid.Chunk
		wasDirty   bool
	)
	if _, ok := c.chunks[idx]; ok {
		evictedIdx, evicted, wasDirty = c.remove(idx)
	} else if len(c.chunks) >= c.limit {
		evictedIdx, evicted, wasDirty = c.remove(c.last.index)
	}
	c.chunks[idx] = &node{chunk: chunk}
	c.linkFront(idx)
	if !wasDirty {
		return grid.ChunkIndex{}, nil, false
	}
	return evictedIdx, evicted, true
}

// DropOldest removes the least-recently-used chunk. The removal is
// unconditional; the removed pair is returned with ok=true only when it
// was dirty and needs writing back.
func (c *Cache) DropOldest() (grid.ChunkIndex, *grid.Chunk, bool) {
	if !c.last.ok {
		return grid.ChunkIndex{}, nil, false
	}
	idx, ch, dirty := c.remove(c.last.index)
	if !dirty {
		return grid.ChunkIndex{}, nil, false
	}
	return idx, ch, true
}

// remove unlinks idx and deletes it from the map and the dirty set,
// reporting whether it was dirty. The index must be present.
func (c *Cache) remove(idx grid.ChunkIndex) (grid.ChunkIndex, *grid.Chunk, bool) {
	n := c.node(idx)
	c.unlink(idx)
	delete(c.chunks, idx)
	_, dirty := c.dirty[idx]
	delete(c.dirty, idx)
	return idx, n.chunk, dirty
}

// touch moves idx to the most-recently-used position; no-op when it is
// already there. The index must be present.
func (c *Cache) touch(idx grid.ChunkIndex) {
	if c.first.ok && c.first.index == idx {
		return
	}
	c.unlink(idx)
	c.linkFront(idx)
}

// unlink detaches idx from the recency list, leaving its node in the map.
func (c *Cache) unlink(idx grid.ChunkIndex) {
	n := c.node(idx)
	if n.prev.ok {
		c.node(n.prev.index).next = n.next
	} else {
		c.first = n.next
	}
	if n.next.ok {
		c.node(n.next.index).prev = n.prev
	} else {
		c.last = n.prev
	}
	n.next = link{}
	n.prev = link{}
}

// linkFront inserts idx, already in the map and unlinked, at the
// most-recently-used position, bootstrapping first/last for a previously
// empty list.
func (c *Cache) linkFront(idx grid.ChunkIndex) {
	n := c.node(idx)
	n.prev = link{}
	n.next = c.first
	if c.first.ok {
		c.node(c.first.index).prev = some(idx)
	} else {
		c.last = some(idx)
	}
	c.first = some(idx)
}
