package cache

import (
	"testing"

	"chunkvault.dev/internal/grid"
)

func ci(x, y grid.Coord) grid.ChunkIndex { return grid.ChunkIndex{X: x, Y: y} }

// order collects the forward iteration and checks the backward one is its
// mirror image, so every test that looks at order also exercises the link
// symmetry invariant.
func order(t *testing.T, c *Cache) []grid.ChunkIndex {
	t.Helper()
	var fwd []grid.ChunkIndex
	it := c.DebugIter()
	for {
		idx, ok := it.Next()
		if !ok {
			break
		}
		fwd = append(fwd, idx)
	}
	var bwd []grid.ChunkIndex
	it.Reset()
	for {
		idx, ok := it.NextBack()
		if !ok {
			break
		}
		bwd = append(bwd, idx)
	}
	if len(fwd) != len(bwd) {
		t.Fatalf("forward walk %v, backward walk %v", fwd, bwd)
	}
	for i := range fwd {
		if fwd[i] != bwd[len(bwd)-1-i] {
			t.Fatalf("forward walk %v is not the mirror of backward walk %v", fwd, bwd)
		}
	}
	if len(fwd) != c.Len() {
		t.Fatalf("walk visits %d of %d chunks", len(fwd), c.Len())
	}
	return fwd
}

func wantOrder(t *testing.T, c *Cache, want ...grid.ChunkIndex) {
	t.Helper()
	got := order(t, c)
	if len(got) != len(want) {
		t.Fatalf("order: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order: got %v want %v", got, want)
		}
	}
}

func TestNewClampsLimit(t *testing.T) {
	for _, limit := range []int{-1, 0, 1, 3} {
		if got := New(limit).Limit(); got != MinLimit {
			t.Fatalf("New(%d).Limit() = %d, want %d", limit, got, MinLimit)
		}
	}
	if got := New(16).Limit(); got != 16 {
		t.Fatalf("New(16).Limit() = %d", got)
	}
}

func TestMissHasNoSideEffect(t *testing.T) {
	c := New(4)
	c.Load(ci(0, 0), grid.NewChunk())
	if _, ok := c.Chunk(ci(9, 9)); ok {
		t.Fatalf("hit on absent index")
	}
	if _, ok := c.ChunkMut(ci(9, 9)); ok {
		t.Fatalf("mut hit on absent index")
	}
	if _, ok := c.Entry(grid.Point{X: 9999, Y: 9999}); ok {
		t.Fatalf("entry hit on absent chunk")
	}
	if _, ok := c.EntryMut(grid.Point{X: 9999, Y: 9999}); ok {
		t.Fatalf("entry mut hit on absent chunk")
	}
	wantOrder(t, c, ci(0, 0))
	if c.Dirty(ci(0, 0)) {
		t.Fatalf("miss marked something dirty")
	}
}

func TestEvictionUnderPressure(t *testing.T) {
	c := New(0) // clamps to MinLimit
	for x := grid.Coord(0); x < MinLimit; x++ {
		if _, _, ok := c.Load(ci(x, 0), grid.NewChunk()); ok {
			t.Fatalf("eviction before capacity")
		}
	}
	if c.Len() != MinLimit {
		t.Fatalf("len = %d", c.Len())
	}
	// Fifth load evicts the first, never-accessed index.
	c.Load(ci(4, 0), grid.NewChunk())
	if c.Len() != MinLimit {
		t.Fatalf("len after eviction = %d", c.Len())
	}
	if _, ok := c.Chunk(ci(0, 0)); ok {
		t.Fatalf("(0,0) still cached")
	}
}

func TestRecencyBumpOnRead(t *testing.T) {
	c := New(4)
	for x := grid.Coord(0); x < 4; x++ {
		c.Load(ci(x, 0), grid.NewChunk())
	}
	wantOrder(t, c, ci(3, 0), ci(2, 0), ci(1, 0), ci(0, 0))

	c.Chunk(ci(1, 0))
	wantOrder(t, c, ci(1, 0), ci(3, 0), ci(2, 0), ci(0, 0))
	if c.Dirty(ci(1, 0)) {
		t.Fatalf("read marked dirty")
	}

	c.ChunkMut(ci(0, 0))
	wantOrder(t, c, ci(0, 0), ci(1, 0), ci(3, 0), ci(2, 0))
	if !c.Dirty(ci(0, 0)) {
		t.Fatalf("mut did not mark dirty")
	}

	// Touching the head again is a no-op.
	c.Chunk(ci(0, 0))
	wantOrder(t, c, ci(0, 0), ci(1, 0), ci(3, 0), ci(2, 0))
}

func TestDirtyWriteBack(t *testing.T) {
	c := New(4)
	c.Load(ci(0, 0), grid.NewChunk())

	// Clean drop: removed but not returned.
	if _, _, ok := c.DropOldest(); ok {
		t.Fatalf("clean chunk handed back")
	}
	if c.Len() != 0 {
		t.Fatalf("clean drop did not remove, len=%d", c.Len())
	}

	ch := grid.NewChunk()
	c.Load(ci(0, 0), ch)
	got, ok := c.ChunkMut(ci(0, 0))
	if !ok {
		t.Fatalf("mut miss")
	}
	*got.At(grid.Offset{X: 1, Y: 2}) = 7
	idx, dropped, ok := c.DropOldest()
	if !ok {
		t.Fatalf("dirty chunk not handed back")
	}
	if idx != ci(0, 0) || dropped != ch {
		t.Fatalf("wrong eviction: %v", idx)
	}
	if e, _ := dropped.Get(grid.Offset{X: 1, Y: 2}); e != 7 {
		t.Fatalf("mutation lost on write-back")
	}
	// Handed back exactly once: the dirty mark died with the node.
	if c.Dirty(ci(0, 0)) {
		t.Fatalf("dirty mark survived eviction")
	}
}

func TestDropOldestEmpty(t *testing.T) {
	c := New(4)
	if _, _, ok := c.DropOldest(); ok {
		t.Fatalf("drop from empty cache returned a chunk")
	}
}

func TestEntryAccessTranslates(t *testing.T) {
	c := New(4)
	idx := ci(2, 3)
	c.Load(idx, grid.NewChunk())

	// Point (64+5, 96+9) lives in chunk (2,3) at offset (5,9).
	p := grid.Point{X: 69, Y: 105}
	e, ok := c.EntryMut(p)
	if !ok {
		t.Fatalf("entry miss for cached chunk")
	}
	*e = 42
	if got, ok := c.Entry(p); !ok || got != 42 {
		t.Fatalf("entry read back: %d ok=%v", got, ok)
	}
	ch, _ := c.Chunk(idx)
	if got, _ := ch.Get(grid.Offset{X: 5, Y: 9}); got != 42 {
		t.Fatalf("entry landed at wrong offset")
	}
	if !c.Dirty(idx) {
		t.Fatalf("EntryMut did not dirty the chunk")
	}
}

// Scenario A: four clean loads, a fifth evicts the oldest silently.
func TestCleanEvictionScenario(t *testing.T) {
	c := New(4)
	for x := grid.Coord(0); x < 4; x++ {
		c.Load(ci(x, 0), grid.NewChunk())
	}
	if _, _, ok := c.Load(ci(4, 0), grid.NewChunk()); ok {
		t.Fatalf("clean eviction handed back a chunk")
	}
	wantOrder(t, c, ci(4, 0), ci(3, 0), ci(2, 0), ci(1, 0))
}

// Mutating (0,0) moves it to the head, so the fifth load evicts the clean
// (1,0) instead, handing nothing back, and (0,0) stays cached and dirty.
func TestDirtyChunkSurvivesEviction(t *testing.T) {
	c := New(4)
	for x := grid.Coord(0); x < 4; x++ {
		c.Load(ci(x, 0), grid.NewChunk())
	}
	if _, ok := c.ChunkMut(ci(0, 0)); !ok {
		t.Fatalf("mut miss")
	}
	if _, _, ok := c.Load(ci(4, 0), grid.NewChunk()); ok {
		t.Fatalf("evicted (1,0) was clean but was handed back")
	}
	if _, ok := c.Chunk(ci(1, 0)); ok {
		t.Fatalf("(1,0) should have been evicted")
	}
	if _, ok := c.Chunk(ci(0, 0)); !ok {
		t.Fatalf("(0,0) should have survived")
	}
	if !c.Dirty(ci(0, 0)) {
		t.Fatalf("(0,0) lost its dirty mark")
	}
}

// Loading an index that is already present replaces it: the old node is
// evicted first and returned iff dirty, and the list stays consistent.
func TestLoadReplacesExisting(t *testing.T) {
	c := New(4)
	old := grid.NewChunk()
	c.Load(ci(0, 0), old)
	c.Load(ci(1, 0), grid.NewChunk())

	// Clean replace: old chunk discarded.
	if _, _, ok := c.Load(ci(0, 0), grid.NewChunk()); ok {
		t.Fatalf("clean replace handed back a chunk")
	}
	wantOrder(t, c, ci(0, 0), ci(1, 0))
	if c.Len() != 2 {
		t.Fatalf("replace grew the cache: len=%d", c.Len())
	}

	// Dirty replace: old chunk comes back for persistence.
	mutated, _ := c.ChunkMut(ci(0, 0))
	*mutated.At(grid.Offset{}) = 9
	idx, evicted, ok := c.Load(ci(0, 0), grid.NewChunk())
	if !ok || idx != ci(0, 0) || evicted != mutated {
		t.Fatalf("dirty replace: ok=%v idx=%v", ok, idx)
	}
	if c.Dirty(ci(0, 0)) {
		t.Fatalf("fresh replacement inherited the dirty mark")
	}
	wantOrder(t, c, ci(0, 0), ci(1, 0))
}

func TestSingleElementListBootstrap(t *testing.T) {
	c := New(4)
	c.Load(ci(5, 5), grid.NewChunk())
	wantOrder(t, c, ci(5, 5))
	c.Chunk(ci(5, 5)) // touch sole element
	wantOrder(t, c, ci(5, 5))
	if _, _, ok := c.DropOldest(); ok {
		t.Fatalf("sole clean chunk handed back")
	}
	wantOrder(t, c)
}

func TestIterDoubleEndedMeetsInMiddle(t *testing.T) {
	c := New(4)
	for x := grid.Coord(0); x < 4; x++ {
		c.Load(ci(x, 0), grid.NewChunk())
	}
	it := c.DebugIter()
	a, _ := it.Next()     // (3,0)
	b, _ := it.NextBack() // (0,0)
	if a != ci(3, 0) || b != ci(0, 0) {
		t.Fatalf("ends: %v %v", a, b)
	}
	x, _ := it.Next()     // (2,0)
	y, _ := it.NextBack() // (1,0), cursors meet
	if x != ci(2, 0) || y != ci(1, 0) {
		t.Fatalf("middle: %v %v", x, y)
	}
	if _, ok := it.Next(); ok {
		t.Fatalf("iterator yielded past the meeting point")
	}
	if _, ok := it.NextBack(); ok {
		t.Fatalf("reverse iterator yielded past the meeting point")
	}
	it.Reset()
	if idx, ok := it.Next(); !ok || idx != ci(3, 0) {
		t.Fatalf("reset did not rewind: %v %v", idx, ok)
	}
}
