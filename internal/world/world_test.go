package world

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"chunkvault.dev/internal/cache"
	"chunkvault.dev/internal/grid"
)

type countingGen struct {
	calls int
	fail  error
}

func (g *countingGen) ChunkAt(_ context.Context, idx grid.ChunkIndex) (*grid.Chunk, error) {
	g.calls++
	if g.fail != nil {
		return nil, g.fail
	}
	// Every cell carries the chunk x index so provenance is checkable.
	return grid.Generate(func(grid.Offset) grid.Entry {
		return grid.Entry(idx.X + 1)
	}), nil
}

type mapSink struct {
	m    map[grid.ChunkIndex]*grid.Chunk
	puts int
}

func newMapSink() *mapSink { return &mapSink{m: map[grid.ChunkIndex]*grid.Chunk{}} }

func (s *mapSink) Put(_ context.Context, idx grid.ChunkIndex, ch *grid.Chunk) error {
	s.puts++
	s.m[idx] = ch.Clone()
	return nil
}

func (s *mapSink) Get(_ context.Context, idx grid.ChunkIndex) (*grid.Chunk, bool, error) {
	ch, ok := s.m[idx]
	if !ok {
		return nil, false, nil
	}
	return ch.Clone(), true, nil
}

func newTestWorld(g Generator, s Sink) *World {
	return New(4, g, s, log.New(io.Discard, "", 0))
}

func TestEntryAtGeneratesOnce(t *testing.T) {
	g := &countingGen{}
	w := newTestWorld(g, newMapSink())
	ctx := context.Background()

	e, err := w.EntryAt(ctx, grid.Point{X: 70, Y: 10})
	if err != nil {
		t.Fatalf("entry: %v", err)
	}
	if e != 3 { // chunk x = 2
		t.Fatalf("entry = %d", e)
	}
	// Same chunk again: no second generation.
	if _, err := w.EntryAt(ctx, grid.Point{X: 71, Y: 11}); err != nil {
		t.Fatalf("entry: %v", err)
	}
	if g.calls != 1 {
		t.Fatalf("generator called %d times", g.calls)
	}
}

func TestSetEntrySurvivesEviction(t *testing.T) {
	g := &countingGen{}
	sink := newMapSink()
	w := newTestWorld(g, sink)
	ctx := context.Background()

	p := grid.Point{X: 5, Y: 5}
	if err := w.SetEntry(ctx, p, 99); err != nil {
		t.Fatalf("set: %v", err)
	}

	// Pressure chunk (0,0) out of the cache: it is dirty and must reach
	// the sink exactly once.
	for x := grid.Coord(1); x <= cache.MinLimit; x++ {
		if _, err := w.EntryAt(ctx, grid.Point{X: x * grid.ChunkW, Y: 0}); err != nil {
			t.Fatalf("entry: %v", err)
		}
	}
	if sink.puts != 1 {
		t.Fatalf("sink puts = %d", sink.puts)
	}
	if _, ok := w.Cache().Chunk(grid.UnpackChunk(p)); ok {
		t.Fatalf("dirty chunk still cached")
	}

	// Reading it again resolves from the sink, not the generator, and the
	// mutation is intact.
	gen0 := g.calls
	e, err := w.EntryAt(ctx, p)
	if err != nil {
		t.Fatalf("entry: %v", err)
	}
	if e != 99 {
		t.Fatalf("mutation lost across eviction: %d", e)
	}
	if g.calls != gen0 {
		t.Fatalf("generator re-ran for a persisted chunk")
	}
}

func TestCleanEvictionSkipsSink(t *testing.T) {
	g := &countingGen{}
	sink := newMapSink()
	w := newTestWorld(g, sink)
	ctx := context.Background()

	// Only reads: every eviction is clean, nothing reaches the sink.
	for x := grid.Coord(0); x < 2*cache.MinLimit; x++ {
		if _, err := w.EntryAt(ctx, grid.Point{X: x * grid.ChunkW, Y: 0}); err != nil {
			t.Fatalf("entry: %v", err)
		}
	}
	if sink.puts != 0 {
		t.Fatalf("clean evictions wrote %d chunks", sink.puts)
	}
}

func TestFlushPersistsDirtyOnly(t *testing.T) {
	g := &countingGen{}
	sink := newMapSink()
	w := newTestWorld(g, sink)
	ctx := context.Background()

	if err := w.SetEntry(ctx, grid.Point{X: 0, Y: 0}, 7); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := w.SetEntry(ctx, grid.Point{X: 2 * grid.ChunkW, Y: 0}, 8); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := w.EntryAt(ctx, grid.Point{X: 3 * grid.ChunkW, Y: 0}); err != nil {
		t.Fatalf("entry: %v", err)
	}

	n, err := w.Flush(ctx)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if n != 2 || sink.puts != 2 {
		t.Fatalf("flush wrote %d (sink %d), want 2", n, sink.puts)
	}
	if w.Cache().Len() != 0 {
		t.Fatalf("cache not drained: %d", w.Cache().Len())
	}
}

func TestGeneratorErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	w := newTestWorld(&countingGen{fail: boom}, newMapSink())
	if _, err := w.EntryAt(context.Background(), grid.Point{}); !errors.Is(err, boom) {
		t.Fatalf("error not propagated: %v", err)
	}
	if w.Cache().Len() != 0 {
		t.Fatalf("failed generation left a partial chunk cached")
	}
}

func TestNilSinkDropsDirtyEvictions(t *testing.T) {
	g := &countingGen{}
	w := newTestWorld(g, nil)
	ctx := context.Background()

	if err := w.SetEntry(ctx, grid.Point{}, 1); err != nil {
		t.Fatalf("set: %v", err)
	}
	if n, err := w.Flush(ctx); err != nil || n != 0 {
		t.Fatalf("flush without sink: n=%d err=%v", n, err)
	}
}
