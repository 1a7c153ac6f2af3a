// Package world ties the chunk cache to its two collaborators: a generator
// that derives missing chunks and a sink that keeps evicted dirty chunks.
package world

import (
	"context"
	"fmt"
	"log"

	"chunkvault.dev/internal/cache"
	"chunkvault.dev/internal/grid"
)

// Generator derives the contents of a chunk that was never stored.
type Generator interface {
	ChunkAt(ctx context.Context, idx grid.ChunkIndex) (*grid.Chunk, error)
}

// Sink durably keeps chunks the cache hands back at eviction and serves
// them on later misses.
type Sink interface {
	Put(ctx context.Context, idx grid.ChunkIndex, ch *grid.Chunk) error
	Get(ctx context.Context, idx grid.ChunkIndex) (*grid.Chunk, bool, error)
}

// World owns the cache and resolves misses. Accessed from a single
// goroutine; the transport serializes requests onto it.
type World struct {
	cache *cache.Cache
	gen   Generator
	sink  Sink // may be nil: dirty evictions are then dropped with a warning
	log   *log.Logger
}

func New(limit int, g Generator, sink Sink, logger *log.Logger) *World {
	return &World{
		cache: cache.New(limit),
		gen:   g,
		sink:  sink,
		log:   logger,
	}
}

// Cache exposes the underlying cache for introspection.
func (w *World) Cache() *cache.Cache { return w.cache }

// EntryAt reads one world cell, pulling its chunk in on a miss.
func (w *World) EntryAt(ctx context.Context, p grid.Point) (grid.Entry, error) {
	if e, ok := w.cache.Entry(p); ok {
		return e, nil
	}
	if err := w.ensure(ctx, grid.UnpackChunk(p)); err != nil {
		return grid.EntryUnknown, err
	}
	e, ok := w.cache.Entry(p)
	if !ok {
		panic("world: chunk vanished right after load")
	}
	return e, nil
}

// SetEntry writes one world cell, pulling its chunk in on a miss and
// marking it dirty.
func (w *World) SetEntry(ctx context.Context, p grid.Point, e grid.Entry) error {
	if cell, ok := w.cache.EntryMut(p); ok {
		*cell = e
		return nil
	}
	if err := w.ensure(ctx, grid.UnpackChunk(p)); err != nil {
		return err
	}
	cell, ok := w.cache.EntryMut(p)
	if !ok {
		panic("world: chunk vanished right after load")
	}
	*cell = e
	return nil
}

// ChunkAt returns the chunk at idx, pulling it in on a miss. Read-only by
// contract.
func (w *World) ChunkAt(ctx context.Context, idx grid.ChunkIndex) (*grid.Chunk, error) {
	if ch, ok := w.cache.Chunk(idx); ok {
		return ch, nil
	}
	if err := w.ensure(ctx, idx); err != nil {
		return nil, err
	}
	ch, _ := w.cache.Chunk(idx)
	return ch, nil
}

// ensure loads idx into the cache: previously written-back chunks come
// from the sink, everything else from the generator. A dirty eviction
// caused by the load goes straight back to the sink.
func (w *World) ensure(ctx context.Context, idx grid.ChunkIndex) error {
	var (
		ch  *grid.Chunk
		err error
	)
	if w.sink != nil {
		var ok bool
		ch, ok, err = w.sink.Get(ctx, idx)
		if err != nil {
			return fmt.Errorf("world: sink read (%d,%d): %w", idx.X, idx.Y, err)
		}
		if !ok {
			ch = nil
		}
	}
	if ch == nil {
		ch, err = w.gen.ChunkAt(ctx, idx)
		if err != nil {
			return fmt.Errorf("world: generate (%d,%d): %w", idx.X, idx.Y, err)
		}
	}
	evictedIdx, evicted, dirty := w.cache.Load(idx, ch)
	if dirty {
		if err := w.writeBack(ctx, evictedIdx, evicted); err != nil {
			return err
		}
	}
	return nil
}

// Flush drains the cache, persisting every dirty chunk. Returns how many
// chunks were written back.
func (w *World) Flush(ctx context.Context) (int, error) {
	written := 0
	for w.cache.Len() > 0 {
		idx, ch, dirty := w.cache.DropOldest()
		if !dirty {
			continue
		}
		if err := w.writeBack(ctx, idx, ch); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func (w *World) writeBack(ctx context.Context, idx grid.ChunkIndex, ch *grid.Chunk) error {
	if w.sink == nil {
		w.log.Printf("no sink configured, dropping dirty chunk (%d,%d)", idx.X, idx.Y)
		return nil
	}
	if err := w.sink.Put(ctx, idx, ch); err != nil {
		return fmt.Errorf("world: write back (%d,%d): %w", idx.X, idx.Y, err)
	}
	return nil
}
