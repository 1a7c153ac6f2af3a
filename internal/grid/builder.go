package grid

import "context"

// Builder accumulates entries one cell at a time, in row-major order, into
// a finished chunk. It is a two-state machine: accumulating until the last
// cell of the last row is pushed, then done. A builder is single-use.
type Builder struct {
	cur   Offset
	cells []Entry
	done  bool
}

func NewBuilder() *Builder {
	return &Builder{cells: make([]Entry, 0, ChunkW*ChunkH)}
}

// Offset returns the cell the next Push fills, or ok=false once done.
func (b *Builder) Offset() (Offset, bool) {
	if b.done {
		return Offset{}, false
	}
	return b.cur, true
}

// Push appends e at the current offset and advances, x first, wrapping to
// the next row at ChunkW. It reports whether the builder reached its
// terminal state. Pushing into a finished builder panics.
func (b *Builder) Push(e Entry) bool {
	if b.done {
		panic("grid: push into finished builder")
	}
	b.cells = append(b.cells, e)
	b.cur.X++
	if b.cur.X == ChunkW {
		b.cur.X = 0
		b.cur.Y++
	}
	if b.cur.Y == ChunkH {
		b.done = true
	}
	return b.done
}

// Chunk materializes the finished chunk; ok=false while still accumulating.
func (b *Builder) Chunk() (*Chunk, bool) {
	if !b.done {
		return nil, false
	}
	if len(b.cells) != ChunkW*ChunkH {
		panic("grid: finished builder holds short accumulator")
	}
	return &Chunk{cells: b.cells}, true
}

// drive is the one build loop behind all four Generate flavors. It pulls
// exactly one entry per offset, in row-major order, with at most one
// produce call in flight.
func drive(ctx context.Context, produce func(context.Context, Offset) (Entry, error)) (*Chunk, error) {
	b := NewBuilder()
	for {
		off, _ := b.Offset()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e, err := produce(ctx, off)
		if err != nil {
			return nil, err
		}
		if b.Push(e) {
			ch, _ := b.Chunk()
			return ch, nil
		}
	}
}

// Generate builds a chunk from an infallible entry source.
func Generate(produce func(Offset) Entry) *Chunk {
	ch, err := drive(context.Background(), func(_ context.Context, off Offset) (Entry, error) {
		return produce(off), nil
	})
	if err != nil {
		// Background context never expires and the source cannot fail.
		panic("grid: infallible generate failed: " + err.Error())
	}
	return ch
}

// TryGenerate builds a chunk from a fallible entry source. The first error
// aborts the build; no partial chunk is ever returned.
func TryGenerate(produce func(Offset) (Entry, error)) (*Chunk, error) {
	return drive(context.Background(), func(_ context.Context, off Offset) (Entry, error) {
		return produce(off)
	})
}

// GenerateContext builds a chunk from an entry source that may block, e.g.
// awaiting a fetch. The build fails only through ctx cancellation.
func GenerateContext(ctx context.Context, produce func(context.Context, Offset) Entry) (*Chunk, error) {
	return drive(ctx, func(ctx context.Context, off Offset) (Entry, error) {
		return produce(ctx, off), nil
	})
}

// TryGenerateContext builds a chunk from a blocking, fallible entry source.
func TryGenerateContext(ctx context.Context, produce func(context.Context, Offset) (Entry, error)) (*Chunk, error) {
	return drive(ctx, produce)
}
