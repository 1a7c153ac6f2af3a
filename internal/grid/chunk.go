package grid

import "fmt"

// Chunk is a dense grid of ChunkW x ChunkH entries.
type Chunk struct {
	cells []Entry // len = ChunkW*ChunkH, x fastest then y
}

// NewChunk returns a chunk with every cell set to EntryUnknown.
func NewChunk() *Chunk {
	return &Chunk{cells: make([]Entry, ChunkW*ChunkH)}
}

// ChunkFromEntries wraps a row-major cell slice decoded from storage.
func ChunkFromEntries(cells []Entry) (*Chunk, error) {
	if len(cells) != ChunkW*ChunkH {
		return nil, fmt.Errorf("grid: chunk payload has %d cells, want %d", len(cells), ChunkW*ChunkH)
	}
	return &Chunk{cells: cells}, nil
}

func cellIndex(off Offset) int {
	// x fastest, then y
	return int(off.X) + int(off.Y)*ChunkW
}

func inBounds(off Offset) bool {
	return off.X < ChunkW && off.Y < ChunkH
}

// Len returns the fixed chunk dimensions (width, height).
func (c *Chunk) Len() (w, h int) { return ChunkW, ChunkH }

// Get returns the entry at off, or ok=false when off is out of bounds.
func (c *Chunk) Get(off Offset) (Entry, bool) {
	if !inBounds(off) {
		return EntryUnknown, false
	}
	return c.cells[cellIndex(off)], true
}

// GetMut returns the addressable entry at off, or ok=false when off is out
// of bounds.
func (c *Chunk) GetMut(off Offset) (*Entry, bool) {
	if !inBounds(off) {
		return nil, false
	}
	return &c.cells[cellIndex(off)], true
}

// At is the panicking accessor for offsets already known to be in range.
func (c *Chunk) At(off Offset) *Entry {
	if !inBounds(off) {
		panic(fmt.Sprintf("grid: offset (%d,%d) out of bounds", off.X, off.Y))
	}
	return &c.cells[cellIndex(off)]
}

// Entries exposes the backing row-major cell slice for encoding. Callers
// must not resize it.
func (c *Chunk) Entries() []Entry { return c.cells }

// Clone returns a deep copy.
func (c *Chunk) Clone() *Chunk {
	out := make([]Entry, len(c.cells))
	copy(out, c.cells)
	return &Chunk{cells: out}
}

// Equal reports whether both chunks hold identical cells.
func (c *Chunk) Equal(o *Chunk) bool {
	if len(c.cells) != len(o.cells) {
		return false
	}
	for i, e := range c.cells {
		if o.cells[i] != e {
			return false
		}
	}
	return true
}
