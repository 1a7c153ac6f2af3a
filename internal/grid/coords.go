package grid

// Coord is the fixed-width world coordinate type. The addressable world is
// [0, 1<<16) cells on each axis.
type Coord uint16

const (
	// ChunkShift is log2 of the chunk side length.
	ChunkShift = 5
	// ChunkW and ChunkH are the chunk dimensions in cells.
	ChunkW = 1 << ChunkShift
	ChunkH = 1 << ChunkShift

	offsetMask = ChunkW - 1
)

// Point identifies one absolute world cell.
type Point struct {
	X Coord `json:"x"`
	Y Coord `json:"y"`
}

// ChunkIndex identifies a chunk at chunk granularity.
type ChunkIndex struct {
	X Coord `json:"cx"`
	Y Coord `json:"cy"`
}

// Offset identifies a cell within its chunk; each axis is in [0, ChunkW)
// resp. [0, ChunkH).
type Offset struct {
	X, Y Coord
}

// UnpackChunk maps a world point to the index of the chunk containing it.
func UnpackChunk(p Point) ChunkIndex {
	return ChunkIndex{X: p.X >> ChunkShift, Y: p.Y >> ChunkShift}
}

// UnpackOffset maps a world point to its cell offset inside its chunk.
func UnpackOffset(p Point) Offset {
	return Offset{X: p.X & offsetMask, Y: p.Y & offsetMask}
}

// PackPoint rebuilds the world point addressed by a chunk index and an
// in-chunk offset: PackPoint(UnpackChunk(p), UnpackOffset(p)) == p.
func PackPoint(ci ChunkIndex, off Offset) Point {
	return Point{
		X: ci.X<<ChunkShift | off.X&offsetMask,
		Y: ci.Y<<ChunkShift | off.Y&offsetMask,
	}
}
