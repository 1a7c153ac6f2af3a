package chunkenc

import (
	"testing"

	"chunkvault.dev/internal/grid"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ch := grid.NewChunk()
	*ch.At(grid.Offset{X: 0, Y: 0}) = 3
	*ch.At(grid.Offset{X: 31, Y: 31}) = 9
	for x := grid.Coord(0); x < grid.ChunkW; x++ {
		*ch.At(grid.Offset{X: x, Y: 5}) = grid.Entry(x % 4)
	}
	idx := grid.ChunkIndex{X: 17, Y: 2047}

	gotIdx, gotCh, err := Decode(Encode(idx, ch))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if gotIdx != idx {
		t.Fatalf("index: got %v want %v", gotIdx, idx)
	}
	if !gotCh.Equal(ch) {
		t.Fatalf("cells differ after round trip")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("CV"),
		[]byte("XXXXsomething"),
		append([]byte("CVK1"), 0xde, 0xad, 0xbe, 0xef),
	}
	for _, b := range cases {
		if _, _, err := Decode(b); err == nil {
			t.Fatalf("decoded garbage %q", b)
		}
	}
}

func TestDecodeRejectsShortPayload(t *testing.T) {
	// A valid frame for a different (smaller) cell count must not decode.
	ch := grid.NewChunk()
	b := Encode(grid.ChunkIndex{}, ch)
	// Re-encode with a truncated RLE body: compress only the header.
	short := make([]byte, 4)
	copy(short, Tag[:])
	short = zstdEnc.EncodeAll([]byte{0, 0, 0, 0, 1, 1}, short) // one lonely cell
	if _, _, err := Decode(short); err == nil {
		t.Fatalf("decoded short payload")
	}
	if _, _, err := Decode(b); err != nil {
		t.Fatalf("control decode failed: %v", err)
	}
}

func TestEncodeCompressesUniformChunk(t *testing.T) {
	b := Encode(grid.ChunkIndex{}, grid.NewChunk())
	if len(b) >= grid.ChunkW*grid.ChunkH {
		t.Fatalf("uniform chunk blob is %d bytes", len(b))
	}
}
