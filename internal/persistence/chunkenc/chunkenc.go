// Package chunkenc is the binary blob format for one persisted chunk:
// a 4-byte magic+version tag, then a zstd frame holding the chunk index
// and a varint run-length encoding of the cell palette ids.
package chunkenc

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"chunkvault.dev/internal/grid"
)

// Tag identifies the format and its version. Bump the trailing digit on
// incompatible changes.
var Tag = [4]byte{'C', 'V', 'K', '1'}

var (
	zstdEnc, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	zstdDec, _ = zstd.NewReader(nil)
)

// Encode serializes one chunk with its index.
func Encode(idx grid.ChunkIndex, ch *grid.Chunk) []byte {
	cells := ch.Entries()

	var tmp [binary.MaxVarintLen64]byte
	raw := make([]byte, 0, 4+len(cells)/4)
	raw = binary.LittleEndian.AppendUint16(raw, uint16(idx.X))
	raw = binary.LittleEndian.AppendUint16(raw, uint16(idx.Y))

	// RLE pairs: (palette id, run length).
	i := 0
	for i < len(cells) {
		e := cells[i]
		run := 1
		for j := i + 1; j < len(cells) && cells[j] == e; j++ {
			run++
		}
		n := binary.PutUvarint(tmp[:], uint64(e))
		raw = append(raw, tmp[:n]...)
		n = binary.PutUvarint(tmp[:], uint64(run))
		raw = append(raw, tmp[:n]...)
		i += run
	}

	out := make([]byte, 4, 4+len(raw))
	copy(out, Tag[:])
	return zstdEnc.EncodeAll(raw, out)
}

// Decode parses a blob produced by Encode, rejecting unknown tags and
// payloads whose cell count does not match the chunk dimensions.
func Decode(b []byte) (grid.ChunkIndex, *grid.Chunk, error) {
	var idx grid.ChunkIndex
	if len(b) < 4 || [4]byte(b[:4]) != Tag {
		return idx, nil, fmt.Errorf("chunkenc: bad tag")
	}
	raw, err := zstdDec.DecodeAll(b[4:], nil)
	if err != nil {
		return idx, nil, fmt.Errorf("chunkenc: decompress: %w", err)
	}
	if len(raw) < 4 {
		return idx, nil, fmt.Errorf("chunkenc: truncated header")
	}
	idx.X = grid.Coord(binary.LittleEndian.Uint16(raw[0:2]))
	idx.Y = grid.Coord(binary.LittleEndian.Uint16(raw[2:4]))

	cells := make([]grid.Entry, 0, grid.ChunkW*grid.ChunkH)
	for i := 4; i < len(raw); {
		e, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return idx, nil, fmt.Errorf("chunkenc: bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return idx, nil, fmt.Errorf("chunkenc: bad varint at %d", i)
		}
		i += n
		if e > 0xFFFF {
			return idx, nil, fmt.Errorf("chunkenc: palette id too large: %d", e)
		}
		if run == 0 || uint64(len(cells))+run > grid.ChunkW*grid.ChunkH {
			return idx, nil, fmt.Errorf("chunkenc: run overflows chunk: %d", run)
		}
		for k := uint64(0); k < run; k++ {
			cells = append(cells, grid.Entry(e))
		}
	}
	ch, err := grid.ChunkFromEntries(cells)
	if err != nil {
		return idx, nil, fmt.Errorf("chunkenc: %w", err)
	}
	return idx, ch, nil
}
