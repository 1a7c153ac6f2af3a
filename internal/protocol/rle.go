package protocol

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"chunkvault.dev/internal/grid"
)

// EncodeRLE encodes a cell sequence into base64(varint pairs), the pairs
// being (palette id, run length) repeated.
func EncodeRLE(cells []grid.Entry) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < len(cells) {
		e := cells[i]
		run := 1
		for j := i + 1; j < len(cells) && cells[j] == e; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], uint64(e))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func DecodeRLE(b64 string) ([]grid.Entry, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	var out []grid.Entry
	for i := 0; i < len(raw); {
		e, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if e > 0xFFFF {
			return nil, fmt.Errorf("palette id too large: %d", e)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, grid.Entry(e))
		}
	}
	return out, nil
}
