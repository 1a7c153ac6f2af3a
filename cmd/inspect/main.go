// Command inspect dumps stored chunks from a chunk database: -list prints
// every stored index, -cx/-cy renders one chunk as text.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"chunkvault.dev/internal/gen"
	"chunkvault.dev/internal/grid"
	"chunkvault.dev/internal/persistence/chunkdb"
)

var glyphs = map[grid.Entry]byte{
	grid.EntryUnknown: '?',
	gen.Air:           ' ',
	gen.Grass:         '.',
	gen.Dirt:          ',',
	gen.Sand:          '~',
	gen.Stone:         '#',
	gen.Gravel:        '%',
	gen.Log:           '|',
	gen.CoalOre:       'c',
	gen.IronOre:       'i',
	gen.CrystalOre:    '*',
}

func main() {
	var (
		dbPath = flag.String("db", "./data/chunks.db", "chunk database path")
		list   = flag.Bool("list", false, "list stored chunk indices and exit")
		cx     = flag.Uint("cx", 0, "chunk x index")
		cy     = flag.Uint("cy", 0, "chunk y index")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[inspect] ", 0)

	db, err := chunkdb.Open(*dbPath)
	if err != nil {
		logger.Fatalf("open: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if *list {
		indices, err := db.Indices(ctx)
		if err != nil {
			logger.Fatalf("indices: %v", err)
		}
		for _, idx := range indices {
			fmt.Printf("(%d,%d)\n", idx.X, idx.Y)
		}
		fmt.Printf("%d chunks\n", len(indices))
		return
	}

	idx := grid.ChunkIndex{X: grid.Coord(*cx), Y: grid.Coord(*cy)}
	ch, ok, err := db.Get(ctx, idx)
	if err != nil {
		logger.Fatalf("get: %v", err)
	}
	if !ok {
		logger.Fatalf("chunk (%d,%d) not stored", idx.X, idx.Y)
	}

	w, h := ch.Len()
	fmt.Printf("chunk (%d,%d) %dx%d\n", idx.X, idx.Y, w, h)
	row := make([]byte, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			e, _ := ch.Get(grid.Offset{X: grid.Coord(x), Y: grid.Coord(y)})
			g, ok := glyphs[e]
			if !ok {
				g = 'x'
			}
			row[x] = g
		}
		fmt.Println(string(row))
	}
}
