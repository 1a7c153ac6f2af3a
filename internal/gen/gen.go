// Package gen derives chunk contents deterministically from a seed: biome
// regions picked by coordinate hash, ore clusters, and a light sprinkle of
// terrain so the map is never empty void.
package gen

import (
	"context"

	"chunkvault.dev/internal/grid"
	"chunkvault.dev/internal/mathx"
)

// Palette ids produced by the generator. EntryUnknown (0) stays reserved
// for cells that were never generated.
const (
	Air grid.Entry = iota + 1
	Grass
	Dirt
	Sand
	Stone
	Gravel
	Log
	CoalOre
	IronOre
	CrystalOre
)

// Biomes.
const (
	BiomePlains = "PLAINS"
	BiomeForest = "FOREST"
	BiomeDesert = "DESERT"
)

type Tuning struct {
	BiomeRegionSize     int
	OreProbPermille     int // scales all ore cluster probabilities
	TerrainProbPermille int // scales biome terrain cluster probabilities
	SprinkleStone       int // permille
	SprinkleDirt        int // permille
}

func (t *Tuning) applyDefaults() {
	if t.BiomeRegionSize <= 0 {
		t.BiomeRegionSize = 256
	}
	if t.OreProbPermille <= 0 {
		t.OreProbPermille = 1000
	}
	if t.TerrainProbPermille <= 0 {
		t.TerrainProbPermille = 1000
	}
	if t.SprinkleStone <= 0 {
		t.SprinkleStone = 12
	}
	if t.SprinkleDirt <= 0 {
		t.SprinkleDirt = 20
	}
}

type Generator struct {
	seed int64
	tune Tuning
}

func New(seed int64, tune Tuning) *Generator {
	tune.applyDefaults()
	return &Generator{seed: seed, tune: tune}
}

// ChunkAt materializes one whole chunk through the incremental builder,
// cell by cell in row-major order. Fails only on ctx cancellation.
func (g *Generator) ChunkAt(ctx context.Context, idx grid.ChunkIndex) (*grid.Chunk, error) {
	return grid.GenerateContext(ctx, func(_ context.Context, off grid.Offset) grid.Entry {
		return g.EntryAt(grid.PackPoint(idx, off))
	})
}

// EntryAt is the pure per-cell rule. Precedence: rare ores > common ores >
// biome terrain clusters > sprinkle > biome floor.
func (g *Generator) EntryAt(p grid.Point) grid.Entry {
	x, y := int(p.X), int(p.Y)
	biome := g.BiomeAt(p)

	switch {
	case g.inCluster(g.seed+101, x, y, 192, 2, scalePermille(200, g.tune.OreProbPermille)):
		return CrystalOre
	case g.inCluster(g.seed+102, x, y, 128, 3, scalePermille(450, g.tune.OreProbPermille)):
		return IronOre
	case g.inCluster(g.seed+103, x, y, 64, 4, scalePermille(650, g.tune.OreProbPermille)):
		return CoalOre
	}

	switch biome {
	case BiomeForest:
		switch {
		case g.inCluster(g.seed+201, x, y, 48, 4, scalePermille(450, g.tune.TerrainProbPermille)):
			return Log
		case g.inCluster(g.seed+202, x, y, 32, 4, scalePermille(500, g.tune.TerrainProbPermille)):
			return Stone
		case g.inCluster(g.seed+203, x, y, 96, 2, scalePermille(180, g.tune.TerrainProbPermille)):
			return Gravel
		}
	case BiomeDesert:
		switch {
		case g.inCluster(g.seed+301, x, y, 48, 3, scalePermille(550, g.tune.TerrainProbPermille)):
			return Sand
		case g.inCluster(g.seed+302, x, y, 32, 4, scalePermille(450, g.tune.TerrainProbPermille)):
			return Stone
		}
	default: // plains
		switch {
		case g.inCluster(g.seed+401, x, y, 48, 3, scalePermille(400, g.tune.TerrainProbPermille)):
			return Dirt
		case g.inCluster(g.seed+402, x, y, 32, 4, scalePermille(500, g.tune.TerrainProbPermille)):
			return Stone
		}
	}

	roll := mathx.Hash2(g.seed+999, x, y) % 1000
	switch {
	case roll < uint64(g.tune.SprinkleStone):
		return Stone
	case roll < uint64(g.tune.SprinkleStone)+uint64(g.tune.SprinkleDirt):
		if biome == BiomeDesert {
			return Sand
		}
		return Dirt
	}

	switch biome {
	case BiomeDesert:
		return Sand
	case BiomeForest:
		return Grass
	default:
		return Grass
	}
}

// BiomeAt picks the biome of the region containing p, 3-way split by hash.
func (g *Generator) BiomeAt(p grid.Point) string {
	rx := int(p.X) / g.tune.BiomeRegionSize
	ry := int(p.Y) / g.tune.BiomeRegionSize
	switch mathx.Hash2(g.seed, rx, ry) % 3 {
	case 0:
		return BiomePlains
	case 1:
		return BiomeForest
	default:
		return BiomeDesert
	}
}

// inCluster tests whether (x,y) falls inside a deterministically placed
// cluster on the given grid. Coordinates are non-negative here, so plain
// integer division is the floor division.
func (g *Generator) inCluster(seed int64, x, y, cell, radius int, probPermille uint64) bool {
	if cell <= 0 || radius <= 0 || probPermille == 0 {
		return false
	}
	gx := x / cell
	gy := y / cell
	r2 := radius * radius

	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			cgx := gx + dx
			cgy := gy + dy
			h := mathx.Hash2(seed, cgx, cgy)
			if h%1000 >= probPermille {
				continue
			}

			// Deterministically place a center inside this grid cell.
			ox := int((h >> 10) % uint64(cell))
			oy := int((h >> 20) % uint64(cell))
			cx := cgx*cell + ox
			cy := cgy*cell + oy

			ddx := x - cx
			ddy := y - cy
			if ddx*ddx+ddy*ddy <= r2 {
				return true
			}
		}
	}
	return false
}

func scalePermille(base uint64, scale int) uint64 {
	if scale <= 0 {
		scale = 1000
	}
	scaled := (base*uint64(scale) + 500) / 1000
	if scaled > 1000 {
		return 1000
	}
	return scaled
}
