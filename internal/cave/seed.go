package cave

import (
	"encoding/binary"
	"math/rand"
	"strconv"
	"time"

	"golang.org/x/crypto/blake2b"
)

// HashSeed turns a seed string into a stable 64-bit value for math/rand.
// The hash does not depend on process state, so the same string always
// produces the same map.
func HashSeed(seed string) int64 {
	sum := blake2b.Sum256([]byte(seed))
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

// RandomSeed returns a fresh seed string derived from the clock (unix seconds)
func RandomSeed(now time.Time) string {
	return strconv.FormatInt(now.Unix(), 10)
}

// NewRand creates the pseudo-random source for a seed string
func NewRand(seed string) *rand.Rand {
	return rand.New(rand.NewSource(HashSeed(seed)))
}

// RandomFill seeds the grid with noise. Border cells are always wall; every
// interior cell becomes wall when a roll in [0,100) falls below fillPercent.
func RandomFill(g *Grid, rng *rand.Rand, fillPercent int) {
	for x := 0; x < g.Width; x++ {
		for y := 0; y < g.Height; y++ {
			if x == 0 || x == g.Width-1 || y == 0 || y == g.Height-1 {
				g.Set(x, y, TileWall)
				continue
			}

			if rng.Intn(100) < fillPercent {
				g.Set(x, y, TileWall)
			} else {
				g.Set(x, y, TileFloor)
			}
		}
	}
}
