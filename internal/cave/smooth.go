package cave

// SurroundingWallCount counts walls in the 8 cells around (x, y).
// Neighbours outside the grid count as wall.
func SurroundingWallCount(g *Grid, x, y int) int {
	count := 0
	for ny := y - 1; ny <= y+1; ny++ {
		for nx := x - 1; nx <= x+1; nx++ {
			if nx == x && ny == y {
				continue
			}
			if g.IsWall(nx, ny) {
				count++
			}
		}
	}
	return count
}

// Smooth applies one cellular automaton pass. Neighbour counts are read from a
// snapshot taken before the pass so updates never feed into the same pass.
func Smooth(g *Grid) {
	snapshot := g.Clone()

	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			walls := SurroundingWallCount(snapshot, x, y)

			if walls > 4 {
				g.Set(x, y, TileWall)
			} else if walls < 4 {
				g.Set(x, y, TileFloor)
			}
			// exactly 4: keep current value
		}
	}
}

// SmoothN applies passes sequential smoothing passes
func SmoothN(g *Grid, passes int) {
	for i := 0; i < passes; i++ {
		Smooth(g)
	}
}
