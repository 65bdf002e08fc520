package export

import "github.com/m7alleus/mazer/internal/cave"

// FloorConnectivity counts the floor tiles reachable, through orthogonal
// steps, from the first floor tile in row-major order, and the total number
// of floor tiles. A connected map has reachable == total.
func FloorConnectivity(g *cave.Grid) (reachable, total int) {
	regions := cave.FindRegions(g, cave.TileFloor)
	if len(regions) == 0 {
		return 0, 0
	}
	return len(regions[0]), g.Count(cave.TileFloor)
}
