package cave

// Region is a maximal set of same-type cells joined by orthogonal adjacency,
// in the order the flood fill reached them.
type Region []Coord

// orthogonal lists the 4-connected neighbour offsets
var orthogonal = [4]Coord{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

// FindRegions returns every region of the given tile type in first-discovery
// order, scanning rows top to bottom and cells left to right.
func FindRegions(g *Grid, tile TileType) []Region {
	visited := make([][]bool, g.Height)
	for y := range visited {
		visited[y] = make([]bool, g.Width)
	}

	var regions []Region
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			if visited[y][x] || g.Get(x, y) != tile {
				continue
			}
			regions = append(regions, floodFill(g, x, y, visited))
		}
	}

	return regions
}

// floodFill collects the region containing (startX, startY) with a breadth-first walk
func floodFill(g *Grid, startX, startY int, visited [][]bool) Region {
	tile := g.Get(startX, startY)

	var region Region
	visited[startY][startX] = true
	queue := []Coord{{startX, startY}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		region = append(region, current)

		for _, d := range orthogonal {
			nx, ny := current.X+d.X, current.Y+d.Y
			if !g.InBounds(nx, ny) || visited[ny][nx] || g.Get(nx, ny) != tile {
				continue
			}
			visited[ny][nx] = true
			queue = append(queue, Coord{nx, ny})
		}
	}

	return region
}

// RemoveSmallRegions rewrites every region smaller than threshold to the opposite
// tile type. The surviving regions are returned in their original order along
// with the number of regions removed.
func RemoveSmallRegions(g *Grid, regions []Region, threshold int) ([]Region, int) {
	survivors := make([]Region, 0, len(regions))
	removed := 0

	for _, region := range regions {
		if len(region) >= threshold {
			survivors = append(survivors, region)
			continue
		}

		for _, c := range region {
			g.Set(c.X, c.Y, g.Get(c.X, c.Y).Opposite())
		}
		removed++
	}

	return survivors, removed
}
