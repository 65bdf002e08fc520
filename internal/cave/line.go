package cave

// Line rasterizes the segment between two cells, both endpoints included.
// The major axis steps every iteration; the minor axis steps whenever the
// accumulated error reaches the major-axis run length.
func Line(from, to Coord) []Coord {
	x, y := from.X, from.Y
	dx := to.X - from.X
	dy := to.Y - from.Y

	inverted := false
	step := sign(dx)
	gradientStep := sign(dy)
	longest := abs(dx)
	shortest := abs(dy)

	if longest < shortest {
		inverted = true
		longest, shortest = shortest, longest
		step, gradientStep = gradientStep, step
	}

	line := make([]Coord, 0, longest+1)
	accumulation := longest / 2

	for i := 0; i < longest; i++ {
		line = append(line, Coord{x, y})

		if inverted {
			y += step
		} else {
			x += step
		}

		accumulation += shortest
		if accumulation >= longest {
			if inverted {
				x += gradientStep
			} else {
				y += gradientStep
			}
			accumulation -= longest
		}
	}

	return append(line, Coord{x, y})
}

// carveCircle clears every in-bounds cell within radius of c
func carveCircle(g *Grid, c Coord, radius int) {
	r2 := radius * radius
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy > r2 {
				continue
			}
			g.Set(c.X+dx, c.Y+dy, TileFloor)
		}
	}
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
