package cave

import (
	"fmt"
	"math"
)

// AddBorder returns a new grid wrapped in a wall margin of borderSize cells.
// The source grid is not modified.
func AddBorder(g *Grid, borderSize int) (*Grid, error) {
	if borderSize < 0 {
		borderSize = 0
	}
	if borderSize > (math.MaxInt-max(g.Width, g.Height))/2 {
		return nil, fmt.Errorf("%w: border %d overflows a %dx%d grid", ErrInvalidSize, borderSize, g.Width, g.Height)
	}

	bordered, err := NewGrid(g.Width+borderSize*2, g.Height+borderSize*2)
	if err != nil {
		return nil, err
	}
	for y := 0; y < bordered.Height; y++ {
		for x := 0; x < bordered.Width; x++ {
			sx, sy := x-borderSize, y-borderSize
			if g.InBounds(sx, sy) {
				bordered.cells[y][x] = g.cells[sy][sx]
			} else {
				bordered.cells[y][x] = TileWall
			}
		}
	}

	return bordered, nil
}
