package export

import (
	"strings"

	"github.com/gookit/color"

	"github.com/m7alleus/mazer/internal/cave"
)

var (
	// ColorWall styles wall tiles in colored output
	ColorWall = color.Style{color.FgGray}
	// ColorFloor styles floor tiles in colored output
	ColorFloor = color.Style{color.FgYellow, color.OpBold}
)

// RenderASCII draws the grid one line per row, '#' for walls and '.' for
// floor. Each tile is repeated scale times in both directions. When colored
// is set, runs of equal tiles are wrapped in ANSI styles.
func RenderASCII(g *cave.Grid, scale int, colored bool) string {
	if scale < 1 {
		scale = 1
	}

	var out strings.Builder
	var line strings.Builder
	for y := 0; y < g.Height; y++ {
		line.Reset()

		x := 0
		for x < g.Width {
			tile := g.Get(x, y)
			run := x
			for run < g.Width && g.Get(run, y) == tile {
				run++
			}
			segment := strings.Repeat(string(tile.Glyph()), (run-x)*scale)
			if colored {
				segment = styleFor(tile).Sprint(segment)
			}
			line.WriteString(segment)
			x = run
		}

		for i := 0; i < scale; i++ {
			out.WriteString(line.String())
			out.WriteByte('\n')
		}
	}
	return out.String()
}

// RenderMap renders a generated map at its own scale factor.
func RenderMap(m *cave.Map, colored bool) (string, error) {
	grid, err := m.Grid()
	if err != nil {
		return "", err
	}
	return RenderASCII(grid, m.ScaleFactor, colored), nil
}

// StripColor removes ANSI styling from rendered output.
func StripColor(s string) string {
	return color.ClearCode(s)
}

// Legend describes the glyphs used by RenderASCII.
func Legend(colored bool) string {
	wall, floor := "#", "."
	if colored {
		wall = ColorWall.Sprint(wall)
		floor = ColorFloor.Sprint(floor)
	}
	return "Legend: " + wall + " wall  " + floor + " floor\n"
}

func styleFor(tile cave.TileType) color.Style {
	if tile == cave.TileWall {
		return ColorWall
	}
	return ColorFloor
}
