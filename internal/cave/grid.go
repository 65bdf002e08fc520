package cave

import (
	"fmt"
	"strings"
)

// TileType is the value stored in a grid cell
type TileType int

const (
	TileFloor TileType = 0 // Walkable cave floor
	TileWall  TileType = 1 // Solid rock
)

// String returns the string representation of a TileType
func (t TileType) String() string {
	switch t {
	case TileFloor:
		return "floor"
	case TileWall:
		return "wall"
	default:
		return "unknown"
	}
}

// Opposite returns the tile type a cleaned region is rewritten to
func (t TileType) Opposite() TileType {
	if t == TileWall {
		return TileFloor
	}
	return TileWall
}

// Glyph returns the character used for the tile in text encodings
func (t TileType) Glyph() byte {
	if t == TileWall {
		return '#'
	}
	return '.'
}

// Coord identifies a single grid cell
type Coord struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// DistanceSquared returns the squared euclidean distance between two cells
func (c Coord) DistanceSquared(o Coord) int {
	dx := c.X - o.X
	dy := c.Y - o.Y
	return dx*dx + dy*dy
}

// Grid is the binary wall/floor map mutated in place by every generation stage.
// Cells are stored row-major: cells[y][x].
type Grid struct {
	Width, Height int
	cells         [][]TileType
}

// NewGrid creates a grid filled with floor tiles
func NewGrid(width, height int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}

	cells := make([][]TileType, height)
	for y := range cells {
		cells[y] = make([]TileType, width)
	}

	return &Grid{Width: width, Height: height, cells: cells}, nil
}

// GridFromRows builds a grid from text rows where '#' is wall and anything else is floor.
// All rows must have the same length.
func GridFromRows(rows []string) (*Grid, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrInvalidSize)
	}

	g, err := NewGrid(len(rows[0]), len(rows))
	if err != nil {
		return nil, err
	}

	for y, row := range rows {
		if len(row) != g.Width {
			return nil, fmt.Errorf("%w: row %d has length %d, want %d", ErrInvalidSize, y, len(row), g.Width)
		}
		for x := 0; x < len(row); x++ {
			if row[x] == '#' {
				g.cells[y][x] = TileWall
			}
		}
	}

	return g, nil
}

// GridFromInts builds a grid from row-major integer cells (1 = wall, 0 = floor)
func GridFromInts(tiles [][]int) (*Grid, error) {
	if len(tiles) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrInvalidSize)
	}

	g, err := NewGrid(len(tiles[0]), len(tiles))
	if err != nil {
		return nil, err
	}

	for y, row := range tiles {
		if len(row) != g.Width {
			return nil, fmt.Errorf("%w: row %d has length %d, want %d", ErrInvalidSize, y, len(row), g.Width)
		}
		for x, v := range row {
			if v != 0 {
				g.cells[y][x] = TileWall
			}
		}
	}

	return g, nil
}

// InBounds reports whether (x, y) lies inside the grid
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.Width && y >= 0 && y < g.Height
}

// Get returns the tile at (x, y). Cells outside the grid read as wall.
func (g *Grid) Get(x, y int) TileType {
	if !g.InBounds(x, y) {
		return TileWall
	}
	return g.cells[y][x]
}

// Set writes a tile; writes outside the grid are ignored
func (g *Grid) Set(x, y int, t TileType) {
	if g.InBounds(x, y) {
		g.cells[y][x] = t
	}
}

// IsWall returns true if (x, y) is a wall or outside the grid
func (g *Grid) IsWall(x, y int) bool {
	return g.Get(x, y) == TileWall
}

// Count returns the number of cells holding the given tile type
func (g *Grid) Count(t TileType) int {
	n := 0
	for _, row := range g.cells {
		for _, c := range row {
			if c == t {
				n++
			}
		}
	}
	return n
}

// Clone returns a deep copy of the grid
func (g *Grid) Clone() *Grid {
	cells := make([][]TileType, g.Height)
	for y := range cells {
		cells[y] = make([]TileType, g.Width)
		copy(cells[y], g.cells[y])
	}
	return &Grid{Width: g.Width, Height: g.Height, cells: cells}
}

// Equal reports whether two grids have the same dimensions and cells
func (g *Grid) Equal(o *Grid) bool {
	if o == nil || g.Width != o.Width || g.Height != o.Height {
		return false
	}
	for y := range g.cells {
		for x := range g.cells[y] {
			if g.cells[y][x] != o.cells[y][x] {
				return false
			}
		}
	}
	return true
}

// Ints returns the grid as row-major integers (1 = wall, 0 = floor)
func (g *Grid) Ints() [][]int {
	out := make([][]int, g.Height)
	for y, row := range g.cells {
		out[y] = make([]int, g.Width)
		for x, c := range row {
			out[y][x] = int(c)
		}
	}
	return out
}

// Rows returns the grid as text rows using '#' for wall and '.' for floor
func (g *Grid) Rows() []string {
	rows := make([]string, g.Height)
	var sb strings.Builder
	for y, row := range g.cells {
		sb.Reset()
		for _, c := range row {
			sb.WriteByte(c.Glyph())
		}
		rows[y] = sb.String()
	}
	return rows
}

// String renders the grid one row per line
func (g *Grid) String() string {
	return strings.Join(g.Rows(), "\n")
}
