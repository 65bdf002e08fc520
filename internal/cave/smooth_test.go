package cave

import "testing"

// referenceSmooth computes one pass into a fresh grid, reading only src.
func referenceSmooth(src *Grid) *Grid {
	out, _ := NewGrid(src.Width, src.Height)
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			walls := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if (dx != 0 || dy != 0) && src.IsWall(x+dx, y+dy) {
						walls++
					}
				}
			}
			switch {
			case walls > 4:
				out.Set(x, y, TileWall)
			case walls < 4:
				out.Set(x, y, TileFloor)
			default:
				out.Set(x, y, src.Get(x, y))
			}
		}
	}
	return out
}

func TestSurroundingWallCount(t *testing.T) {
	g := mustRows(t,
		"...",
		".#.",
		"...",
	)

	tests := []struct {
		x, y, want int
	}{
		{1, 1, 0}, // own cell is not counted
		{0, 0, 6}, // 5 outside the grid plus the center
		{1, 0, 4}, // 3 outside plus the center
		{2, 2, 6},
	}
	for _, tt := range tests {
		if got := SurroundingWallCount(g, tt.x, tt.y); got != tt.want {
			t.Errorf("SurroundingWallCount(%d,%d) = %d, want %d", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestSmooth_AllFloor(t *testing.T) {
	g := mustRows(t,
		"...",
		"...",
		"...",
	)
	Smooth(g)

	// Corners see 5 out-of-bounds walls, edges see 3
	want := mustRows(t,
		"#.#",
		"...",
		"#.#",
	)
	if !g.Equal(want) {
		t.Errorf("Smooth =\n%s\nwant\n%s", g, want)
	}
}

func TestSmooth_ExactlyFourKeepsValue(t *testing.T) {
	// The center sees exactly four walls and keeps its value either way
	for _, center := range []byte{'#', '.'} {
		g := mustRows(t,
			"#.#",
			"."+string(center)+".",
			"#.#",
		)
		before := g.Get(1, 1)
		Smooth(g)
		if g.Get(1, 1) != before {
			t.Errorf("center %q changed to %v with exactly 4 walls", center, g.Get(1, 1))
		}
	}
}

func TestSmooth_ReadsSnapshot(t *testing.T) {
	for _, seed := range []string{"a", "b", "c", "d"} {
		g, _ := NewGrid(25, 18)
		RandomFill(g, NewRand(seed), 47)

		want := referenceSmooth(g)
		Smooth(g)

		if !g.Equal(want) {
			t.Errorf("seed %q: Smooth disagrees with snapshot evaluation", seed)
		}
	}
}

func TestSmoothN(t *testing.T) {
	g, _ := NewGrid(30, 20)
	RandomFill(g, NewRand("passes"), 47)

	want := g.Clone()
	for i := 0; i < 3; i++ {
		want = referenceSmooth(want)
	}

	SmoothN(g, 3)
	if !g.Equal(want) {
		t.Error("SmoothN(3) should equal three sequential passes")
	}

	before := g.Clone()
	SmoothN(g, 0)
	if !g.Equal(before) {
		t.Error("SmoothN(0) should leave the grid unchanged")
	}
}
