package cave

import (
	"sort"

	"github.com/zyedidia/generic/mapset"
)

// Room is a surviving floor region promoted to a node of the room graph
type Room struct {
	Index     int     // Position in the room slice, used as the graph node id
	Tiles     []Coord // Every floor tile of the room
	EdgeTiles []Coord // Tiles orthogonally adjacent to a wall
	Size      int

	Connected                mapset.Set[int] // Indices of directly connected rooms
	IsMainRoom               bool
	IsAccessibleFromMainRoom bool
}

// NewRoom wraps a floor region, collecting its edge tiles against the grid.
// Neighbour lookups are bounds checked, so rooms touching the grid edge are fine.
func NewRoom(region Region, g *Grid) *Room {
	r := &Room{
		Tiles:     region,
		Size:      len(region),
		Connected: mapset.New[int](),
	}

	for _, tile := range region {
		for _, d := range orthogonal {
			nx, ny := tile.X+d.X, tile.Y+d.Y
			if g.InBounds(nx, ny) && g.Get(nx, ny) == TileWall {
				r.EdgeTiles = append(r.EdgeTiles, tile)
				break
			}
		}
	}

	return r
}

// IsConnected reports whether the room has a direct edge to the room at index
func (r *Room) IsConnected(index int) bool {
	return r.Connected.Has(index)
}

// ConnectionCount returns the number of direct connections
func (r *Room) ConnectionCount() int {
	return r.Connected.Size()
}

// BuildRooms turns floor regions into rooms sorted largest first. Ties keep the
// region discovery order. The largest room becomes the main room and seeds
// accessibility.
func BuildRooms(g *Grid, regions []Region) []*Room {
	rooms := make([]*Room, 0, len(regions))
	for _, region := range regions {
		rooms = append(rooms, NewRoom(region, g))
	}

	sort.SliceStable(rooms, func(i, j int) bool {
		return rooms[i].Size > rooms[j].Size
	})

	for i, r := range rooms {
		r.Index = i
	}

	if len(rooms) > 0 {
		rooms[0].IsMainRoom = true
		rooms[0].IsAccessibleFromMainRoom = true
	}

	return rooms
}

// ReachableFromMain walks the connection graph from the main room and returns
// how many rooms it reaches
func ReachableFromMain(rooms []*Room) int {
	if len(rooms) == 0 {
		return 0
	}

	visited := make([]bool, len(rooms))
	visited[0] = true
	queue := []int{0}
	count := 0

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		count++

		rooms[current].Connected.Each(func(next int) {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		})
	}

	return count
}
