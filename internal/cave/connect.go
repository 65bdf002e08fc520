package cave

import "fmt"

// Passage records one tunnel carved between two rooms
type Passage struct {
	RoomA int   `json:"room_a" yaml:"room_a"`
	RoomB int   `json:"room_b" yaml:"room_b"`
	From  Coord `json:"from" yaml:"from"`
	To    Coord `json:"to" yaml:"to"`
}

// Connector links rooms with tunnels until every room is reachable from the main room
type Connector struct {
	grid     *Grid
	rooms    []*Room
	radius   int
	passages []Passage
}

// NewConnector creates a connector carving tunnels of the given radius into grid.
// rooms must be ordered by Index, as returned by BuildRooms.
func NewConnector(g *Grid, rooms []*Room, radius int) *Connector {
	return &Connector{
		grid:   g,
		rooms:  rooms,
		radius: radius,
	}
}

// Passages returns the tunnels carved so far, in carving order
func (c *Connector) Passages() []Passage {
	return c.passages
}

// candidate is the closest edge-tile pair found between two rooms
type candidate struct {
	roomA, roomB *Room
	tileA, tileB Coord
	distance     int
	found        bool
}

// consider replaces the candidate when the pair is strictly closer, so the first
// pair encountered wins ties
func (cand *candidate) consider(roomA, roomB *Room) {
	for _, tileA := range roomA.EdgeTiles {
		for _, tileB := range roomB.EdgeTiles {
			d := tileA.DistanceSquared(tileB)
			if !cand.found || d < cand.distance {
				*cand = candidate{
					roomA:    roomA,
					roomB:    roomB,
					tileA:    tileA,
					tileB:    tileB,
					distance: d,
					found:    true,
				}
			}
		}
	}
}

// Connect runs both connection phases. It returns ErrNotConnected when some
// rooms cannot be linked to the main room; the grid keeps every tunnel carved
// up to that point.
func (c *Connector) Connect() error {
	if len(c.rooms) < 2 {
		return nil
	}

	c.connectNearest()
	return c.forceAccessibility()
}

// connectNearest links every still-isolated room to its closest neighbour
func (c *Connector) connectNearest() {
	for _, roomA := range c.rooms {
		if roomA.ConnectionCount() > 0 {
			continue
		}

		var best candidate
		for _, roomB := range c.rooms {
			if roomA.Index == roomB.Index || roomA.IsConnected(roomB.Index) {
				continue
			}
			best.consider(roomA, roomB)
		}

		if best.found {
			c.createPassage(best)
		}
	}
}

// forceAccessibility repeatedly carves the single closest tunnel between the
// inaccessible rooms and the accessible ones. Every iteration either makes at
// least one more room accessible or stops, so it runs at most len(rooms) times.
func (c *Connector) forceAccessibility() error {
	for pass := 0; pass < len(c.rooms); pass++ {
		var inaccessible, accessible []*Room
		for _, r := range c.rooms {
			if r.IsAccessibleFromMainRoom {
				accessible = append(accessible, r)
			} else {
				inaccessible = append(inaccessible, r)
			}
		}

		if len(inaccessible) == 0 {
			return nil
		}

		var best candidate
		for _, roomA := range inaccessible {
			for _, roomB := range accessible {
				if roomA.IsConnected(roomB.Index) {
					continue
				}
				best.consider(roomA, roomB)
			}
		}

		if !best.found {
			return fmt.Errorf("%w: %d of %d rooms unreachable", ErrNotConnected, len(inaccessible), len(c.rooms))
		}

		c.createPassage(best)
	}

	if n := c.inaccessibleCount(); n > 0 {
		return fmt.Errorf("%w: %d of %d rooms unreachable", ErrNotConnected, n, len(c.rooms))
	}
	return nil
}

func (c *Connector) inaccessibleCount() int {
	n := 0
	for _, r := range c.rooms {
		if !r.IsAccessibleFromMainRoom {
			n++
		}
	}
	return n
}

// createPassage joins two rooms in the graph and carves the tunnel into the grid
func (c *Connector) createPassage(cand candidate) {
	c.connectRooms(cand.roomA, cand.roomB)

	for _, p := range Line(cand.tileA, cand.tileB) {
		carveCircle(c.grid, p, c.radius)
	}

	c.passages = append(c.passages, Passage{
		RoomA: cand.roomA.Index,
		RoomB: cand.roomB.Index,
		From:  cand.tileA,
		To:    cand.tileB,
	})
}

// connectRooms records the undirected edge and spreads accessibility across it
func (c *Connector) connectRooms(a, b *Room) {
	if a.IsAccessibleFromMainRoom {
		c.setAccessible(b)
	} else if b.IsAccessibleFromMainRoom {
		c.setAccessible(a)
	}

	a.Connected.Put(b.Index)
	b.Connected.Put(a.Index)
}

// setAccessible marks the room and its whole connection closure as accessible
func (c *Connector) setAccessible(start *Room) {
	if start.IsAccessibleFromMainRoom {
		return
	}

	start.IsAccessibleFromMainRoom = true
	queue := []*Room{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		current.Connected.Each(func(index int) {
			next := c.rooms[index]
			if !next.IsAccessibleFromMainRoom {
				next.IsAccessibleFromMainRoom = true
				queue = append(queue, next)
			}
		})
	}
}
