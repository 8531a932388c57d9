package world

// Point is a cell position on a floor grid.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns p moved by dx, dy.
func (p Point) Add(dx, dy int) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// Cell is one room of a floor.
type Cell struct {
	Room RoomType `json:"room"`
	// Gold held by a RoomGold cell.
	Gold int `json:"gold,omitempty"`
	// Group lists the monster IDs waiting in a RoomEnemy or RoomBoss cell.
	Group []string `json:"group,omitempty"`
}

// clear degrades the cell once its content has been taken.
func (c *Cell) clear() {
	*c = Cell{Room: RoomEmpty}
}

func (c Cell) clone() Cell {
	c.Group = append([]string(nil), c.Group...)
	return c
}

// isUnitStep returns true for a single 4-directional step.
func isUnitStep(dx, dy int) bool {
	return (dx == 0) != (dy == 0) && abs(dx)+abs(dy) == 1
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
