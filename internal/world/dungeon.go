package world

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samdwyer/idlecrawl/internal/gamedata"
	"github.com/samdwyer/idlecrawl/internal/telemetry"
)

// ErrFloorTooSmall is returned when a dungeon's room counts exceed its grid.
var ErrFloorTooSmall = errors.New("rooms do not fit the floor")

// Floor is one generated level of a dungeon.
type Floor struct {
	Number   int      `json:"number"` // 1-based
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	Cells    [][]Cell `json:"cells"` // indexed [y][x]
	Entrance Point    `json:"entrance"`
}

// GenerateFloor lays out floor number of def. Placement is fully driven by
// rng, so a seeded source reproduces the same floor.
//
// Every floor gets an entrance, stairs and a key; the boss room appears when
// the dungeon has bosses and the rescue NPC only on def.NPCFloor. Enemy rooms
// roll a monster group from the dungeon pool.
func GenerateFloor(ctx context.Context, def *gamedata.DungeonDef, number int, monsters *gamedata.MonsterRegistry, rng *rand.Rand) (*Floor, error) {
	tracer := telemetry.Tracer("world")
	_, span := tracer.Start(ctx, "floor.generate")
	defer span.End()

	startTime := time.Now()

	plan := []RoomType{RoomEntrance, RoomStairs, RoomKey}
	boss := def.BossFor(number)
	if boss != "" {
		plan = append(plan, RoomBoss)
	}
	if def.NPCFloor == number {
		plan = append(plan, RoomNPC)
	}
	plan = appendN(plan, RoomEnemy, def.Enemies)
	plan = appendN(plan, RoomGold, def.Gold)
	plan = appendN(plan, RoomTrap, def.Traps)

	if def.Width <= 0 || def.Height <= 0 || len(plan) > def.Cells() {
		return nil, fmt.Errorf("%w: dungeon %s needs %d rooms on a %dx%d floor",
			ErrFloorTooSmall, def.ID, len(plan), def.Width, def.Height)
	}

	f := &Floor{
		Number: number,
		Width:  def.Width,
		Height: def.Height,
		Cells:  make([][]Cell, def.Height),
	}
	for y := range f.Cells {
		f.Cells[y] = make([]Cell, def.Width)
	}

	order := rng.Perm(def.Cells())
	for i, room := range plan {
		p := Point{X: order[i] % def.Width, Y: order[i] / def.Width}
		cell := Cell{Room: room}

		switch room {
		case RoomEntrance:
			f.Entrance = p
		case RoomBoss:
			cell.Group = []string{boss}
		case RoomEnemy:
			cell.Group = rollGroup(def, monsters, rng)
			if len(cell.Group) == 0 {
				cell.Room = RoomEmpty
			}
		case RoomGold:
			cell.Gold = def.GoldMin
			if def.GoldMax > def.GoldMin {
				cell.Gold += rng.Intn(def.GoldMax - def.GoldMin + 1)
			}
		}
		f.Cells[p.Y][p.X] = cell
	}

	span.SetAttributes(
		attribute.String("dungeon.id", def.ID),
		attribute.Int("floor.number", number),
		attribute.Int("floor.width", f.Width),
		attribute.Int("floor.height", f.Height),
		attribute.Int("floor.room_count", len(plan)),
		attribute.Int64("floor.generation_ms", time.Since(startTime).Milliseconds()),
	)
	return f, nil
}

func appendN(plan []RoomType, room RoomType, n int) []RoomType {
	for i := 0; i < n; i++ {
		plan = append(plan, room)
	}
	return plan
}

// rollGroup draws between GroupMin and GroupMax monsters from the pool.
func rollGroup(def *gamedata.DungeonDef, monsters *gamedata.MonsterRegistry, rng *rand.Rand) []string {
	if monsters == nil {
		return nil
	}
	size := max(def.GroupMin, 1)
	if def.GroupMax > size {
		size += rng.Intn(def.GroupMax - size + 1)
	}
	group := make([]string, 0, size)
	for i := 0; i < size; i++ {
		if m := monsters.SpawnFrom(rng, def.Monsters); m != nil {
			group = append(group, m.ID)
		}
	}
	return group
}

// InBounds returns true if p lies on the grid.
func (f *Floor) InBounds(p Point) bool {
	return p.X >= 0 && p.X < f.Width && p.Y >= 0 && p.Y < f.Height
}

// At returns the cell at p, or an empty cell when p is off the grid.
func (f *Floor) At(p Point) Cell {
	if !f.InBounds(p) {
		return Cell{}
	}
	return f.Cells[p.Y][p.X]
}

// Find returns the position of the first cell holding room, scanning rows.
func (f *Floor) Find(room RoomType) (Point, bool) {
	for y, row := range f.Cells {
		for x, c := range row {
			if c.Room == room {
				return Point{X: x, Y: y}, true
			}
		}
	}
	return Point{}, false
}

// Count returns how many cells hold room.
func (f *Floor) Count(room RoomType) int {
	n := 0
	for _, row := range f.Cells {
		for _, c := range row {
			if c.Room == room {
				n++
			}
		}
	}
	return n
}

// check reports whether the grid matches its declared size.
func (f *Floor) check() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidFloor, f.Width, f.Height)
	}
	if len(f.Cells) != f.Height {
		return fmt.Errorf("%w: %d rows, want %d", ErrInvalidFloor, len(f.Cells), f.Height)
	}
	for y, row := range f.Cells {
		if len(row) != f.Width {
			return fmt.Errorf("%w: row %d has %d cells, want %d", ErrInvalidFloor, y, len(row), f.Width)
		}
	}
	if !f.InBounds(f.Entrance) {
		return fmt.Errorf("%w: entrance (%d,%d) off the grid", ErrInvalidFloor, f.Entrance.X, f.Entrance.Y)
	}
	return nil
}

func (f *Floor) cell(p Point) *Cell {
	return &f.Cells[p.Y][p.X]
}

func (f *Floor) clone() *Floor {
	if f == nil {
		return nil
	}
	out := *f
	out.Cells = make([][]Cell, len(f.Cells))
	for y, row := range f.Cells {
		out.Cells[y] = make([]Cell, len(row))
		for x, c := range row {
			out.Cells[y][x] = c.clone()
		}
	}
	return &out
}
