package world

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"pgregory.net/rapid"

	"github.com/samdwyer/idlecrawl/internal/battle"
	"github.com/samdwyer/idlecrawl/internal/event"
	"github.com/samdwyer/idlecrawl/internal/gamedata"
)

// testDungeon generates 4x4 floors for a three floor dungeon.
func testDungeon() *gamedata.DungeonDef {
	return &gamedata.DungeonDef{
		ID:        "test",
		Name:      "Test Cellar",
		Width:     4,
		Height:    4,
		MaxFloors: 3,
		Monsters:  []string{"slime"},
		Bosses:    []string{"goblin_king"},
		GroupMin:  1,
		GroupMax:  1,
		Enemies:   2,
		Gold:      2,
		GoldMin:   5,
		GoldMax:   5,
	}
}

// row builds a one-row floor from rooms, left to right. The first room must
// be the entrance.
func row(rooms ...Cell) *Floor {
	return &Floor{Number: 1, Width: len(rooms), Height: 1, Cells: [][]Cell{rooms}}
}

// sessionOn restores a session standing at x on floor f.
func sessionOn(t *testing.T, f *Floor, x int, mode Mode) *Session {
	t.Helper()
	reg := gamedata.MustLoadRegistry()
	visited := make([][]bool, f.Height)
	for y := range visited {
		visited[y] = make([]bool, f.Width)
	}
	s, err := Restore(context.Background(), Snapshot{
		ID:        "s1",
		DungeonID: "test",
		Mode:      mode,
		Floor:     f,
		Visited:   visited,
		Position:  Point{X: x},
		Party:     []string{"p1", "p2"},
	}, testDungeon(), reg.Monsters, WithRand(rand.New(rand.NewSource(1))))
	if err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	return s
}

func kinds(events []event.Event) []event.Kind {
	out := make([]event.Kind, 0, len(events))
	for _, e := range events {
		out = append(out, e.Kind)
	}
	return out
}

func hasKind(events []event.Event, kind event.Kind) bool {
	for _, e := range events {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

func TestNewSessionValidation(t *testing.T) {
	reg := gamedata.MustLoadRegistry()
	ctx := context.Background()

	tests := []struct {
		name  string
		def   *gamedata.DungeonDef
		party []string
		floor int
		want  error
	}{
		{"no dungeon", nil, []string{"p1"}, 1, ErrUnknownDungeon},
		{"no party", testDungeon(), nil, 1, ErrEmptyParty},
		{"floor zero", testDungeon(), []string{"p1"}, 0, ErrInvalidFloor},
		{"past the bottom", testDungeon(), []string{"p1"}, 4, ErrInvalidFloor},
	}
	for _, tt := range tests {
		if _, err := NewSession(ctx, tt.def, reg.Monsters, tt.party, tt.floor); !errors.Is(err, tt.want) {
			t.Errorf("%s: NewSession() = %v, want %v", tt.name, err, tt.want)
		}
	}

	s, err := NewSession(ctx, testDungeon(), reg.Monsters, []string{"p1"}, 2, WithRand(rand.New(rand.NewSource(3))))
	if err != nil {
		t.Fatalf("NewSession() error: %v", err)
	}
	if s.Floor() != 2 || s.Mode() != ModeExploring || s.Position() != s.Grid().Entrance || !s.Visited(s.Position()) {
		t.Errorf("new session: floor=%d mode=%s pos=%v", s.Floor(), s.Mode(), s.Position())
	}
}

func TestMoveOutOfBoundsIsNoop(t *testing.T) {
	s := sessionOn(t, row(Cell{Room: RoomEntrance}, Cell{Room: RoomGold, Gold: 9}), 0, ModeExploring)
	before := s.Snapshot()

	for _, step := range [][2]int{{-1, 0}, {0, -1}, {0, 1}} {
		if _, err := s.Move(context.Background(), step[0], step[1]); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("Move(%d,%d) = %v, want ErrOutOfBounds", step[0], step[1], err)
		}
	}
	for _, step := range [][2]int{{1, 1}, {2, 0}, {0, 0}} {
		if _, err := s.Move(context.Background(), step[0], step[1]); !errors.Is(err, ErrIllegalMove) {
			t.Errorf("Move(%d,%d) = %v, want ErrIllegalMove", step[0], step[1], err)
		}
	}

	if after := s.Snapshot(); !reflect.DeepEqual(before, after) {
		t.Errorf("rejected moves changed the session:\nbefore %+v\nafter  %+v", before, after)
	}
	if events := s.Drain(); len(events) != 0 {
		t.Errorf("rejected moves emitted %v", kinds(events))
	}
}

func TestRejectedMovesNeverMutate(t *testing.T) {
	reg := gamedata.MustLoadRegistry()

	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Int64().Draw(t, "seed")
		s, err := NewSession(context.Background(), testDungeon(), reg.Monsters, []string{"p1"}, 1,
			WithRand(rand.New(rand.NewSource(seed))))
		if err != nil {
			t.Fatalf("NewSession() error: %v", err)
		}

		for i := 0; i < 40; i++ {
			dx := rapid.IntRange(-2, 2).Draw(t, "dx")
			dy := rapid.IntRange(-2, 2).Draw(t, "dy")
			before := s.Snapshot()
			if _, err := s.Move(context.Background(), dx, dy); err != nil {
				if after := s.Snapshot(); !reflect.DeepEqual(before, after) {
					t.Fatalf("rejected Move(%d,%d) changed the session", dx, dy)
				}
			}
			if !s.Visited(s.Position()) {
				t.Fatalf("position %v is not visited", s.Position())
			}
		}
	})
}

func TestGoldCollectedOnce(t *testing.T) {
	s := sessionOn(t, row(Cell{Room: RoomEntrance}, Cell{Room: RoomGold, Gold: 25}, Cell{}), 0, ModeExploring)
	ctx := context.Background()

	room, err := s.Move(ctx, 1, 0)
	if err != nil || room != RoomGold {
		t.Fatalf("Move() = %s, %v; want gold", room, err)
	}
	if s.Loot().Gold != 25 {
		t.Fatalf("gold after first visit = %d, want 25", s.Loot().Gold)
	}
	if !hasKind(s.Drain(), event.GoldCollected) {
		t.Error("first visit should emit a gold event")
	}

	s.Move(ctx, 1, 0)
	room, _ = s.Move(ctx, -1, 0)

	if room != RoomEmpty || s.Loot().Gold != 25 {
		t.Errorf("second visit: room=%s gold=%d, want empty and 25", room, s.Loot().Gold)
	}
	if hasKind(s.Drain(), event.GoldCollected) {
		t.Error("second visit should not emit a gold event")
	}
}

func TestKeyAndTrapDegrade(t *testing.T) {
	s := sessionOn(t, row(Cell{Room: RoomEntrance}, Cell{Room: RoomKey}, Cell{Room: RoomTrap}), 0, ModeExploring)
	ctx := context.Background()

	s.Move(ctx, 1, 0)
	if !s.HasKey() {
		t.Error("HasKey() = false after the key room")
	}
	room, _ := s.Move(ctx, 1, 0)
	if room != RoomTrap || !hasKind(s.Drain(), event.TrapTriggered) {
		t.Error("trap room should report itself and emit a trap event")
	}

	grid := s.Grid()
	if grid.Count(RoomKey) != 0 || grid.Count(RoomTrap) != 0 {
		t.Error("key and trap rooms should degrade to empty")
	}
}

func TestEncounterFleeAndWin(t *testing.T) {
	s := sessionOn(t, row(
		Cell{Room: RoomEntrance},
		Cell{Room: RoomEnemy, Group: []string{"slime", "bat"}},
	), 0, ModeExploring)
	ctx := context.Background()

	if _, err := s.BeginCombat(ctx); !errors.Is(err, ErrNoEncounter) {
		t.Errorf("BeginCombat() without encounter = %v, want ErrNoEncounter", err)
	}

	s.Move(ctx, 1, 0)
	if s.Mode() != ModeEncountered {
		t.Fatalf("Mode() = %s, want encountered", s.Mode())
	}
	if _, err := s.Move(ctx, -1, 0); !errors.Is(err, ErrWrongMode) {
		t.Errorf("Move() during encounter = %v, want ErrWrongMode", err)
	}

	enc, err := s.BeginCombat(ctx)
	if err != nil {
		t.Fatalf("BeginCombat() error: %v", err)
	}
	if enc.Boss || len(enc.Monsters) != 2 {
		t.Errorf("encounter = %+v", enc)
	}

	if err := s.ResolveCombat(ctx, Resolution{Fled: true}); err != nil {
		t.Fatalf("ResolveCombat(fled) error: %v", err)
	}
	if s.Mode() != ModeExploring || s.Grid().At(Point{X: 1}).Room != RoomEnemy {
		t.Errorf("after fleeing: mode=%s room=%s, want exploring and enemy", s.Mode(), s.Grid().At(Point{X: 1}).Room)
	}

	s.Move(ctx, -1, 0)
	s.Move(ctx, 1, 0)
	if s.Mode() != ModeEncountered {
		t.Fatalf("re-entering should encounter again, mode = %s", s.Mode())
	}
	s.BeginCombat(ctx)

	party := []battle.ActorState{{ID: "p1", RefID: "p1", HP: 33, MP: 4}}
	err = s.ResolveCombat(ctx, Resolution{
		Won:   true,
		Party: party,
		Loot:  []gamedata.Drop{{ItemID: "slime_gel", Count: 2}},
		Gold:  9,
	})
	if err != nil {
		t.Fatalf("ResolveCombat(won) error: %v", err)
	}
	if s.Mode() != ModeExploring || s.Grid().At(Point{X: 1}).Room != RoomEmpty {
		t.Errorf("after winning: mode=%s room=%s", s.Mode(), s.Grid().At(Point{X: 1}).Room)
	}
	loot := s.Loot()
	if loot.Gold != 9 || len(loot.Items) != 1 || loot.Items[0].Count != 2 {
		t.Errorf("Loot() = %+v", loot)
	}
	if v, ok := s.Vitals("p1"); !ok || v.HP != 33 || v.MP != 4 {
		t.Errorf("Vitals(p1) = %+v, %v", v, ok)
	}
}

func TestBossVictoryThenFinishAtEntrance(t *testing.T) {
	s := sessionOn(t, row(
		Cell{Room: RoomEntrance},
		Cell{Room: RoomBoss, Group: []string{"goblin_king"}},
	), 0, ModeExploring)
	ctx := context.Background()

	if _, err := s.FinishAssault(ctx); !errors.Is(err, ErrCannotFinish) {
		t.Errorf("FinishAssault() before the boss = %v, want ErrCannotFinish", err)
	}

	s.Move(ctx, 1, 0)
	s.BeginCombat(ctx)
	if err := s.ResolveCombat(ctx, Resolution{Won: true, Gold: 80}); err != nil {
		t.Fatalf("ResolveCombat() error: %v", err)
	}
	if s.Mode() != ModeVictory || !s.BossDefeated() {
		t.Fatalf("after boss: mode=%s bossDefeated=%v", s.Mode(), s.BossDefeated())
	}

	if err := s.Continue(ctx); err != nil {
		t.Fatalf("Continue() error: %v", err)
	}
	s.Drain()
	s.Move(ctx, -1, 0)
	if !hasKind(s.Drain(), event.FinishAvailable) {
		t.Error("entrance after the boss should offer to finish")
	}

	loot, err := s.FinishAssault(ctx)
	if err != nil {
		t.Fatalf("FinishAssault() error: %v", err)
	}
	if loot.Gold != 80 || s.Mode() != ModeCompleted {
		t.Errorf("FinishAssault() = %+v, mode %s", loot, s.Mode())
	}
	if err := s.Retreat(ctx); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Retreat() after completion = %v, want ErrSessionClosed", err)
	}
}

func TestDefeatDiscardsLoot(t *testing.T) {
	s := sessionOn(t, row(
		Cell{Room: RoomEntrance},
		Cell{Room: RoomGold, Gold: 10},
		Cell{Room: RoomEnemy, Group: []string{"slime"}},
	), 0, ModeExploring)
	ctx := context.Background()

	s.Move(ctx, 1, 0)
	s.Move(ctx, 1, 0)
	s.BeginCombat(ctx)
	if err := s.ResolveCombat(ctx, Resolution{}); err != nil {
		t.Fatalf("ResolveCombat(lost) error: %v", err)
	}

	if s.Mode() != ModeDefeated || s.Loot().Gold != 0 {
		t.Errorf("after defeat: mode=%s gold=%d", s.Mode(), s.Loot().Gold)
	}
	if !hasKind(s.Drain(), event.SessionEnded) {
		t.Error("defeat should end the session")
	}
}

func TestProceedToNextFloor(t *testing.T) {
	s := sessionOn(t, row(Cell{Room: RoomEntrance}, Cell{Room: RoomStairs}), 0, ModeExploring)
	ctx := context.Background()

	if err := s.ProceedToNextFloor(ctx); !errors.Is(err, ErrWrongMode) {
		t.Errorf("ProceedToNextFloor() away from stairs = %v, want ErrWrongMode", err)
	}

	s.Move(ctx, 1, 0)
	if s.Mode() != ModeStairs || s.BossDefeated() {
		t.Fatalf("at stairs: mode=%s bossDefeated=%v", s.Mode(), s.BossDefeated())
	}
	if err := s.ProceedToNextFloor(ctx); err != nil {
		t.Fatalf("ProceedToNextFloor() error: %v", err)
	}

	if s.Floor() != 2 || s.Mode() != ModeExploring {
		t.Fatalf("after descending: floor=%d mode=%s", s.Floor(), s.Mode())
	}
	grid := s.Grid()
	if s.Position() != grid.Entrance {
		t.Errorf("Position() = %v, want entrance %v", s.Position(), grid.Entrance)
	}
	visited := 0
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			if s.Visited(Point{X: x, Y: y}) {
				visited++
			}
		}
	}
	if visited != 1 {
		t.Errorf("visited cells on the new floor = %d, want only the entrance", visited)
	}
	if !hasKind(s.Drain(), event.FloorChanged) {
		t.Error("descending should emit a floor event")
	}
}

func TestProceedOnLastFloorCompletes(t *testing.T) {
	f := row(Cell{Room: RoomEntrance}, Cell{Room: RoomStairs})
	f.Number = 3
	s := sessionOn(t, f, 1, ModeStairs)

	if err := s.ProceedToNextFloor(context.Background()); err != nil {
		t.Fatalf("ProceedToNextFloor() error: %v", err)
	}
	if s.Mode() != ModeCompleted || s.Floor() != 3 {
		t.Errorf("after the last stairs: mode=%s floor=%d", s.Mode(), s.Floor())
	}
}

func TestStairsContinueExploring(t *testing.T) {
	s := sessionOn(t, row(Cell{Room: RoomEntrance}, Cell{Room: RoomStairs}), 1, ModeStairs)
	ctx := context.Background()

	if err := s.Continue(ctx); err != nil {
		t.Fatalf("Continue() error: %v", err)
	}
	if _, err := s.Move(ctx, -1, 0); err != nil {
		t.Errorf("Move() after Continue = %v", err)
	}
	if err := s.Continue(ctx); !errors.Is(err, ErrWrongMode) {
		t.Errorf("Continue() while exploring = %v, want ErrWrongMode", err)
	}
}

func TestRetreatClosesSession(t *testing.T) {
	s := sessionOn(t, row(Cell{Room: RoomEntrance}, Cell{Room: RoomGold, Gold: 10}), 0, ModeExploring)
	ctx := context.Background()

	s.Move(ctx, 1, 0)
	if err := s.Retreat(ctx); err != nil {
		t.Fatalf("Retreat() error: %v", err)
	}
	if s.Mode() != ModeRetreated || s.Loot().Gold != 0 {
		t.Errorf("after retreat: mode=%s gold=%d", s.Mode(), s.Loot().Gold)
	}
	if _, err := s.Move(ctx, -1, 0); !errors.Is(err, ErrWrongMode) {
		t.Errorf("Move() after retreat = %v, want ErrWrongMode", err)
	}
	if err := s.Continue(ctx); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Continue() after retreat = %v, want ErrSessionClosed", err)
	}
}

func TestRescueNPC(t *testing.T) {
	s := sessionOn(t, row(Cell{Room: RoomEntrance}, Cell{Room: RoomNPC}), 0, ModeExploring)
	ctx := context.Background()

	if err := s.RescueNPC(ctx); !errors.Is(err, ErrNoNPC) {
		t.Errorf("RescueNPC() on the entrance = %v, want ErrNoNPC", err)
	}

	s.Move(ctx, 1, 0)
	if !s.NPCFound() || s.Mode() != ModeExploring {
		t.Fatalf("NPC room: found=%v mode=%s", s.NPCFound(), s.Mode())
	}
	if err := s.RescueNPC(ctx); err != nil {
		t.Fatalf("RescueNPC() error: %v", err)
	}
	if !s.NPCRescued() || s.Grid().At(Point{X: 1}).Room != RoomEmpty {
		t.Error("rescue should flag the NPC and clear the room")
	}
}

func TestRestoreRejectsBadSnapshots(t *testing.T) {
	reg := gamedata.MustLoadRegistry()
	good := sessionOn(t, row(Cell{Room: RoomEntrance}, Cell{}), 0, ModeExploring).Snapshot()

	outside := good
	outside.Position = Point{X: 5}
	badMode := good
	badMode.Mode = "dancing"
	otherDungeon := good
	otherDungeon.DungeonID = "elsewhere"

	shortRow := good
	shortRow.Floor = &Floor{Number: 1, Width: 3, Height: 1, Cells: [][]Cell{{{Room: RoomEntrance}}}}
	shortRow.Visited = [][]bool{{true, false, false}}
	lostEntrance := good
	lostEntrance.Floor = good.Floor.clone()
	lostEntrance.Floor.Entrance = Point{X: 9}

	for _, snap := range []Snapshot{outside, badMode, otherDungeon, shortRow, lostEntrance} {
		if _, err := Restore(context.Background(), snap, testDungeon(), reg.Monsters); err == nil {
			t.Errorf("Restore(%+v) should fail", snap)
		}
	}
	for _, snap := range []Snapshot{shortRow, lostEntrance} {
		if _, err := Restore(context.Background(), snap, testDungeon(), reg.Monsters); !errors.Is(err, ErrInvalidFloor) {
			t.Errorf("Restore() = %v, want ErrInvalidFloor", err)
		}
	}
}
