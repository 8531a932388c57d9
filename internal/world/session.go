package world

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samdwyer/idlecrawl/internal/battle"
	"github.com/samdwyer/idlecrawl/internal/event"
	"github.com/samdwyer/idlecrawl/internal/gamedata"
	"github.com/samdwyer/idlecrawl/internal/telemetry"
)

// Mode is the high-level state of a session.
type Mode string

const (
	ModeExploring   Mode = "exploring"
	ModeEncountered Mode = "encountered"
	ModeBattle      Mode = "battle"
	ModeVictory     Mode = "victory"
	ModeStairs      Mode = "stairs"
	ModeRetreated   Mode = "retreated"
	ModeDefeated    Mode = "defeated"
	ModeCompleted   Mode = "completed"
)

// Terminal returns true once the session is closed.
func (m Mode) Terminal() bool {
	return m == ModeRetreated || m == ModeDefeated || m == ModeCompleted
}

// Mode machine events.
const (
	evEncounter = "encounter"
	evFight     = "fight"
	evWin       = "win"
	evWinBoss   = "win_boss"
	evEscape    = "escape"
	evLose      = "lose"
	evStairs    = "stairs"
	evContinue  = "continue"
	evDescend   = "descend"
	evFinish    = "finish"
	evRetreat   = "retreat"
)

func modeEvents() fsm.Events {
	open := []string{
		string(ModeExploring), string(ModeEncountered), string(ModeBattle),
		string(ModeVictory), string(ModeStairs),
	}
	return fsm.Events{
		{Name: evEncounter, Src: []string{string(ModeExploring)}, Dst: string(ModeEncountered)},
		{Name: evFight, Src: []string{string(ModeEncountered)}, Dst: string(ModeBattle)},
		{Name: evWin, Src: []string{string(ModeBattle)}, Dst: string(ModeExploring)},
		{Name: evWinBoss, Src: []string{string(ModeBattle)}, Dst: string(ModeVictory)},
		{Name: evEscape, Src: []string{string(ModeBattle)}, Dst: string(ModeExploring)},
		{Name: evLose, Src: []string{string(ModeBattle)}, Dst: string(ModeDefeated)},
		{Name: evStairs, Src: []string{string(ModeExploring)}, Dst: string(ModeStairs)},
		{Name: evContinue, Src: []string{string(ModeStairs), string(ModeVictory)}, Dst: string(ModeExploring)},
		{Name: evDescend, Src: []string{string(ModeStairs)}, Dst: string(ModeExploring)},
		{Name: evFinish, Src: []string{string(ModeStairs), string(ModeVictory), string(ModeExploring)}, Dst: string(ModeCompleted)},
		{Name: evRetreat, Src: open, Dst: string(ModeRetreated)},
	}
}

var (
	ErrUnknownDungeon = errors.New("unknown dungeon")
	ErrInvalidFloor   = errors.New("invalid floor")
	ErrEmptyParty     = errors.New("session needs at least one party member")
	ErrSessionClosed  = errors.New("session is closed")
	ErrIllegalMove    = errors.New("illegal move")
	ErrOutOfBounds    = errors.New("move leaves the floor")
	ErrWrongMode      = errors.New("command not allowed in this mode")
	ErrNoEncounter    = errors.New("no pending encounter")
	ErrCannotFinish   = errors.New("assault cannot be finished here")
	ErrNoNPC          = errors.New("no one to rescue here")
)

// Encounter is the fight waiting in the room the party entered.
type Encounter struct {
	Position Point    `json:"position"`
	Boss     bool     `json:"boss,omitempty"`
	Monsters []string `json:"monsters"`
}

// Vitals is the HP and MP of a party member as last reported by a battle.
type Vitals struct {
	ID string `json:"id"`
	HP int    `json:"hp"`
	MP int    `json:"mp"`
}

// Loot is what a session has gathered so far.
type Loot struct {
	Gold  int             `json:"gold"`
	Items []gamedata.Drop `json:"items,omitempty"`
}

// Resolution reports a finished battle back to the session.
type Resolution struct {
	Won   bool
	Fled  bool
	Party []battle.ActorState
	Loot  []gamedata.Drop
	Gold  int
}

// Option configures a Session.
type Option func(*Session)

// WithRand sets the source for floor generation.
func WithRand(rng *rand.Rand) Option {
	return func(s *Session) { s.rng = rng }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithID overrides the generated session ID.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// Session is one manual expedition through a dungeon. Like a battle it is
// single-writer; callers serialize access.
type Session struct {
	id       string
	def      *gamedata.DungeonDef
	monsters *gamedata.MonsterRegistry
	rng      *rand.Rand
	logger   *slog.Logger
	tracer   trace.Tracer
	mode     *fsm.FSM

	party   []string
	vitals  map[string]Vitals
	floor   *Floor
	visited [][]bool
	pos     Point

	hasKey       bool
	bossDefeated bool
	npcFound     bool
	npcRescued   bool

	loot      Loot
	encounter *Encounter
	events    event.Queue
}

// NewSession starts an expedition on startFloor with the party standing on
// the entrance.
func NewSession(ctx context.Context, def *gamedata.DungeonDef, monsters *gamedata.MonsterRegistry, party []string, startFloor int, opts ...Option) (*Session, error) {
	if def == nil {
		return nil, ErrUnknownDungeon
	}
	if len(party) == 0 {
		return nil, ErrEmptyParty
	}
	if startFloor < 1 || startFloor > def.MaxFloors {
		return nil, fmt.Errorf("%w: %d not in 1..%d", ErrInvalidFloor, startFloor, def.MaxFloors)
	}

	s := newSession(def, monsters, string(ModeExploring), opts)
	s.party = append([]string(nil), party...)

	if err := s.enterFloor(ctx, startFloor); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "session started",
		"session", s.id, "dungeon", def.ID, "floor", startFloor, "party", len(party))
	return s, nil
}

func newSession(def *gamedata.DungeonDef, monsters *gamedata.MonsterRegistry, initial string, opts []Option) *Session {
	s := &Session{
		id:       uuid.NewString(),
		def:      def,
		monsters: monsters,
		tracer:   telemetry.Tracer("world"),
		vitals:   make(map[string]Vitals),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.mode = fsm.NewFSM(initial, modeEvents(), fsm.Callbacks{
		"enter_state": func(ctx context.Context, e *fsm.Event) {
			s.logger.DebugContext(ctx, "session mode changed",
				"session", s.id, "event", e.Event, "from", e.Src, "to", e.Dst)
		},
	})
	return s
}

// enterFloor generates floor number and places the party on its entrance.
func (s *Session) enterFloor(ctx context.Context, number int) error {
	f, err := GenerateFloor(ctx, s.def, number, s.monsters, s.rng)
	if err != nil {
		return err
	}
	s.floor = f
	s.visited = make([][]bool, f.Height)
	for y := range s.visited {
		s.visited[y] = make([]bool, f.Width)
	}
	s.pos = f.Entrance
	s.visited[s.pos.Y][s.pos.X] = true
	s.hasKey = false
	s.bossDefeated = false
	s.npcFound = false
	s.encounter = nil
	return nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// DungeonID returns the dungeon being explored.
func (s *Session) DungeonID() string { return s.def.ID }

// Mode returns the current mode.
func (s *Session) Mode() Mode { return Mode(s.mode.Current()) }

// Floor returns the current floor number.
func (s *Session) Floor() int { return s.floor.Number }

// MaxFloors returns the number of floors in the dungeon.
func (s *Session) MaxFloors() int { return s.def.MaxFloors }

// Position returns the party's cell.
func (s *Session) Position() Point { return s.pos }

// Grid returns a copy of the current floor.
func (s *Session) Grid() *Floor { return s.floor.clone() }

// Visited reports whether p has been revealed on this floor.
func (s *Session) Visited(p Point) bool {
	return s.floor.InBounds(p) && s.visited[p.Y][p.X]
}

// HasKey reports whether the floor's key has been picked up.
func (s *Session) HasKey() bool { return s.hasKey }

// BossDefeated reports whether the floor's boss has fallen.
func (s *Session) BossDefeated() bool { return s.bossDefeated }

// NPCFound reports whether the rescue target has been met on this floor.
func (s *Session) NPCFound() bool { return s.npcFound }

// NPCRescued reports whether the rescue target has been saved.
func (s *Session) NPCRescued() bool { return s.npcRescued }

// Party returns the member IDs on this expedition.
func (s *Session) Party() []string { return append([]string(nil), s.party...) }

// Vitals returns the last reported HP and MP of a member.
func (s *Session) Vitals(id string) (Vitals, bool) {
	v, ok := s.vitals[id]
	return v, ok
}

// Loot returns a copy of the gold and items gathered so far.
func (s *Session) Loot() Loot {
	return Loot{Gold: s.loot.Gold, Items: append([]gamedata.Drop(nil), s.loot.Items...)}
}

// Encounter returns the pending encounter, if any.
func (s *Session) Encounter() (Encounter, bool) {
	if s.encounter == nil {
		return Encounter{}, false
	}
	e := *s.encounter
	e.Monsters = append([]string(nil), e.Monsters...)
	return e, true
}

// Drain returns and clears the events emitted since the last call.
func (s *Session) Drain() []event.Event { return s.events.Drain() }

// Move steps the party by one cell and applies the room it enters. It
// returns the room as it was before being consumed. A rejected move changes
// nothing.
func (s *Session) Move(ctx context.Context, dx, dy int) (RoomType, error) {
	if mode := s.Mode(); mode != ModeExploring {
		return RoomEmpty, fmt.Errorf("%w: move while %s", ErrWrongMode, mode)
	}
	if !isUnitStep(dx, dy) {
		return RoomEmpty, fmt.Errorf("%w: step (%d,%d)", ErrIllegalMove, dx, dy)
	}
	to := s.pos.Add(dx, dy)
	if !s.floor.InBounds(to) {
		return RoomEmpty, fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, to.X, to.Y)
	}

	s.pos = to
	if !s.visited[to.Y][to.X] {
		s.visited[to.Y][to.X] = true
		s.events.Push(event.Event{Kind: event.RoomRevealed, Message: fmt.Sprintf("Room %d,%d revealed.", to.X, to.Y)})
	}

	cell := s.floor.cell(to)
	room := cell.Room

	switch room {
	case RoomGold:
		s.loot.Gold += cell.Gold
		s.events.Push(event.Event{
			Kind:    event.GoldCollected,
			Amount:  cell.Gold,
			Message: fmt.Sprintf("Found %d gold.", cell.Gold),
		})
		cell.clear()

	case RoomKey:
		s.hasKey = true
		s.events.Push(event.Event{Kind: event.KeyFound, Message: "Found the floor key."})
		cell.clear()

	case RoomTrap:
		s.events.Push(event.Event{Kind: event.TrapTriggered, Message: "A trap springs!"})
		cell.clear()

	case RoomNPC:
		s.npcFound = true
		s.events.Push(event.Event{Kind: event.NPCFound, Message: "Someone is trapped here. Rescue them?"})

	case RoomEnemy, RoomBoss:
		s.encounter = &Encounter{
			Position: to,
			Boss:     room == RoomBoss,
			Monsters: append([]string(nil), cell.Group...),
		}
		if err := s.fire(ctx, evEncounter); err != nil {
			return room, err
		}
		s.events.Push(event.Event{Kind: event.EncounterFound, Message: "Enemies block the way!"})

	case RoomStairs:
		if err := s.fire(ctx, evStairs); err != nil {
			return room, err
		}
		s.events.Push(event.Event{Kind: event.StairsReached, Message: "Stairs lead further down."})

	case RoomEntrance:
		if s.bossDefeated {
			s.events.Push(event.Event{Kind: event.FinishAvailable, Message: "The way out is clear."})
		}
	}
	return room, nil
}

// BeginCombat moves a pending encounter into battle.
func (s *Session) BeginCombat(ctx context.Context) (Encounter, error) {
	if s.encounter == nil || s.Mode() != ModeEncountered {
		return Encounter{}, ErrNoEncounter
	}
	if err := s.fire(ctx, evFight); err != nil {
		return Encounter{}, err
	}
	e, _ := s.Encounter()
	return e, nil
}

// ResolveCombat applies the result of the battle started by BeginCombat.
// A win clears the room, or moves to victory after a boss; an escape leaves
// the room hostile; anything else defeats the session and drops its loot.
func (s *Session) ResolveCombat(ctx context.Context, r Resolution) error {
	if s.Mode() != ModeBattle || s.encounter == nil {
		return fmt.Errorf("%w: resolve while %s", ErrWrongMode, s.Mode())
	}
	for _, a := range r.Party {
		s.vitals[a.RefID] = Vitals{ID: a.RefID, HP: a.HP, MP: a.MP}
	}

	enc := s.encounter
	switch {
	case r.Won:
		s.loot.Gold += r.Gold
		s.loot.Items = gamedata.StackDrops(s.loot.Items, r.Loot...)
		for _, d := range r.Loot {
			s.events.Push(event.Event{Kind: event.ItemCollected, ItemID: d.ItemID, Amount: d.Count})
		}
		s.floor.cell(enc.Position).clear()
		s.encounter = nil
		if enc.Boss {
			s.bossDefeated = true
			return s.fire(ctx, evWinBoss)
		}
		return s.fire(ctx, evWin)

	case r.Fled:
		s.encounter = nil
		return s.fire(ctx, evEscape)

	default:
		s.encounter = nil
		s.loot = Loot{}
		if err := s.fire(ctx, evLose); err != nil {
			return err
		}
		s.end(ctx, "The party has fallen. The expedition is lost.")
		return nil
	}
}

// Continue returns to exploring the current floor from the stairs or after
// a boss victory.
func (s *Session) Continue(ctx context.Context) error {
	return s.fire(ctx, evContinue)
}

// ProceedToNextFloor descends from the stairs. On the last floor it
// completes the session instead.
func (s *Session) ProceedToNextFloor(ctx context.Context) error {
	if mode := s.Mode(); mode != ModeStairs {
		return fmt.Errorf("%w: descend while %s", ErrWrongMode, mode)
	}
	if s.floor.Number >= s.def.MaxFloors {
		_, err := s.FinishAssault(ctx)
		return err
	}

	ctx, span := s.tracer.Start(ctx, "session.descend")
	defer span.End()

	next := s.floor.Number + 1
	if err := s.enterFloor(ctx, next); err != nil {
		return err
	}
	if err := s.fire(ctx, evDescend); err != nil {
		return err
	}
	span.SetAttributes(
		attribute.String("session.id", s.id),
		attribute.Int("floor", next),
	)
	s.events.Push(event.Event{Kind: event.FloorChanged, Amount: next, Message: fmt.Sprintf("Floor %d.", next)})
	return nil
}

// CanFinish reports whether FinishAssault would succeed.
func (s *Session) CanFinish() bool {
	switch s.Mode() {
	case ModeStairs, ModeVictory:
		return true
	case ModeExploring:
		return s.bossDefeated && s.pos == s.floor.Entrance
	default:
		return false
	}
}

// FinishAssault closes the session successfully and returns its loot.
func (s *Session) FinishAssault(ctx context.Context) (Loot, error) {
	if !s.CanFinish() {
		return Loot{}, fmt.Errorf("%w: %s on floor %d", ErrCannotFinish, s.Mode(), s.floor.Number)
	}
	if err := s.fire(ctx, evFinish); err != nil {
		return Loot{}, err
	}
	s.end(ctx, "The assault is complete.")
	return s.Loot(), nil
}

// Retreat abandons the expedition. Loot is discarded.
func (s *Session) Retreat(ctx context.Context) error {
	if s.Mode().Terminal() {
		return ErrSessionClosed
	}
	if err := s.fire(ctx, evRetreat); err != nil {
		return err
	}
	s.encounter = nil
	s.loot = Loot{}
	s.end(ctx, "The party retreats.")
	return nil
}

// RescueNPC frees the rescue target in the current room.
func (s *Session) RescueNPC(ctx context.Context) error {
	if s.Mode() != ModeExploring || s.floor.At(s.pos).Room != RoomNPC {
		return ErrNoNPC
	}
	s.npcRescued = true
	s.floor.cell(s.pos).clear()
	s.events.Push(event.Event{Kind: event.NPCRescued, Message: "The captive is free!"})
	s.logger.InfoContext(ctx, "npc rescued", "session", s.id, "floor", s.floor.Number)
	return nil
}

func (s *Session) end(ctx context.Context, message string) {
	s.events.Push(event.Event{Kind: event.SessionEnded, Message: message})

	_, span := s.tracer.Start(ctx, "session.end")
	span.SetAttributes(
		attribute.String("session.id", s.id),
		attribute.String("mode", s.mode.Current()),
		attribute.Int("floor", s.floor.Number),
		attribute.Int("gold", s.loot.Gold),
	)
	span.End()

	s.logger.InfoContext(ctx, "session ended",
		"session", s.id, "mode", s.mode.Current(), "floor", s.floor.Number, "gold", s.loot.Gold)
}

// fire runs a mode machine event, mapping refusals to ErrWrongMode.
func (s *Session) fire(ctx context.Context, name string) error {
	if s.Mode().Terminal() {
		return ErrSessionClosed
	}
	if err := s.mode.Event(ctx, name); err != nil {
		var invalid fsm.InvalidEventError
		if errors.As(err, &invalid) {
			return fmt.Errorf("%w: %s while %s", ErrWrongMode, name, s.Mode())
		}
		return err
	}
	return nil
}
