package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samdwyer/idlecrawl/internal/battle"
	"github.com/samdwyer/idlecrawl/internal/entity"
	"github.com/samdwyer/idlecrawl/internal/event"
	"github.com/samdwyer/idlecrawl/internal/gamedata"
	"github.com/samdwyer/idlecrawl/internal/telemetry"
	"github.com/samdwyer/idlecrawl/internal/world"
)

//go:generate go tool mockgen -destination=mocks/mock_roster.go -package=mocks github.com/samdwyer/idlecrawl/internal/game Roster

// Roster is the party data the engine reads at battle start and writes back
// at battle end.
type Roster interface {
	Member(id string) (*entity.Member, bool)
	Update(id string, hp, mp int)
}

// Store persists session and battle snapshots. A nil store disables saving.
type Store interface {
	SaveSession(ctx context.Context, snap world.Snapshot) error
	LoadSession(ctx context.Context, id string) (world.Snapshot, error)
	DeleteSession(ctx context.Context, id string) error
	SaveBattle(ctx context.Context, snap battle.Snapshot) error
}

var (
	ErrUnknownBattle  = errors.New("unknown battle")
	ErrUnknownSession = errors.New("unknown session")
	ErrUnknownMember  = errors.New("unknown party member")
	ErrUnknownMonster = errors.New("unknown monster")
	ErrBattleActive   = errors.New("session has a battle in progress")
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithStore sets the snapshot store.
func WithStore(store Store) Option {
	return func(e *Engine) { e.store = store }
}

// WithRand sets the randomness source shared by every battle and floor.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

type sessionEntry struct {
	session  *world.Session
	battleID string
}

// Engine owns the running battles and dungeon sessions. Every command takes
// the engine lock, so one ticker goroutine and one input goroutine may drive
// it concurrently.
type Engine struct {
	mu sync.Mutex

	cfg    Config
	reg    *gamedata.Registry
	roster Roster
	store  Store
	rng    *rand.Rand
	logger *slog.Logger
	tracer trace.Tracer

	battles  map[string]*battle.Battle
	sessions map[string]*sessionEntry
	events   event.Queue
}

// NewEngine creates an engine over the given reference data and roster.
func NewEngine(cfg Config, reg *gamedata.Registry, roster Roster, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg,
		reg:      reg,
		roster:   roster,
		tracer:   telemetry.Tracer("game"),
		battles:  make(map[string]*battle.Battle),
		sessions: make(map[string]*sessionEntry),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		e.rng = rand.New(rand.NewSource(seed))
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Events returns and clears every event emitted since the last call.
func (e *Engine) Events() []event.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.events.Drain()
}

// =============================================================================
// Battles
// =============================================================================

// StartBattle starts a standalone battle between roster members and monsters.
func (e *Engine) StartBattle(ctx context.Context, partyIDs, monsterIDs []string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := e.startBattle(ctx, partyIDs, monsterIDs, "")
	if err != nil {
		return "", err
	}
	return b.ID(), nil
}

func (e *Engine) startBattle(ctx context.Context, partyIDs, monsterIDs []string, sessionID string) (*battle.Battle, error) {
	party := make([]battle.Actor, 0, len(partyIDs))
	for _, id := range partyIDs {
		m, ok := e.roster.Member(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMember, id)
		}
		party = append(party, battle.FromMember(m, e.reg))
	}

	enemies := make([]battle.Actor, 0, len(monsterIDs))
	for _, id := range monsterIDs {
		def := e.reg.Monsters.GetByID(id)
		if def == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMonster, id)
		}
		enemies = append(enemies, battle.FromMonster(def, uuid.NewString()))
	}

	b, err := battle.New(ctx, e.cfg.Battle, party, enemies,
		battle.WithRand(e.rng),
		battle.WithSkills(e.reg.Skills),
		battle.WithLogger(e.logger),
		battle.WithOnEnd(func(ctx context.Context, r battle.Result) {
			e.battleEnded(ctx, r, sessionID)
		}),
	)
	if err != nil {
		return nil, err
	}
	e.battles[b.ID()] = b
	e.collect(b.Drain())
	e.logger.InfoContext(ctx, "battle started",
		"battle", b.ID(), "session", sessionID, "party", len(party), "enemies", len(enemies))
	return b, nil
}

// battleEnded runs inside Tick with the engine lock held.
func (e *Engine) battleEnded(ctx context.Context, r battle.Result, sessionID string) {
	if b, ok := e.battles[r.BattleID]; ok {
		e.collect(b.Drain())
	}
	e.writeBack(r.Survivors())
	e.saveBattle(ctx, r.BattleID)

	if sessionID == "" {
		return
	}
	entry, ok := e.sessions[sessionID]
	if !ok {
		e.logger.WarnContext(ctx, "battle ended for a missing session", "battle", r.BattleID, "session", sessionID)
		return
	}

	res := world.Resolution{
		Won:   r.Outcome == battle.Victory,
		Fled:  r.Outcome == battle.Escaped,
		Party: r.Party,
	}
	if res.Won {
		res.Gold, res.Loot = e.rollLoot(monsterIDs(r.Enemies))
	}
	if err := entry.session.ResolveCombat(ctx, res); err != nil {
		e.logger.WarnContext(ctx, "session refused battle result",
			"session", sessionID, "battle", r.BattleID, "error", err)
	}
	entry.battleID = ""
	e.afterSession(ctx, entry)
}

// writeBack stores HP/MP on the roster for members still standing. A fallen
// member keeps the vitals it entered the battle with.
func (e *Engine) writeBack(party []battle.ActorState) {
	for _, a := range party {
		if !a.IsAlive() {
			continue
		}
		e.roster.Update(a.RefID, a.HP, a.MP)
	}
}

func monsterIDs(enemies []battle.ActorState) []string {
	ids := make([]string, 0, len(enemies))
	for _, a := range enemies {
		ids = append(ids, a.RefID)
	}
	return ids
}

// rollLoot rolls gold and drop tables for a defeated group.
func (e *Engine) rollLoot(ids []string) (int, []gamedata.Drop) {
	gold := 0
	var drops []gamedata.Drop
	for _, id := range ids {
		def := e.reg.Monsters.GetByID(id)
		if def == nil {
			continue
		}
		gold += def.Gold
		drops = gamedata.StackDrops(drops, gamedata.RollDrops(e.rng, def.Drops)...)
	}
	return gold, drops
}

// TickBattle advances a battle once. speed <= 0 uses the battle's own speed.
func (e *Engine) TickBattle(ctx context.Context, battleID string, speed float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := e.battle(ctx, battleID)
	if err != nil {
		return err
	}
	b.Tick(ctx, speed)
	e.collect(b.Drain())
	if b.Over() {
		delete(e.battles, battleID)
	}
	return nil
}

// SubmitManualAction queues a command for a parked party actor.
func (e *Engine) SubmitManualAction(ctx context.Context, battleID string, act battle.ManualAction) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := e.battle(ctx, battleID)
	if err != nil {
		return err
	}
	return b.Submit(act)
}

// SuspendBattle blocks scheduling while a modal is open.
func (e *Engine) SuspendBattle(ctx context.Context, battleID string) error {
	return e.withBattle(ctx, battleID, (*battle.Battle).Suspend)
}

// ResumeBattle lifts SuspendBattle.
func (e *Engine) ResumeBattle(ctx context.Context, battleID string) error {
	return e.withBattle(ctx, battleID, (*battle.Battle).Resume)
}

// SetManual switches a battle between manual and automatic party control.
func (e *Engine) SetManual(ctx context.Context, battleID string, manual bool) error {
	return e.withBattle(ctx, battleID, func(b *battle.Battle) { b.SetManual(manual) })
}

// SetPaused pauses or resumes a battle.
func (e *Engine) SetPaused(ctx context.Context, battleID string, paused bool) error {
	return e.withBattle(ctx, battleID, func(b *battle.Battle) { b.SetPaused(paused) })
}

// Battle returns a snapshot of a running battle.
func (e *Engine) Battle(ctx context.Context, battleID string) (battle.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := e.battle(ctx, battleID)
	if err != nil {
		return battle.Snapshot{}, err
	}
	return b.Snapshot(), nil
}

func (e *Engine) withBattle(ctx context.Context, battleID string, fn func(*battle.Battle)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := e.battle(ctx, battleID)
	if err != nil {
		return err
	}
	fn(b)
	return nil
}

func (e *Engine) battle(ctx context.Context, battleID string) (*battle.Battle, error) {
	b, ok := e.battles[battleID]
	if !ok {
		e.logger.WarnContext(ctx, "command for unknown battle", "battle", battleID)
		return nil, fmt.Errorf("%w: %s", ErrUnknownBattle, battleID)
	}
	return b, nil
}

func (e *Engine) saveBattle(ctx context.Context, battleID string) {
	if e.store == nil {
		return
	}
	b, ok := e.battles[battleID]
	if !ok {
		return
	}
	if err := e.store.SaveBattle(ctx, b.Snapshot()); err != nil {
		e.logger.WarnContext(ctx, "saving battle failed", "battle", battleID, "error", err)
	}
}

// =============================================================================
// Sessions
// =============================================================================

// StartSession begins a manual assault on a dungeon floor.
func (e *Engine) StartSession(ctx context.Context, dungeonID string, partyIDs []string, startFloor int) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, span := e.tracer.Start(ctx, "session.start")
	defer span.End()
	span.SetAttributes(
		attribute.String("dungeon.id", dungeonID),
		attribute.Int("floor", startFloor),
		attribute.Int("party_size", len(partyIDs)),
	)

	def := e.reg.Dungeon(dungeonID)
	if def == nil {
		return "", fmt.Errorf("%w: %s", world.ErrUnknownDungeon, dungeonID)
	}
	for _, id := range partyIDs {
		if _, ok := e.roster.Member(id); !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownMember, id)
		}
	}

	s, err := world.NewSession(ctx, def, e.reg.Monsters, partyIDs, startFloor,
		world.WithRand(e.rng),
		world.WithLogger(e.logger),
	)
	if err != nil {
		return "", err
	}
	entry := &sessionEntry{session: s}
	e.sessions[s.ID()] = entry
	e.afterSession(ctx, entry)
	return s.ID(), nil
}

// ResumeSession loads a stored session and makes it active again.
func (e *Engine) ResumeSession(ctx context.Context, sessionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.sessions[sessionID]; ok {
		return nil
	}
	if e.store == nil {
		return fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	snap, err := e.store.LoadSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session %s: %w", sessionID, err)
	}
	s, err := world.Restore(ctx, snap, e.reg.Dungeon(snap.DungeonID), e.reg.Monsters,
		world.WithRand(e.rng),
		world.WithLogger(e.logger),
	)
	if err != nil {
		return err
	}
	// A battle cannot outlive the process; treat it as escaped.
	if s.Mode() == world.ModeBattle {
		if err := s.ResolveCombat(ctx, world.Resolution{Fled: true}); err != nil {
			return err
		}
	}
	e.sessions[sessionID] = &sessionEntry{session: s}
	return nil
}

// Move steps the party. Entering a trap costs every living member
// TrapDamage percent of max HP, never dropping anyone below 1 HP.
func (e *Engine) Move(ctx context.Context, sessionID string, dx, dy int) (world.RoomType, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, err := e.session(ctx, sessionID)
	if err != nil {
		return world.RoomEmpty, err
	}
	room, err := entry.session.Move(ctx, dx, dy)
	if err != nil {
		return room, err
	}
	if room == world.RoomTrap {
		e.springTrap(entry.session)
	}
	e.afterSession(ctx, entry)
	return room, nil
}

func (e *Engine) springTrap(s *world.Session) {
	if e.cfg.TrapDamage <= 0 {
		return
	}
	for _, id := range s.Party() {
		m, ok := e.roster.Member(id)
		if !ok || !m.IsAlive() {
			continue
		}
		maxHP := m.Derived(e.reg).MaxHP
		dmg := max(maxHP*e.cfg.TrapDamage/100, 1)
		hp := max(m.HP-dmg, 1)
		e.roster.Update(id, hp, m.MP)
		e.events.Push(event.Event{
			Kind:    event.DamageDealt,
			Target:  id,
			Amount:  m.HP - hp,
			Message: fmt.Sprintf("%s takes %d trap damage.", m.Name, m.HP-hp),
		})
	}
}

// BeginEncounterCombat starts the battle for a pending encounter. When the
// battle ends the session is resolved automatically.
func (e *Engine) BeginEncounterCombat(ctx context.Context, sessionID string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, err := e.session(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if entry.battleID != "" {
		return "", ErrBattleActive
	}
	enc, err := entry.session.BeginCombat(ctx)
	if err != nil {
		return "", err
	}
	b, err := e.startBattle(ctx, entry.session.Party(), enc.Monsters, sessionID)
	if err != nil {
		// The encounter cannot be fought; let the party step back.
		if rerr := entry.session.ResolveCombat(ctx, world.Resolution{Fled: true}); rerr != nil {
			e.logger.WarnContext(ctx, "rolling back encounter failed", "session", sessionID, "error", rerr)
		}
		return "", err
	}
	entry.battleID = b.ID()
	e.afterSession(ctx, entry)
	return b.ID(), nil
}

// ResolveCombat reports a battle fought outside the engine. A running
// battle for the session is aborted first. Won encounters roll loot from
// the encounter's monsters.
func (e *Engine) ResolveCombat(ctx context.Context, sessionID string, won, fled bool, party []battle.ActorState) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, err := e.session(ctx, sessionID)
	if err != nil {
		return err
	}
	if mode := entry.session.Mode(); mode != world.ModeBattle {
		return fmt.Errorf("%w: resolve while %s", world.ErrWrongMode, mode)
	}
	enc, _ := entry.session.Encounter()
	e.abortBattle(entry)
	e.writeBack(party)

	res := world.Resolution{Won: won, Fled: fled, Party: party}
	if won {
		res.Gold, res.Loot = e.rollLoot(enc.Monsters)
	}
	if err := entry.session.ResolveCombat(ctx, res); err != nil {
		return err
	}
	e.afterSession(ctx, entry)
	return nil
}

// Continue keeps exploring the current floor after stairs or a boss.
func (e *Engine) Continue(ctx context.Context, sessionID string) error {
	return e.withSession(ctx, sessionID, (*world.Session).Continue)
}

// ProceedToNextFloor descends, completing the session on the last floor.
func (e *Engine) ProceedToNextFloor(ctx context.Context, sessionID string) error {
	return e.withSession(ctx, sessionID, (*world.Session).ProceedToNextFloor)
}

// RescueNpc frees the rescue target in the party's room.
func (e *Engine) RescueNpc(ctx context.Context, sessionID string) error {
	return e.withSession(ctx, sessionID, (*world.Session).RescueNPC)
}

// FinishAssault completes the session and returns its loot.
func (e *Engine) FinishAssault(ctx context.Context, sessionID string) (world.Loot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, err := e.session(ctx, sessionID)
	if err != nil {
		return world.Loot{}, err
	}
	loot, err := entry.session.FinishAssault(ctx)
	if err != nil {
		return world.Loot{}, err
	}
	e.afterSession(ctx, entry)
	return loot, nil
}

// Retreat abandons the session. Its battle, if any, stops immediately.
func (e *Engine) Retreat(ctx context.Context, sessionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, err := e.session(ctx, sessionID)
	if err != nil {
		return err
	}
	if b, ok := e.battles[entry.battleID]; ok {
		e.writeBack(b.Party())
	}
	e.abortBattle(entry)
	if err := entry.session.Retreat(ctx); err != nil {
		return err
	}
	e.afterSession(ctx, entry)
	return nil
}

// Session returns a snapshot of an active session.
func (e *Engine) Session(ctx context.Context, sessionID string) (world.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, err := e.session(ctx, sessionID)
	if err != nil {
		return world.Snapshot{}, err
	}
	return entry.session.Snapshot(), nil
}

// ActiveBattle returns the battle attached to a session, if any.
func (e *Engine) ActiveBattle(ctx context.Context, sessionID string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, err := e.session(ctx, sessionID)
	if err != nil || entry.battleID == "" {
		return "", false
	}
	return entry.battleID, true
}

func (e *Engine) withSession(ctx context.Context, sessionID string, fn func(*world.Session, context.Context) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, err := e.session(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := fn(entry.session, ctx); err != nil {
		return err
	}
	e.afterSession(ctx, entry)
	return nil
}

func (e *Engine) session(ctx context.Context, sessionID string) (*sessionEntry, error) {
	entry, ok := e.sessions[sessionID]
	if !ok {
		e.logger.WarnContext(ctx, "command for unknown session", "session", sessionID)
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	return entry, nil
}

func (e *Engine) abortBattle(entry *sessionEntry) {
	if b, ok := e.battles[entry.battleID]; ok {
		b.Abort()
		e.collect(b.Drain())
		delete(e.battles, entry.battleID)
	}
	entry.battleID = ""
}

// afterSession collects events and persists the session, dropping it once
// it has closed.
func (e *Engine) afterSession(ctx context.Context, entry *sessionEntry) {
	s := entry.session
	e.collect(s.Drain())

	closed := s.Mode().Terminal()
	if closed {
		delete(e.sessions, s.ID())
	}
	if e.store == nil {
		return
	}

	var err error
	if closed {
		err = e.store.DeleteSession(ctx, s.ID())
	} else {
		err = e.store.SaveSession(ctx, s.Snapshot())
	}
	if err != nil {
		e.logger.WarnContext(ctx, "persisting session failed", "session", s.ID(), "error", err)
	}
}

func (e *Engine) collect(events []event.Event) {
	for _, ev := range events {
		e.events.Push(ev)
	}
}
