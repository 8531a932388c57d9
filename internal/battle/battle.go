// Package battle implements the Active Time Battle scheduler. Every actor
// fills a readiness gauge at a rate proportional to its speed; once the gauge
// reaches ReadyThreshold the actor takes its turn.
//
// A Battle is single-writer: all mutation happens inside Tick or Submit, and
// callers must not use one Battle from several goroutines without a lock.
package battle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samdwyer/idlecrawl/internal/combat"
	"github.com/samdwyer/idlecrawl/internal/event"
	"github.com/samdwyer/idlecrawl/internal/gamedata"
	"github.com/samdwyer/idlecrawl/internal/telemetry"
)

// ReadyThreshold is the gauge value at which an actor may act.
const ReadyThreshold = 100.0

// Outcome is the terminal state of a battle.
type Outcome int

const (
	Ongoing Outcome = iota
	Victory
	Defeat
	Escaped
	Aborted
)

// String returns a human-readable outcome name.
func (o Outcome) String() string {
	switch o {
	case Ongoing:
		return "ongoing"
	case Victory:
		return "victory"
	case Defeat:
		return "defeat"
	case Escaped:
		return "escaped"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Config tunes the scheduler. Field tags let game.Config parse it from the
// environment.
type Config struct {
	// TickGain scales speed into gauge progress per tick.
	TickGain float64 `env:"TICK_GAIN" envDefault:"0.1"`
	// SpeedMultiplier scales the gain of every tick; the battle speed setting.
	SpeedMultiplier float64 `env:"SPEED" envDefault:"1"`
	// SkillChance is the probability an automatic actor tries a skill.
	SkillChance float64 `env:"SKILL_CHANCE" envDefault:"0.3"`
	// FleeChance is the success probability of a flee attempt.
	FleeChance float64 `env:"FLEE_CHANCE" envDefault:"0.5"`
	// CommitTicks is how many ticks an action stays in flight.
	CommitTicks int `env:"COMMIT_TICKS" envDefault:"0"`
	// LogLimit bounds the display log.
	LogLimit int `env:"LOG_LIMIT" envDefault:"50"`
	// Manual parks ready party actors until a command is submitted.
	Manual bool `env:"MANUAL" envDefault:"false"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		TickGain:        0.1,
		SpeedMultiplier: 1,
		SkillChance:     0.3,
		FleeChance:      0.5,
		LogLimit:        50,
	}
}

// normalized fills in the gain and speed defaults so every tick progresses.
func (c Config) normalized() Config {
	if c.TickGain <= 0 {
		c.TickGain = DefaultConfig().TickGain
	}
	if c.SpeedMultiplier <= 0 {
		c.SpeedMultiplier = 1
	}
	return c
}

// ActorState is a copy of an actor handed to callers.
type ActorState = Actor

// Result is passed to the end callback once a battle is decided.
type Result struct {
	BattleID string       `json:"battleId"`
	Outcome  Outcome      `json:"outcome"`
	Party    []ActorState `json:"party"`
	Enemies  []ActorState `json:"enemies"`
	Ticks    int          `json:"ticks"`
}

// Survivors returns the party members still standing.
func (r Result) Survivors() []ActorState {
	var out []ActorState
	for _, a := range r.Party {
		if a.IsAlive() {
			out = append(out, a)
		}
	}
	return out
}

var (
	// ErrEmptySide is returned when a battle is created without party or enemies.
	ErrEmptySide = errors.New("battle needs at least one actor per side")
	// ErrDuplicateActor is returned when two actors share an ID.
	ErrDuplicateActor = errors.New("duplicate actor id")
)

// Option configures a Battle.
type Option func(*Battle)

// WithRand sets the randomness source; use a seeded *rand.Rand for replays.
func WithRand(rng combat.Rand) Option {
	return func(b *Battle) { b.rng = rng }
}

// WithSkills sets the skill table used to resolve skills.
func WithSkills(skills *gamedata.SkillRegistry) Option {
	return func(b *Battle) { b.skills = skills }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Battle) { b.logger = logger }
}

// WithOnEnd registers the callback run once when the battle is decided.
func WithOnEnd(fn func(context.Context, Result)) Option {
	return func(b *Battle) { b.onEnd = fn }
}

// WithID overrides the generated battle ID.
func WithID(id string) Option {
	return func(b *Battle) { b.id = id }
}

// Battle is one running encounter.
type Battle struct {
	id     string
	cfg    Config
	rng    combat.Rand
	skills *gamedata.SkillRegistry
	logger *slog.Logger
	tracer trace.Tracer
	onEnd  func(context.Context, Result)

	actors  []Actor
	party   []Handle
	enemies []Handle
	index   map[string]Handle

	log   *event.Log
	queue event.Queue

	clock     int
	inFlight  int
	paused    bool
	suspended bool
	awaiting  Handle
	pending   *ManualAction
	outcome   Outcome
}

// New creates a battle between party and enemies, both in roster order.
func New(ctx context.Context, cfg Config, party, enemies []Actor, opts ...Option) (*Battle, error) {
	if len(party) == 0 || len(enemies) == 0 {
		return nil, ErrEmptySide
	}
	cfg = cfg.normalized()

	b := &Battle{
		id:       uuid.NewString(),
		cfg:      cfg,
		index:    make(map[string]Handle, len(party)+len(enemies)),
		log:      event.NewLog(cfg.LogLimit),
		awaiting: noHandle,
		tracer:   telemetry.Tracer("battle"),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.rng == nil {
		b.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}

	for _, group := range []struct {
		side   Side
		actors []Actor
		dst    *[]Handle
	}{
		{SideParty, party, &b.party},
		{SideEnemy, enemies, &b.enemies},
	} {
		for _, a := range group.actors {
			if _, dup := b.index[a.ID]; dup {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateActor, a.ID)
			}
			a.Side = group.side
			a = a.normalized()
			h := Handle(len(b.actors))
			b.actors = append(b.actors, a)
			b.index[a.ID] = h
			*group.dst = append(*group.dst, h)
		}
	}

	_, span := b.tracer.Start(ctx, "battle.start")
	span.SetAttributes(
		attribute.String("battle.id", b.id),
		attribute.Int("party_size", len(b.party)),
		attribute.Int("enemy_count", len(b.enemies)),
		attribute.Bool("manual", cfg.Manual),
	)
	span.End()

	b.emit(event.Event{Kind: event.BattleStarted, Message: "Battle begins!"})
	return b, nil
}

// ID returns the battle's identifier.
func (b *Battle) ID() string { return b.id }

// Config returns the active configuration.
func (b *Battle) Config() Config { return b.cfg }

// Clock returns the number of simulated ticks.
func (b *Battle) Clock() int { return b.clock }

// Outcome returns the battle's current outcome.
func (b *Battle) Outcome() Outcome { return b.outcome }

// Over returns true once the battle is decided or aborted.
func (b *Battle) Over() bool { return b.outcome != Ongoing }

// Party returns copies of the party actors in roster order.
func (b *Battle) Party() []ActorState { return b.states(b.party) }

// Enemies returns copies of the enemy actors in roster order.
func (b *Battle) Enemies() []ActorState { return b.states(b.enemies) }

// Actor returns a copy of the actor with the given ID.
func (b *Battle) Actor(id string) (ActorState, bool) {
	h, ok := b.index[id]
	if !ok {
		return ActorState{}, false
	}
	return b.copyActor(h), true
}

// Awaiting returns the ID of the party actor parked for manual input.
func (b *Battle) Awaiting() (string, bool) {
	if b.awaiting == noHandle {
		return "", false
	}
	return b.actors[b.awaiting].ID, true
}

// Log returns the bounded display log, oldest first.
func (b *Battle) Log() []event.Event { return b.log.Entries() }

// Drain returns and clears the events emitted since the last call.
func (b *Battle) Drain() []event.Event { return b.queue.Drain() }

// Result returns the current state as a Result.
func (b *Battle) Result() Result {
	return Result{
		BattleID: b.id,
		Outcome:  b.outcome,
		Party:    b.Party(),
		Enemies:  b.Enemies(),
		Ticks:    b.clock,
	}
}

// SetPaused pauses or resumes scheduling.
func (b *Battle) SetPaused(paused bool) { b.paused = paused }

// Paused reports whether the battle is paused.
func (b *Battle) Paused() bool { return b.paused }

// Suspend blocks scheduling while a modal (e.g. inventory inspection) is open.
func (b *Battle) Suspend() { b.suspended = true }

// Resume lifts a Suspend.
func (b *Battle) Resume() { b.suspended = false }

// Suspended reports whether a modal is blocking the battle.
func (b *Battle) Suspended() bool { return b.suspended }

// SetManual switches between manual and automatic party control. Switching
// to automatic releases a parked actor, which then acts on its own.
func (b *Battle) SetManual(manual bool) {
	b.cfg.Manual = manual
	if !manual {
		b.awaiting = noHandle
		b.pending = nil
	}
}

// SetSpeed changes the speed multiplier applied when Tick gets no explicit speed.
func (b *Battle) SetSpeed(mult float64) {
	if mult > 0 {
		b.cfg.SpeedMultiplier = mult
	}
}

// Abort stops the battle without a winner. Later ticks are no-ops and the
// end callback is not run.
func (b *Battle) Abort() {
	if b.outcome != Ongoing {
		return
	}
	b.outcome = Aborted
	b.awaiting = noHandle
	b.pending = nil
}

func (b *Battle) states(handles []Handle) []ActorState {
	out := make([]ActorState, 0, len(handles))
	for _, h := range handles {
		out = append(out, b.copyActor(h))
	}
	return out
}

func (b *Battle) copyActor(h Handle) ActorState {
	a := b.actors[h]
	a.Skills = append([]string(nil), a.Skills...)
	return a
}

func (b *Battle) emit(e event.Event) {
	e.Tick = b.clock
	b.log.Append(e)
	b.queue.Push(e)
}
