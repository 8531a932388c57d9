package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gdamore/tcell/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samdwyer/idlecrawl/internal/battle"
	"github.com/samdwyer/idlecrawl/internal/entity"
	"github.com/samdwyer/idlecrawl/internal/event"
	"github.com/samdwyer/idlecrawl/internal/gamedata"
	"github.com/samdwyer/idlecrawl/internal/telemetry"
	"github.com/samdwyer/idlecrawl/internal/ui"
	"github.com/samdwyer/idlecrawl/internal/world"
)

const (
	logLimit = 200
	minSpeed = 0.5
	maxSpeed = 8
	helpText = "arrows move  c continue  > descend  f finish  n rescue  r retreat  i inspect  m manual  p pause  +/- speed  q quit"
	helpTurn = "a attack  1-9 skill  e flee  tab target  m auto  i inspect  q quit"
	helpEnd  = "s new expedition  q quit"
)

// Game holds the entire game state.
type Game struct {
	screen   *ui.Screen
	renderer *ui.Renderer
	engine   *Engine
	reg      *gamedata.Registry
	roster   *entity.Roster
	cfg      Config
	logger   *slog.Logger

	state     State
	prev      State
	sessionID string
	battleID  string
	running   bool
	paused    bool
	manual    bool
	speed     float64
	target    int
	log       []string
	ending    []string
}

// New creates a new game instance on the terminal.
func New(cfg Config, reg *gamedata.Registry, roster *entity.Roster, engine *Engine, logger *slog.Logger) (*Game, error) {
	screen, err := ui.NewScreen()
	if err != nil {
		return nil, err
	}
	return NewWithScreen(screen, cfg, reg, roster, engine, logger), nil
}

// NewWithScreen creates a game on an already initialized screen.
func NewWithScreen(screen *ui.Screen, cfg Config, reg *gamedata.Registry, roster *entity.Roster, engine *Engine, logger *slog.Logger) *Game {
	if logger == nil {
		logger = slog.Default()
	}
	return &Game{
		screen:   screen,
		renderer: ui.NewRenderer(screen),
		engine:   engine,
		reg:      reg,
		roster:   roster,
		cfg:      cfg,
		logger:   logger,
		state:    StateExplore,
		running:  true,
		manual:   cfg.Battle.Manual,
		speed:    max(cfg.Battle.SpeedMultiplier, minSpeed),
	}
}

// Run executes the main game loop.
func (g *Game) Run(ctx context.Context) error {
	tracer := telemetry.Tracer("game")

	ctx, initSpan := tracer.Start(ctx, "game.init")
	err := g.begin(ctx)
	initSpan.SetAttributes(
		attribute.String("dungeon.id", g.cfg.Dungeon),
		attribute.Bool("resumed", g.cfg.Resume != ""),
		attribute.String("session.id", g.sessionID),
	)
	initSpan.End()
	if err != nil {
		g.screen.Close()
		return err
	}

	stop := g.screen.StartTicker(g.cfg.TickInterval)
	defer stop()

	for g.running {
		g.render(ctx)
		g.handleInput(ctx)
	}

	g.screen.Close()
	return nil
}

// begin starts the first session, resuming a stored one when configured.
func (g *Game) begin(ctx context.Context) error {
	if g.cfg.Resume != "" {
		if err := g.engine.ResumeSession(ctx, g.cfg.Resume); err != nil {
			return fmt.Errorf("resume session: %w", err)
		}
		g.sessionID = g.cfg.Resume
		g.state = StateExplore
		g.drain()
		return nil
	}
	return g.newSession(ctx)
}

func (g *Game) newSession(ctx context.Context) error {
	g.roster.RestoreAll()
	id, err := g.engine.StartSession(ctx, g.cfg.Dungeon, g.roster.IDs(), 1)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	g.sessionID = id
	g.battleID = ""
	g.ending = nil
	g.state = StateExplore
	g.drain()
	return nil
}

// handleInput processes a single input event.
func (g *Game) handleInput(ctx context.Context) {
	ev := g.screen.PollEvent()

	switch ev := ev.(type) {
	case *tcell.EventKey:
		g.handleKeyEvent(ctx, ev)
	case *tcell.EventInterrupt:
		g.tick(ctx)
	case *tcell.EventResize:
		g.screen.Sync()
	case nil:
		g.running = false
	}
}

// tick advances the active battle, or starts one for a pending encounter.
func (g *Game) tick(ctx context.Context) {
	if g.state == StateEnded || g.state == StateInspect || g.paused {
		return
	}

	if g.battleID == "" {
		snap, err := g.engine.Session(ctx, g.sessionID)
		if err != nil || snap.Mode != world.ModeEncountered {
			return
		}
		id, err := g.engine.BeginEncounterCombat(ctx, g.sessionID)
		if err != nil {
			g.report(err)
			return
		}
		g.battleID = id
		g.target = 0
		g.state = StateCombat
		if err := g.engine.SetManual(ctx, id, g.manual); err != nil {
			g.report(err)
		}
		g.drain()
		return
	}

	if err := g.engine.TickBattle(ctx, g.battleID, g.speed); err != nil && !errors.Is(err, ErrUnknownBattle) {
		g.report(err)
	}
	g.drain()
	if _, ok := g.engine.ActiveBattle(ctx, g.sessionID); !ok {
		g.battleID = ""
		g.afterCommand(ctx)
	}
}

// handleKeyEvent processes keyboard input.
func (g *Game) handleKeyEvent(ctx context.Context, ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyCtrlC:
		g.running = false
		return
	case tcell.KeyEscape:
		if g.state == StateInspect {
			g.toggleInspect(ctx)
			return
		}
		g.running = false
		return
	case tcell.KeyUp:
		g.tryMove(ctx, 0, -1)
	case tcell.KeyDown:
		g.tryMove(ctx, 0, 1)
	case tcell.KeyLeft:
		g.tryMove(ctx, -1, 0)
	case tcell.KeyRight:
		g.tryMove(ctx, 1, 0)
	case tcell.KeyTab:
		g.target++
	case tcell.KeyRune:
		g.handleRune(ctx, ev.Rune())
	}
}

func (g *Game) handleRune(ctx context.Context, r rune) {
	switch r {
	case 'q', 'Q':
		g.running = false
	case 'i':
		g.toggleInspect(ctx)
	case 's':
		if g.state == StateEnded {
			g.report(g.newSession(ctx))
		}
	case 'p':
		g.paused = !g.paused
	case '+', '=':
		g.speed = min(g.speed*2, maxSpeed)
	case '-':
		g.speed = max(g.speed/2, minSpeed)
	case 'm':
		g.manual = !g.manual
		if g.battleID != "" {
			g.report(g.engine.SetManual(ctx, g.battleID, g.manual))
		}
	case 'c':
		g.command(ctx, g.engine.Continue)
	case '>':
		g.command(ctx, g.engine.ProceedToNextFloor)
	case 'n':
		g.command(ctx, g.engine.RescueNpc)
	case 'r':
		g.command(ctx, g.engine.Retreat)
	case 'f':
		loot, err := g.engine.FinishAssault(ctx, g.sessionID)
		if err != nil {
			g.report(err)
			return
		}
		g.ending = lootLines(g.reg, loot)
		g.drain()
		g.afterCommand(ctx)
	case 'a':
		g.submit(ctx, battle.ActionAttack, "")
	case 'e':
		g.submit(ctx, battle.ActionFlee, "")
	default:
		if r >= '1' && r <= '9' {
			g.submitSkill(ctx, int(r-'1'))
		}
	}
}

func (g *Game) toggleInspect(ctx context.Context) {
	if g.state == StateEnded {
		return
	}
	if g.state == StateInspect {
		g.state = g.prev
		if g.battleID != "" {
			g.report(g.engine.ResumeBattle(ctx, g.battleID))
		}
		return
	}
	g.prev = g.state
	g.state = StateInspect
	if g.battleID != "" {
		g.report(g.engine.SuspendBattle(ctx, g.battleID))
	}
}

// tryMove attempts to move the party by the given delta.
func (g *Game) tryMove(ctx context.Context, dx, dy int) {
	if g.state != StateExplore {
		return
	}
	_, err := g.engine.Move(ctx, g.sessionID, dx, dy)
	if err != nil && !errors.Is(err, world.ErrOutOfBounds) {
		g.report(err)
	}
	g.drain()
	g.afterCommand(ctx)
}

func (g *Game) command(ctx context.Context, fn func(context.Context, string) error) {
	if g.state == StateEnded || g.state == StateInspect {
		return
	}
	g.report(fn(ctx, g.sessionID))
	if g.battleID != "" {
		if _, ok := g.engine.ActiveBattle(ctx, g.sessionID); !ok {
			g.battleID = ""
		}
	}
	g.drain()
	g.afterCommand(ctx)
}

// afterCommand moves to the ended state once the session is gone.
func (g *Game) afterCommand(ctx context.Context) {
	if _, err := g.engine.Session(ctx, g.sessionID); errors.Is(err, ErrUnknownSession) {
		g.state = StateEnded
		g.battleID = ""
		return
	}
	if g.battleID == "" && g.state == StateCombat {
		g.state = StateExplore
	}
}

func (g *Game) submit(ctx context.Context, kind battle.ActionKind, skillID string) {
	if g.battleID == "" || !g.manual {
		return
	}
	snap, err := g.engine.Battle(ctx, g.battleID)
	if err != nil || snap.Awaiting == "" {
		return
	}

	act := battle.ManualAction{ActorID: snap.Awaiting, Kind: kind, SkillID: skillID}
	if kind == battle.ActionAttack || g.offensive(skillID) {
		act.TargetID = g.targetID(snap)
	}
	g.report(g.engine.SubmitManualAction(ctx, g.battleID, act))
}

func (g *Game) submitSkill(ctx context.Context, index int) {
	if g.battleID == "" {
		return
	}
	snap, err := g.engine.Battle(ctx, g.battleID)
	if err != nil {
		return
	}
	for _, a := range snap.Actors {
		if a.ID == snap.Awaiting && index < len(a.Skills) {
			g.submit(ctx, battle.ActionSkill, a.Skills[index])
			return
		}
	}
}

func (g *Game) offensive(skillID string) bool {
	def := g.reg.Skills.GetByID(skillID)
	return def != nil && def.IsOffensive()
}

// targetID returns the selected living enemy, wrapping the selection.
func (g *Game) targetID(snap battle.Snapshot) string {
	var living []string
	for _, a := range snap.Actors {
		if a.Side == battle.SideEnemy && a.IsAlive() {
			living = append(living, a.ID)
		}
	}
	if len(living) == 0 {
		return ""
	}
	return living[g.target%len(living)]
}

// drain moves engine events into the on-screen log.
func (g *Game) drain() {
	for _, ev := range g.engine.Events() {
		if ev.Message == "" {
			continue
		}
		g.log = append(g.log, ev.Message)
		if ev.Kind == event.SessionEnded {
			g.ending = append([]string{ev.Message}, g.ending...)
		}
	}
	if len(g.log) > logLimit {
		g.log = g.log[len(g.log)-logLimit:]
	}
}

// report logs a command error and shows it to the player.
func (g *Game) report(err error) {
	if err == nil {
		return
	}
	g.logger.Debug("command rejected", "session", g.sessionID, "battle", g.battleID, "error", err)
	g.log = append(g.log, err.Error())
}

func lootLines(reg *gamedata.Registry, loot world.Loot) []string {
	lines := []string{fmt.Sprintf("Gold: %d", loot.Gold)}
	for _, d := range loot.Items {
		name := d.ItemID
		if item := reg.Item(d.ItemID); item != nil {
			name = item.Name
		}
		lines = append(lines, fmt.Sprintf("%s x%d", name, d.Count))
	}
	return lines
}

// Close cleans up game resources.
func (g *Game) Close() {
	if g.screen != nil {
		g.screen.Close()
	}
}
