package game

import (
	"context"
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/samdwyer/idlecrawl/internal/battle"
	"github.com/samdwyer/idlecrawl/internal/combat"
	"github.com/samdwyer/idlecrawl/internal/gamedata"
	"github.com/samdwyer/idlecrawl/internal/ui"
	"github.com/samdwyer/idlecrawl/internal/world"
)

// render draws the current frame.
func (g *Game) render(ctx context.Context) {
	g.renderer.Render(g.view(ctx))
}

var title = cases.Title(language.English)

// view assembles the frame from engine snapshots.
func (g *Game) view(ctx context.Context) ui.View {
	v := ui.View{Log: g.log, Help: helpText}

	if g.state == StateEnded {
		v.Title = "Expedition over"
		v.Overlay = append(append([]string(nil), g.ending...), "", "Press s for a new expedition.")
		v.Members = g.memberGauges(nil)
		v.Help = helpEnd
		return v
	}

	snap, err := g.engine.Session(ctx, g.sessionID)
	if err != nil {
		return v
	}
	def := g.reg.Dungeon(snap.DungeonID)
	v.Title = snap.DungeonID
	maxFloors := 0
	if def != nil {
		v.Title = def.Name
		maxFloors = def.MaxFloors
	}
	v.Floor = snap.Floor
	v.Visited = snap.Visited
	v.Party = snap.Position
	v.Status = g.status(snap, maxFloors)

	var bs *battle.Snapshot
	if g.battleID != "" {
		if b, err := g.engine.Battle(ctx, g.battleID); err == nil {
			bs = &b
		}
	}
	v.Members = g.memberGauges(bs)
	if bs != nil {
		v.Enemies = g.enemyGauges(*bs)
		if g.manual && bs.Awaiting != "" {
			v.Help = helpTurn
			v.Overlay = g.skillMenu(*bs)
		}
	}
	if g.state == StateInspect {
		v.Overlay = g.inspectLines()
	}
	return v
}

func (g *Game) status(snap world.Snapshot, maxFloors int) string {
	key := "no key"
	if snap.HasKey {
		key = "key"
	}
	s := fmt.Sprintf("Floor %d/%d  Gold %d  %s  %s  x%.1f",
		snap.Floor.Number, maxFloors, snap.Loot.Gold, key, title.String(string(snap.Mode)), g.speed)
	if snap.BossDefeated {
		s += "  boss down"
	}
	if snap.NPCRescued {
		s += "  rescued"
	}
	if g.manual {
		s += "  [manual]"
	}
	if g.paused {
		s += "  [paused]"
	}
	return s
}

// memberGauges shows battle actors while fighting and the roster otherwise.
func (g *Game) memberGauges(bs *battle.Snapshot) []ui.Gauge {
	if bs != nil {
		var out []ui.Gauge
		for _, a := range bs.Actors {
			if a.Side == battle.SideParty {
				out = append(out, actorGauge(a, bs.Awaiting))
			}
		}
		return out
	}

	var out []ui.Gauge
	for _, id := range g.roster.IDs() {
		m, ok := g.roster.Member(id)
		if !ok {
			continue
		}
		d := m.Derived(g.reg)
		gauge := ui.Gauge{Name: m.Name, HP: m.HP, MaxHP: d.MaxHP, MP: m.MP, MaxMP: d.MaxMP}
		if job := g.reg.Job(m.JobID); job != nil {
			gauge.Glyph = job.SymbolRune()
		}
		out = append(out, gauge)
	}
	return out
}

func (g *Game) enemyGauges(bs battle.Snapshot) []ui.Gauge {
	var out []ui.Gauge
	living := 0
	for _, a := range bs.Actors {
		if a.Side != battle.SideEnemy {
			continue
		}
		gauge := actorGauge(a, "")
		if def := g.reg.Monsters.GetByID(a.RefID); def != nil {
			gauge.Glyph = def.GlyphRune()
			gauge.Color = def.TCellColor()
		}
		if a.IsAlive() {
			gauge.Marked = g.manual && bs.Awaiting != "" && living == g.target%max(g.livingEnemies(bs), 1)
			living++
		}
		out = append(out, gauge)
	}
	return out
}

func (g *Game) livingEnemies(bs battle.Snapshot) int {
	n := 0
	for _, a := range bs.Actors {
		if a.Side == battle.SideEnemy && a.IsAlive() {
			n++
		}
	}
	return n
}

func actorGauge(a battle.ActorState, awaiting string) ui.Gauge {
	return ui.Gauge{
		Name:   a.Name,
		HP:     a.HP,
		MaxHP:  a.Stats.MaxHP,
		MP:     a.MP,
		MaxMP:  a.Stats.MaxMP,
		Ready:  a.Gauge / battle.ReadyThreshold,
		Marked: a.ID == awaiting,
	}
}

// skillMenu lists the numbered skills of the actor awaiting a command.
func (g *Game) skillMenu(bs battle.Snapshot) []string {
	for _, a := range bs.Actors {
		if a.ID != bs.Awaiting {
			continue
		}
		target, hasTarget := findActor(bs.Actors, g.targetID(bs))
		lines := []string{a.Name + "'s turn"}
		if hasTarget {
			typ := a.StrikeType()
			lines = append(lines, fmt.Sprintf("a Attack  ~%d on %s", combat.Expected(a.Stats, target.Stats, combat.Action{
				Type:           typ,
				BaseEfficiency: a.Efficiency(typ),
				Multiplier:     1,
			}), target.Name))
		}
		for i, id := range a.Skills {
			if i >= 9 {
				break
			}
			def := g.reg.Skills.GetByID(id)
			if def == nil {
				continue
			}
			line := fmt.Sprintf("%d %s (%d MP)", i+1, def.Name, def.MPCost)
			switch {
			case def.Category == gamedata.SkillHeal:
				line += fmt.Sprintf("  ~%d heal", combat.Expected(a.Stats, a.Stats, combat.Action{
					Type:           combat.Magical,
					BaseEfficiency: a.MagicalEfficiency,
					Multiplier:     def.Multiplier,
					Heal:           true,
				}))
			case def.IsOffensive() && hasTarget:
				typ := def.CombatType()
				line += fmt.Sprintf("  ~%d", combat.Expected(a.Stats, target.Stats, combat.Action{
					Type:           typ,
					BaseEfficiency: a.Efficiency(typ),
					Multiplier:     def.Multiplier,
				}))
			}
			lines = append(lines, line)
		}
		return lines
	}
	return nil
}

func findActor(actors []battle.Actor, id string) (battle.Actor, bool) {
	for _, a := range actors {
		if a.ID == id {
			return a, true
		}
	}
	return battle.Actor{}, false
}

// inspectLines describes every party member's resolved stats.
func (g *Game) inspectLines() []string {
	lines := []string{"Party"}
	for _, id := range g.roster.IDs() {
		m, ok := g.roster.Member(id)
		if !ok {
			continue
		}
		d := m.Derived(g.reg)
		job := m.JobID
		if def := g.reg.Job(m.JobID); def != nil {
			job = def.Name
		}
		lines = append(lines,
			fmt.Sprintf("%s  Lv%d %s  HP %d/%d  MP %d/%d", m.Name, m.Level, job, m.HP, d.MaxHP, m.MP, d.MaxMP),
			fmt.Sprintf("  PATK %.0f  MATK %.0f  ACC %.0f  EVA %.0f  SPD %.0f  CRIT %.0f%%",
				d.PhysicalAttack, d.MagicalAttack, d.Accuracy, d.Evasion, d.Speed, d.CritChance),
		)
	}
	return lines
}
