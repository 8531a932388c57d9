package battle

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samdwyer/idlecrawl/internal/combat"
	"github.com/samdwyer/idlecrawl/internal/event"
	"github.com/samdwyer/idlecrawl/internal/gamedata"
)

// Tick advances the scheduler by one pass. speed scales the gauge gain of
// this tick; speed <= 0 uses the configured SpeedMultiplier.
//
// A pass checks for the end of the battle, fills gauges, then lets at most
// one party actor and one enemy act, party first. Ticks do nothing while the
// battle is over, paused, suspended or an action is in flight.
func (b *Battle) Tick(ctx context.Context, speed float64) {
	if b.outcome != Ongoing {
		b.logger.WarnContext(ctx, "tick on finished battle ignored",
			"battle", b.id, "outcome", b.outcome.String())
		return
	}
	if b.paused || b.suspended {
		return
	}
	if b.inFlight > 0 {
		b.inFlight--
		return
	}

	b.clock++
	if b.checkEnd(ctx) {
		return
	}

	if speed <= 0 {
		speed = b.cfg.SpeedMultiplier
	}
	b.advance(b.cfg.TickGain * speed)

	acted := b.resolveParty(ctx)
	if b.outcome != Ongoing || (acted && b.inFlight > 0) {
		return
	}
	b.resolveEnemy(ctx)
}

// advance fills the gauge of every living actor that is not yet ready.
func (b *Battle) advance(gain float64) {
	for i := range b.actors {
		a := &b.actors[i]
		if !a.IsAlive() || a.Gauge >= ReadyThreshold {
			continue
		}
		a.Gauge += a.Stats.Speed * gain
	}
}

// checkEnd decides the battle when one side is down. Party defeat wins ties.
func (b *Battle) checkEnd(ctx context.Context) bool {
	switch {
	case b.sideDown(b.party):
		b.finish(ctx, Defeat)
	case b.sideDown(b.enemies):
		b.finish(ctx, Victory)
	default:
		return false
	}
	return true
}

func (b *Battle) sideDown(handles []Handle) bool {
	for _, h := range handles {
		if b.actors[h].IsAlive() {
			return false
		}
	}
	return true
}

func (b *Battle) finish(ctx context.Context, outcome Outcome) {
	b.outcome = outcome
	b.awaiting = noHandle
	b.pending = nil

	switch outcome {
	case Victory:
		b.emit(event.Event{Kind: event.Victory, Message: "Victory! All enemies defeated!"})
	case Defeat:
		b.emit(event.Event{Kind: event.Defeat, Message: "Your party has been defeated!"})
	case Escaped:
		b.emit(event.Event{Kind: event.Escaped, Message: "The party escaped!"})
	}

	_, span := b.tracer.Start(ctx, "battle.end")
	span.SetAttributes(
		attribute.String("battle.id", b.id),
		attribute.String("outcome", outcome.String()),
		attribute.Int("ticks", b.clock),
		attribute.Int("party_hp_remaining", b.totalHP(b.party)),
	)
	span.End()

	b.logger.InfoContext(ctx, "battle finished",
		"battle", b.id, "outcome", outcome.String(), "ticks", b.clock)

	if b.onEnd != nil {
		b.onEnd(ctx, b.Result())
	}
}

func (b *Battle) totalHP(handles []Handle) int {
	total := 0
	for _, h := range handles {
		total += b.actors[h].HP
	}
	return total
}

// resolveParty runs the party side of a pass and reports whether an action
// was resolved.
func (b *Battle) resolveParty(ctx context.Context) bool {
	if b.awaiting != noHandle {
		parked := b.awaiting
		if !b.actors[parked].IsAlive() {
			b.awaiting = noHandle
			b.pending = nil
			return false
		}
		if b.pending == nil {
			return false
		}
		act := *b.pending
		b.pending = nil
		b.awaiting = noHandle
		return b.performManual(ctx, parked, act)
	}

	h := b.firstReady(b.party)
	if h == noHandle {
		return false
	}
	if b.cfg.Manual {
		b.awaiting = h
		b.emit(event.Event{
			Kind:    event.AwaitingInput,
			Source:  b.actors[h].ID,
			Message: b.actors[h].Name + " awaits orders.",
		})
		return false
	}
	return b.performAuto(ctx, h)
}

func (b *Battle) resolveEnemy(ctx context.Context) bool {
	h := b.firstReady(b.enemies)
	if h == noHandle {
		return false
	}
	return b.performAuto(ctx, h)
}

// firstReady returns the first ready actor in roster order.
func (b *Battle) firstReady(handles []Handle) Handle {
	for _, h := range handles {
		if b.actors[h].Ready() {
			return h
		}
	}
	return noHandle
}

// performAuto picks and resolves an action for h.
func (b *Battle) performAuto(ctx context.Context, h Handle) bool {
	a := &b.actors[h]
	if skill := b.pickSkill(a); skill != nil {
		if target := b.pickTarget(a, skill.Category); target != noHandle {
			return b.useSkill(ctx, h, skill, target)
		}
	}
	target := b.randomLiving(b.opponents(a.Side))
	if target == noHandle {
		return false
	}
	return b.strike(ctx, h, target)
}

// pickSkill returns a usable skill with probability SkillChance, or nil.
func (b *Battle) pickSkill(a *Actor) *gamedata.SkillDef {
	if b.skills == nil || len(a.Skills) == 0 || b.rng.Float64() >= b.cfg.SkillChance {
		return nil
	}
	var usable []*gamedata.SkillDef
	for _, id := range a.Skills {
		skill := b.skills.GetByID(id)
		if skill == nil || a.MP < skill.MPCost {
			continue
		}
		if skill.Category == gamedata.SkillHeal && !b.anyHurt(b.allies(a.Side)) {
			continue
		}
		usable = append(usable, skill)
	}
	if len(usable) == 0 {
		return nil
	}
	return usable[b.rng.Intn(len(usable))]
}

func (b *Battle) pickTarget(a *Actor, category gamedata.SkillCategory) Handle {
	switch category {
	case gamedata.SkillHeal:
		return b.lowestHPFraction(b.allies(a.Side))
	case gamedata.SkillBuff:
		return b.randomLiving(b.allies(a.Side))
	default:
		return b.randomLiving(b.opponents(a.Side))
	}
}

func (b *Battle) allies(side Side) []Handle {
	if side == SideParty {
		return b.party
	}
	return b.enemies
}

func (b *Battle) opponents(side Side) []Handle {
	if side == SideParty {
		return b.enemies
	}
	return b.party
}

func (b *Battle) randomLiving(handles []Handle) Handle {
	var living []Handle
	for _, h := range handles {
		if b.actors[h].IsAlive() {
			living = append(living, h)
		}
	}
	if len(living) == 0 {
		return noHandle
	}
	return living[b.rng.Intn(len(living))]
}

func (b *Battle) lowestHPFraction(handles []Handle) Handle {
	best := noHandle
	for _, h := range handles {
		a := &b.actors[h]
		if !a.IsAlive() {
			continue
		}
		if best == noHandle || a.HPFraction() < b.actors[best].HPFraction() {
			best = h
		}
	}
	return best
}

func (b *Battle) anyHurt(handles []Handle) bool {
	for _, h := range handles {
		a := &b.actors[h]
		if a.IsAlive() && a.HP < a.Stats.MaxHP {
			return true
		}
	}
	return false
}

// strike resolves a plain attack.
func (b *Battle) strike(ctx context.Context, h, target Handle) bool {
	a := &b.actors[h]
	typ := a.StrikeType()
	out := combat.Resolve(b.rng, a.Stats, b.actors[target].Stats, combat.Action{
		Type:           typ,
		BaseEfficiency: a.Efficiency(typ),
		Multiplier:     1,
	})
	b.traceAction(ctx, h, target, "attack", out)
	b.applyDamage(h, target, out, "")
	b.commit(h, event.DamageDealt)
	return true
}

// useSkill spends MP and resolves skill against target.
func (b *Battle) useSkill(ctx context.Context, h Handle, skill *gamedata.SkillDef, target Handle) bool {
	a := &b.actors[h]
	a.MP -= skill.MPCost
	t := &b.actors[target]

	switch skill.Category {
	case gamedata.SkillHeal:
		out := combat.Resolve(b.rng, a.Stats, t.Stats, combat.Action{
			Type:           combat.Magical,
			BaseEfficiency: a.MagicalEfficiency,
			Multiplier:     skill.Multiplier,
			Heal:           true,
		})
		healed := min(out.Amount, t.Stats.MaxHP-t.HP)
		t.HP += healed
		b.emit(event.Event{
			Kind:    event.Healed,
			Source:  a.ID,
			Target:  t.ID,
			SkillID: skill.ID,
			Amount:  healed,
			Crit:    out.Crit,
			Message: fmt.Sprintf("%s uses %s on %s and restores %d HP!", a.Name, skill.Name, t.Name, healed),
		})
		b.traceAction(ctx, h, target, skill.ID, out)
		b.commit(h, event.Healed)

	case gamedata.SkillBuff:
		boost := skill.Multiplier * ReadyThreshold
		t.Gauge = min(t.Gauge+boost, ReadyThreshold)
		b.emit(event.Event{
			Kind:    event.Buffed,
			Source:  a.ID,
			Target:  t.ID,
			SkillID: skill.ID,
			Message: fmt.Sprintf("%s uses %s on %s!", a.Name, skill.Name, t.Name),
		})
		b.traceAction(ctx, h, target, skill.ID, combat.Outcome{Hit: true})
		b.commit(h, event.Buffed)

	default:
		typ := skill.CombatType()
		out := combat.Resolve(b.rng, a.Stats, t.Stats, combat.Action{
			Type:           typ,
			BaseEfficiency: a.Efficiency(typ),
			Multiplier:     skill.Multiplier,
		})
		b.traceAction(ctx, h, target, skill.ID, out)
		b.applyDamage(h, target, out, skill.ID)
		b.commit(h, event.DamageDealt)
	}
	return true
}

// applyDamage subtracts a resolved hit and runs the one-time revival rule.
func (b *Battle) applyDamage(h, target Handle, out combat.Outcome, skillID string) {
	a := &b.actors[h]
	t := &b.actors[target]

	if !out.Hit {
		b.emit(event.Event{
			Kind:    event.Missed,
			Source:  a.ID,
			Target:  t.ID,
			SkillID: skillID,
			Message: a.Name + " misses " + t.Name + "!",
		})
		return
	}

	t.HP -= out.Amount
	t.LastAction = event.DamageDealt
	b.emit(event.Event{
		Kind:    event.DamageDealt,
		Source:  a.ID,
		Target:  t.ID,
		SkillID: skillID,
		Amount:  out.Amount,
		Crit:    out.Crit,
		Message: fmt.Sprintf("%s hits %s for %d damage!", a.Name, t.Name, out.Amount),
	})

	if t.HP > 0 {
		return
	}
	if t.Revives && !t.Revived {
		t.HP = t.Stats.MaxHP
		t.Revived = true
		b.emit(event.Event{
			Kind:    event.Revived,
			Target:  t.ID,
			Amount:  t.HP,
			Message: t.Name + " rises again!",
		})
		return
	}

	t.HP = 0
	t.Gauge = 0
	if b.awaiting == target {
		b.awaiting = noHandle
		b.pending = nil
	}
	b.emit(event.Event{
		Kind:    event.ActorDefeated,
		Source:  a.ID,
		Target:  t.ID,
		Message: t.Name + " is defeated!",
	})
}

// commit spends the actor's turn and opens the in-flight window.
func (b *Battle) commit(h Handle, kind event.Kind) {
	a := &b.actors[h]
	a.Gauge = max(a.Gauge-ReadyThreshold, 0)
	a.LastAction = kind
	b.inFlight = b.cfg.CommitTicks
}

func (b *Battle) traceAction(ctx context.Context, h, target Handle, action string, out combat.Outcome) {
	_, span := b.tracer.Start(ctx, "battle.action")
	span.SetAttributes(
		attribute.String("battle.id", b.id),
		attribute.String("actor", b.actors[h].Name),
		attribute.String("action", action),
		attribute.String("target", b.actors[target].Name),
		attribute.Bool("hit", out.Hit),
		attribute.Bool("crit", out.Crit),
		attribute.Int("amount", out.Amount),
		attribute.Int("tick", b.clock),
	)
	span.End()
}
