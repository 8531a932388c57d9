package battle

import (
	"context"
	"errors"
	"fmt"

	"github.com/samdwyer/idlecrawl/internal/event"
	"github.com/samdwyer/idlecrawl/internal/gamedata"
)

// ActionKind names a manual command.
type ActionKind string

const (
	ActionAttack ActionKind = "attack"
	ActionSkill  ActionKind = "skill"
	ActionFlee   ActionKind = "flee"
)

// ManualAction is a command for the party actor parked in manual mode.
// TargetID may be empty for heal and buff skills, which then target the actor.
type ManualAction struct {
	ActorID  string     `json:"actorId"`
	Kind     ActionKind `json:"kind"`
	SkillID  string     `json:"skillId,omitempty"`
	TargetID string     `json:"targetId,omitempty"`
}

var (
	ErrBattleOver     = errors.New("battle is over")
	ErrUnknownActor   = errors.New("unknown actor")
	ErrNotAwaiting    = errors.New("actor is not awaiting input")
	ErrActorDown      = errors.New("actor is down")
	ErrActionPending  = errors.New("an action is already queued")
	ErrUnknownSkill   = errors.New("unknown skill")
	ErrInsufficientMP = errors.New("not enough MP")
	ErrInvalidTarget  = errors.New("invalid target")
	ErrUnknownAction  = errors.New("unknown action")
)

// Submit queues a command for the parked party actor. The command resolves
// on the next Tick. A rejected command leaves the battle unchanged.
func (b *Battle) Submit(act ManualAction) error {
	if b.outcome != Ongoing {
		return ErrBattleOver
	}
	h, ok := b.index[act.ActorID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownActor, act.ActorID)
	}
	a := &b.actors[h]
	if !a.IsAlive() {
		return fmt.Errorf("%w: %s", ErrActorDown, a.ID)
	}
	if !b.cfg.Manual || b.awaiting != h {
		return fmt.Errorf("%w: %s", ErrNotAwaiting, a.ID)
	}
	if b.pending != nil {
		return ErrActionPending
	}

	switch act.Kind {
	case ActionAttack:
		if err := b.checkTarget(act.TargetID, b.opponents(a.Side)); err != nil {
			return err
		}
	case ActionSkill:
		skill, err := b.knownSkill(a, act.SkillID)
		if err != nil {
			return err
		}
		if a.MP < skill.MPCost {
			return fmt.Errorf("%w: %s needs %d, has %d", ErrInsufficientMP, skill.ID, skill.MPCost, a.MP)
		}
		if skill.IsOffensive() {
			if err := b.checkTarget(act.TargetID, b.opponents(a.Side)); err != nil {
				return err
			}
		} else if act.TargetID != "" {
			if err := b.checkTarget(act.TargetID, b.allies(a.Side)); err != nil {
				return err
			}
		}
	case ActionFlee:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, act.Kind)
	}

	b.pending = &act
	return nil
}

func (b *Battle) knownSkill(a *Actor, id string) (*gamedata.SkillDef, error) {
	if b.skills == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSkill, id)
	}
	skill := b.skills.GetByID(id)
	if skill == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSkill, id)
	}
	for _, known := range a.Skills {
		if known == id {
			return skill, nil
		}
	}
	return nil, fmt.Errorf("%w: %s does not know %s", ErrUnknownSkill, a.Name, id)
}

// checkTarget requires id to name a living actor among handles.
func (b *Battle) checkTarget(id string, handles []Handle) error {
	h, ok := b.index[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidTarget, id)
	}
	for _, candidate := range handles {
		if candidate == h {
			if !b.actors[h].IsAlive() {
				return fmt.Errorf("%w: %s is down", ErrInvalidTarget, id)
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s is on the wrong side", ErrInvalidTarget, id)
}

// performManual resolves a queued command. Targets that fell since the
// command was accepted are replaced with a random living actor of the same side.
func (b *Battle) performManual(ctx context.Context, h Handle, act ManualAction) bool {
	a := &b.actors[h]

	switch act.Kind {
	case ActionFlee:
		return b.flee(ctx, h)

	case ActionSkill:
		skill := b.skills.GetByID(act.SkillID)
		if skill == nil || a.MP < skill.MPCost {
			return b.performAuto(ctx, h)
		}
		group := b.opponents(a.Side)
		target := h
		if act.TargetID != "" {
			target = b.index[act.TargetID]
		}
		if !skill.IsOffensive() {
			group = b.allies(a.Side)
		}
		if !b.actors[target].IsAlive() {
			target = b.randomLiving(group)
		}
		if target == noHandle {
			return false
		}
		return b.useSkill(ctx, h, skill, target)

	default:
		target, ok := b.index[act.TargetID]
		if !ok || !b.actors[target].IsAlive() {
			target = b.randomLiving(b.opponents(a.Side))
		}
		if target == noHandle {
			return false
		}
		return b.strike(ctx, h, target)
	}
}

// flee attempts to leave the battle. Failure costs the actor its turn.
func (b *Battle) flee(ctx context.Context, h Handle) bool {
	a := &b.actors[h]
	if b.rng.Float64() < b.cfg.FleeChance {
		a.LastAction = event.Escaped
		b.finish(ctx, Escaped)
		return true
	}
	a.Gauge = 0
	a.LastAction = event.FleeFailed
	b.inFlight = b.cfg.CommitTicks
	b.emit(event.Event{
		Kind:    event.FleeFailed,
		Source:  a.ID,
		Message: a.Name + " failed to escape!",
	})
	return true
}
