package battle

import (
	"github.com/samdwyer/idlecrawl/internal/combat"
	"github.com/samdwyer/idlecrawl/internal/entity"
	"github.com/samdwyer/idlecrawl/internal/event"
	"github.com/samdwyer/idlecrawl/internal/gamedata"
	"github.com/samdwyer/idlecrawl/internal/stats"
)

// Side tags which team an actor fights for.
type Side int

const (
	SideParty Side = iota
	SideEnemy
)

// String returns a human-readable side name.
func (s Side) String() string {
	switch s {
	case SideParty:
		return "party"
	case SideEnemy:
		return "enemy"
	default:
		return "unknown"
	}
}

// Handle addresses an actor in a battle's arena.
type Handle int

const noHandle Handle = -1

// Actor is one combatant inside a battle. Stats are fixed at battle entry;
// only HP, MP, Gauge and the flags change while fighting.
type Actor struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Side  Side          `json:"side"`
	RefID string        `json:"refId"` // Member ID for the party, monster definition ID for enemies
	Stats stats.Derived `json:"stats"`

	PhysicalEfficiency float64  `json:"physicalEfficiency"`
	MagicalEfficiency  float64  `json:"magicalEfficiency"`
	Skills             []string `json:"skills,omitempty"`
	Revives            bool     `json:"revives,omitempty"`

	HP         int        `json:"hp"`
	MP         int        `json:"mp"`
	Gauge      float64    `json:"gauge"`
	Revived    bool       `json:"revived,omitempty"`
	LastAction event.Kind `json:"lastAction,omitempty"`
}

// IsAlive returns true if the actor has HP remaining.
func (a *Actor) IsAlive() bool { return a.HP > 0 }

// Ready returns true if the actor is alive with a full gauge.
func (a *Actor) Ready() bool { return a.IsAlive() && a.Gauge >= ReadyThreshold }

// HPFraction returns current HP over max HP.
func (a *Actor) HPFraction() float64 {
	if a.Stats.MaxHP <= 0 {
		return 0
	}
	return float64(a.HP) / float64(a.Stats.MaxHP)
}

// Efficiency returns the efficiency floor for the given attack type.
func (a *Actor) Efficiency(t combat.AttackType) float64 {
	if t == combat.Magical {
		return a.MagicalEfficiency
	}
	return a.PhysicalEfficiency
}

// StrikeType is the attack type of a plain strike: whichever attack stat is higher.
func (a *Actor) StrikeType() combat.AttackType {
	if a.Stats.MagicalAttack > a.Stats.PhysicalAttack {
		return combat.Magical
	}
	return combat.Physical
}

// normalized returns a private copy of a with its speed floored and HP/MP
// clamped to their maxima. A dead actor has an empty gauge.
func (a Actor) normalized() Actor {
	a.Skills = append([]string(nil), a.Skills...)
	a.Stats.Speed = max(a.Stats.Speed, stats.MinSpeed)
	a.HP = min(max(a.HP, 0), a.Stats.MaxHP)
	a.MP = min(max(a.MP, 0), a.Stats.MaxMP)
	if !a.IsAlive() {
		a.Gauge = 0
	}
	return a
}

// FromMember builds a party actor from a roster entry.
func FromMember(m *entity.Member, reg *gamedata.Registry) Actor {
	d := m.Derived(reg)
	a := Actor{
		ID:     m.ID,
		Name:   m.Name,
		Side:   SideParty,
		RefID:  m.ID,
		Stats:  d,
		HP:     min(max(m.HP, 0), d.MaxHP),
		MP:     min(max(m.MP, 0), d.MaxMP),
		Skills: m.SkillIDs(reg),
	}
	if reg != nil {
		if job := reg.Job(m.JobID); job != nil {
			a.PhysicalEfficiency = job.PhysicalEfficiency
			a.MagicalEfficiency = job.MagicalEfficiency
		}
	}
	return a
}

// FromMonster builds an enemy actor at full HP from a monster definition.
func FromMonster(def *gamedata.MonsterDef, instanceID string) Actor {
	d := def.Stats.Normalize()
	return Actor{
		ID:                 instanceID,
		Name:               def.Name,
		Side:               SideEnemy,
		RefID:              def.ID,
		Stats:              d,
		PhysicalEfficiency: def.PhysicalEfficiency,
		MagicalEfficiency:  def.MagicalEfficiency,
		Skills:             append([]string(nil), def.Skills...),
		Revives:            def.Revives,
		HP:                 d.MaxHP,
		MP:                 d.MaxMP,
	}
}
