// Package combat resolves a single offensive or supportive action between two
// derived stat blocks. It never mutates actors; the battle scheduler applies
// the outcome.
package combat

import (
	"math"

	"github.com/samdwyer/idlecrawl/internal/stats"
)

const (
	// MinHitChance and MaxHitChance bound the hit roll, in percent.
	MinHitChance = 90.0
	MaxHitChance = 100.0

	// evasionWeight scales the defender's evasion in the hit formula.
	evasionWeight = 0.7
)

// AttackType selects which attack and reduction stats an action uses.
type AttackType int

const (
	Physical AttackType = iota
	Magical
)

// String returns a human-readable attack type name.
func (t AttackType) String() string {
	switch t {
	case Physical:
		return "physical"
	case Magical:
		return "magical"
	default:
		return "unknown"
	}
}

// Rand is the randomness source for combat rolls. *math/rand.Rand satisfies it.
type Rand interface {
	// Float64 returns a uniform value in [0, 1).
	Float64() float64
	// Intn returns a uniform value in [0, n).
	Intn(n int) int
}

// Action describes how an attacker acts on a defender.
type Action struct {
	Type AttackType
	// BaseEfficiency is the job and attack-type specific floor of the
	// efficiency roll, 0-100.
	BaseEfficiency float64
	// Multiplier scales the attack stat; 1.0 for a plain strike.
	Multiplier float64
	// Heal marks supportive actions: they always land and ignore reduction.
	Heal bool
}

// Outcome is the result of one resolved action.
type Outcome struct {
	Hit    bool
	Crit   bool
	Amount int
}

// HitChance returns the percent chance for accuracy to land against evasion,
// clamped to [MinHitChance, MaxHitChance].
func HitChance(accuracy, evasion float64) float64 {
	denom := accuracy + evasion*evasionWeight
	if denom <= 0 {
		return MaxHitChance
	}
	return math.Min(math.Max(accuracy/denom*100, MinHitChance), MaxHitChance)
}

// EfficiencyRoll draws a multiplier uniformly between baseEfficiency/100 and 1.
func EfficiencyRoll(rng Rand, baseEfficiency float64) float64 {
	floor := math.Min(math.Max(baseEfficiency, 0), 100)
	return (floor + rng.Float64()*(100-floor)) / 100
}

// Resolve computes the outcome of act from attacker against defender.
// Rolls are drawn in order: hit (damage only), efficiency, critical.
func Resolve(rng Rand, attacker, defender stats.Derived, act Action) Outcome {
	if !act.Heal {
		if rng.Float64()*100 >= HitChance(attacker.Accuracy, defender.Evasion) {
			return Outcome{}
		}
	}

	attack, reduction := relevantStats(attacker, defender, act)
	mult := act.Multiplier
	if mult <= 0 {
		mult = 1
	}

	amount := attack * EfficiencyRoll(rng, act.BaseEfficiency) * mult
	if !act.Heal {
		amount *= 1 - reduction
	}

	crit := rng.Float64()*100 < attacker.CritChance
	if crit {
		amount *= attacker.CritDamage / 100
	}

	return Outcome{Hit: true, Crit: crit, Amount: finalAmount(amount)}
}

// Expected returns the average amount act would produce, ignoring hit and
// critical rolls. Useful for AI scoring and UI previews.
func Expected(attacker, defender stats.Derived, act Action) int {
	attack, reduction := relevantStats(attacker, defender, act)
	mult := act.Multiplier
	if mult <= 0 {
		mult = 1
	}
	floor := math.Min(math.Max(act.BaseEfficiency, 0), 100)
	amount := attack * (floor + 100) / 200 * mult
	if !act.Heal {
		amount *= 1 - reduction
	}
	return finalAmount(amount)
}

func relevantStats(attacker, defender stats.Derived, act Action) (attack, reduction float64) {
	if act.Heal || act.Type == Magical {
		return attacker.MagicalAttack, defender.MagicalReduction
	}
	return attacker.PhysicalAttack, defender.PhysicalReduction
}

func finalAmount(v float64) int {
	n := int(math.Round(v))
	if n < 1 {
		return 1
	}
	return n
}
