// Package stats derives final combat attributes from primary attributes,
// allocated points, level and equipment.
//
// Derivation:
//
//	MaxHP             = 50 + 10*VIT + 5*level
//	MaxMP             = 20 + 5*INT + 2*level
//	PhysicalAttack    = 2*STR + level
//	MagicalAttack     = 2*INT + level
//	PhysicalReduction = VIT / (VIT + 100)
//	MagicalReduction  = INT / (INT + 200)
//	Accuracy          = 2*DEX + LUK + level
//	Evasion           = DEX + LUK
//	CritChance        = 5 + LUK/2   (percent)
//	CritDamage        = 150         (percent)
//	Speed             = 10 + DEX
//
// Equipment bonuses are added field by field and the result is normalized.
package stats

import (
	"cmp"
	"math"
	"slices"
)

const (
	// MaxReduction caps damage reduction so every hit still lands for something.
	MaxReduction = 0.9
	// MinSpeed keeps every living actor progressing towards its turn.
	MinSpeed = 1.0
)

// Attributes are the primary stats of a party member.
type Attributes struct {
	Strength  int `json:"str"`
	Intellect int `json:"int"`
	Dexterity int `json:"dex"`
	Vitality  int `json:"vit"`
	Luck      int `json:"luk"`
}

// Plus returns the field-wise sum of a and b.
func (a Attributes) Plus(b Attributes) Attributes {
	return Attributes{
		Strength:  a.Strength + b.Strength,
		Intellect: a.Intellect + b.Intellect,
		Dexterity: a.Dexterity + b.Dexterity,
		Vitality:  a.Vitality + b.Vitality,
		Luck:      a.Luck + b.Luck,
	}
}

// Total returns the number of points across all attributes.
func (a Attributes) Total() int {
	return a.Strength + a.Intellect + a.Dexterity + a.Vitality + a.Luck
}

// Derived is the ready-to-use combat stat block.
type Derived struct {
	MaxHP             int     `json:"maxHp"`
	MaxMP             int     `json:"maxMp"`
	PhysicalAttack    float64 `json:"physicalAttack"`
	PhysicalReduction float64 `json:"physicalReduction"`
	MagicalAttack     float64 `json:"magicalAttack"`
	MagicalReduction  float64 `json:"magicalReduction"`
	Accuracy          float64 `json:"accuracy"`
	Evasion           float64 `json:"evasion"`
	CritChance        float64 `json:"critChance"`
	CritDamage        float64 `json:"critDamage"`
	Speed             float64 `json:"speed"`
}

// Add returns the field-wise sum of d and o.
func (d Derived) Add(o Derived) Derived {
	return Derived{
		MaxHP:             d.MaxHP + o.MaxHP,
		MaxMP:             d.MaxMP + o.MaxMP,
		PhysicalAttack:    d.PhysicalAttack + o.PhysicalAttack,
		PhysicalReduction: d.PhysicalReduction + o.PhysicalReduction,
		MagicalAttack:     d.MagicalAttack + o.MagicalAttack,
		MagicalReduction:  d.MagicalReduction + o.MagicalReduction,
		Accuracy:          d.Accuracy + o.Accuracy,
		Evasion:           d.Evasion + o.Evasion,
		CritChance:        d.CritChance + o.CritChance,
		CritDamage:        d.CritDamage + o.CritDamage,
		Speed:             d.Speed + o.Speed,
	}
}

// Normalize clamps every field into its legal range.
func (d Derived) Normalize() Derived {
	d.MaxHP = max(d.MaxHP, 1)
	d.MaxMP = max(d.MaxMP, 0)
	d.PhysicalAttack = math.Max(d.PhysicalAttack, 0)
	d.MagicalAttack = math.Max(d.MagicalAttack, 0)
	d.PhysicalReduction = clamp(d.PhysicalReduction, 0, MaxReduction)
	d.MagicalReduction = clamp(d.MagicalReduction, 0, MaxReduction)
	d.Accuracy = math.Max(d.Accuracy, 0)
	d.Evasion = math.Max(d.Evasion, 0)
	d.CritChance = clamp(d.CritChance, 0, 100)
	d.CritDamage = math.Max(d.CritDamage, 100)
	d.Speed = math.Max(d.Speed, MinSpeed)
	return d
}

// Base computes the unequipped stat block for the given attributes and level.
func Base(attr Attributes, level int) Derived {
	str := float64(attr.Strength)
	intl := float64(attr.Intellect)
	dex := float64(attr.Dexterity)
	vit := float64(attr.Vitality)
	luk := float64(attr.Luck)
	lvl := float64(level)

	return Derived{
		MaxHP:             50 + 10*attr.Vitality + 5*level,
		MaxMP:             20 + 5*attr.Intellect + 2*level,
		PhysicalAttack:    2*str + lvl,
		PhysicalReduction: ratio(vit, 100),
		MagicalAttack:     2*intl + lvl,
		MagicalReduction:  ratio(intl, 200),
		Accuracy:          2*dex + luk + lvl,
		Evasion:           dex + luk,
		CritChance:        5 + luk/2,
		CritDamage:        150,
		Speed:             10 + dex,
	}
}

// Resolve merges base attributes, allocated points, level and equipment
// bonuses into the final stat block. Inputs are never modified, so it is
// safe for what-if previews.
func Resolve(base, allocated Attributes, level int, bonuses []Derived) Derived {
	d := Base(base.Plus(allocated), level)

	// Summed in a canonical order so equipment order cannot change the floats.
	sorted := slices.Clone(bonuses)
	slices.SortFunc(sorted, compareDerived)
	for _, b := range sorted {
		d = d.Add(b)
	}
	return d.Normalize()
}

func compareDerived(a, b Derived) int {
	return cmp.Or(
		cmp.Compare(a.MaxHP, b.MaxHP),
		cmp.Compare(a.MaxMP, b.MaxMP),
		cmp.Compare(a.PhysicalAttack, b.PhysicalAttack),
		cmp.Compare(a.PhysicalReduction, b.PhysicalReduction),
		cmp.Compare(a.MagicalAttack, b.MagicalAttack),
		cmp.Compare(a.MagicalReduction, b.MagicalReduction),
		cmp.Compare(a.Accuracy, b.Accuracy),
		cmp.Compare(a.Evasion, b.Evasion),
		cmp.Compare(a.CritChance, b.CritChance),
		cmp.Compare(a.CritDamage, b.CritDamage),
		cmp.Compare(a.Speed, b.Speed),
	)
}

func ratio(v, k float64) float64 {
	if v <= 0 {
		return 0
	}
	return v / (v + k)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
