package gamedata

import (
	"io/fs"

	"github.com/samdwyer/idlecrawl/internal/combat"
)

// =============================================================================
// SKILLS
// =============================================================================
//
// Skills are read-only reference data shared by party members and monsters.
// An actor knows the skills of its job (or monster definition) plus any
// skills granted by equipped items.
//
// Categories:
//   - damage: offensive; targets a living opponent and rolls to hit
//   - heal:   restores HP of a living ally; always lands
//   - buff:   hastes a living ally, adding multiplier x READY_THRESHOLD
//             readiness; always lands
//
// JSON Schema:
// {
//   "id": "fireball",
//   "name": "Fireball",
//   "category": "damage",
//   "attackType": "magical",
//   "multiplier": 1.8,
//   "mpCost": 6
// }

// SkillCategory represents what a skill does.
type SkillCategory string

const (
	SkillDamage SkillCategory = "damage"
	SkillHeal   SkillCategory = "heal"
	SkillBuff   SkillCategory = "buff"
)

// SkillDef defines a skill loaded from JSON.
type SkillDef struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Category    SkillCategory `json:"category"`
	AttackType  string        `json:"attackType,omitempty"` // "physical" or "magical"
	Multiplier  float64       `json:"multiplier"`
	MPCost      int           `json:"mpCost"`
}

// CombatType returns the attack type used to resolve the skill.
// Heals always resolve as magical.
func (s *SkillDef) CombatType() combat.AttackType {
	if s.Category == SkillHeal || s.AttackType == "magical" {
		return combat.Magical
	}
	return combat.Physical
}

// IsOffensive returns true if the skill targets opponents.
func (s *SkillDef) IsOffensive() bool {
	return s.Category == SkillDamage
}

// SkillsFile represents the structure of skills.json.
type SkillsFile struct {
	Skills []SkillDef `json:"skills"`
}

// LoadSkills loads skill definitions from skills.json in fsys.
func LoadSkills(fsys fs.FS) ([]SkillDef, error) {
	file, err := Load[SkillsFile](fsys, "skills.json")
	if err != nil {
		return nil, err
	}
	return file.Skills, nil
}
