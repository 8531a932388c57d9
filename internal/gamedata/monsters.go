package gamedata

import (
	"io/fs"

	"github.com/gdamore/tcell/v2"

	"github.com/samdwyer/idlecrawl/internal/combat"
	"github.com/samdwyer/idlecrawl/internal/stats"
)

// MonsterDef defines a monster type loaded from JSON. Monsters carry a flat,
// precomputed stat block instead of primary attributes.
type MonsterDef struct {
	ID                 string        `json:"id"`                 // Unique identifier (e.g., "goblin")
	Name               string        `json:"name"`               // Display name (e.g., "Goblin")
	Glyph              string        `json:"glyph"`              // Single character for rendering
	Color              string        `json:"color"`              // Hex color code (e.g., "#00FF00")
	Level              int           `json:"level"`              // Informational level
	Stats              stats.Derived `json:"stats"`              // Flat combat stat block
	PhysicalEfficiency float64       `json:"physicalEfficiency"` // Efficiency floor for physical actions
	MagicalEfficiency  float64       `json:"magicalEfficiency"`  // Efficiency floor for magical actions
	Skills             []string      `json:"skills,omitempty"`   // Skill IDs the monster can use
	Revives            bool          `json:"revives,omitempty"`  // Survives the first lethal hit once
	Gold               int           `json:"gold"`               // Gold awarded when defeated
	SpawnWeight        int           `json:"spawnWeight"`        // Relative spawn frequency
	Drops              []DropChance  `json:"drops,omitempty"`    // Drop table
}

// Efficiency returns the efficiency floor for the given attack type.
func (m *MonsterDef) Efficiency(t combat.AttackType) float64 {
	if t == combat.Magical {
		return m.MagicalEfficiency
	}
	return m.PhysicalEfficiency
}

// GlyphRune returns the glyph as a rune for rendering.
func (m *MonsterDef) GlyphRune() rune {
	if len(m.Glyph) == 0 {
		return '?'
	}
	return rune(m.Glyph[0])
}

// TCellColor returns the color as a tcell.Color.
func (m *MonsterDef) TCellColor() tcell.Color {
	color, err := ParseColor(m.Color)
	if err != nil {
		return tcell.ColorWhite // fallback
	}
	return color
}

// MonstersFile represents the structure of monsters.json.
type MonstersFile struct {
	Monsters []MonsterDef `json:"monsters"`
}

// LoadMonsters loads monster definitions from monsters.json in fsys.
func LoadMonsters(fsys fs.FS) ([]MonsterDef, error) {
	file, err := Load[MonstersFile](fsys, "monsters.json")
	if err != nil {
		return nil, err
	}
	return file.Monsters, nil
}
