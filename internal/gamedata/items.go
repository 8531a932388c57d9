package gamedata

import (
	"io/fs"

	"github.com/samdwyer/idlecrawl/internal/stats"
)

// ItemDef defines equipment or loot loaded from JSON.
type ItemDef struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Slot   string        `json:"slot,omitempty"` // weapon, armor, accessory; empty for materials
	Bonus  stats.Derived `json:"bonus"`
	Skills []string      `json:"skills,omitempty"` // Skill IDs granted while equipped
	Value  int           `json:"value"`
}

// Equippable returns true if the item occupies an equipment slot.
func (i *ItemDef) Equippable() bool {
	return i.Slot != ""
}

// ItemsFile represents the structure of items.json.
type ItemsFile struct {
	Items []ItemDef `json:"items"`
}

// LoadItems loads item definitions from items.json in fsys.
func LoadItems(fsys fs.FS) ([]ItemDef, error) {
	file, err := Load[ItemsFile](fsys, "items.json")
	if err != nil {
		return nil, err
	}
	return file.Items, nil
}
