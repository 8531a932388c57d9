package gamedata

import "io/fs"

// DungeonDef defines a dungeon loaded from JSON. Every floor is a Width x
// Height grid of rooms populated from the counts below.
type DungeonDef struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Width     int      `json:"width"`
	Height    int      `json:"height"`
	MaxFloors int      `json:"maxFloors"`
	Monsters  []string `json:"monsters"` // Monster IDs that roam the dungeon
	Bosses    []string `json:"bosses"`   // Boss per floor; the last entry repeats
	GroupMin  int      `json:"groupMin"` // Smallest monster group per enemy room
	GroupMax  int      `json:"groupMax"` // Largest monster group per enemy room
	Enemies   int      `json:"enemies"`  // Enemy rooms per floor
	Gold      int      `json:"gold"`     // Gold rooms per floor
	Traps     int      `json:"traps"`    // Trap rooms per floor
	GoldMin   int      `json:"goldMin"`  // Gold per gold room, inclusive range
	GoldMax   int      `json:"goldMax"`
	NPCFloor  int      `json:"npcFloor,omitempty"` // Floor holding the rescue target; 0 for none
}

// BossFor returns the boss monster ID for a 1-based floor, or "" if the
// dungeon has no bosses.
func (d *DungeonDef) BossFor(floor int) string {
	if len(d.Bosses) == 0 {
		return ""
	}
	i := floor - 1
	if i < 0 {
		i = 0
	}
	if i >= len(d.Bosses) {
		i = len(d.Bosses) - 1
	}
	return d.Bosses[i]
}

// Cells returns the number of rooms on one floor.
func (d *DungeonDef) Cells() int {
	return d.Width * d.Height
}

// DungeonsFile represents the structure of dungeons.json.
type DungeonsFile struct {
	Dungeons []DungeonDef `json:"dungeons"`
}

// LoadDungeons loads dungeon definitions from dungeons.json in fsys.
func LoadDungeons(fsys fs.FS) ([]DungeonDef, error) {
	file, err := Load[DungeonsFile](fsys, "dungeons.json")
	if err != nil {
		return nil, err
	}
	return file.Dungeons, nil
}
