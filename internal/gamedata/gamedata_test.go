package gamedata

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/samdwyer/idlecrawl/internal/combat"
	"github.com/samdwyer/idlecrawl/internal/stats"
)

func TestLoadMonsters(t *testing.T) {
	monsters, err := LoadMonsters(dataFS)
	if err != nil {
		t.Fatalf("Failed to load monsters: %v", err)
	}

	expectedIDs := map[string]bool{"slime": false, "goblin": false, "lich": false}
	for _, m := range monsters {
		if _, ok := expectedIDs[m.ID]; ok {
			expectedIDs[m.ID] = true
		}
		if m.Stats.Speed <= 0 {
			t.Errorf("Monster %q has non-positive speed %v", m.ID, m.Stats.Speed)
		}
	}

	for id, found := range expectedIDs {
		if !found {
			t.Errorf("Expected monster %q not found", id)
		}
	}
}

func TestLoadRegistry(t *testing.T) {
	registry, err := LoadRegistry()
	if err != nil {
		t.Fatalf("Failed to load registry: %v", err)
	}

	if registry.Job("knight") == nil {
		t.Error("knight job not found")
	}
	if registry.Item("iron_sword") == nil {
		t.Error("iron_sword item not found")
	}
	if registry.Dungeon("goblin_warren") == nil {
		t.Error("goblin_warren dungeon not found")
	}
	if registry.Skills.GetByID("heal") == nil {
		t.Error("heal skill not found")
	}
	if lich := registry.Monsters.GetByID("lich"); lich == nil || !lich.Revives {
		t.Error("lich should exist and revive once")
	}
}

func TestValidateReportsBrokenReferences(t *testing.T) {
	r := NewRegistry(
		nil,
		[]MonsterDef{{ID: "ghost", Skills: []string{"wail"}}},
		[]JobDef{{ID: "bard", Skills: []string{"song"}}},
		nil,
		[]DungeonDef{{ID: "tiny", Width: 1, Height: 1, Monsters: []string{"ghoul"}}},
	)

	if err := r.Validate(); err == nil {
		t.Error("Validate() should fail for unknown skills, monsters and an undersized floor")
	}
}

func TestSpawnFromDeterministic(t *testing.T) {
	registry := MustLoadRegistry()
	pool := registry.Dungeon("goblin_warren").Monsters

	rng1 := rand.New(rand.NewSource(12345))
	rng2 := rand.New(rand.NewSource(12345))

	for i := 0; i < 10; i++ {
		a := registry.Monsters.SpawnFrom(rng1, pool)
		b := registry.Monsters.SpawnFrom(rng2, pool)
		if a == nil || b == nil {
			t.Fatalf("Spawn %d returned nil", i)
		}
		if a.ID != b.ID {
			t.Errorf("Spawn %d mismatch: %s != %s", i, a.ID, b.ID)
		}
	}
}

func TestSpawnFromSkipsZeroWeight(t *testing.T) {
	registry := MustLoadRegistry()
	rng := rand.New(rand.NewSource(1))

	if got := registry.Monsters.SpawnFrom(rng, []string{"lich", "goblin_king"}); got != nil {
		t.Errorf("SpawnFrom(bosses only) = %s, want nil", got.ID)
	}
	if got := registry.Monsters.SpawnFrom(rng, []string{"missing"}); got != nil {
		t.Errorf("SpawnFrom(unknown) = %s, want nil", got.ID)
	}
}

func TestRollDrops(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	table := []DropChance{
		{ItemID: "herb", Chance: 1, Min: 2, Max: 2},
		{ItemID: "herb", Chance: 1, Min: 1, Max: 1},
		{ItemID: "crown", Chance: 0, Min: 1, Max: 1},
	}

	drops := RollDrops(rng, table)
	if len(drops) != 1 {
		t.Fatalf("RollDrops() = %+v, want one stacked entry", drops)
	}
	if drops[0].ItemID != "herb" || drops[0].Count != 3 {
		t.Errorf("RollDrops()[0] = %+v, want herb x3", drops[0])
	}
}

func TestStackDrops(t *testing.T) {
	drops := StackDrops(nil, Drop{ItemID: "a", Count: 1}, Drop{ItemID: "b", Count: 2}, Drop{ItemID: "a", Count: 4}, Drop{ItemID: "c", Count: 0})

	if len(drops) != 2 {
		t.Fatalf("StackDrops() = %+v, want 2 entries", drops)
	}
	if drops[0] != (Drop{ItemID: "a", Count: 5}) || drops[1] != (Drop{ItemID: "b", Count: 2}) {
		t.Errorf("StackDrops() = %+v", drops)
	}
}

func TestSkillCombatType(t *testing.T) {
	tests := []struct {
		skill    SkillDef
		expected combat.AttackType
	}{
		{SkillDef{Category: SkillDamage, AttackType: "physical"}, combat.Physical},
		{SkillDef{Category: SkillDamage, AttackType: "magical"}, combat.Magical},
		{SkillDef{Category: SkillHeal}, combat.Magical},
		{SkillDef{Category: SkillBuff}, combat.Physical},
	}

	for _, tt := range tests {
		if got := tt.skill.CombatType(); got != tt.expected {
			t.Errorf("CombatType(%+v) = %v, want %v", tt.skill, got, tt.expected)
		}
	}
}

func TestDungeonBossFor(t *testing.T) {
	d := DungeonDef{Bosses: []string{"a", "b"}}

	tests := []struct {
		floor    int
		expected string
	}{
		{0, "a"},
		{1, "a"},
		{2, "b"},
		{5, "b"},
	}
	for _, tt := range tests {
		if got := d.BossFor(tt.floor); got != tt.expected {
			t.Errorf("BossFor(%d) = %q, want %q", tt.floor, got, tt.expected)
		}
	}

	if got := (&DungeonDef{}).BossFor(1); got != "" {
		t.Errorf("BossFor() without bosses = %q, want empty", got)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		input string
		want  tcell.Color
		valid bool
	}{
		{"#FF0000", tcell.NewRGBColor(255, 0, 0), true},
		{"00ff00", tcell.NewRGBColor(0, 255, 0), true},
		{" Red ", tcell.ColorRed, true},
		{"invalid", tcell.ColorDefault, false},
		{"#FFF", tcell.ColorDefault, false},
		{"#GG0000", tcell.ColorDefault, false},
	}

	for _, tt := range tests {
		got, err := ParseColor(tt.input)
		if tt.valid && err != nil {
			t.Errorf("ParseColor(%q) error: %v", tt.input, err)
			continue
		}
		if !tt.valid && err == nil {
			t.Errorf("ParseColor(%q) should be invalid, got %v", tt.input, got)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestValidateRejectsBadColor(t *testing.T) {
	r := NewRegistry(nil, []MonsterDef{{ID: "wisp", Color: "glowing", Stats: stats.Derived{Speed: 5}}}, nil, nil, nil)
	if err := r.Validate(); err == nil {
		t.Error("Validate() should fail for an unparsable monster color")
	}
}

func TestLoadRegistryFromOverlay(t *testing.T) {
	dir := t.TempDir()
	override := `{"dungeons": [{
		"id": "rat_cellar", "name": "Rat Cellar", "width": 4, "height": 3, "maxFloors": 1,
		"monsters": ["slime"], "groupMin": 1, "groupMax": 1,
		"enemies": 2, "gold": 1, "traps": 1, "goldMin": 1, "goldMax": 2
	}]}`
	if err := os.WriteFile(filepath.Join(dir, "dungeons.json"), []byte(override), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	r, err := LoadRegistryFrom(Overlay(dir))
	if err != nil {
		t.Fatalf("LoadRegistryFrom() error: %v", err)
	}
	if r.Dungeon("rat_cellar") == nil {
		t.Error("overlay dungeon not loaded")
	}
	if r.Dungeon("goblin_warren") != nil {
		t.Error("overlay should replace the embedded dungeon table")
	}
	if r.Monsters.GetByID("slime") == nil {
		t.Error("tables missing from the overlay should fall back to the embedded copy")
	}
}

func TestLoadReportsMissingFile(t *testing.T) {
	if _, err := Load[MonstersFile](Overlay(t.TempDir()), "nope.json"); err == nil {
		t.Error("Load() of a missing table should fail")
	}
}

func TestMonsterDefMethods(t *testing.T) {
	def := MonsterDef{
		ID:                 "test",
		Glyph:              "T",
		Color:              "#FF0000",
		PhysicalEfficiency: 60,
		MagicalEfficiency:  20,
	}

	if def.GlyphRune() != 'T' {
		t.Errorf("Expected glyph 'T', got %c", def.GlyphRune())
	}
	if color := def.TCellColor(); color == 0 {
		t.Error("TCellColor returned zero color")
	}
	if def.Efficiency(combat.Magical) != 20 || def.Efficiency(combat.Physical) != 60 {
		t.Error("Efficiency() returned the wrong floor")
	}
}
