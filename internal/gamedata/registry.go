package gamedata

import (
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
)

// MonsterRegistry holds loaded monster definitions and provides spawning utilities.
type MonsterRegistry struct {
	monsters []MonsterDef
	byID     map[string]*MonsterDef
}

// NewMonsterRegistry creates a registry from loaded monster definitions.
func NewMonsterRegistry(monsters []MonsterDef) *MonsterRegistry {
	r := &MonsterRegistry{
		monsters: monsters,
		byID:     make(map[string]*MonsterDef, len(monsters)),
	}
	for i := range monsters {
		r.byID[monsters[i].ID] = &monsters[i]
	}
	return r
}

// SpawnFrom selects a monster among pool using weighted probability.
// Monsters with higher spawnWeight are more likely to be selected; unknown
// IDs and zero weights are skipped.
func (r *MonsterRegistry) SpawnFrom(rng *rand.Rand, pool []string) *MonsterDef {
	totalWeight := 0
	for _, id := range pool {
		if def := r.byID[id]; def != nil && def.SpawnWeight > 0 {
			totalWeight += def.SpawnWeight
		}
	}
	if totalWeight <= 0 {
		return nil
	}

	roll := rng.Intn(totalWeight)

	cumulative := 0
	for _, id := range pool {
		def := r.byID[id]
		if def == nil || def.SpawnWeight <= 0 {
			continue
		}
		cumulative += def.SpawnWeight
		if roll < cumulative {
			return def
		}
	}
	return nil
}

// GetByID returns the monster definition with the given ID, or nil if not found.
func (r *MonsterRegistry) GetByID(id string) *MonsterDef {
	return r.byID[id]
}

// All returns all monster definitions.
func (r *MonsterRegistry) All() []MonsterDef {
	return r.monsters
}

// Count returns the number of monster types in the registry.
func (r *MonsterRegistry) Count() int {
	return len(r.monsters)
}

// =============================================================================
// SkillRegistry
// =============================================================================

// SkillRegistry holds loaded skill definitions and provides lookup utilities.
type SkillRegistry struct {
	skills map[string]*SkillDef
	all    []SkillDef
}

// NewSkillRegistry creates a registry from loaded skill definitions.
func NewSkillRegistry(skills []SkillDef) *SkillRegistry {
	registry := &SkillRegistry{
		skills: make(map[string]*SkillDef),
		all:    skills,
	}
	for i := range skills {
		registry.skills[skills[i].ID] = &skills[i]
	}
	return registry
}

// GetByID returns the skill definition with the given ID, or nil if not found.
func (r *SkillRegistry) GetByID(id string) *SkillDef {
	return r.skills[id]
}

// GetMultiple returns skill definitions for a list of IDs.
// Missing IDs are silently skipped.
func (r *SkillRegistry) GetMultiple(ids []string) []*SkillDef {
	result := make([]*SkillDef, 0, len(ids))
	for _, id := range ids {
		if skill := r.skills[id]; skill != nil {
			result = append(result, skill)
		}
	}
	return result
}

// All returns all skill definitions.
func (r *SkillRegistry) All() []SkillDef {
	return r.all
}

// Count returns the number of skills in the registry.
func (r *SkillRegistry) Count() int {
	return len(r.all)
}

// =============================================================================
// Registry
// =============================================================================

// Registry bundles every reference table the combat and dungeon cores read.
type Registry struct {
	Skills   *SkillRegistry
	Monsters *MonsterRegistry
	jobs     map[string]*JobDef
	items    map[string]*ItemDef
	dungeons map[string]*DungeonDef
}

// NewRegistry creates a registry from already loaded definitions.
func NewRegistry(skills []SkillDef, monsters []MonsterDef, jobs []JobDef, items []ItemDef, dungeons []DungeonDef) *Registry {
	r := &Registry{
		Skills:   NewSkillRegistry(skills),
		Monsters: NewMonsterRegistry(monsters),
		jobs:     make(map[string]*JobDef, len(jobs)),
		items:    make(map[string]*ItemDef, len(items)),
		dungeons: make(map[string]*DungeonDef, len(dungeons)),
	}
	for i := range jobs {
		r.jobs[jobs[i].ID] = &jobs[i]
	}
	for i := range items {
		r.items[items[i].ID] = &items[i]
	}
	for i := range dungeons {
		r.dungeons[dungeons[i].ID] = &dungeons[i]
	}
	return r
}

// LoadRegistry loads every embedded JSON table.
func LoadRegistry() (*Registry, error) {
	return LoadRegistryFrom(dataFS)
}

// LoadRegistryFrom loads and validates every table in fsys.
func LoadRegistryFrom(fsys fs.FS) (*Registry, error) {
	skills, err := LoadSkills(fsys)
	if err != nil {
		return nil, err
	}
	monsters, err := LoadMonsters(fsys)
	if err != nil {
		return nil, err
	}
	jobs, err := LoadJobs(fsys)
	if err != nil {
		return nil, err
	}
	items, err := LoadItems(fsys)
	if err != nil {
		return nil, err
	}
	dungeons, err := LoadDungeons(fsys)
	if err != nil {
		return nil, err
	}
	if len(monsters) == 0 || len(jobs) == 0 || len(dungeons) == 0 {
		return nil, errors.New("game data is incomplete")
	}

	r := NewRegistry(skills, monsters, jobs, items, dungeons)
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// MustLoadRegistry loads a registry, panicking on error.
func MustLoadRegistry() *Registry {
	registry, err := LoadRegistry()
	if err != nil {
		panic(err)
	}
	return registry
}

// Validate checks cross references between tables.
func (r *Registry) Validate() error {
	var errs []error
	for _, job := range r.jobs {
		for _, id := range job.Skills {
			if r.Skills.GetByID(id) == nil {
				errs = append(errs, fmt.Errorf("job %s: unknown skill %q", job.ID, id))
			}
		}
	}
	for _, m := range r.Monsters.All() {
		if _, err := ParseColor(m.Color); err != nil {
			errs = append(errs, fmt.Errorf("monster %s: %w", m.ID, err))
		}
		if m.Stats.Speed <= 0 {
			errs = append(errs, fmt.Errorf("monster %s: speed must be positive", m.ID))
		}
		for _, id := range m.Skills {
			if r.Skills.GetByID(id) == nil {
				errs = append(errs, fmt.Errorf("monster %s: unknown skill %q", m.ID, id))
			}
		}
		for _, d := range m.Drops {
			if r.items[d.ItemID] == nil {
				errs = append(errs, fmt.Errorf("monster %s: unknown drop %q", m.ID, d.ItemID))
			}
		}
	}
	for _, d := range r.dungeons {
		for _, id := range append(append([]string(nil), d.Monsters...), d.Bosses...) {
			if r.Monsters.GetByID(id) == nil {
				errs = append(errs, fmt.Errorf("dungeon %s: unknown monster %q", d.ID, id))
			}
		}
		rooms := 2 + d.Enemies + d.Gold + d.Traps + 1
		if len(d.Bosses) > 0 {
			rooms++
		}
		if d.NPCFloor > 0 {
			rooms++
		}
		if rooms > d.Cells() {
			errs = append(errs, fmt.Errorf("dungeon %s: %d rooms do not fit a %dx%d floor", d.ID, rooms, d.Width, d.Height))
		}
	}
	return errors.Join(errs...)
}

// Job returns the job definition with the given ID, or nil if not found.
func (r *Registry) Job(id string) *JobDef {
	return r.jobs[id]
}

// Item returns the item definition with the given ID, or nil if not found.
func (r *Registry) Item(id string) *ItemDef {
	return r.items[id]
}

// Dungeon returns the dungeon definition with the given ID, or nil if not found.
func (r *Registry) Dungeon(id string) *DungeonDef {
	return r.dungeons[id]
}
