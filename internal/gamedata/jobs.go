package gamedata

import (
	"io/fs"

	"github.com/samdwyer/idlecrawl/internal/combat"
	"github.com/samdwyer/idlecrawl/internal/stats"
)

// JobDef defines a playable job loaded from JSON.
type JobDef struct {
	ID                 string           `json:"id"`                 // Unique identifier (e.g., "knight")
	Name               string           `json:"name"`               // Display name
	Symbol             string           `json:"symbol"`             // Single character for rendering
	Base               stats.Attributes `json:"base"`               // Primary attributes at level 1
	PhysicalEfficiency float64          `json:"physicalEfficiency"` // Efficiency floor for physical actions, 0-100
	MagicalEfficiency  float64          `json:"magicalEfficiency"`  // Efficiency floor for magical actions, 0-100
	Skills             []string         `json:"skills"`             // Skill IDs the job knows
}

// Efficiency returns the efficiency floor for the given attack type.
func (j *JobDef) Efficiency(t combat.AttackType) float64 {
	if t == combat.Magical {
		return j.MagicalEfficiency
	}
	return j.PhysicalEfficiency
}

// SymbolRune returns the symbol as a rune for rendering.
func (j *JobDef) SymbolRune() rune {
	if len(j.Symbol) == 0 {
		return '?'
	}
	return rune(j.Symbol[0])
}

// JobsFile represents the structure of jobs.json.
type JobsFile struct {
	Jobs []JobDef `json:"jobs"`
}

// LoadJobs loads job definitions from jobs.json in fsys.
func LoadJobs(fsys fs.FS) ([]JobDef, error) {
	file, err := Load[JobsFile](fsys, "jobs.json")
	if err != nil {
		return nil, err
	}
	return file.Jobs, nil
}
