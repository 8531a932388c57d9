// Package entity provides the persistent party roster.
package entity

import (
	"errors"
	"slices"

	"github.com/samdwyer/idlecrawl/internal/gamedata"
	"github.com/samdwyer/idlecrawl/internal/stats"
)

// PointsPerLevel is the number of allocation points granted per level gained.
const PointsPerLevel = 3

// ErrNotEnoughPoints is returned when an allocation exceeds the unspent pool.
var ErrNotEnoughPoints = errors.New("not enough unspent points")

// Member represents an individual party member as stored on the roster.
type Member struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	JobID     string           `json:"job"`
	Level     int              `json:"level"`
	Base      stats.Attributes `json:"base"`      // Primary attributes from the job
	Allocated stats.Attributes `json:"allocated"` // Points spent by the player
	Unspent   int              `json:"unspent"`   // Points not yet allocated
	Equipment []string         `json:"equipment"` // Equipped item IDs

	// Current resources; persisted between battles.
	HP int `json:"hp"`
	MP int `json:"mp"`
}

// NewMember creates a party member of the given job at full HP and MP.
func NewMember(id, name string, job *gamedata.JobDef, level int, reg *gamedata.Registry) *Member {
	if level < 1 {
		level = 1
	}
	m := &Member{
		ID:      id,
		Name:    name,
		Level:   level,
		Unspent: (level - 1) * PointsPerLevel,
	}
	if job != nil {
		m.JobID = job.ID
		m.Base = job.Base
	}
	d := m.Derived(reg)
	m.HP = d.MaxHP
	m.MP = d.MaxMP
	return m
}

// Derived returns the member's resolved combat stats with current equipment.
func (m *Member) Derived(reg *gamedata.Registry) stats.Derived {
	return m.Preview(reg, m.Equipment)
}

// Preview returns the stats the member would have wearing equipment.
// The member itself is not modified.
func (m *Member) Preview(reg *gamedata.Registry, equipment []string) stats.Derived {
	var bonuses []stats.Derived
	for _, id := range equipment {
		if reg == nil {
			break
		}
		if item := reg.Item(id); item != nil {
			bonuses = append(bonuses, item.Bonus)
		}
	}
	return stats.Resolve(m.Base, m.Allocated, m.Level, bonuses)
}

// SkillIDs returns the job's skills followed by skills granted by equipment,
// without duplicates.
func (m *Member) SkillIDs(reg *gamedata.Registry) []string {
	if reg == nil {
		return nil
	}
	var ids []string
	if job := reg.Job(m.JobID); job != nil {
		ids = append(ids, job.Skills...)
	}
	for _, itemID := range m.Equipment {
		if item := reg.Item(itemID); item != nil {
			for _, s := range item.Skills {
				if !slices.Contains(ids, s) {
					ids = append(ids, s)
				}
			}
		}
	}
	return ids
}

// Allocate spends unspent points on attributes.
func (m *Member) Allocate(points stats.Attributes) error {
	if points.Strength < 0 || points.Intellect < 0 || points.Dexterity < 0 ||
		points.Vitality < 0 || points.Luck < 0 {
		return errors.New("allocation must not be negative")
	}
	if points.Total() > m.Unspent {
		return ErrNotEnoughPoints
	}
	m.Allocated = m.Allocated.Plus(points)
	m.Unspent -= points.Total()
	return nil
}

// IsAlive returns true if the member has HP remaining.
func (m *Member) IsAlive() bool { return m.HP > 0 }

// SetVitals stores HP and MP clamped to the member's current maxima.
func (m *Member) SetVitals(reg *gamedata.Registry, hp, mp int) {
	d := m.Derived(reg)
	m.HP = min(max(hp, 0), d.MaxHP)
	m.MP = min(max(mp, 0), d.MaxMP)
}
