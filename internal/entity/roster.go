package entity

import (
	"sync"

	"github.com/samdwyer/idlecrawl/internal/gamedata"
)

// Roster is an in-memory party roster keyed by member ID.
type Roster struct {
	mu      sync.RWMutex
	reg     *gamedata.Registry
	order   []string
	members map[string]*Member
}

// NewRoster creates a roster holding the given members in order.
func NewRoster(reg *gamedata.Registry, members ...*Member) *Roster {
	r := &Roster{
		reg:     reg,
		members: make(map[string]*Member, len(members)),
	}
	for _, m := range members {
		r.Add(m)
	}
	return r
}

// Add inserts or replaces a member.
func (r *Roster) Add(m *Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[m.ID]; !ok {
		r.order = append(r.order, m.ID)
	}
	r.members[m.ID] = m
}

// Member returns a copy of the member with the given ID.
func (r *Roster) Member(id string) (*Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[id]
	if !ok {
		return nil, false
	}
	cp := *m
	cp.Equipment = append([]string(nil), m.Equipment...)
	return &cp, true
}

// Update writes back HP and MP for a member. Unknown IDs are ignored.
func (r *Roster) Update(id string, hp, mp int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.members[id]; ok {
		m.SetVitals(r.reg, hp, mp)
	}
}

// IDs returns member IDs in roster order.
func (r *Roster) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// RestoreAll refills every member's HP and MP.
func (r *Roster) RestoreAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		d := m.Derived(r.reg)
		m.HP, m.MP = d.MaxHP, d.MaxMP
	}
}

// DefaultParty builds one member of every job in the registry.
func DefaultParty(reg *gamedata.Registry) *Roster {
	roster := NewRoster(reg)
	for _, p := range []struct{ id, name, job string }{
		{"p1", "Aldric", "knight"},
		{"p2", "Vesna", "rogue"},
		{"p3", "Orrin", "mage"},
		{"p4", "Maeve", "cleric"},
	} {
		job := reg.Job(p.job)
		if job == nil {
			continue
		}
		roster.Add(NewMember(p.id, p.name, job, 1, reg))
	}
	return roster
}
