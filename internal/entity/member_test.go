package entity

import (
	"testing"

	"github.com/samdwyer/idlecrawl/internal/gamedata"
	"github.com/samdwyer/idlecrawl/internal/stats"
)

func TestNewMemberStartsFull(t *testing.T) {
	reg := gamedata.MustLoadRegistry()
	m := NewMember("p1", "Aldric", reg.Job("knight"), 1, reg)

	d := m.Derived(reg)
	if m.HP != d.MaxHP || m.MP != d.MaxMP {
		t.Errorf("NewMember() vitals = %d/%d, want %d/%d", m.HP, m.MP, d.MaxHP, d.MaxMP)
	}
	if m.Unspent != 0 {
		t.Errorf("Unspent = %d, want 0 at level 1", m.Unspent)
	}
	if !m.IsAlive() {
		t.Error("new member should be alive")
	}
}

func TestPreviewDoesNotEquip(t *testing.T) {
	reg := gamedata.MustLoadRegistry()
	m := NewMember("p1", "Aldric", reg.Job("knight"), 1, reg)

	before := m.Derived(reg)
	preview := m.Preview(reg, []string{"iron_sword"})

	if preview.PhysicalAttack != before.PhysicalAttack+8 {
		t.Errorf("Preview PhysicalAttack = %v, want %v", preview.PhysicalAttack, before.PhysicalAttack+8)
	}
	if len(m.Equipment) != 0 {
		t.Error("Preview should not modify equipment")
	}
	if m.Derived(reg) != before {
		t.Error("Preview should not change derived stats")
	}
}

func TestSkillIDsIncludesEquipment(t *testing.T) {
	reg := gamedata.MustLoadRegistry()
	m := NewMember("p3", "Orrin", reg.Job("mage"), 1, reg)
	m.Equipment = []string{"haste_ring"}

	got := m.SkillIDs(reg)
	want := []string{"fireball", "haste"}
	if len(got) != len(want) {
		t.Fatalf("SkillIDs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SkillIDs()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAllocate(t *testing.T) {
	reg := gamedata.MustLoadRegistry()
	m := NewMember("p1", "Aldric", reg.Job("knight"), 3, reg)

	if m.Unspent != 6 {
		t.Fatalf("Unspent = %d, want 6", m.Unspent)
	}
	if err := m.Allocate(stats.Attributes{Strength: 4}); err != nil {
		t.Fatalf("Allocate() error: %v", err)
	}
	if m.Unspent != 2 || m.Allocated.Strength != 4 {
		t.Errorf("after Allocate: unspent=%d str=%d, want 2 and 4", m.Unspent, m.Allocated.Strength)
	}
	if err := m.Allocate(stats.Attributes{Luck: 3}); err != ErrNotEnoughPoints {
		t.Errorf("Allocate() over budget = %v, want ErrNotEnoughPoints", err)
	}
	if err := m.Allocate(stats.Attributes{Luck: -1}); err == nil {
		t.Error("Allocate() with negative points should fail")
	}
}

func TestRosterUpdateClamps(t *testing.T) {
	reg := gamedata.MustLoadRegistry()
	roster := DefaultParty(reg)

	if len(roster.IDs()) != 4 {
		t.Fatalf("DefaultParty() has %d members, want 4", len(roster.IDs()))
	}

	roster.Update("p1", 99999, -5)
	m, ok := roster.Member("p1")
	if !ok {
		t.Fatal("p1 missing")
	}
	if m.HP != m.Derived(reg).MaxHP || m.MP != 0 {
		t.Errorf("Update() clamped to %d/%d", m.HP, m.MP)
	}

	roster.Update("nobody", 1, 1) // ignored
}

func TestRosterMemberReturnsCopy(t *testing.T) {
	reg := gamedata.MustLoadRegistry()
	roster := DefaultParty(reg)

	m, _ := roster.Member("p2")
	m.HP = 0
	m.Equipment = append(m.Equipment, "iron_sword")

	again, _ := roster.Member("p2")
	if again.HP == 0 || len(again.Equipment) != 0 {
		t.Error("Member() should return an independent copy")
	}
}

func TestRosterRestoreAll(t *testing.T) {
	reg := gamedata.MustLoadRegistry()
	roster := DefaultParty(reg)
	roster.Update("p4", 0, 0)

	roster.RestoreAll()

	m, _ := roster.Member("p4")
	d := m.Derived(reg)
	if m.HP != d.MaxHP || m.MP != d.MaxMP {
		t.Errorf("RestoreAll() left %d/%d, want %d/%d", m.HP, m.MP, d.MaxHP, d.MaxMP)
	}
}
