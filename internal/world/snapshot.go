package world

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/samdwyer/idlecrawl/internal/gamedata"
)

var modes = []Mode{
	ModeExploring, ModeEncountered, ModeBattle, ModeVictory, ModeStairs,
	ModeRetreated, ModeDefeated, ModeCompleted,
}

// Snapshot is the serializable state of a session.
type Snapshot struct {
	ID           string     `json:"id"`
	DungeonID    string     `json:"dungeonId"`
	Mode         Mode       `json:"mode"`
	Floor        *Floor     `json:"floor"`
	Visited      [][]bool   `json:"visited"`
	Position     Point      `json:"position"`
	HasKey       bool       `json:"hasKey,omitempty"`
	BossDefeated bool       `json:"bossDefeated,omitempty"`
	NPCFound     bool       `json:"npcFound,omitempty"`
	NPCRescued   bool       `json:"npcRescued,omitempty"`
	Loot         Loot       `json:"loot"`
	Party        []string   `json:"party"`
	Vitals       []Vitals   `json:"vitals,omitempty"`
	Encounter    *Encounter `json:"encounter,omitempty"`
}

// Snapshot captures the session so it can be stored and restored later.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:           s.id,
		DungeonID:    s.def.ID,
		Mode:         s.Mode(),
		Floor:        s.floor.clone(),
		Visited:      make([][]bool, len(s.visited)),
		Position:     s.pos,
		HasKey:       s.hasKey,
		BossDefeated: s.bossDefeated,
		NPCFound:     s.npcFound,
		NPCRescued:   s.npcRescued,
		Loot:         s.Loot(),
		Party:        s.Party(),
	}
	for y, row := range s.visited {
		snap.Visited[y] = append([]bool(nil), row...)
	}
	for _, v := range s.vitals {
		snap.Vitals = append(snap.Vitals, v)
	}
	slices.SortFunc(snap.Vitals, func(a, b Vitals) int { return cmp.Compare(a.ID, b.ID) })
	if e, ok := s.Encounter(); ok {
		snap.Encounter = &e
	}
	return snap
}

// Restore rebuilds a session from a snapshot of a session in def.
func Restore(ctx context.Context, snap Snapshot, def *gamedata.DungeonDef, monsters *gamedata.MonsterRegistry, opts ...Option) (*Session, error) {
	if def == nil || def.ID != snap.DungeonID {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDungeon, snap.DungeonID)
	}
	if snap.Floor == nil || len(snap.Visited) != snap.Floor.Height {
		return nil, fmt.Errorf("%w: snapshot has no usable floor", ErrInvalidFloor)
	}
	if err := snap.Floor.check(); err != nil {
		return nil, err
	}
	if snap.Encounter != nil && !snap.Floor.InBounds(snap.Encounter.Position) {
		return nil, fmt.Errorf("%w: encounter off the grid", ErrInvalidFloor)
	}
	if !snap.Floor.InBounds(snap.Position) {
		return nil, fmt.Errorf("%w: position (%d,%d)", ErrOutOfBounds, snap.Position.X, snap.Position.Y)
	}
	if len(snap.Party) == 0 {
		return nil, ErrEmptyParty
	}
	if !slices.Contains(modes, snap.Mode) {
		return nil, fmt.Errorf("%w: mode %q", ErrWrongMode, snap.Mode)
	}

	opts = append([]Option{WithID(snap.ID)}, opts...)
	s := newSession(def, monsters, string(snap.Mode), opts)
	s.floor = snap.Floor.clone()
	s.visited = make([][]bool, len(snap.Visited))
	for y, row := range snap.Visited {
		if len(row) != s.floor.Width {
			return nil, fmt.Errorf("%w: visited row %d has %d cells", ErrInvalidFloor, y, len(row))
		}
		s.visited[y] = append([]bool(nil), row...)
	}
	s.pos = snap.Position
	s.visited[s.pos.Y][s.pos.X] = true
	s.hasKey = snap.HasKey
	s.bossDefeated = snap.BossDefeated
	s.npcFound = snap.NPCFound
	s.npcRescued = snap.NPCRescued
	s.loot = Loot{Gold: snap.Loot.Gold, Items: append([]gamedata.Drop(nil), snap.Loot.Items...)}
	s.party = append([]string(nil), snap.Party...)
	for _, v := range snap.Vitals {
		s.vitals[v.ID] = v
	}
	if snap.Encounter != nil {
		e := *snap.Encounter
		e.Monsters = append([]string(nil), e.Monsters...)
		s.encounter = &e
	}

	s.logger.DebugContext(ctx, "session restored",
		"session", s.id, "mode", snap.Mode, "floor", s.floor.Number)
	return s, nil
}
