// Package world holds the dungeon floors a party explores and the session
// state machine that walks them.
package world

// RoomType is the content of one grid cell.
type RoomType int

const (
	RoomEmpty RoomType = iota
	RoomEntrance
	RoomEnemy
	RoomBoss
	RoomKey
	RoomGold
	RoomTrap
	RoomNPC
	RoomStairs
)

var roomNames = [...]string{
	RoomEmpty:    "empty",
	RoomEntrance: "entrance",
	RoomEnemy:    "enemy",
	RoomBoss:     "boss",
	RoomKey:      "key",
	RoomGold:     "gold",
	RoomTrap:     "trap",
	RoomNPC:      "npc",
	RoomStairs:   "stairs",
}

// String returns a human-readable room name.
func (r RoomType) String() string {
	if r < 0 || int(r) >= len(roomNames) {
		return "unknown"
	}
	return roomNames[r]
}

// Rune returns the room's display character.
func (r RoomType) Rune() rune {
	switch r {
	case RoomEntrance:
		return '<'
	case RoomEnemy:
		return 'e'
	case RoomBoss:
		return 'B'
	case RoomKey:
		return 'k'
	case RoomGold:
		return '$'
	case RoomTrap:
		return '^'
	case RoomNPC:
		return '&'
	case RoomStairs:
		return '>'
	default:
		return '.'
	}
}

// IsHostile returns true if entering the room starts an encounter.
func (r RoomType) IsHostile() bool {
	return r == RoomEnemy || r == RoomBoss
}

// Consumable returns true if the room's content is taken on entry and the
// room then degrades to RoomEmpty.
func (r RoomType) Consumable() bool {
	switch r {
	case RoomGold, RoomKey, RoomTrap:
		return true
	default:
		return false
	}
}
