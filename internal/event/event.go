// Package event defines the notifications emitted by the combat and dungeon
// cores. Presentation layers drain them to drive sound, shake and text.
package event

// Kind identifies what happened.
type Kind string

const (
	// Battle events
	BattleStarted Kind = "battle_started"
	DamageDealt   Kind = "damage_dealt"
	Missed        Kind = "missed"
	Healed        Kind = "healed"
	Buffed        Kind = "buffed"
	ActorDefeated Kind = "actor_defeated"
	Revived       Kind = "revived"
	AwaitingInput Kind = "awaiting_input"
	FleeFailed    Kind = "flee_failed"
	Escaped       Kind = "escaped"
	Victory       Kind = "victory"
	Defeat        Kind = "defeat"

	// Dungeon events
	RoomRevealed    Kind = "room_revealed"
	GoldCollected   Kind = "gold_collected"
	ItemCollected   Kind = "item_collected"
	KeyFound        Kind = "key_found"
	TrapTriggered   Kind = "trap_triggered"
	NPCFound        Kind = "npc_found"
	NPCRescued      Kind = "npc_rescued"
	EncounterFound  Kind = "encounter_found"
	StairsReached   Kind = "stairs_reached"
	FinishAvailable Kind = "finish_available"
	FloorChanged    Kind = "floor_changed"
	SessionEnded    Kind = "session_ended"
)

// Event is a single notification. Fields that do not apply to a kind are zero.
type Event struct {
	Kind    Kind   `json:"kind"`
	Tick    int    `json:"tick,omitempty"`
	Source  string `json:"source,omitempty"`
	Target  string `json:"target,omitempty"`
	SkillID string `json:"skillId,omitempty"`
	ItemID  string `json:"itemId,omitempty"`
	Amount  int    `json:"amount,omitempty"`
	Crit    bool   `json:"crit,omitempty"`
	Message string `json:"message,omitempty"`
}

// Queue buffers events until a subscriber drains them.
type Queue struct {
	pending []Event
}

// Push appends an event.
func (q *Queue) Push(e Event) {
	q.pending = append(q.pending, e)
}

// Drain returns all pending events and empties the queue.
func (q *Queue) Drain() []Event {
	out := q.pending
	q.pending = nil
	return out
}

// Len returns the number of pending events.
func (q *Queue) Len() int { return len(q.pending) }

// Log is an append-only display log that keeps the newest entries only.
type Log struct {
	limit   int
	entries []Event
}

// NewLog creates a log holding at most limit entries. A limit <= 0 means 50.
func NewLog(limit int) *Log {
	if limit <= 0 {
		limit = 50
	}
	return &Log{limit: limit}
}

// Append adds an entry, dropping the oldest once the limit is reached.
func (l *Log) Append(e Event) {
	if len(l.entries) == l.limit {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:len(l.entries)-1]
	}
	l.entries = append(l.entries, e)
}

// Entries returns a copy of the log, oldest first.
func (l *Log) Entries() []Event {
	out := make([]Event, len(l.entries))
	copy(out, l.entries)
	return out
}

// Contains reports whether any entry has the given kind.
func (l *Log) Contains(kind Kind) bool {
	for _, e := range l.entries {
		if e.Kind == kind {
			return true
		}
	}
	return false
}
