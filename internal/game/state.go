// Package game wires the battle and dungeon cores into a playable terminal
// loop and the command engine behind it.
package game

// State represents what the terminal loop is showing and accepting.
type State int

const (
	// StateExplore moves the party around the floor.
	StateExplore State = iota
	// StateCombat shows a running battle; ticks drive it.
	StateCombat
	// StateInspect shows the party overlay and suspends any battle.
	StateInspect
	// StateEnded shows the result of a closed session.
	StateEnded
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateExplore:
		return "explore"
	case StateCombat:
		return "combat"
	case StateInspect:
		return "inspect"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}
