package lifecycle

import (
	"fmt"
	"strings"
)

// State represents a tracked file's position in the management lifecycle.
type State string

const (
	StateUnclassified State = "unclassified"
	StateActive       State = "active"
	StateFiled        State = "filed"
	StateLocked       State = "locked"
	StateArchived     State = "archived"
)

var allStates = []State{
	StateUnclassified,
	StateActive,
	StateFiled,
	StateLocked,
	StateArchived,
}

var stateSet = func() map[State]struct{} {
	set := make(map[State]struct{}, len(allStates))
	for _, state := range allStates {
		set[state] = struct{}{}
	}
	return set
}()

// transitions is the legal edge set. Filing can happen straight from
// unclassified when routing decides a destination before any manual touch.
// The locked -> active edge exists for explicit unlock actions issued by an
// operator; the engine itself never takes it.
var transitions = map[State][]State{
	StateUnclassified: {StateActive, StateFiled},
	StateActive:       {StateFiled, StateArchived},
	StateFiled:        {StateLocked, StateArchived},
	StateLocked:       {StateActive},
	StateArchived:     {},
}

// InvalidTransitionError reports an attempted move along a missing edge.
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid lifecycle transition %s -> %s", e.From, e.To)
}

// AllStates returns the ordered list of known states.
func AllStates() []State {
	cp := make([]State, len(allStates))
	copy(cp, allStates)
	return cp
}

// Parse converts a string into a known State.
func Parse(value string) (State, bool) {
	normalized := State(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stateSet[normalized]
	return normalized, ok
}

// Immutable reports whether automated relocation is forbidden for the state.
func (s State) Immutable() bool {
	return s == StateFiled || s == StateLocked
}

// AutoMovable reports whether a file in this state is eligible for automatic
// moves. Only unclassified and active files are.
func (s State) AutoMovable() bool {
	return s == StateUnclassified || s == StateActive
}

// Terminal reports whether no outgoing edges exist.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

// CanTransition reports whether the edge from current to target exists.
func CanTransition(current, target State) bool {
	for _, next := range transitions[current] {
		if next == target {
			return true
		}
	}
	return false
}

// Apply validates and performs a transition, returning the new state.
func Apply(current, target State) (State, error) {
	if _, ok := stateSet[current]; !ok {
		return current, fmt.Errorf("unknown lifecycle state %q", current)
	}
	if _, ok := stateSet[target]; !ok {
		return current, fmt.Errorf("unknown lifecycle state %q", target)
	}
	if current == target {
		return current, nil
	}
	if !CanTransition(current, target) {
		return current, &InvalidTransitionError{From: current, To: target}
	}
	return target, nil
}
