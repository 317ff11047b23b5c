// Package attendance interprets the label of the attendance toggle button.
package attendance

import "strings"

// State is the attendance state shown by the toggle.
type State int

const (
	NotClockedIn State = iota
	ClockedIn
)

// clockedInMarker is contained in the toggle label once the user has signed in,
// the button then offers to sign out.
const clockedInMarker = "sign out"

func (s State) String() string {
	if s == ClockedIn {
		return "already clocked"
	}
	return "not clocked"
}

// Classify derives the attendance state from the toggle label.
func Classify(label string) State {
	if strings.Contains(strings.ToLower(strings.TrimSpace(label)), clockedInMarker) {
		return ClockedIn
	}
	return NotClockedIn
}
