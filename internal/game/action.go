package game

import (
	"fmt"
	"math/big"
	"strings"
)

// ActionKind is the contract's action enumeration. The zero value is not a
// valid action.
type ActionKind uint8

const (
	Call  ActionKind = 1
	Raise ActionKind = 2
	Check ActionKind = 3
	Fold  ActionKind = 4
	Idle  ActionKind = 5
	AllIn ActionKind = 6

	// Start is not part of the contract enumeration; it lets the action
	// gate treat starting a pending game as one more gated action.
	Start ActionKind = 0xff
)

func (a ActionKind) String() string {
	switch a {
	case Call:
		return "call"
	case Raise:
		return "raise"
	case Check:
		return "check"
	case Fold:
		return "fold"
	case Idle:
		return "idle"
	case AllIn:
		return "allin"
	case Start:
		return "start"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

// Observed reports whether the kind can appear in a NextPlayerAction event.
func (a ActionKind) Observed() bool {
	return a >= Call && a <= AllIn
}

// Submittable reports whether the local player can send this kind as a turn
// action.
func (a ActionKind) Submittable() bool {
	switch a {
	case Check, Call, Raise, Fold:
		return true
	}
	return false
}

// ParseActionKind maps user input (full names and the usual one-letter
// shortcuts) to a submittable kind or Start.
func ParseActionKind(s string) (ActionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "c", "call":
		return Call, nil
	case "r", "raise":
		return Raise, nil
	case "k", "check":
		return Check, nil
	case "f", "fold":
		return Fold, nil
	case "s", "start":
		return Start, nil
	default:
		return 0, fmt.Errorf("unknown action: %q", s)
	}
}

// Action is the most recently observed move at the table.
type Action struct {
	Kind   ActionKind
	Amount *big.Int
}

// Status is the game lifecycle as reported by the contract.
type Status uint8

const (
	Pending Status = iota
	InProgress
	Ended
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case InProgress:
		return "in progress"
	case Ended:
		return "ended"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s <= Ended
}
