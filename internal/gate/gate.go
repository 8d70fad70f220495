// Package gate decides which actions the local player may take and guards
// their submission.
package gate

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lox/chainpoker/internal/game"
)

// Limits bounds raise amounts. Both ends are inclusive.
type Limits struct {
	MinRaise *big.Int
	MaxRaise *big.Int
}

// Validate checks that the limits describe a non-empty range.
func (l Limits) Validate() error {
	if l.MinRaise == nil || l.MaxRaise == nil {
		return fmt.Errorf("raise limits must both be set")
	}
	if l.MinRaise.Sign() <= 0 {
		return fmt.Errorf("min raise must be positive, got %s", l.MinRaise)
	}
	if l.MinRaise.Cmp(l.MaxRaise) > 0 {
		return fmt.Errorf("min raise %s exceeds max raise %s", l.MinRaise, l.MaxRaise)
	}
	return nil
}

// order in which legal actions are offered
var offered = []game.ActionKind{game.Check, game.Call, game.Raise, game.Fold, game.Start}

// Gate tracks in-flight submissions for one player at one table.
type Gate struct {
	self   common.Address
	limits Limits

	mu        sync.Mutex
	inFlight  bool
	submitted bool
	// ActionSeq of the state the last confirmed turn action was made against
	submittedSeq uint64
}

// New creates a gate for self.
func New(self common.Address, limits Limits) *Gate {
	return &Gate{self: self, limits: limits}
}

// Self returns the address the gate acts for.
func (g *Gate) Self() common.Address {
	return g.self
}

// Limits returns the configured raise bounds.
func (g *Gate) Limits() Limits {
	return g.limits
}

// Legal reports whether kind may be submitted against state right now.
func (g *Gate) Legal(state game.TableState, kind game.ActionKind) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.legalLocked(state, kind) == nil
}

// LegalActions lists every kind that Legal accepts for state.
func (g *Gate) LegalActions(state game.TableState) []game.ActionKind {
	g.mu.Lock()
	defer g.mu.Unlock()

	var kinds []game.ActionKind
	for _, k := range offered {
		if g.legalLocked(state, k) == nil {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// InFlight reports whether a submission is awaiting confirmation.
func (g *Gate) InFlight() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight
}

// IsLegalRaise reports whether amount lies within the raise limits.
func (g *Gate) IsLegalRaise(amount *big.Int) bool {
	return g.ValidateRaise(amount) == nil
}

// ValidateRaise explains why amount is not a legal raise.
func (g *Gate) ValidateRaise(amount *big.Int) error {
	switch {
	case amount == nil:
		return &ValidationError{Field: "amount", Reason: "raise amount is required"}
	case g.limits.MinRaise != nil && amount.Cmp(g.limits.MinRaise) < 0:
		return &ValidationError{Field: "amount", Reason: fmt.Sprintf("%s is below the minimum raise of %s", amount, g.limits.MinRaise)}
	case g.limits.MaxRaise != nil && amount.Cmp(g.limits.MaxRaise) > 0:
		return &ValidationError{Field: "amount", Reason: fmt.Sprintf("%s is above the maximum raise of %s", amount, g.limits.MaxRaise)}
	case amount.Sign() <= 0:
		return &ValidationError{Field: "amount", Reason: "raise amount must be positive"}
	}
	return nil
}

// begin marks a submission in flight after checking it is legal.
func (g *Gate) begin(state game.TableState, kind game.ActionKind, amount *big.Int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.legalLocked(state, kind); err != nil {
		return err
	}
	if kind == game.Raise {
		if err := g.ValidateRaise(amount); err != nil {
			return err
		}
	}
	g.inFlight = true
	return nil
}

// finish re-enables the gate. A confirmed turn action keeps turn actions
// disabled until a newer action event is folded into the state.
func (g *Gate) finish(state game.TableState, kind game.ActionKind, confirmed bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.inFlight = false
	if confirmed && kind.Submittable() {
		g.submitted = true
		g.submittedSeq = state.ActionSeq
	}
}

func (g *Gate) legalLocked(state game.TableState, kind game.ActionKind) error {
	if g.inFlight {
		return &ValidationError{Reason: "a submission is already in flight"}
	}

	if kind == game.Start {
		if state.Status != game.Pending {
			return &ValidationError{Field: "action", Reason: fmt.Sprintf("cannot start a game that is %s", state.Status)}
		}
		return nil
	}

	if !kind.Submittable() {
		return &ValidationError{Field: "action", Reason: fmt.Sprintf("%s cannot be submitted", kind)}
	}
	if state.Status != game.InProgress {
		return &ValidationError{Field: "action", Reason: fmt.Sprintf("game is %s", state.Status)}
	}
	if g.self == (common.Address{}) || state.CurrentActor != g.self {
		return &ValidationError{Field: "action", Reason: "not your turn"}
	}
	if g.submitted && state.ActionSeq <= g.submittedSeq {
		return &ValidationError{Field: "action", Reason: "waiting for the table to move on"}
	}
	return nil
}
