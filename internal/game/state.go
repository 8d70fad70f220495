package game

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lox/chainpoker/internal/deck"
)

var (
	// ErrForeignGame is returned for an event emitted for another game id.
	ErrForeignGame = errors.New("event is for another game")

	// ErrGameEnded is returned for any event that arrives after GameEnded.
	ErrGameEnded = errors.New("game already ended")

	// ErrCardsRetracted is returned when a community card update is shorter
	// than what was already revealed.
	ErrCardsRetracted = errors.New("community cards cannot be retracted")
)

// MaxCommunityCards is the size of a full board.
const MaxCommunityCards = 5

// Snapshot is the bootstrap read taken when a table is opened.
type Snapshot struct {
	Status  Status
	Players []common.Address
	// PlayersError is set when the player list could not be read.
	PlayersError string
}

// TableState is the client's view of one game. Values are treated as
// immutable: Apply returns a new state and leaves the receiver untouched.
type TableState struct {
	GameID         uint64
	Status         Status
	CommunityCards []deck.Card
	SelfHand       [2]deck.Card
	HandError      string
	Pot            *big.Int
	CurrentActor   common.Address
	LastActor      common.Address
	LastAction     Action
	Winner         common.Address
	Winnings       *big.Int
	Players        []common.Address
	// PlayersError is set when Players may be incomplete because the
	// player list read failed.
	PlayersError string

	// Bootstrapped is set once the opening snapshot has been folded in.
	Bootstrapped bool
	// ActionSeq counts applied NextPlayerAction events.
	ActionSeq uint64
	// Ignored counts events dropped because the game had already ended.
	Ignored uint64
}

// NewTableState returns the empty state for a freshly opened table.
func NewTableState(gameID uint64) TableState {
	return TableState{
		GameID:   gameID,
		Status:   Pending,
		SelfHand: deck.HiddenPair(),
		Pot:      new(big.Int),
	}
}

// Bootstrap seeds the state from the initial snapshot read. It only sets
// fields that no event has reported yet.
func (s TableState) Bootstrap(snap Snapshot) TableState {
	next := s.Clone()
	next.Bootstrapped = true
	next.PlayersError = snap.PlayersError
	if next.Status == Pending && next.ActionSeq == 0 {
		next.Status = snap.Status
	}
	for _, p := range snap.Players {
		next.Players = addPlayer(next.Players, p)
	}
	return next
}

// HandKnown reports whether the self hand has been fetched.
func (s TableState) HandKnown() bool {
	return s.SelfHand[0].Known() && s.SelfHand[1].Known()
}

// Ended reports whether the game has finished.
func (s TableState) Ended() bool {
	return s.Status == Ended
}

// WithHand returns the state with the fetched self hand.
func (s TableState) WithHand(hand [2]deck.Card) TableState {
	next := s.Clone()
	next.SelfHand = hand
	next.HandError = ""
	return next
}

// WithHandError records a failed hand fetch. The hand stays face-down so a
// failure is never shown as an empty hand.
func (s TableState) WithHandError(err error) TableState {
	next := s.Clone()
	next.SelfHand = deck.HiddenPair()
	next.HandError = err.Error()
	return next
}

// Apply folds a single event into the state.
func (s TableState) Apply(ev Event) (TableState, error) {
	if ev.Game() != s.GameID {
		return s, fmt.Errorf("%s for game %d: %w", ev.Name(), ev.Game(), ErrForeignGame)
	}
	if s.Ended() {
		// A bootstrap read can report Ended before the GameEnded event that
		// carries the winner is delivered.
		if e, ok := ev.(GameEnded); ok && s.Winner == (common.Address{}) {
			next := s.Clone()
			next.Winner = e.Winner
			next.Winnings = copyInt(e.Winnings)
			next.Players = addPlayer(next.Players, e.Winner)
			return next, nil
		}
		next := s.Clone()
		next.Ignored++
		return next, fmt.Errorf("%s for game %d: %w", ev.Name(), ev.Game(), ErrGameEnded)
	}

	next := s.Clone()
	switch e := ev.(type) {
	case GameStateChanged:
		if len(e.Cards) < len(s.CommunityCards) {
			return s, fmt.Errorf("board of %d cards after %d: %w", len(e.Cards), len(s.CommunityCards), ErrCardsRetracted)
		}
		if len(e.Cards) > MaxCommunityCards {
			return s, fmt.Errorf("board of %d cards exceeds %d", len(e.Cards), MaxCommunityCards)
		}
		next.CommunityCards = append([]deck.Card(nil), e.Cards...)

	case NextPlayerAction:
		next.LastActor = e.Player
		next.LastAction = Action{Kind: e.Kind, Amount: copyInt(e.Amount)}
		next.CurrentActor = e.NextPlayer
		next.ActionSeq++
		if next.Status == Pending {
			next.Status = InProgress
		}
		next.Players = addPlayer(next.Players, e.Player)
		next.Players = addPlayer(next.Players, e.NextPlayer)

	case PotUpdated:
		next.Pot = copyInt(e.Pot)

	case GameEnded:
		next.Status = Ended
		next.Winner = e.Winner
		next.Winnings = copyInt(e.Winnings)
		next.CurrentActor = common.Address{}
		next.Players = addPlayer(next.Players, e.Winner)

	default:
		return s, fmt.Errorf("unsupported event %s", ev.Name())
	}

	return next, nil
}

// NeedsHand reports whether applying ev should trigger a fetch of the self
// hand. Hole cards are never pushed by events, so the first board update of
// a hand is the cue to pull them.
func NeedsHand(prev TableState, ev Event) bool {
	if _, ok := ev.(GameStateChanged); !ok {
		return false
	}
	return ev.Game() == prev.GameID && !prev.Ended() && !prev.HandKnown()
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s TableState) Clone() TableState {
	c := s
	c.CommunityCards = append([]deck.Card(nil), s.CommunityCards...)
	c.Players = append([]common.Address(nil), s.Players...)
	c.Pot = copyInt(s.Pot)
	c.Winnings = copyInt(s.Winnings)
	c.LastAction.Amount = copyInt(s.LastAction.Amount)
	return c
}

func addPlayer(players []common.Address, p common.Address) []common.Address {
	if p == (common.Address{}) {
		return players
	}
	for _, existing := range players {
		if existing == p {
			return players
		}
	}
	return append(players, p)
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
