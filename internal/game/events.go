package game

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lox/chainpoker/internal/deck"
)

// Event names as emitted by the contract
const (
	EventGameStateChanged = "GameStateChanged"
	EventNextPlayerAction = "NextPlayerAction"
	EventPotUpdated       = "PotUpdated"
	EventGameEnded        = "GameEnded"
)

// Event is a decoded contract event. Every event carries the game id it was
// emitted for; several tables share one log stream.
type Event interface {
	Game() uint64
	Name() string
}

// GameStateChanged reports the current community cards.
type GameStateChanged struct {
	GameID uint64
	Cards  []deck.Card
}

func (e GameStateChanged) Game() uint64 { return e.GameID }
func (e GameStateChanged) Name() string { return EventGameStateChanged }

// NextPlayerAction reports a player's move and who acts next.
type NextPlayerAction struct {
	GameID     uint64
	Player     common.Address
	Kind       ActionKind
	Amount     *big.Int
	NextPlayer common.Address
}

func (e NextPlayerAction) Game() uint64 { return e.GameID }
func (e NextPlayerAction) Name() string { return EventNextPlayerAction }

// PotUpdated reports the authoritative pot size.
type PotUpdated struct {
	GameID uint64
	Pot    *big.Int
}

func (e PotUpdated) Game() uint64 { return e.GameID }
func (e PotUpdated) Name() string { return EventPotUpdated }

// GameEnded reports the winner. It is terminal for the game id.
type GameEnded struct {
	GameID   uint64
	Winner   common.Address
	Winnings *big.Int
}

func (e GameEnded) Game() uint64 { return e.GameID }
func (e GameEnded) Name() string { return EventGameEnded }
