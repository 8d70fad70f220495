// Package view turns a TableState into display-ready values. Everything here
// is a pure function of its inputs.
package view

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lox/chainpoker/internal/deck"
	"github.com/lox/chainpoker/internal/game"
	"github.com/lox/chainpoker/internal/gameid"
)

// CardView is one card as it should be drawn.
type CardView struct {
	Label    string `json:"label"`
	Image    string `json:"image"`
	Red      bool   `json:"red"`
	FaceDown bool   `json:"face_down"`
}

// SeatView is one seated player.
type SeatView struct {
	Address string      `json:"address"`
	Label   string      `json:"label"`
	Self    bool        `json:"self"`
	ToAct   bool        `json:"to_act"`
	Winner  bool        `json:"winner"`
	Cards   [2]CardView `json:"cards"`
}

// TableView is the whole table ready for rendering.
type TableView struct {
	GameID     uint64     `json:"game_id"`
	Table      string     `json:"table"`
	Status     string     `json:"status"`
	Pot        string     `json:"pot"`
	Turn       string     `json:"turn"`
	YourTurn   bool       `json:"your_turn"`
	LastAction string     `json:"last_action,omitempty"`
	Board      []CardView `json:"board"`
	Seats      []SeatView `json:"seats"`
	Winner     string     `json:"winner,omitempty"`
	HandError  string     `json:"hand_error,omitempty"`
	Ignored    uint64     `json:"ignored,omitempty"`

	// PlayersError means Seats may be missing players.
	PlayersError string `json:"players_error,omitempty"`
}

// Build derives the view of state as seen by self.
func Build(state game.TableState, self common.Address) TableView {
	v := TableView{
		GameID:    state.GameID,
		Table:     gameid.Display(state.GameID),
		Status:    StatusLabel(state.Status),
		Pot:       FormatAmount(state.Pot),
		Turn:      turnLabel(state, self),
		YourTurn:  state.Status == game.InProgress && isSelf(state.CurrentActor, self),
		Board:     make([]CardView, 0, len(state.CommunityCards)),
		HandError: state.HandError,
		Ignored:   state.Ignored,

		PlayersError: state.PlayersError,
	}

	for _, c := range state.CommunityCards {
		v.Board = append(v.Board, Card(c))
	}

	if state.LastAction.Kind != 0 {
		v.LastAction = describeAction(state.LastActor, state.LastAction, self)
	}

	if state.Ended() && state.Winner != (common.Address{}) {
		v.Winner = fmt.Sprintf("%s won %s", playerName(state.Winner, self), FormatAmount(state.Winnings))
	}

	hidden := deck.HiddenPair()
	for _, p := range state.Players {
		seat := SeatView{
			Address: p.Hex(),
			Label:   playerName(p, self),
			Self:    isSelf(p, self),
			ToAct:   state.Status == game.InProgress && p == state.CurrentActor,
			Winner:  state.Ended() && p == state.Winner,
		}
		// The contract only reveals the caller's own hole cards.
		cards := hidden
		if seat.Self {
			cards = state.SelfHand
		}
		seat.Cards = [2]CardView{Card(cards[0]), Card(cards[1])}
		v.Seats = append(v.Seats, seat)
	}

	// getMyHand only answers seated players, so a known hand places self at
	// the table even when the player list is incomplete.
	if state.HandKnown() && self != (common.Address{}) && !seated(state.Players, self) {
		v.Seats = append(v.Seats, SeatView{
			Address: self.Hex(),
			Label:   playerName(self, self),
			Self:    true,
			ToAct:   state.Status == game.InProgress && self == state.CurrentActor,
			Cards:   [2]CardView{Card(state.SelfHand[0]), Card(state.SelfHand[1])},
		})
	}

	return v
}

// Spectate derives the view for an anonymous onlooker. Every seat is face
// down and nothing specific to the local player is included.
func Spectate(state game.TableState) TableView {
	v := Build(state, common.Address{})
	v.HandError = ""
	return v
}

func seated(players []common.Address, p common.Address) bool {
	for _, q := range players {
		if q == p {
			return true
		}
	}
	return false
}

// Card renders a single card. The sentinel is always face down.
func Card(c deck.Card) CardView {
	if !c.Known() {
		return CardView{Label: "??", Image: deck.Sentinel.Image(), FaceDown: true}
	}
	return CardView{Label: c.String(), Image: c.Image(), Red: c.IsRed()}
}

// StatusLabel is the human name for a status.
func StatusLabel(s game.Status) string {
	switch s {
	case game.Pending:
		return "Waiting to start"
	case game.InProgress:
		return "In progress"
	case game.Ended:
		return "Finished"
	default:
		return s.String()
	}
}

// ActionLabel is the past-tense verb for an observed action.
func ActionLabel(kind game.ActionKind) string {
	switch kind {
	case game.Call:
		return "called"
	case game.Raise:
		return "raised"
	case game.Check:
		return "checked"
	case game.Fold:
		return "folded"
	case game.Idle:
		return "is idle"
	case game.AllIn:
		return "went all-in"
	case game.Start:
		return "started the game"
	default:
		return kind.String()
	}
}

// ShortAddress abbreviates an address as 0x1234…abcd.
func ShortAddress(addr common.Address) string {
	if addr == (common.Address{}) {
		return "nobody"
	}
	hex := addr.Hex()
	return hex[:6] + "…" + hex[len(hex)-4:]
}

// FormatAmount renders a contract amount. A missing value reads as zero.
func FormatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func turnLabel(state game.TableState, self common.Address) string {
	switch {
	case state.Status == game.Pending:
		return "Waiting for the game to start"
	case state.Ended():
		return "Game over"
	case state.CurrentActor == (common.Address{}):
		return "Waiting for the next action"
	case isSelf(state.CurrentActor, self):
		return "Your turn"
	default:
		return "Waiting for " + ShortAddress(state.CurrentActor)
	}
}

func describeAction(actor common.Address, a game.Action, self common.Address) string {
	label := playerName(actor, self) + " " + ActionLabel(a.Kind)
	switch a.Kind {
	case game.Call, game.Raise, game.AllIn:
		if a.Amount != nil && a.Amount.Sign() > 0 {
			label += " " + FormatAmount(a.Amount)
		}
	}
	return label
}

func playerName(addr, self common.Address) string {
	if isSelf(addr, self) {
		return "You"
	}
	return ShortAddress(addr)
}

func isSelf(addr, self common.Address) bool {
	return self != (common.Address{}) && addr == self
}
