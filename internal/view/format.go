package view

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lox/chainpoker/internal/deck"
	"github.com/lox/chainpoker/internal/game"
	"github.com/lox/chainpoker/internal/gameid"
)

// FormattingOptions controls how events are rendered as log lines
type FormattingOptions struct {
	Self     common.Address // Rendered as "You"
	ShowNext bool           // Append who acts next to action lines
}

// EventFormatter renders contract events as human-readable lines
type EventFormatter struct {
	opts FormattingOptions
}

// NewEventFormatter creates a new event formatter with the given options
func NewEventFormatter(opts FormattingOptions) *EventFormatter {
	return &EventFormatter{opts: opts}
}

// Format renders any event.
func (ef *EventFormatter) Format(ev game.Event) string {
	switch e := ev.(type) {
	case game.GameStateChanged:
		return ef.FormatBoard(e)
	case game.NextPlayerAction:
		return ef.FormatAction(e)
	case game.PotUpdated:
		return ef.FormatPot(e)
	case game.GameEnded:
		return ef.FormatGameEnded(e)
	default:
		return ev.Name()
	}
}

// FormatAction formats a player's move
func (ef *EventFormatter) FormatAction(e game.NextPlayerAction) string {
	name := playerName(e.Player, ef.opts.Self)

	var text string
	switch e.Kind {
	case game.Fold:
		text = fmt.Sprintf("%s: folds", name)
	case game.Check:
		text = fmt.Sprintf("%s: checks", name)
	case game.Call:
		text = fmt.Sprintf("%s: calls %s", name, FormatAmount(e.Amount))
	case game.Raise:
		text = fmt.Sprintf("%s: raises %s", name, FormatAmount(e.Amount))
	case game.AllIn:
		text = fmt.Sprintf("%s: goes all-in for %s", name, FormatAmount(e.Amount))
	case game.Idle:
		text = fmt.Sprintf("%s: is idle", name)
	default:
		text = fmt.Sprintf("%s: %s %s", name, e.Kind, FormatAmount(e.Amount))
	}

	if ef.opts.ShowNext && e.NextPlayer != (common.Address{}) {
		text += fmt.Sprintf(" • next: %s", playerName(e.NextPlayer, ef.opts.Self))
	}
	return text
}

// FormatBoard formats a community card update
func (ef *EventFormatter) FormatBoard(e game.GameStateChanged) string {
	cards := e.Cards
	switch len(cards) {
	case 0:
		return "*** NEW HAND ***"
	case 3:
		return fmt.Sprintf("*** FLOP *** [%s]", formatCards(cards))
	case 4:
		return fmt.Sprintf("*** TURN *** [%s] [%s]", formatCards(cards[:3]), cards[3])
	case 5:
		return fmt.Sprintf("*** RIVER *** [%s] [%s]", formatCards(cards[:4]), cards[4])
	default:
		return fmt.Sprintf("*** BOARD *** [%s]", formatCards(cards))
	}
}

// FormatPot formats a pot update
func (ef *EventFormatter) FormatPot(e game.PotUpdated) string {
	return fmt.Sprintf("Pot: %s", FormatAmount(e.Pot))
}

// FormatGameEnded formats the end of a game
func (ef *EventFormatter) FormatGameEnded(e game.GameEnded) string {
	return fmt.Sprintf("=== Table %s Complete ===\nWinner: %s (%s)",
		gameid.Display(e.GameID), playerName(e.Winner, ef.opts.Self), FormatAmount(e.Winnings))
}

func formatCards(cards []deck.Card) string {
	formatted := make([]string, len(cards))
	for i, c := range cards {
		formatted[i] = c.String()
	}
	return strings.Join(formatted, " ")
}
