package view

import (
	"math/big"
	"testing"

	"github.com/lox/chainpoker/internal/deck"
	"github.com/lox/chainpoker/internal/game"
	"github.com/stretchr/testify/assert"
)

func TestFormatBoard(t *testing.T) {
	ef := NewEventFormatter(FormattingOptions{})
	board, err := deck.ParseCards("As Kh Qd Jc Ts")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		n    int
		want string
	}{
		{0, "*** NEW HAND ***"},
		{3, "*** FLOP *** [A♠ K♥ Q♦]"},
		{4, "*** TURN *** [A♠ K♥ Q♦] [J♣]"},
		{5, "*** RIVER *** [A♠ K♥ Q♦ J♣] [T♠]"},
	}
	for _, tt := range tests {
		got := ef.Format(game.GameStateChanged{GameID: 1, Cards: board[:tt.n]})
		assert.Equal(t, tt.want, got)
	}
}

func TestFormatAction(t *testing.T) {
	ef := NewEventFormatter(FormattingOptions{Self: self, ShowNext: true})

	got := ef.Format(game.NextPlayerAction{GameID: 1, Player: self, Kind: game.Raise, Amount: big.NewInt(40), NextPlayer: other})
	assert.Equal(t, "You: raises 40 • next: "+ShortAddress(other), got)

	got = ef.Format(game.NextPlayerAction{GameID: 1, Player: other, Kind: game.Fold, Amount: big.NewInt(0)})
	assert.Equal(t, ShortAddress(other)+": folds", got)
}

func TestFormatPotAndEnd(t *testing.T) {
	ef := NewEventFormatter(FormattingOptions{Self: self})
	assert.Equal(t, "Pot: 500", ef.Format(game.PotUpdated{GameID: 1, Pot: big.NewInt(500)}))
	assert.Equal(t, "=== Table #4 Complete ===\nWinner: You (300)",
		ef.Format(game.GameEnded{GameID: 3, Winner: self, Winnings: big.NewInt(300)}))
}
