package game

import (
	"math/big"
	"math/rand/v2"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lox/chainpoker/internal/deck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol = common.HexToAddress("0x00000000000000000000000000000000000ca401")
)

func mustApply(t *testing.T, s TableState, ev Event) TableState {
	t.Helper()
	next, err := s.Apply(ev)
	require.NoError(t, err)
	return next
}

func TestNewTableState(t *testing.T) {
	s := NewTableState(3)
	assert.Equal(t, uint64(3), s.GameID)
	assert.Equal(t, Pending, s.Status)
	assert.Empty(t, s.CommunityCards)
	assert.Equal(t, deck.HiddenPair(), s.SelfHand)
	assert.Equal(t, int64(0), s.Pot.Int64())
	assert.Nil(t, s.Winnings)
	assert.False(t, s.HandKnown())
}

func TestCurrentActorFollowsLastEvent(t *testing.T) {
	players := []common.Address{alice, bob, carol}
	rng := rand.New(rand.NewPCG(1, 2))

	for run := 0; run < 50; run++ {
		s := NewTableState(1)
		var lastNext common.Address
		n := 1 + rng.IntN(20)
		for i := 0; i < n; i++ {
			ev := NextPlayerAction{
				GameID:     1,
				Player:     players[rng.IntN(len(players))],
				Kind:       ActionKind(1 + rng.IntN(6)),
				Amount:     big.NewInt(int64(rng.IntN(100))),
				NextPlayer: players[rng.IntN(len(players))],
			}
			s = mustApply(t, s, ev)
			lastNext = ev.NextPlayer

			assert.Equal(t, ev.Player, s.LastActor)
			assert.Equal(t, ev.Kind, s.LastAction.Kind)
			assert.Equal(t, 0, ev.Amount.Cmp(s.LastAction.Amount))
		}
		assert.Equal(t, lastNext, s.CurrentActor)
		assert.Equal(t, uint64(n), s.ActionSeq)
		assert.Equal(t, InProgress, s.Status)
	}
}

func TestCommunityCardsNeverShrink(t *testing.T) {
	s := NewTableState(1)
	s = mustApply(t, s, GameStateChanged{GameID: 1, Cards: []deck.Card{1, 2, 3}})
	s = mustApply(t, s, GameStateChanged{GameID: 1, Cards: []deck.Card{1, 2, 3, 4}})

	next, err := s.Apply(GameStateChanged{GameID: 1, Cards: []deck.Card{1, 2, 3}})
	require.ErrorIs(t, err, ErrCardsRetracted)
	assert.Len(t, next.CommunityCards, 4)

	next, err = s.Apply(GameStateChanged{GameID: 1, Cards: nil})
	require.ErrorIs(t, err, ErrCardsRetracted)
	assert.Len(t, next.CommunityCards, 4)

	_, err = s.Apply(GameStateChanged{GameID: 1, Cards: []deck.Card{1, 2, 3, 4, 5, 6}})
	assert.Error(t, err)

	s = mustApply(t, s, GameStateChanged{GameID: 1, Cards: []deck.Card{1, 2, 3, 4, 5}})
	assert.Len(t, s.CommunityCards, 5)

	// A new game in the same slot starts from an explicit reset.
	reset := NewTableState(1)
	reset = mustApply(t, reset, GameStateChanged{GameID: 1, Cards: []deck.Card{}})
	assert.Empty(t, reset.CommunityCards)
}

func TestForeignGameIgnored(t *testing.T) {
	s := NewTableState(3)
	s = mustApply(t, s, PotUpdated{GameID: 3, Pot: big.NewInt(40)})

	next, err := s.Apply(PotUpdated{GameID: 7, Pot: big.NewInt(150)})
	require.ErrorIs(t, err, ErrForeignGame)
	assert.Equal(t, int64(40), next.Pot.Int64())

	_, err = s.Apply(NextPlayerAction{GameID: 7, Player: alice, Kind: Call, Amount: big.NewInt(1), NextPlayer: bob})
	require.ErrorIs(t, err, ErrForeignGame)
	assert.Equal(t, Pending, next.Status)
}

func TestGameEndedIsTerminal(t *testing.T) {
	winner := common.HexToAddress("0xABC")
	s := NewTableState(3)
	s = mustApply(t, s, NextPlayerAction{GameID: 3, Player: alice, Kind: Call, Amount: big.NewInt(10), NextPlayer: winner})
	s = mustApply(t, s, GameEnded{GameID: 3, Winner: winner, Winnings: big.NewInt(300)})

	assert.Equal(t, Ended, s.Status)
	assert.Equal(t, winner, s.Winner)
	assert.Equal(t, int64(300), s.Winnings.Int64())
	assert.Equal(t, common.Address{}, s.CurrentActor)

	next, err := s.Apply(PotUpdated{GameID: 3, Pot: big.NewInt(999)})
	require.ErrorIs(t, err, ErrGameEnded)
	assert.Equal(t, int64(0), next.Pot.Int64())
	assert.Equal(t, uint64(1), next.Ignored)

	next, err = next.Apply(NextPlayerAction{GameID: 3, Player: bob, Kind: Raise, Amount: big.NewInt(5), NextPlayer: alice})
	require.ErrorIs(t, err, ErrGameEnded)
	assert.Equal(t, uint64(2), next.Ignored)
	assert.Equal(t, Ended, next.Status)
}

func TestStatusOnlyMovesOnEvents(t *testing.T) {
	s := NewTableState(5).Bootstrap(Snapshot{Status: Pending})
	s = mustApply(t, s, GameStateChanged{GameID: 5, Cards: []deck.Card{}})
	assert.Equal(t, Pending, s.Status)

	s = mustApply(t, s, PotUpdated{GameID: 5, Pot: big.NewInt(30)})
	assert.Equal(t, Pending, s.Status)

	s = mustApply(t, s, NextPlayerAction{GameID: 5, Player: alice, Kind: Idle, Amount: big.NewInt(0), NextPlayer: bob})
	assert.Equal(t, InProgress, s.Status)
}

func TestBootstrap(t *testing.T) {
	s := NewTableState(2).Bootstrap(Snapshot{Status: InProgress, Players: []common.Address{alice, bob, alice}})
	assert.Equal(t, InProgress, s.Status)
	assert.Equal(t, []common.Address{alice, bob}, s.Players)
	assert.True(t, s.Bootstrapped)
	assert.False(t, NewTableState(2).Bootstrapped)

	// A late snapshot never overrides what events already reported.
	s = NewTableState(2)
	s = mustApply(t, s, NextPlayerAction{GameID: 2, Player: alice, Kind: Call, Amount: big.NewInt(1), NextPlayer: bob})
	s = s.Bootstrap(Snapshot{Status: Pending})
	assert.Equal(t, InProgress, s.Status)
	assert.Empty(t, s.PlayersError)

	s = NewTableState(2).Bootstrap(Snapshot{Status: InProgress, PlayersError: "getPlayers: timeout"})
	assert.Equal(t, "getPlayers: timeout", s.PlayersError)
	assert.Empty(t, s.Players)
}

func TestApplyDoesNotMutateReceiver(t *testing.T) {
	s := NewTableState(1)
	s = mustApply(t, s, GameStateChanged{GameID: 1, Cards: []deck.Card{1, 2, 3}})
	s = mustApply(t, s, PotUpdated{GameID: 1, Pot: big.NewInt(10)})

	next := mustApply(t, s, PotUpdated{GameID: 1, Pot: big.NewInt(20)})
	next = mustApply(t, next, GameStateChanged{GameID: 1, Cards: []deck.Card{1, 2, 3, 9}})
	next.Pot.SetInt64(1000)

	assert.Equal(t, int64(10), s.Pot.Int64())
	assert.Len(t, s.CommunityCards, 3)
}

func TestNeedsHand(t *testing.T) {
	s := NewTableState(4)
	board := GameStateChanged{GameID: 4, Cards: []deck.Card{1, 2, 3}}

	assert.True(t, NeedsHand(s, board))
	assert.False(t, NeedsHand(s, PotUpdated{GameID: 4, Pot: big.NewInt(1)}))
	assert.False(t, NeedsHand(s, GameStateChanged{GameID: 9}))

	known := s.WithHand([2]deck.Card{10, 20})
	assert.True(t, known.HandKnown())
	assert.False(t, NeedsHand(known, board))
}

func TestHandError(t *testing.T) {
	s := NewTableState(4).WithHand([2]deck.Card{10, 20})
	s = s.WithHandError(assert.AnError)
	assert.Equal(t, deck.HiddenPair(), s.SelfHand)
	assert.NotEmpty(t, s.HandError)
	assert.False(t, s.HandKnown())

	s = s.WithHand([2]deck.Card{1, 2})
	assert.Empty(t, s.HandError)
}

func TestEndedSnapshotAcceptsWinner(t *testing.T) {
	s := NewTableState(6).Bootstrap(Snapshot{Status: Ended})
	require.True(t, s.Ended())

	s = mustApply(t, s, GameEnded{GameID: 6, Winner: carol, Winnings: big.NewInt(80)})
	assert.Equal(t, carol, s.Winner)
	assert.Equal(t, int64(80), s.Winnings.Int64())
	assert.Zero(t, s.Ignored)

	next, err := s.Apply(GameEnded{GameID: 6, Winner: alice, Winnings: big.NewInt(1)})
	require.ErrorIs(t, err, ErrGameEnded)
	assert.Equal(t, carol, next.Winner)
	assert.Equal(t, uint64(1), next.Ignored)
}
