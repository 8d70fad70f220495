// Package game holds the client-side model of an on-chain poker table.
//
// The contract owns every rule. This package only mirrors what the contract
// reports: TableState is a point-in-time snapshot, and Apply folds one
// decoded contract event into a new snapshot without mutating the old one.
//
// # Folding events
//
//	state := game.NewTableState(3)
//	state, err := state.Apply(game.PotUpdated{GameID: 3, Pot: big.NewInt(150)})
//
// Apply never guesses. Events for another game id, events after GameEnded,
// and community-card updates that would retract cards are rejected with
// ErrForeignGame, ErrGameEnded and ErrCardsRetracted respectively, and the
// returned state is the input state (with the Ignored counter bumped for
// post-end events).
//
// Status moves from Pending to InProgress only when the first
// NextPlayerAction arrives; GameStateChanged and PotUpdated never change it.
package game
