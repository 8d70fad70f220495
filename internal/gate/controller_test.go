package gate

import (
	"context"
	"errors"
	"io"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/lox/chainpoker/internal/chain"
	"github.com/lox/chainpoker/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	err  error
	wait chan struct{}
}

func (tx *fakeTx) Wait(ctx context.Context) (*types.Receipt, error) {
	if tx.wait != nil {
		<-tx.wait
	}
	if tx.err != nil {
		return nil, tx.err
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

type sent struct {
	gameID uint64
	kind   game.ActionKind
	amount *big.Int
}

type fakeSubmitter struct {
	mu      sync.Mutex
	sent    []sent
	sendErr error
	tx      *fakeTx
}

func (f *fakeSubmitter) SubmitAction(ctx context.Context, gameID uint64, kind game.ActionKind, amount *big.Int) (Tx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, sent{gameID, kind, amount})
	return f.tx, nil
}

func (f *fakeSubmitter) StartGame(ctx context.Context, gameID uint64, seed *big.Int) (Tx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, sent{gameID, game.Start, seed})
	return f.tx, nil
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newTestController(sub *fakeSubmitter, revalidate func(context.Context) error) *Controller {
	logger := log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
	return NewController(New(self, testLimits()), sub, revalidate, logger)
}

func TestSubmitConfirmed(t *testing.T) {
	sub := &fakeSubmitter{tx: &fakeTx{}}
	c := newTestController(sub, nil)
	state := stateWith(game.InProgress, self, 2)

	require.NoError(t, c.Submit(context.Background(), state, game.Raise, big.NewInt(20)))
	require.Len(t, sub.sent, 1)
	assert.Equal(t, sent{1, game.Raise, big.NewInt(20)}, sub.sent[0])

	// Nothing about the turn is advanced locally.
	assert.Equal(t, self, state.CurrentActor)
	assert.False(t, c.Gate().Legal(state, game.Check))
}

func TestSubmitDropsAmountForNonRaise(t *testing.T) {
	sub := &fakeSubmitter{tx: &fakeTx{}}
	c := newTestController(sub, nil)

	require.NoError(t, c.Submit(context.Background(), stateWith(game.InProgress, self, 1), game.Call, big.NewInt(20)))
	assert.Nil(t, sub.sent[0].amount)
}

func TestSubmitValidationSendsNothing(t *testing.T) {
	sub := &fakeSubmitter{tx: &fakeTx{}}
	c := newTestController(sub, nil)

	err := c.Submit(context.Background(), stateWith(game.InProgress, self, 1), game.Raise, big.NewInt(9))
	assert.True(t, IsValidation(err))

	err = c.Submit(context.Background(), stateWith(game.InProgress, other, 1), game.Fold, nil)
	assert.True(t, IsValidation(err))

	assert.Zero(t, sub.count())
}

func TestSubmitFailureReenablesGate(t *testing.T) {
	tests := []struct {
		name string
		sub  *fakeSubmitter
	}{
		{"rejected by wallet", &fakeSubmitter{sendErr: &chain.RejectedError{Op: "callAction", Err: errors.New("user denied")}}},
		{"reverted", &fakeSubmitter{tx: &fakeTx{err: &chain.RejectedError{Op: "callAction", Err: chain.ErrReverted}}}},
		{"provider down", &fakeSubmitter{sendErr: &chain.TransportError{Op: "callAction", Err: errors.New("refused")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController(tt.sub, nil)
			state := stateWith(game.InProgress, self, 1)

			err := c.Submit(context.Background(), state, game.Call, nil)
			require.Error(t, err)
			assert.False(t, IsValidation(err))
			assert.True(t, chain.IsRejected(err) || chain.IsTransport(err))

			assert.False(t, c.Gate().InFlight())
			assert.True(t, c.Gate().Legal(state, game.Call))
		})
	}
}

func TestSubmitRevalidatesSession(t *testing.T) {
	sub := &fakeSubmitter{tx: &fakeTx{}}
	stale := errors.New("session is stale")
	c := newTestController(sub, func(context.Context) error { return stale })
	state := stateWith(game.InProgress, self, 1)

	err := c.Submit(context.Background(), state, game.Check, nil)
	assert.ErrorIs(t, err, stale)
	assert.Zero(t, sub.count())
	assert.True(t, c.Gate().Legal(state, game.Check))
}

func TestSubmitInFlightBlocksSecond(t *testing.T) {
	tx := &fakeTx{wait: make(chan struct{})}
	sub := &fakeSubmitter{tx: tx}
	c := newTestController(sub, nil)
	state := stateWith(game.InProgress, self, 1)

	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background(), state, game.Check, nil) }()

	require.Eventually(t, c.Gate().InFlight, time.Second, time.Millisecond)
	err := c.Submit(context.Background(), state, game.Fold, nil)
	assert.True(t, IsValidation(err))

	close(tx.wait)
	require.NoError(t, <-done)
	assert.Equal(t, 1, sub.count())
}

func TestStart(t *testing.T) {
	sub := &fakeSubmitter{tx: &fakeTx{}}
	c := newTestController(sub, nil)
	pending := stateWith(game.Pending, common.Address{}, 0)

	assert.True(t, IsValidation(c.Start(context.Background(), pending, nil)))

	require.NoError(t, c.Submit(context.Background(), pending, game.Start, big.NewInt(42)))
	assert.Equal(t, sent{1, game.Start, big.NewInt(42)}, sub.sent[0])

	// Still pending until an action event is folded in.
	assert.Equal(t, game.Pending, pending.Status)

	err := c.Start(context.Background(), stateWith(game.InProgress, self, 1), big.NewInt(1))
	assert.True(t, IsValidation(err))
}
