package gate

import (
	"context"
	"fmt"
	"math/big"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/lox/chainpoker/internal/chain"
	"github.com/lox/chainpoker/internal/game"
)

// Tx is a submitted transaction awaiting confirmation.
type Tx interface {
	Wait(ctx context.Context) (*types.Receipt, error)
}

// Submitter sends actions to the contract.
type Submitter interface {
	SubmitAction(ctx context.Context, gameID uint64, kind game.ActionKind, amount *big.Int) (Tx, error)
	StartGame(ctx context.Context, gameID uint64, seed *big.Int) (Tx, error)
}

type gatewaySubmitter struct {
	gw *chain.Gateway
}

// FromGateway adapts a gateway to Submitter.
func FromGateway(gw *chain.Gateway) Submitter {
	return gatewaySubmitter{gw: gw}
}

func (s gatewaySubmitter) SubmitAction(ctx context.Context, gameID uint64, kind game.ActionKind, amount *big.Int) (Tx, error) {
	tx, err := s.gw.SubmitAction(ctx, gameID, kind, amount)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (s gatewaySubmitter) StartGame(ctx context.Context, gameID uint64, seed *big.Int) (Tx, error) {
	tx, err := s.gw.StartGame(ctx, gameID, seed)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// Controller runs submissions through the gate.
type Controller struct {
	gate       *Gate
	submitter  Submitter
	revalidate func(context.Context) error
	logger     *log.Logger
}

// NewController creates a controller. revalidate is called before anything
// is sent and must confirm the session still matches the live wallet; it
// may be nil.
func NewController(gate *Gate, submitter Submitter, revalidate func(context.Context) error, logger *log.Logger) *Controller {
	return &Controller{
		gate:       gate,
		submitter:  submitter,
		revalidate: revalidate,
		logger:     logger.WithPrefix("gate"),
	}
}

// Gate returns the controller's gate.
func (c *Controller) Gate() *Gate {
	return c.gate
}

// Submit sends a turn action for state's game and waits for it to be mined.
// The table state itself only changes when the resulting events arrive.
func (c *Controller) Submit(ctx context.Context, state game.TableState, kind game.ActionKind, amount *big.Int) error {
	if kind == game.Start {
		return c.Start(ctx, state, amount)
	}
	return c.run(ctx, state, kind, amount, func() (Tx, error) {
		if kind != game.Raise {
			amount = nil
		}
		return c.submitter.SubmitAction(ctx, state.GameID, kind, amount)
	})
}

// Start starts a pending game with seed.
func (c *Controller) Start(ctx context.Context, state game.TableState, seed *big.Int) error {
	if seed == nil {
		return &ValidationError{Field: "seed", Reason: "a seed is required to start a game"}
	}
	return c.run(ctx, state, game.Start, nil, func() (Tx, error) {
		return c.submitter.StartGame(ctx, state.GameID, seed)
	})
}

func (c *Controller) run(ctx context.Context, state game.TableState, kind game.ActionKind, amount *big.Int, send func() (Tx, error)) error {
	if err := c.gate.begin(state, kind, amount); err != nil {
		return err
	}

	confirmed := false
	defer func() { c.gate.finish(state, kind, confirmed) }()

	logger := c.logger.With("game", state.GameID, "action", kind)

	if c.revalidate != nil {
		if err := c.revalidate(ctx); err != nil {
			logger.Warn("Session no longer valid", "error", err)
			return err
		}
	}

	tx, err := send()
	if err != nil {
		logger.Warn("Submission failed", "error", err)
		return fmt.Errorf("%s: %w", kind, err)
	}

	if _, err := tx.Wait(ctx); err != nil {
		logger.Warn("Confirmation failed", "error", err)
		return fmt.Errorf("%s: %w", kind, err)
	}

	confirmed = true
	logger.Info("Action confirmed")
	return nil
}
