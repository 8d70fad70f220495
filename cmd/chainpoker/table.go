package main

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lox/chainpoker/internal/chain"
	"github.com/lox/chainpoker/internal/client"
	"github.com/lox/chainpoker/internal/game"
	"github.com/lox/chainpoker/internal/gameid"
	"github.com/lox/chainpoker/internal/gate"
	"github.com/lox/chainpoker/internal/projector"
	"github.com/lox/chainpoker/internal/randutil"
	"github.com/lox/chainpoker/internal/session"
	"github.com/pterm/pterm"
)

// table is an open projection of one game plus a controller for acting on it.
type table struct {
	id   uint64
	self common.Address
	gw   *chain.Gateway
	proj *projector.Projection
	ctrl *gate.Controller
}

// openTable checks the session for the table route, connects, and starts
// projecting game id. The gateway is closed with env.
func openTable(ctx context.Context, env *client.Env, id uint64, opts ...projector.Option) (*table, error) {
	if err := env.Guard.Require(session.TableDetail(id)); err != nil {
		return nil, err
	}
	self := env.Guard.Current().Address

	gw, err := env.Dial(ctx)
	if err != nil {
		return nil, err
	}

	proj, err := projector.New(projector.FromGateway(gw), env.Logger, opts...).Open(ctx, id)
	if err != nil {
		return nil, err
	}

	ctrl := gate.NewController(gate.New(self, env.Config.RaiseLimits()), gate.FromGateway(gw), env.Revalidate, env.Logger)

	return &table{id: id, self: self, gw: gw, proj: proj, ctrl: ctrl}, nil
}

func (t *table) Close() {
	t.proj.Close()
}

// waitUntil returns the first state for which cond holds.
func (t *table) waitUntil(ctx context.Context, cond func(game.TableState) bool) (game.TableState, error) {
	state, err := t.proj.WaitReady(ctx)
	if err != nil {
		return state, err
	}
	for !cond(state) {
		select {
		case state = <-t.proj.Updates():
		case err := <-t.proj.Err():
			return state, err
		case <-ctx.Done():
			return state, ctx.Err()
		}
	}
	return state, nil
}

type StartCmd struct {
	Game string `arg:"" help:"Table to start, e.g. #1"`
	Seed string `help:"Deterministic shuffle seed (random if omitted)"`
}

func (c *StartCmd) Run(g *Globals) error {
	id, err := gameid.Parse(c.Game)
	if err != nil {
		return err
	}

	var seed *big.Int
	if c.Seed != "" {
		n, err := strconv.ParseInt(c.Seed, 10, 64)
		if err != nil {
			return fmt.Errorf("--seed: %w", err)
		}
		seed = randutil.ShuffleSeed(n)
	} else if seed, err = randutil.RandomShuffleSeed(); err != nil {
		return err
	}

	env, err := g.setup()
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	ctx, cancel := signalContext(env)
	defer cancel()

	t, err := openTable(ctx, env, id)
	if err != nil {
		return err
	}
	defer t.Close()

	state, err := t.proj.WaitReady(ctx)
	if err != nil {
		return err
	}

	spinner, _ := pterm.DefaultSpinner.Start("Starting table " + gameid.Display(id))
	if err := t.ctrl.Start(ctx, state, seed); err != nil {
		if spinner != nil {
			spinner.Fail(err.Error())
		}
		return err
	}
	if spinner != nil {
		spinner.Success("Started table " + gameid.Display(id))
	}
	return nil
}

type ActCmd struct {
	Game    string        `arg:"" help:"Table to act at, e.g. #1"`
	Action  string        `arg:"" help:"check, call, raise or fold"`
	Amount  string        `arg:"" optional:"" help:"Raise amount in wei"`
	Timeout time.Duration `default:"5m" help:"How long to wait for your turn"`
}

func (c *ActCmd) Run(g *Globals) error {
	id, err := gameid.Parse(c.Game)
	if err != nil {
		return err
	}
	kind, err := game.ParseActionKind(c.Action)
	if err != nil {
		return err
	}
	if !kind.Submittable() {
		return fmt.Errorf("%s is not a turn action, use the %s command", kind, kind)
	}

	var amount *big.Int
	if kind == game.Raise {
		if c.Amount == "" {
			return &gate.ValidationError{Field: "amount", Reason: "usage: act <table> raise <amount>"}
		}
		if amount, err = client.ParseAmount(c.Amount); err != nil {
			return err
		}
	}

	env, err := g.setup()
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	if kind == game.Raise {
		if err := gate.New(common.Address{}, env.Config.RaiseLimits()).ValidateRaise(amount); err != nil {
			return err
		}
	}

	ctx, cancel := signalContext(env)
	defer cancel()

	t, err := openTable(ctx, env, id)
	if err != nil {
		return err
	}
	defer t.Close()

	waitCtx, waitCancel := context.WithTimeout(ctx, c.Timeout)
	defer waitCancel()

	pterm.Info.Printfln("Waiting for your turn at %s (up to %s)", gameid.Display(id), c.Timeout)
	state, err := t.waitUntil(waitCtx, func(s game.TableState) bool {
		return s.Ended() || t.ctrl.Gate().Legal(s, kind)
	})
	if err != nil {
		return fmt.Errorf("waiting for your turn: %w", err)
	}
	if state.Ended() {
		return fmt.Errorf("table %s has finished", gameid.Display(id))
	}

	if err := t.ctrl.Submit(ctx, state, kind, amount); err != nil {
		return err
	}
	pterm.Success.Printfln("%s confirmed", kind)
	return nil
}
