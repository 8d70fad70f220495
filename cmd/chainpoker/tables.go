package main

import (
	"context"
	"fmt"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lox/chainpoker/internal/chain"
	"github.com/lox/chainpoker/internal/client"
	"github.com/lox/chainpoker/internal/game"
	"github.com/lox/chainpoker/internal/gameid"
	"github.com/lox/chainpoker/internal/session"
	"github.com/lox/chainpoker/internal/view"
	"github.com/pterm/pterm"
)

type TablesCmd struct{}

func (c *TablesCmd) Run(g *Globals) error {
	env, err := g.setup()
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	if err := env.Guard.Require(session.TableList()); err != nil {
		return err
	}

	ctx, cancel := signalContext(env)
	defer cancel()

	gw, err := env.Dial(ctx)
	if err != nil {
		return err
	}

	n, err := gw.FetchNumGames(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		pterm.Info.Println("No tables yet, create one with: chainpoker create")
		return nil
	}

	self := env.Guard.Current().Address
	data := pterm.TableData{{"Table", "Status", "Players", "Seated"}}
	failed := 0
	for id := uint64(0); id < n; id++ {
		details, err := gw.FetchBasicDetails(ctx, id)
		if err != nil {
			return err
		}
		players, err := gw.FetchPlayers(ctx, id)
		if err != nil {
			env.Logger.Warn("Failed to read players", "game", id, "error", err)
			failed++
		}
		data = append(data, tableRow(id, details.Status, players, err, self))
	}

	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}
	if failed > 0 {
		pterm.Warning.Printfln("Players could not be read for %d table(s), shown as ?", failed)
	}
	return nil
}

// tableRow is one line of the tables listing. An unreadable player list is
// shown as unknown rather than empty.
func tableRow(id uint64, status game.Status, players []common.Address, playersErr error, self common.Address) []string {
	count, seated := "?", "?"
	if playersErr == nil {
		count = fmt.Sprintf("%d", len(players))
		seated = ""
		if slices.Contains(players, self) {
			seated = "yes"
		}
	}
	return []string{gameid.Display(id), view.StatusLabel(status), count, seated}
}

type CreateCmd struct {
	SmallBlind string `name:"small-blind" help:"Small blind in wei (defaults to config)"`
	MinBuyIn   string `name:"min-buy-in" help:"Minimum buy-in in wei (defaults to config)"`
	MaxBuyIn   string `name:"max-buy-in" help:"Maximum buy-in in wei (defaults to config)"`
	BuyIn      string `name:"buy-in" help:"Your own buy-in in wei (defaults to config)"`
}

func (c *CreateCmd) Run(g *Globals) error {
	env, err := g.setup()
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	smallBlind, minBuyIn, maxBuyIn := env.Config.GameTerms()
	buyIn := env.Config.DefaultBuyIn()
	for _, o := range []struct {
		flag string
		raw  string
		dst  **big.Int
	}{
		{"small-blind", c.SmallBlind, &smallBlind},
		{"min-buy-in", c.MinBuyIn, &minBuyIn},
		{"max-buy-in", c.MaxBuyIn, &maxBuyIn},
		{"buy-in", c.BuyIn, &buyIn},
	} {
		if o.raw == "" {
			continue
		}
		v, err := client.ParseAmount(o.raw)
		if err != nil {
			return fmt.Errorf("--%s: %w", o.flag, err)
		}
		*o.dst = v
	}

	ctx, cancel := signalContext(env)
	defer cancel()

	if err := authorizeWrite(ctx, env, session.TableList()); err != nil {
		return err
	}

	gw, err := env.Dial(ctx)
	if err != nil {
		return err
	}

	tx, err := gw.CreateGame(ctx, smallBlind, minBuyIn, maxBuyIn, buyIn)
	if err != nil {
		return err
	}
	if err := waitTx(ctx, tx, "Creating table"); err != nil {
		return err
	}

	// The new table is the last one; another create racing this one can
	// make that a neighbour, so the count is only a hint.
	n, err := gw.FetchNumGames(ctx)
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Created table %s", gameid.Display(n-1))
	return nil
}

type JoinCmd struct {
	Game  string `arg:"" help:"Table to join, e.g. #1"`
	BuyIn string `name:"buy-in" help:"Buy-in in wei (defaults to config)"`
}

func (c *JoinCmd) Run(g *Globals) error {
	id, err := gameid.Parse(c.Game)
	if err != nil {
		return err
	}

	env, err := g.setup()
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	buyIn := env.Config.DefaultBuyIn()
	if c.BuyIn != "" {
		if buyIn, err = client.ParseAmount(c.BuyIn); err != nil {
			return fmt.Errorf("--buy-in: %w", err)
		}
	}

	ctx, cancel := signalContext(env)
	defer cancel()

	if err := authorizeWrite(ctx, env, session.TableDetail(id)); err != nil {
		return err
	}

	gw, err := env.Dial(ctx)
	if err != nil {
		return err
	}

	tx, err := gw.JoinGame(ctx, id, buyIn)
	if err != nil {
		return err
	}
	if err := waitTx(ctx, tx, "Joining table"); err != nil {
		return err
	}
	pterm.Success.Printfln("Joined table %s", gameid.Display(id))
	return nil
}

// authorizeWrite checks the route is open to the session and that the live
// wallet is still the one that logged in. Every value-bearing write goes
// through here first.
func authorizeWrite(ctx context.Context, env *client.Env, r session.Route) error {
	if err := env.Guard.Require(r); err != nil {
		return err
	}
	return env.Revalidate(ctx)
}

// waitTx waits for tx behind a spinner.
func waitTx(ctx context.Context, tx *chain.TxHandle, text string) error {
	spinner, _ := pterm.DefaultSpinner.Start(fmt.Sprintf("%s (%s)", text, tx.Hash.Hex()))
	_, err := tx.Wait(ctx)
	if err != nil {
		if spinner != nil {
			spinner.Fail(err.Error())
		}
		return err
	}
	if spinner != nil {
		_ = spinner.Stop()
	}
	return nil
}
