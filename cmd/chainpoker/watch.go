package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/lox/chainpoker/internal/feed"
	"github.com/lox/chainpoker/internal/game"
	"github.com/lox/chainpoker/internal/gameid"
	"github.com/lox/chainpoker/internal/projector"
	"github.com/lox/chainpoker/internal/randutil"
	"github.com/lox/chainpoker/internal/tui"
	"github.com/lox/chainpoker/internal/view"
	"github.com/pterm/pterm"
	"golang.org/x/sync/errgroup"
)

type WatchCmd struct {
	Game   string `arg:"" help:"Table to watch, e.g. #1"`
	Listen string `help:"Also serve a spectator websocket feed on this address, e.g. :8081"`
	Plain  bool   `help:"Print event lines only, without the table panel"`
}

func (c *WatchCmd) Run(g *Globals) error {
	id, err := gameid.Parse(c.Game)
	if err != nil {
		return err
	}

	env, err := g.setup()
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	ctx, cancel := signalContext(env)
	defer cancel()

	self := env.Guard.Current().Address
	formatter := view.NewEventFormatter(view.FormattingOptions{Self: self, ShowNext: true})

	var hub *feed.Hub
	if c.Listen != "" {
		hub = feed.NewHub(env.Logger)
	}

	observe := func(ev game.Event, state game.TableState, err error) {
		if err != nil {
			return
		}
		line := formatter.Format(ev)
		if line == "" {
			return
		}
		pterm.Println(line)
		if hub != nil {
			hub.PublishEvent(ev, line)
		}
	}

	t, err := openTable(ctx, env, id, projector.WithObserver(observe))
	if err != nil {
		return err
	}
	defer t.Close()

	grp, gctx := errgroup.WithContext(ctx)
	if hub != nil {
		grp.Go(func() error {
			return hub.Serve(gctx, c.Listen)
		})
	}
	grp.Go(func() error {
		return c.follow(gctx, t, hub)
	})

	err = grp.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// follow renders every state update until the table ends or ctx is done.
func (c *WatchCmd) follow(ctx context.Context, t *table, hub *feed.Hub) error {
	state, err := t.proj.WaitReady(ctx)
	if err != nil {
		return err
	}
	pterm.Info.Printfln("Watching table %s", gameid.Display(t.id))

	for {
		if hub != nil {
			hub.Publish(state)
		}
		if !c.Plain {
			printTable(view.Build(state, t.self))
		}
		if state.Ended() {
			return nil
		}

		select {
		case state = <-t.proj.Updates():
		case err := <-t.proj.Err():
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// printTable draws a table view as a pterm box.
func printTable(v view.TableView) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", v.Status)
	fmt.Fprintf(&b, "Pot:   %s\n", v.Pot)
	fmt.Fprintf(&b, "Board: %s\n", cardLabels(v.Board))
	fmt.Fprintf(&b, "Turn:  %s\n", v.Turn)
	if v.LastAction != "" {
		fmt.Fprintf(&b, "Last:  %s\n", v.LastAction)
	}
	for _, seat := range v.Seats {
		marker := " "
		switch {
		case seat.Winner:
			marker = "*"
		case seat.ToAct:
			marker = ">"
		}
		label := seat.Label
		if seat.Self {
			label = pterm.LightCyan(label)
		}
		fmt.Fprintf(&b, "%s %s %s\n", marker, label, cardLabels(seat.Cards[:]))
	}
	if v.Winner != "" {
		b.WriteString(pterm.LightGreen(v.Winner) + "\n")
	}
	if v.HandError != "" {
		b.WriteString(pterm.LightRed("Hand unavailable: "+v.HandError) + "\n")
	}
	if v.PlayersError != "" {
		b.WriteString(pterm.LightRed("Player list incomplete: "+v.PlayersError) + "\n")
	}

	pterm.DefaultBox.
		WithTitle(pterm.LightYellow("|TABLE " + v.Table + "|")).
		WithTitleTopCenter().
		WithHorizontalPadding(2).
		Println(strings.TrimRight(b.String(), "\n"))
}

func cardLabels(cards []view.CardView) string {
	if len(cards) == 0 {
		return "-"
	}
	labels := make([]string, len(cards))
	for i, c := range cards {
		labels[i] = c.Label
	}
	return "[" + strings.Join(labels, " ") + "]"
}

type PlayCmd struct {
	Game string `arg:"" help:"Table to play at, e.g. #1"`
}

func (c *PlayCmd) Run(g *Globals) error {
	id, err := gameid.Parse(c.Game)
	if err != nil {
		return err
	}

	env, err := g.setup()
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	ctx, cancel := signalContext(env)
	defer cancel()

	self := env.Guard.Current().Address
	bridge := tui.NewBridge(view.NewEventFormatter(view.FormattingOptions{Self: self, ShowNext: true}), env.Logger)

	t, err := openTable(ctx, env, id, projector.WithObserver(bridge.Observe))
	if err != nil {
		return err
	}
	defer t.Close()

	model := tui.NewTableModel(ctx, t.ctrl, randutil.RandomShuffleSeed, env.Logger)
	env.Logger.Info("Starting table view", "game", id, "self", self.Hex())
	return tui.Run(ctx, model, t.proj, bridge)
}
