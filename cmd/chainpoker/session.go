package main

import (
	"context"
	"errors"

	"github.com/lox/chainpoker/internal/session"
	"github.com/pterm/pterm"
)

type LoginCmd struct{}

func (c *LoginCmd) Run(g *Globals) error {
	env, err := g.setup()
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	ctx, cancel := signalContext(env)
	defer cancel()

	sess, err := env.Guard.Connect(ctx, env.Signer)
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Connected as %s", sess.Address.Hex())
	return nil
}

type LogoutCmd struct{}

func (c *LogoutCmd) Run(g *Globals) error {
	env, err := g.setup()
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	if err := env.Guard.Disconnect(); err != nil {
		return err
	}
	pterm.Info.Println("Logged out")
	return nil
}

type WhoamiCmd struct{}

func (c *WhoamiCmd) Run(g *Globals) error {
	env, err := g.setup()
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	sess := env.Guard.Current()
	if !sess.Authenticated {
		pterm.Warning.Println("Not logged in")
		return nil
	}

	err = env.Guard.Revalidate(context.Background(), env.Signer)
	switch {
	case err == nil:
		pterm.Success.Printfln("Logged in as %s", sess.Address.Hex())
	case errors.Is(err, session.ErrStaleSession):
		pterm.Warning.Printfln("Logged in as %s, but the wallet has changed; run login again", sess.Address.Hex())
	default:
		pterm.Warning.Printfln("Logged in as %s, wallet unavailable: %v", sess.Address.Hex(), err)
	}
	return nil
}
