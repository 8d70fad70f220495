package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/coder/quartz"
	"github.com/lox/chainpoker/internal/client"
	"github.com/lox/chainpoker/internal/tui"
	"github.com/pterm/pterm"
)

// version is set by ldflags during build
var version = "dev"

// Globals are the flags shared by every command. Non-empty values override
// the config file.
type Globals struct {
	Config   string `short:"c" default:"chainpoker.hcl" help:"Path to HCL configuration file"`
	RPC      string `help:"RPC endpoint URL (overrides config)"`
	Contract string `help:"Poker contract address (overrides config)"`
	KeyFile  string `name:"key-file" help:"Private key file (overrides config)"`
	LogLevel string `name:"log-level" short:"l" help:"Log level (overrides config)"`
	LogFile  string `name:"log-file" help:"Log file path, - for stderr (overrides config)"`
	NoColor  bool   `name:"no-color" help:"Disable colored output"`
}

type CLI struct {
	Globals

	Version kong.VersionFlag `short:"v" help:"Show version"`
	Login   LoginCmd         `cmd:"" help:"Connect your wallet"`
	Logout  LogoutCmd        `cmd:"" help:"Forget the connected wallet"`
	Whoami  WhoamiCmd        `cmd:"" help:"Show the connected wallet"`
	Tables  TablesCmd        `cmd:"" help:"List tables on the contract"`
	Create  CreateCmd        `cmd:"" help:"Create a new table and take a seat"`
	Join    JoinCmd          `cmd:"" help:"Join a table"`
	Start   StartCmd         `cmd:"" help:"Start a pending table"`
	Act     ActCmd           `cmd:"" help:"Submit a single action"`
	Watch   WatchCmd         `cmd:"" help:"Follow a table's events"`
	Play    PlayCmd          `cmd:"" help:"Play at a table interactively"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("chainpoker"),
		kong.Description("Play Texas Hold'em against an on-chain poker contract"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}

// config loads the config file and applies flag overrides.
func (g *Globals) config() (*client.Config, error) {
	cfg, err := client.LoadConfig(g.Config)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if g.RPC != "" {
		cfg.Chain.RPCURL = g.RPC
	}
	if g.Contract != "" {
		cfg.Chain.Contract = g.Contract
	}
	if g.KeyFile != "" {
		cfg.Wallet.KeyFile = g.KeyFile
	}
	if g.LogLevel != "" {
		cfg.UI.LogLevel = g.LogLevel
	}
	if g.LogFile != "" {
		cfg.UI.LogFile = g.LogFile
	}
	if g.NoColor {
		cfg.UI.NoColor = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setup builds the shared environment. Callers must Close it.
func (g *Globals) setup() (*client.Env, error) {
	cfg, err := g.config()
	if err != nil {
		return nil, err
	}
	if cfg.UI.NoColor {
		tui.DisableColor()
		pterm.DisableColor()
	}
	return client.Setup(cfg, quartz.NewReal())
}

// signalContext is cancelled on interrupt signals.
func signalContext(env *client.Env) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			env.Logger.Info("Received signal, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
