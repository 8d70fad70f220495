package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/chainpoker/internal/chain"
	"github.com/lox/chainpoker/internal/session"
	"github.com/lox/chainpoker/internal/wallet"
)

// Env holds the dependencies shared by every command.
type Env struct {
	Config *Config
	Logger *log.Logger
	Signer *wallet.KeyFileSigner
	Guard  *session.Guard

	closers []func() error
}

// Setup builds the logger, signer and session guard for cfg and loads the
// persisted session. Nothing here touches the network.
func Setup(cfg *Config, clock quartz.Clock) (*Env, error) {
	logger, closeLog, err := NewLogger(cfg.UI, os.Stderr)
	if err != nil {
		return nil, err
	}

	env := &Env{
		Config:  cfg,
		Logger:  logger,
		Signer:  wallet.NewKeyFileSigner(cfg.Wallet.KeyFile, cfg.ChainID()),
		closers: []func() error{closeLog},
	}

	env.Guard = session.NewGuard(session.NewStore(cfg.Session.File), clock, logger)
	if _, err := env.Guard.Load(); err != nil {
		_ = env.Close()
		return nil, fmt.Errorf("loading session: %w", err)
	}

	logger.Debug("Client ready",
		"rpc", cfg.Chain.RPCURL,
		"contract", cfg.Chain.Contract,
		"chain_id", cfg.Chain.ChainID)
	return env, nil
}

// Dial connects a gateway using the configured RPC endpoint and signer.
func (e *Env) Dial(ctx context.Context) (*chain.Gateway, error) {
	gw, err := chain.Dial(ctx, e.Config.Chain.RPCURL, e.Config.ContractAddress(), e.Signer, e.Logger,
		chain.WithConfirmTimeout(e.Config.ConfirmTimeout()),
		chain.WithPollInterval(e.Config.PollInterval()),
		chain.WithHistoryFrom(e.Config.HistoryFrom()),
	)
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, func() error {
		gw.Close()
		return nil
	})
	return gw, nil
}

// Revalidate checks that the live wallet still matches the session. It must
// pass before any write. A wallet that cannot be read is reported as a
// transport failure, the same as an unreachable node.
func (e *Env) Revalidate(ctx context.Context) error {
	err := e.Guard.Revalidate(ctx, e.Signer)
	if errors.Is(err, wallet.ErrNoWallet) {
		return &chain.TransportError{Op: "revalidate", Err: err}
	}
	return err
}

// Close releases everything Setup and Dial opened, newest first.
func (e *Env) Close() error {
	var first error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	e.closers = nil
	return first
}

// NewLogger builds a logger at ui.LogLevel writing to ui.LogFile. An empty
// file or "-" logs to fallback instead.
func NewLogger(ui UISettings, fallback io.Writer) (*log.Logger, func() error, error) {
	level, err := log.ParseLevel(ui.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level: %w", err)
	}

	w := fallback
	closer := func() error { return nil }
	if ui.LogFile != "" && ui.LogFile != "-" {
		if dir := filepath.Dir(ui.LogFile); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("creating log directory: %w", err)
			}
		}
		f, err := os.OpenFile(ui.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
		closer = f.Close
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
	})
	return logger, closer, nil
}
