// Package session tracks whether a wallet has been connected and guards the
// screens that need one.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNotAuthenticated is returned when no wallet has been connected.
	ErrNotAuthenticated = errors.New("session: not authenticated, run login first")

	// ErrStaleSession is returned when the live wallet no longer matches the
	// connected address.
	ErrStaleSession = errors.New("session: wallet changed since login")
)

// Session is the persisted authentication state.
type Session struct {
	Address       common.Address
	Authenticated bool
	ValidatedAt   time.Time
}

// Wallet is anything that can report the active wallet address.
type Wallet interface {
	Address(ctx context.Context) (common.Address, error)
}

// Guard owns the current session.
type Guard struct {
	store  *Store
	clock  quartz.Clock
	logger *log.Logger

	mu      sync.Mutex
	current Session
}

// NewGuard creates a guard over store.
func NewGuard(store *Store, clock quartz.Clock, logger *log.Logger) *Guard {
	return &Guard{
		store:  store,
		clock:  clock,
		logger: logger.WithPrefix("session"),
	}
}

// Load restores the persisted session.
func (g *Guard) Load() (Session, error) {
	sess, err := g.store.Load()
	if err != nil {
		return Session{}, err
	}

	g.mu.Lock()
	g.current = sess
	g.mu.Unlock()

	g.logger.Debug("Loaded session", "authenticated", sess.Authenticated, "address", sess.Address.Hex())
	return sess, nil
}

// Connect asks the wallet for its address and, only if that succeeds,
// records an authenticated session.
func (g *Guard) Connect(ctx context.Context, wallet Wallet) (Session, error) {
	addr, err := wallet.Address(ctx)
	if err != nil {
		return Session{}, fmt.Errorf("connect wallet: %w", err)
	}

	sess := Session{Address: addr, Authenticated: true, ValidatedAt: g.clock.Now()}
	if err := g.store.Save(sess); err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}

	g.mu.Lock()
	g.current = sess
	g.mu.Unlock()

	g.logger.Info("Wallet connected", "address", addr.Hex())
	return sess, nil
}

// Disconnect forgets the session.
func (g *Guard) Disconnect() error {
	if err := g.store.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	g.mu.Lock()
	g.current = Session{}
	g.mu.Unlock()

	g.logger.Info("Wallet disconnected")
	return nil
}

// Current returns the in-memory session.
func (g *Guard) Current() Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// Resolve returns the route to show for a requested route.
func (g *Guard) Resolve(r Route) Route {
	if r.Guarded() && !g.Current().Authenticated {
		g.logger.Debug("Redirecting to login", "requested", r)
		return Login()
	}
	return r
}

// Require resolves r and fails with ErrNotAuthenticated if it would redirect.
func (g *Guard) Require(r Route) error {
	if g.Resolve(r) != r {
		return ErrNotAuthenticated
	}
	return nil
}

// Revalidate checks the live wallet still matches the session. It is run
// before every submission because the wallet can change underneath a
// persisted session.
func (g *Guard) Revalidate(ctx context.Context, wallet Wallet) error {
	sess := g.Current()
	if !sess.Authenticated {
		return ErrNotAuthenticated
	}

	addr, err := wallet.Address(ctx)
	if err != nil {
		return fmt.Errorf("revalidate session: %w", err)
	}
	if addr != sess.Address {
		g.logger.Warn("Wallet changed", "session", sess.Address.Hex(), "wallet", addr.Hex())
		return fmt.Errorf("%w: logged in as %s, wallet is %s", ErrStaleSession, sess.Address.Hex(), addr.Hex())
	}

	g.mu.Lock()
	if g.current.Address == addr {
		g.current.ValidatedAt = g.clock.Now()
	}
	g.mu.Unlock()
	return nil
}
