package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

type fakeWallet struct {
	addr common.Address
	err  error
}

func (w *fakeWallet) Address(ctx context.Context) (common.Address, error) {
	return w.addr, w.err
}

func newTestGuard(t *testing.T) (*Guard, *quartz.Mock, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.json")
	clock := quartz.NewMock(t)
	logger := log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
	return NewGuard(NewStore(path), clock, logger), clock, path
}

func TestGuardRedirectsWhenUnauthenticated(t *testing.T) {
	g, _, _ := newTestGuard(t)

	_, err := g.Load()
	require.NoError(t, err)

	assert.Equal(t, Login(), g.Resolve(TableList()))
	assert.Equal(t, Login(), g.Resolve(TableDetail(3)))
	assert.Equal(t, Login(), g.Resolve(Login()))
	assert.ErrorIs(t, g.Require(TableList()), ErrNotAuthenticated)
}

func TestConnectPersistsUnderFixedKeys(t *testing.T) {
	g, clock, path := newTestGuard(t)

	sess, err := g.Connect(context.Background(), &fakeWallet{addr: alice})
	require.NoError(t, err)
	assert.True(t, sess.Authenticated)
	assert.Equal(t, clock.Now(), sess.ValidatedAt)
	assert.Equal(t, TableDetail(2), g.Resolve(TableDetail(2)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, true, raw["isAuthenticated"])
	assert.Equal(t, alice.Hex(), raw["walletAddress"])

	// A fresh guard over the same file restores the session.
	g2 := NewGuard(NewStore(path), clock, log.NewWithOptions(io.Discard, log.Options{}))
	restored, err := g2.Load()
	require.NoError(t, err)
	assert.True(t, restored.Authenticated)
	assert.Equal(t, alice, restored.Address)
}

func TestConnectFailureStaysUnauthenticated(t *testing.T) {
	g, _, path := newTestGuard(t)

	_, err := g.Connect(context.Background(), &fakeWallet{err: errors.New("no wallet")})
	require.Error(t, err)
	assert.False(t, g.Current().Authenticated)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDisconnectClears(t *testing.T) {
	g, _, path := newTestGuard(t)
	_, err := g.Connect(context.Background(), &fakeWallet{addr: alice})
	require.NoError(t, err)

	require.NoError(t, g.Disconnect())
	assert.False(t, g.Current().Authenticated)
	assert.Equal(t, Login(), g.Resolve(TableList()))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
	require.NoError(t, g.Disconnect())
}

func TestRevalidate(t *testing.T) {
	g, clock, _ := newTestGuard(t)
	wallet := &fakeWallet{addr: alice}

	assert.ErrorIs(t, g.Revalidate(context.Background(), wallet), ErrNotAuthenticated)

	_, err := g.Connect(context.Background(), wallet)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	require.NoError(t, g.Revalidate(context.Background(), wallet))
	assert.Equal(t, clock.Now(), g.Current().ValidatedAt)

	wallet.addr = bob
	assert.ErrorIs(t, g.Revalidate(context.Background(), wallet), ErrStaleSession)

	wallet.err = errors.New("locked")
	err = g.Revalidate(context.Background(), wallet)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrStaleSession)
}

func TestStoreRejectsBadAddress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"isAuthenticated": true, "walletAddress": "nope"}`), 0o600))

	_, err := NewStore(path).Load()
	assert.Error(t, err)
}

func TestRouteString(t *testing.T) {
	assert.Equal(t, "table #4", TableDetail(3).String())
	assert.False(t, Login().Guarded())
	assert.True(t, TableList().Guarded())
}
