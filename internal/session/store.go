package session

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lox/chainpoker/internal/fileutil"
)

// record is the on-disk form. The key names are fixed.
type record struct {
	IsAuthenticated bool   `json:"isAuthenticated"`
	WalletAddress   string `json:"walletAddress,omitempty"`
}

// Store persists the session to a JSON file.
type Store struct {
	path string
}

// NewStore creates a store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the stored session. A missing file is an unauthenticated
// session.
func (s *Store) Load() (Session, error) {
	var rec record
	found, err := fileutil.ReadJSON(s.path, &rec)
	if err != nil {
		return Session{}, err
	}
	if !found || !rec.IsAuthenticated {
		return Session{}, nil
	}
	if !common.IsHexAddress(rec.WalletAddress) {
		return Session{}, fmt.Errorf("session file %s: invalid wallet address %q", s.path, rec.WalletAddress)
	}
	return Session{
		Address:       common.HexToAddress(rec.WalletAddress),
		Authenticated: true,
	}, nil
}

// Save writes sess atomically.
func (s *Store) Save(sess Session) error {
	rec := record{IsAuthenticated: sess.Authenticated}
	if sess.Authenticated {
		rec.WalletAddress = sess.Address.Hex()
	}
	return fileutil.WriteJSONAtomic(s.path, rec, 0o600)
}

// Clear removes the stored session.
func (s *Store) Clear() error {
	return fileutil.Remove(s.path)
}
