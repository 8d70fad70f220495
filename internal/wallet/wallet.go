// Package wallet provides the signing capability used for contract writes.
//
// Key handling is delegated to go-ethereum. A signer never caches its key:
// every query re-reads the wallet so a removed or locked wallet is noticed on
// the next action.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrNoWallet is returned when no usable key is available.
var ErrNoWallet = errors.New("wallet: no wallet available")

// KeyFileSigner signs with a hex-encoded private key stored in a file.
type KeyFileSigner struct {
	Path    string
	ChainID *big.Int
}

// NewKeyFileSigner creates a signer for the key at path.
func NewKeyFileSigner(path string, chainID *big.Int) *KeyFileSigner {
	return &KeyFileSigner{Path: path, ChainID: chainID}
}

// Address returns the wallet's address.
func (s *KeyFileSigner) Address(ctx context.Context) (common.Address, error) {
	key, err := s.load(ctx)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

// TransactOpts returns fresh transaction options for the wallet's key.
func (s *KeyFileSigner) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	key, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if s.ChainID == nil || s.ChainID.Sign() <= 0 {
		return nil, fmt.Errorf("wallet: invalid chain id %v", s.ChainID)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(key, s.ChainID)
	if err != nil {
		return nil, fmt.Errorf("wallet: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

func (s *KeyFileSigner) load(ctx context.Context) (*ecdsa.PrivateKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Path == "" {
		return nil, ErrNoWallet
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoWallet, err)
	}

	hex := strings.TrimPrefix(strings.TrimSpace(string(data)), "0x")
	key, err := crypto.HexToECDSA(hex)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoWallet, s.Path, err)
	}
	return key, nil
}
