// Package chain is the typed gateway to the poker contract.
//
// Every call that reaches the chain is context-bound and fails with either a
// TransportError or a RejectedError. Writes return a TxHandle that must be
// waited on before the caller treats the effect as applied.
package chain

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/lox/chainpoker/internal/deck"
	"github.com/lox/chainpoker/internal/game"
)

//go:embed poker.abi.json
var pokerABI string

// ContractABI is the parsed interface of the poker contract.
var ContractABI = mustParseABI(pokerABI)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic("invalid embedded contract ABI: " + err.Error())
	}
	return parsed
}

// Contract is the part of *bind.BoundContract the gateway uses.
type Contract interface {
	Call(opts *bind.CallOpts, results *[]interface{}, method string, params ...interface{}) error
	Transact(opts *bind.TransactOpts, method string, params ...interface{}) (*types.Transaction, error)
}

// Chain is the node surface needed for events and confirmations. It is
// satisfied by *ethclient.Client.
type Chain interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Signer is the wallet capability. Address must query the wallet every
// time so a disconnected wallet is noticed.
type Signer interface {
	Address(ctx context.Context) (common.Address, error)
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
}

// BasicDetails is the result of getGameBasicDetails.
type BasicDetails struct {
	Status game.Status
}

// Option configures a Gateway
type Option func(*Gateway)

// WithClock sets the clock used for receipt polling
func WithClock(clock quartz.Clock) Option {
	return func(g *Gateway) { g.clock = clock }
}

// WithPollInterval sets how often receipts are polled
func WithPollInterval(d time.Duration) Option {
	return func(g *Gateway) { g.pollInterval = d }
}

// WithConfirmTimeout bounds how long Wait polls before giving up
func WithConfirmTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.confirmTimeout = d }
}

// WithHistoryFrom sets the first block replayed when a subscription opens
func WithHistoryFrom(block uint64) Option {
	return func(g *Gateway) { g.historyFrom = block }
}

// Gateway is a typed façade over the poker contract.
type Gateway struct {
	address        common.Address
	abi            abi.ABI
	contract       Contract
	chain          Chain
	signer         Signer
	logger         *log.Logger
	clock          quartz.Clock
	pollInterval   time.Duration
	confirmTimeout time.Duration
	historyFrom    uint64
	closer         func()
}

// NewGateway creates a gateway over an already bound contract.
func NewGateway(address common.Address, contract Contract, chain Chain, signer Signer, logger *log.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		address:      address,
		abi:          ContractABI,
		contract:     contract,
		chain:        chain,
		signer:       signer,
		logger:       logger.WithPrefix("gateway"),
		clock:        quartz.NewReal(),
		pollInterval: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Address returns the contract address
func (g *Gateway) Address() common.Address {
	return g.address
}

// Close releases the underlying node connection, if the gateway owns one.
func (g *Gateway) Close() {
	if g.closer != nil {
		g.closer()
	}
}

// FetchBasicDetails reads the game's status.
func (g *Gateway) FetchBasicDetails(ctx context.Context, gameID uint64) (BasicDetails, error) {
	out, err := g.call(ctx, common.Address{}, "getGameBasicDetails", gameIDArg(gameID))
	if err != nil {
		return BasicDetails{}, err
	}

	raw := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	if raw == nil || !raw.IsUint64() || raw.Uint64() > math.MaxUint8 || !game.Status(raw.Uint64()).Valid() {
		return BasicDetails{}, &RejectedError{Op: "getGameBasicDetails", Err: fmt.Errorf("unknown status %v", raw)}
	}
	return BasicDetails{Status: game.Status(raw.Uint64())}, nil
}

// FetchHand reads the caller's hole cards. The contract answers per
// msg.sender, so the call is made from the signer's address.
func (g *Gateway) FetchHand(ctx context.Context, gameID uint64) ([2]deck.Card, error) {
	from, err := g.signer.Address(ctx)
	if err != nil {
		return deck.HiddenPair(), &TransportError{Op: "getMyHand", Err: err}
	}

	out, err := g.call(ctx, from, "getMyHand", gameIDArg(gameID))
	if err != nil {
		return deck.HiddenPair(), err
	}

	raw := *abi.ConvertType(out[0], new([2]uint8)).(*[2]uint8)
	cards, err := deck.FromIDs(raw[:])
	if err != nil {
		return deck.HiddenPair(), &RejectedError{Op: "getMyHand", Err: err}
	}
	return [2]deck.Card{cards[0], cards[1]}, nil
}

// FetchNumGames reads how many games the contract has created.
func (g *Gateway) FetchNumGames(ctx context.Context) (uint64, error) {
	out, err := g.call(ctx, common.Address{}, "getNumGames")
	if err != nil {
		return 0, err
	}

	n := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	if !n.IsUint64() {
		return 0, &RejectedError{Op: "getNumGames", Err: fmt.Errorf("game count %s out of range", n)}
	}
	return n.Uint64(), nil
}

// FetchPlayers reads the addresses seated at a game.
func (g *Gateway) FetchPlayers(ctx context.Context, gameID uint64) ([]common.Address, error) {
	out, err := g.call(ctx, common.Address{}, "getPlayers", gameIDArg(gameID))
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]common.Address)).(*[]common.Address), nil
}

// CreateGame opens a new table. buyIn may be nil when the creator does not
// take a seat.
func (g *Gateway) CreateGame(ctx context.Context, smallBlind, minBuyIn, maxBuyIn, buyIn *big.Int) (*TxHandle, error) {
	return g.transact(ctx, buyIn, "createGame", smallBlind, minBuyIn, maxBuyIn)
}

// JoinGame takes a seat, paying buyIn as the transaction value.
func (g *Gateway) JoinGame(ctx context.Context, gameID uint64, buyIn *big.Int) (*TxHandle, error) {
	return g.transact(ctx, buyIn, "joinGame", gameIDArg(gameID))
}

// StartGame starts a pending game with the given shuffle seed.
func (g *Gateway) StartGame(ctx context.Context, gameID uint64, seed *big.Int) (*TxHandle, error) {
	return g.transact(ctx, nil, "startGame", gameIDArg(gameID), seed)
}

// SubmitAction sends a turn action. amount is only used for Raise.
func (g *Gateway) SubmitAction(ctx context.Context, gameID uint64, kind game.ActionKind, amount *big.Int) (*TxHandle, error) {
	id := gameIDArg(gameID)
	switch kind {
	case game.Check:
		return g.transact(ctx, nil, "checkAction", id)
	case game.Call:
		return g.transact(ctx, nil, "callAction", id)
	case game.Fold:
		return g.transact(ctx, nil, "foldAction", id)
	case game.Raise:
		if amount == nil || amount.Sign() <= 0 {
			return nil, fmt.Errorf("raise requires a positive amount")
		}
		return g.transact(ctx, nil, "raiseAction", id, amount)
	default:
		return nil, fmt.Errorf("%s: %w", kind, ErrUnsupportedAction)
	}
}

func (g *Gateway) call(ctx context.Context, from common.Address, method string, params ...interface{}) ([]interface{}, error) {
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx, From: from}
	if err := g.contract.Call(opts, &out, method, params...); err != nil {
		return nil, classify(method, err)
	}
	if len(out) == 0 {
		return nil, &RejectedError{Op: method, Err: errors.New("empty result")}
	}
	return out, nil
}

func (g *Gateway) transact(ctx context.Context, value *big.Int, method string, params ...interface{}) (*TxHandle, error) {
	opts, err := g.signer.TransactOpts(ctx)
	if err != nil {
		return nil, &TransportError{Op: method, Err: err}
	}
	opts.Context = ctx
	opts.Value = value

	tx, err := g.contract.Transact(opts, method, params...)
	if err != nil {
		return nil, classify(method, err)
	}

	g.logger.Info("Transaction submitted", "method", method, "tx", tx.Hash().Hex(), "from", opts.From.Hex())
	return &TxHandle{Hash: tx.Hash(), Method: method, gw: g}, nil
}

func gameIDArg(id uint64) *big.Int {
	return new(big.Int).SetUint64(id)
}
