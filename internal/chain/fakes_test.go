package chain

import (
	"context"
	"errors"
	"io"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	contractAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	selfAddr     = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	otherAddr    = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

type call struct {
	method string
	from   common.Address
	value  *big.Int
	params []interface{}
}

type fakeContract struct {
	mu      sync.Mutex
	calls   []call
	results map[string][]interface{}
	callErr error
	sendErr error
	nonce   uint64
}

func newFakeContract() *fakeContract {
	return &fakeContract{results: map[string][]interface{}{}}
}

func (f *fakeContract) Call(opts *bind.CallOpts, results *[]interface{}, method string, params ...interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{method: method, from: opts.From, params: params})
	if f.callErr != nil {
		return f.callErr
	}
	*results = f.results[method]
	return nil
}

func (f *fakeContract) Transact(opts *bind.TransactOpts, method string, params ...interface{}) (*types.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{method: method, from: opts.From, value: opts.Value, params: params})
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.nonce++
	return types.NewTx(&types.LegacyTx{Nonce: f.nonce}), nil
}

func (f *fakeContract) last() call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type fakeSubscription struct {
	errs chan error
	once sync.Once
}

func (s *fakeSubscription) Err() <-chan error { return s.errs }

func (s *fakeSubscription) Unsubscribe() {
	s.once.Do(func() { close(s.errs) })
}

type fakeChain struct {
	mu       sync.Mutex
	history  []types.Log
	filter   ethereum.FilterQuery
	filtErr  error
	logs     chan<- types.Log
	sub      *fakeSubscription
	query    ethereum.FilterQuery
	subErr   error
	receipts func(n int) (*types.Receipt, error)
	polls    chan int
	n        int
}

func (f *fakeChain) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter = q
	if f.filtErr != nil {
		return nil, f.filtErr
	}
	return append([]types.Log(nil), f.history...), nil
}

func (f *fakeChain) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subErr != nil {
		return nil, f.subErr
	}
	f.query = q
	f.logs = ch
	f.sub = &fakeSubscription{errs: make(chan error, 1)}
	return f.sub, nil
}

func (f *fakeChain) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	f.n++
	n := f.n
	f.mu.Unlock()
	if f.polls != nil {
		f.polls <- n
	}
	return f.receipts(n)
}

type fakeSigner struct {
	addr common.Address
	err  error
}

func (s fakeSigner) Address(ctx context.Context) (common.Address, error) {
	return s.addr, s.err
}

func (s fakeSigner) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &bind.TransactOpts{From: s.addr}, nil
}

// fakeRPCError satisfies rpc.Error.
type fakeRPCError struct{ msg string }

func (e fakeRPCError) Error() string  { return e.msg }
func (e fakeRPCError) ErrorCode() int { return 3 }

func discardLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func newTestGateway(t *testing.T, contract Contract, chain Chain, signer Signer, opts ...Option) *Gateway {
	t.Helper()
	opts = append([]Option{WithPollInterval(time.Second)}, opts...)
	return NewGateway(contractAddr, contract, chain, signer, discardLogger(), opts...)
}

var errConnRefused = errors.New("dial tcp 127.0.0.1:8545: connect: connection refused")
