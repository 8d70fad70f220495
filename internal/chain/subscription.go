package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/lox/chainpoker/internal/deck"
	"github.com/lox/chainpoker/internal/game"
)

// Handler receives decoded events in arrival order.
type Handler func(game.Event)

// Subscription is a live event stream. Close must be called on every exit
// path; once it returns no handler call is in progress or will start.
type Subscription struct {
	sub    ethereum.Subscription
	cancel context.CancelFunc
	done   chan struct{}
	synced chan struct{}
	errs   chan error
	once   sync.Once
}

// logPos orders logs within the chain.
type logPos struct {
	block uint64
	index uint
}

func posOf(l types.Log) logPos {
	return logPos{block: l.BlockNumber, index: l.Index}
}

func (p logPos) before(q logPos) bool {
	return p.block < q.block || (p.block == q.block && p.index < q.index)
}

// Subscribe streams the contract's four table events to handler. Past logs
// from the gateway's history block onwards are replayed first, then live
// logs follow without duplicates. The log stream is shared by every game,
// so gameID only labels the subscription; filtering by game id is the
// handler's job.
func (g *Gateway) Subscribe(ctx context.Context, gameID uint64, handler Handler) (*Subscription, error) {
	query := ethereum.FilterQuery{
		Addresses: []common.Address{g.address},
		Topics:    [][]common.Hash{g.eventTopics()},
	}

	subCtx, cancel := context.WithCancel(ctx)
	logs := make(chan types.Log, 64)

	sub, err := g.chain.SubscribeFilterLogs(subCtx, query, logs)
	if err != nil {
		cancel()
		return nil, classify("subscribe", err)
	}

	s := &Subscription{
		sub:    sub,
		cancel: cancel,
		done:   make(chan struct{}),
		synced: make(chan struct{}),
		errs:   make(chan error, 1),
	}

	logger := g.logger.With("game", gameID)
	logger.Debug("Subscribed to contract events")

	go s.run(subCtx, g, logger, query, logs, handler)
	return s, nil
}

// Err delivers a single error if the underlying subscription fails.
func (s *Subscription) Err() <-chan error {
	return s.errs
}

// Synced is closed once every replayed event has been handed to the
// handler. Events after that are live.
func (s *Subscription) Synced() <-chan struct{} {
	return s.synced
}

// Close tears the subscription down and waits for dispatch to stop.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

func (s *Subscription) run(ctx context.Context, g *Gateway, logger *log.Logger, query ethereum.FilterQuery, logs <-chan types.Log, handler Handler) {
	defer close(s.done)
	defer s.sub.Unsubscribe()

	// The live subscription is already buffering, so anything at or before
	// the last replayed position is a duplicate.
	last, replayed, err := s.replay(ctx, g, logger, query, handler)
	if err != nil {
		if ctx.Err() == nil {
			logger.Error("Event replay failed", "error", err)
			s.errs <- err
		}
		return
	}
	close(s.synced)

	for {
		select {
		case <-ctx.Done():
			return

		case err, ok := <-s.sub.Err():
			if ok && err != nil {
				logger.Error("Event subscription failed", "error", err)
				s.errs <- &TransportError{Op: "subscribe", Err: err}
			}
			return

		case l := <-logs:
			if l.Removed {
				logger.Debug("Skipping log removed by reorg", "tx", l.TxHash.Hex())
				continue
			}
			if replayed && !last.before(posOf(l)) {
				continue
			}
			ev, err := g.decodeLog(l)
			if err != nil {
				logger.Warn("Skipping undecodable log", "tx", l.TxHash.Hex(), "error", err)
				continue
			}
			// Stop before dispatching if Close raced with delivery.
			if ctx.Err() != nil {
				return
			}
			handler(ev)
		}
	}
}

// replay hands every past log to handler in chain order and returns the
// position of the last one.
func (s *Subscription) replay(ctx context.Context, g *Gateway, logger *log.Logger, query ethereum.FilterQuery, handler Handler) (logPos, bool, error) {
	query.FromBlock = new(big.Int).SetUint64(g.historyFrom)
	past, err := g.chain.FilterLogs(ctx, query)
	if err != nil {
		return logPos{}, false, classify("replay", err)
	}
	sort.SliceStable(past, func(i, j int) bool {
		return posOf(past[i]).before(posOf(past[j]))
	})

	var last logPos
	seen := false
	for _, l := range past {
		if l.Removed {
			continue
		}
		last, seen = posOf(l), true
		ev, err := g.decodeLog(l)
		if err != nil {
			logger.Warn("Skipping undecodable log", "tx", l.TxHash.Hex(), "error", err)
			continue
		}
		if ctx.Err() != nil {
			return logPos{}, false, ctx.Err()
		}
		handler(ev)
	}
	logger.Debug("Replayed contract events", "logs", len(past))
	return last, seen, nil
}

func (g *Gateway) eventTopics() []common.Hash {
	names := []string{
		game.EventGameStateChanged,
		game.EventNextPlayerAction,
		game.EventPotUpdated,
		game.EventGameEnded,
	}
	topics := make([]common.Hash, len(names))
	for i, name := range names {
		topics[i] = g.abi.Events[name].ID
	}
	return topics
}

func (g *Gateway) decodeLog(l types.Log) (game.Event, error) {
	if len(l.Topics) == 0 {
		return nil, errors.New("log has no topics")
	}
	event, err := g.abi.EventByID(l.Topics[0])
	if err != nil {
		return nil, err
	}
	values, err := event.Inputs.Unpack(l.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	if len(values) != len(event.Inputs) {
		return nil, fmt.Errorf("%s: got %d values, want %d", event.Name, len(values), len(event.Inputs))
	}

	gameID, err := toGameID(values[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", event.Name, err)
	}

	switch event.Name {
	case game.EventGameStateChanged:
		raw := *abi.ConvertType(values[1], new([]uint8)).(*[]uint8)
		cards, err := deck.FromIDs(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", event.Name, err)
		}
		return game.GameStateChanged{GameID: gameID, Cards: cards}, nil

	case game.EventNextPlayerAction:
		kind := game.ActionKind(*abi.ConvertType(values[2], new(uint8)).(*uint8))
		if !kind.Observed() {
			return nil, fmt.Errorf("%s: unknown action type %d", event.Name, uint8(kind))
		}
		return game.NextPlayerAction{
			GameID:     gameID,
			Player:     *abi.ConvertType(values[1], new(common.Address)).(*common.Address),
			Kind:       kind,
			Amount:     *abi.ConvertType(values[3], new(*big.Int)).(**big.Int),
			NextPlayer: *abi.ConvertType(values[4], new(common.Address)).(*common.Address),
		}, nil

	case game.EventPotUpdated:
		return game.PotUpdated{
			GameID: gameID,
			Pot:    *abi.ConvertType(values[1], new(*big.Int)).(**big.Int),
		}, nil

	case game.EventGameEnded:
		return game.GameEnded{
			GameID:   gameID,
			Winner:   *abi.ConvertType(values[1], new(common.Address)).(*common.Address),
			Winnings: *abi.ConvertType(values[2], new(*big.Int)).(**big.Int),
		}, nil

	default:
		return nil, fmt.Errorf("unexpected event %s", event.Name)
	}
}

func toGameID(v interface{}) (uint64, error) {
	id := *abi.ConvertType(v, new(*big.Int)).(**big.Int)
	if id == nil || !id.IsUint64() {
		return 0, fmt.Errorf("game id %v out of range", id)
	}
	return id.Uint64(), nil
}
