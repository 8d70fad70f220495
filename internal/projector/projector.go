// Package projector folds contract events into a live TableState.
//
// Each Projection owns one goroutine that is the only writer of its state.
// Everything else (event dispatch, snapshot reads, hand fetches) posts
// messages to that goroutine's inbox, and readers only ever see copies.
package projector

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/lox/chainpoker/internal/chain"
	"github.com/lox/chainpoker/internal/deck"
	"github.com/lox/chainpoker/internal/game"
)

// Stream is a live event subscription. Synced is closed once past events
// have been replayed to the handler.
type Stream interface {
	Close()
	Err() <-chan error
	Synced() <-chan struct{}
}

// Source is the contract surface a projection reads from.
type Source interface {
	Subscribe(ctx context.Context, gameID uint64, handler func(game.Event)) (Stream, error)
	FetchBasicDetails(ctx context.Context, gameID uint64) (chain.BasicDetails, error)
	FetchPlayers(ctx context.Context, gameID uint64) ([]common.Address, error)
	FetchHand(ctx context.Context, gameID uint64) ([2]deck.Card, error)
}

type gatewaySource struct {
	*chain.Gateway
}

// FromGateway adapts a gateway to Source.
func FromGateway(gw *chain.Gateway) Source {
	return gatewaySource{gw}
}

func (s gatewaySource) Subscribe(ctx context.Context, gameID uint64, handler func(game.Event)) (Stream, error) {
	return s.Gateway.Subscribe(ctx, gameID, handler)
}

// Observer is called on the projection goroutine after each event is
// folded, with the event and the resulting state. err is non-nil when the
// event was ignored.
type Observer func(ev game.Event, state game.TableState, err error)

// Projector opens projections against a source.
type Projector struct {
	src      Source
	logger   *log.Logger
	observer Observer
}

// Option configures a Projector
type Option func(*Projector)

// WithObserver registers a callback for every folded event
func WithObserver(fn Observer) Option {
	return func(p *Projector) { p.observer = fn }
}

// New creates a projector.
func New(src Source, logger *log.Logger, opts ...Option) *Projector {
	p := &Projector{
		src:    src,
		logger: logger.WithPrefix("projector"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type eventMsg struct{ ev game.Event }

type snapshotMsg struct {
	gen  uint64
	snap game.Snapshot
}

type handMsg struct {
	gen  uint64
	hand [2]deck.Card
	err  error
}

type resetMsg struct{ gameID uint64 }

type syncedMsg struct{}

// Projection is the live state of one table.
type Projection struct {
	src      Source
	base     *log.Logger
	observer Observer

	ctx    context.Context
	cancel context.CancelFunc
	stream Stream

	inbox    chan any
	updates  chan game.TableState
	errs     chan error
	ready    chan struct{}
	current  atomic.Pointer[game.TableState]
	done     chan struct{}
	loopDone chan struct{}
	once     sync.Once

	// owned by the loop goroutine
	logger      *log.Logger
	state       game.TableState
	gen         uint64
	handPending bool
	synced      bool
	isReady     bool
	// deferred holds a snapshot that arrived before the replay finished.
	deferred *game.Snapshot
}

// Open starts projecting gameID. The subscription is established before the
// snapshot read so no event emitted after the read can be missed, and the
// events it replays rebuild the hand in progress.
func (p *Projector) Open(ctx context.Context, gameID uint64) (*Projection, error) {
	pctx, cancel := context.WithCancel(ctx)
	pr := &Projection{
		src:      p.src,
		base:     p.logger,
		logger:   p.logger.With("game", gameID),
		observer: p.observer,
		ctx:      pctx,
		cancel:   cancel,
		inbox:    make(chan any, 64),
		updates:  make(chan game.TableState, 1),
		errs:     make(chan error, 1),
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
		state:    game.NewTableState(gameID),
	}
	pr.publish()

	// Queued before subscribing so replayed events are folded after it.
	pr.inbox <- resetMsg{gameID: gameID}

	stream, err := p.src.Subscribe(pctx, gameID, pr.deliver)
	if err != nil {
		cancel()
		return nil, err
	}
	pr.stream = stream

	go pr.loop()
	go func() {
		select {
		case <-stream.Synced():
			pr.post(syncedMsg{})
		case <-pr.done:
		}
	}()
	return pr, nil
}

// Snapshot returns a copy of the current state.
func (pr *Projection) Snapshot() game.TableState {
	return pr.current.Load().Clone()
}

// Updates delivers state copies. Only the latest undelivered state is
// kept, so a slow reader skips intermediate states.
func (pr *Projection) Updates() <-chan game.TableState {
	return pr.updates
}

// Err delivers the first fatal error: a failed subscription or bootstrap read.
func (pr *Projection) Err() <-chan error {
	return pr.errs
}

// WaitReady blocks until the opening snapshot and the replayed history have
// both been applied and returns the state at that point. A bootstrap failure is returned here instead of
// on Err.
func (pr *Projection) WaitReady(ctx context.Context) (game.TableState, error) {
	select {
	case <-pr.ready:
		return pr.Snapshot(), nil
	case err := <-pr.errs:
		return game.TableState{}, err
	case <-pr.done:
		return game.TableState{}, errors.New("projection closed")
	case <-ctx.Done():
		return game.TableState{}, ctx.Err()
	}
}

// Reset discards all state and re-bootstraps for gameID. Reads still in
// flight for the previous game are dropped. History is not replayed again,
// so only events delivered after the reset are folded.
func (pr *Projection) Reset(gameID uint64) {
	pr.post(resetMsg{gameID: gameID})
}

// Close stops the projection. It is safe to call more than once.
func (pr *Projection) Close() {
	pr.once.Do(func() {
		close(pr.done)
		pr.cancel()
		if pr.stream != nil {
			pr.stream.Close()
		}
		<-pr.loopDone
	})
}

// deliver runs on the subscription's dispatch goroutine. Blocking here keeps
// events in arrival order.
func (pr *Projection) deliver(ev game.Event) {
	pr.post(eventMsg{ev: ev})
}

func (pr *Projection) post(msg any) {
	select {
	case pr.inbox <- msg:
	case <-pr.done:
	}
}

func (pr *Projection) loop() {
	defer close(pr.loopDone)

	var streamErr <-chan error
	if pr.stream != nil {
		streamErr = pr.stream.Err()
	}

	for {
		select {
		case <-pr.done:
			return

		case err, ok := <-streamErr:
			if !ok {
				streamErr = nil
				continue
			}
			pr.fail(err)
			streamErr = nil

		case msg := <-pr.inbox:
			pr.handle(msg)
		}
	}
}

func (pr *Projection) handle(msg any) {
	switch m := msg.(type) {
	case eventMsg:
		pr.applyEvent(m.ev)

	case resetMsg:
		pr.gen++
		pr.handPending = false
		pr.deferred = nil
		pr.state = game.NewTableState(m.gameID)
		pr.logger = pr.base.With("game", m.gameID)
		pr.publish()
		go pr.bootstrap(pr.gen, m.gameID, pr.logger)

	case snapshotMsg:
		if m.gen != pr.gen {
			pr.logger.Debug("Dropping stale snapshot")
			return
		}
		// History goes first so the snapshot only fills in what no event
		// has reported.
		if !pr.synced {
			pr.deferred = &m.snap
			return
		}
		pr.applySnapshot(m.snap)

	case syncedMsg:
		pr.synced = true
		pr.logger.Debug("Caught up with past events", "actions", pr.state.ActionSeq)
		if pr.deferred != nil {
			snap := *pr.deferred
			pr.deferred = nil
			pr.applySnapshot(snap)
		}

	case handMsg:
		if m.gen != pr.gen {
			pr.logger.Debug("Dropping stale hand")
			return
		}
		pr.handPending = false
		if m.err != nil {
			pr.logger.Warn("Failed to fetch hand", "error", m.err)
			pr.state = pr.state.WithHandError(m.err)
		} else {
			pr.state = pr.state.WithHand(m.hand)
		}
		pr.publish()
	}
}

func (pr *Projection) applySnapshot(snap game.Snapshot) {
	pr.state = pr.state.Bootstrap(snap)
	pr.logger.Debug("Bootstrapped", "status", pr.state.Status, "players", len(pr.state.Players))
	if pr.state.Status == game.InProgress {
		pr.fetchHand()
	}
	pr.publish()
	pr.markReady()
}

func (pr *Projection) markReady() {
	if pr.isReady || !pr.synced || !pr.state.Bootstrapped {
		return
	}
	pr.isReady = true
	close(pr.ready)
}

func (pr *Projection) applyEvent(ev game.Event) {
	prev := pr.state
	next, err := prev.Apply(ev)
	pr.state = next

	switch {
	case errors.Is(err, game.ErrForeignGame):
		pr.logger.Debug("Ignoring event for another game", "event", ev.Name(), "event_game", ev.Game())
		return
	case errors.Is(err, game.ErrGameEnded):
		pr.logger.Warn("Ignoring event after game ended", "event", ev.Name(), "ignored", next.Ignored)
	case err != nil:
		pr.logger.Warn("Rejected event", "event", ev.Name(), "error", err)
	default:
		pr.logger.Debug("Applied event", "event", ev.Name())
		if game.NeedsHand(prev, ev) {
			pr.fetchHand()
		}
	}

	pr.publish()
	if pr.observer != nil {
		pr.observer(ev, next.Clone(), err)
	}
}

func (pr *Projection) fetchHand() {
	if pr.handPending || pr.state.HandKnown() {
		return
	}
	pr.handPending = true
	gen, gameID := pr.gen, pr.state.GameID
	go func() {
		hand, err := pr.src.FetchHand(pr.ctx, gameID)
		if pr.ctx.Err() != nil {
			return
		}
		pr.post(handMsg{gen: gen, hand: hand, err: err})
	}()
}

func (pr *Projection) bootstrap(gen, gameID uint64, logger *log.Logger) {
	details, err := pr.src.FetchBasicDetails(pr.ctx, gameID)
	if err != nil {
		if pr.ctx.Err() == nil {
			pr.fail(err)
		}
		return
	}

	snap := game.Snapshot{Status: details.Status}
	players, err := pr.src.FetchPlayers(pr.ctx, gameID)
	if err != nil {
		if pr.ctx.Err() != nil {
			return
		}
		// Seats are still filled in from events, but the list is partial.
		logger.Warn("Failed to read players", "error", err)
		snap.PlayersError = err.Error()
	}
	snap.Players = players

	pr.post(snapshotMsg{gen: gen, snap: snap})
}

func (pr *Projection) publish() {
	snap := pr.state.Clone()
	pr.current.Store(&snap)

	select {
	case <-pr.updates:
	default:
	}
	select {
	case pr.updates <- snap.Clone():
	default:
	}
}

func (pr *Projection) fail(err error) {
	pr.base.Error("Projection failed", "error", err)
	select {
	case pr.errs <- err:
	default:
	}
}
