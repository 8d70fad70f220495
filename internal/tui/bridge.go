package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/lox/chainpoker/internal/game"
	"github.com/lox/chainpoker/internal/view"
	"golang.org/x/sync/errgroup"
)

// Feed is the projection output the table view renders.
type Feed interface {
	Updates() <-chan game.TableState
	Err() <-chan error
}

// Sender is the part of tea.Program the bridge needs
type Sender interface {
	Send(msg tea.Msg)
}

// Bridge turns projection output into program messages.
type Bridge struct {
	formatter *view.EventFormatter
	lines     chan string
	logger    *log.Logger
}

// NewBridge creates a bridge that formats events with formatter.
func NewBridge(formatter *view.EventFormatter, logger *log.Logger) *Bridge {
	return &Bridge{
		formatter: formatter,
		lines:     make(chan string, 256),
		logger:    logger.WithPrefix("bridge"),
	}
}

// Observe matches projector.Observer. It runs on the projection goroutine
// and never blocks; lines are dropped when the view falls behind.
func (b *Bridge) Observe(ev game.Event, state game.TableState, err error) {
	if err != nil {
		return
	}
	line := b.formatter.Format(ev)
	if line == "" {
		return
	}
	select {
	case b.lines <- line:
	default:
		b.logger.Warn("Dropping log line, view is behind", "event", ev.Name())
	}
}

// Forward sends feed output to s until ctx ends or the feed fails.
func (b *Bridge) Forward(ctx context.Context, s Sender, feed Feed) {
	errs := feed.Err()
	for {
		select {
		case <-ctx.Done():
			return
		case state := <-feed.Updates():
			s.Send(StateMsg(state))
		case line := <-b.lines:
			s.Send(LogMsg(line))
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.Send(FatalMsg{Err: err})
			errs = nil
		}
	}
}

// Run drives model in the terminal until the user quits or ctx ends.
func Run(ctx context.Context, model *TableModel, feed Feed, bridge *Bridge, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(model, opts...)

	fctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		bridge.Forward(fctx, p, feed)
		return nil
	})
	g.Go(func() error {
		defer cancel()
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	})
	return g.Wait()
}
