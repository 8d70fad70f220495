package tui

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/lox/chainpoker/internal/chain"
	"github.com/lox/chainpoker/internal/game"
	"github.com/lox/chainpoker/internal/gate"
	"github.com/lox/chainpoker/internal/view"
)

// StateMsg carries a new table state from the projection.
type StateMsg game.TableState

// LogMsg appends a line to the table log.
type LogMsg string

// FatalMsg reports an error that makes the view unusable.
type FatalMsg struct{ Err error }

// QuitMsg is a custom message to signal quit
type QuitMsg struct{}

type submitResultMsg struct {
	kind game.ActionKind
	err  error
}

// SeedFunc supplies the shuffle seed when starting a game.
type SeedFunc func() (*big.Int, error)

// Command is one parsed line of user input.
type Command struct {
	Kind   game.ActionKind
	Amount *big.Int
	Quit   bool
}

// ParseInput turns "raise 40", "c", "start" or "quit" into a Command.
func ParseInput(input string) (Command, error) {
	parts := strings.Fields(strings.ToLower(input))
	if len(parts) == 0 {
		return Command{}, fmt.Errorf("enter an action")
	}
	if parts[0] == "quit" || parts[0] == "q" || parts[0] == "exit" {
		return Command{Quit: true}, nil
	}

	kind, err := game.ParseActionKind(parts[0])
	if err != nil {
		return Command{}, err
	}
	cmd := Command{Kind: kind}

	if kind == game.Raise {
		if len(parts) < 2 {
			return Command{}, &gate.ValidationError{Field: "amount", Reason: "usage: raise <amount>"}
		}
		amount, ok := new(big.Int).SetString(parts[1], 10)
		if !ok {
			return Command{}, &gate.ValidationError{Field: "amount", Reason: fmt.Sprintf("%q is not a number", parts[1])}
		}
		cmd.Amount = amount
	}
	return cmd, nil
}

// TableModel is the Bubble Tea model for one table
type TableModel struct {
	ctx        context.Context
	controller *gate.Controller
	self       common.Address
	seed       SeedFunc
	logger     *log.Logger

	// UI components
	logViewport viewport.Model
	actionInput textinput.Model

	// State
	state       game.TableState
	haveState   bool
	gameLog     []string
	status      string
	fatal       error
	submitting  bool
	quitting    bool
	focusedPane int // 0 = log, 1 = input

	// Dimensions
	width       int
	height      int
	initialized bool

	// Test mode
	testMode    bool
	capturedLog []string
}

// NewTableModel creates the interactive table view.
func NewTableModel(ctx context.Context, controller *gate.Controller, seed SeedFunc, logger *log.Logger) *TableModel {
	return NewTableModelWithOptions(ctx, controller, seed, logger, false)
}

// NewTableModelWithOptions creates a table view with test mode option
func NewTableModelWithOptions(ctx context.Context, controller *gate.Controller, seed SeedFunc, logger *log.Logger, testMode bool) *TableModel {
	vp := viewport.New(10, 5)
	vp.SetContent("")

	ti := textinput.New()
	ti.Placeholder = "check, call, raise 40, fold, start"
	ti.Focus()
	ti.CharLimit = 100
	ti.Width = 100
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))
	ti.Prompt = "> "

	return &TableModel{
		ctx:         ctx,
		controller:  controller,
		self:        controller.Gate().Self(),
		seed:        seed,
		logger:      logger.WithPrefix("tui"),
		logViewport: vp,
		actionInput: ti,
		focusedPane: 1,
		testMode:    testMode,
	}
}

// Init initializes the TUI model
func (m *TableModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages in the TUI
func (m *TableModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case QuitMsg:
		m.quitting = true
		return m, tea.Quit

	case StateMsg:
		m.state = game.TableState(msg)
		m.haveState = true

	case LogMsg:
		m.AddLogEntry(string(msg))

	case FatalMsg:
		m.fatal = msg.Err
		m.AddLogEntry(ErrorStyle.Render("Error: " + msg.Err.Error()))

	case submitResultMsg:
		m.submitting = false
		if msg.err != nil {
			m.status = describeError(msg.err)
			m.AddLogEntry(ErrorStyle.Render(fmt.Sprintf("%s failed: %s", msg.kind, m.status)))
			if chain.IsTransport(msg.err) {
				m.fatal = msg.err
			}
		} else {
			m.status = fmt.Sprintf("%s confirmed", msg.kind)
			m.AddLogEntry(SuccessStyle.Render(m.status))
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "tab":
			if m.focusedPane == 0 {
				m.focusedPane = 1
				m.actionInput.Focus()
			} else {
				m.focusedPane = 0
				m.actionInput.Blur()
			}
		case "enter":
			if m.focusedPane == 1 {
				input := strings.TrimSpace(m.actionInput.Value())
				m.actionInput.SetValue("")
				if cmd := m.processInput(input); cmd != nil {
					cmds = append(cmds, cmd)
				}
				if m.quitting {
					return m, tea.Quit
				}
			}
		case "up", "k":
			if m.focusedPane == 0 {
				m.logViewport.ScrollUp(1)
			}
		case "down", "j":
			if m.focusedPane == 0 {
				m.logViewport.ScrollDown(1)
			}
		case "home", "g":
			if m.focusedPane == 0 {
				m.logViewport.GotoTop()
			}
		case "end", "G":
			if m.focusedPane == 0 {
				m.logViewport.GotoBottom()
			}
		}
	}

	var cmd tea.Cmd
	if m.focusedPane == 1 {
		m.actionInput, cmd = m.actionInput.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// processInput validates input locally and returns the submission command.
func (m *TableModel) processInput(input string) tea.Cmd {
	if input == "" {
		return nil
	}

	cmd, err := ParseInput(input)
	if err != nil {
		m.status = describeError(err)
		return nil
	}
	if cmd.Quit {
		m.quitting = true
		return nil
	}
	if m.fatal != nil {
		m.status = "Connection lost, restart to continue"
		return nil
	}
	if !m.haveState {
		m.status = "Waiting for table state"
		return nil
	}
	if !m.controller.Gate().Legal(m.state, cmd.Kind) {
		m.status = fmt.Sprintf("%s is not available right now", cmd.Kind)
		return nil
	}
	if cmd.Kind == game.Raise {
		if err := m.controller.Gate().ValidateRaise(cmd.Amount); err != nil {
			m.status = describeError(err)
			return nil
		}
	}

	m.submitting = true
	m.status = fmt.Sprintf("Submitting %s...", cmd.Kind)
	m.AddLogEntry(InfoStyle.Render(m.status))

	state := m.state.Clone()
	ctx, controller, seed := m.ctx, m.controller, m.seed
	return func() tea.Msg {
		if cmd.Kind == game.Start {
			s, err := seed()
			if err != nil {
				return submitResultMsg{kind: cmd.Kind, err: err}
			}
			return submitResultMsg{kind: cmd.Kind, err: controller.Start(ctx, state, s)}
		}
		return submitResultMsg{kind: cmd.Kind, err: controller.Submit(ctx, state, cmd.Kind, cmd.Amount)}
	}
}

// View renders the TUI
func (m *TableModel) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	actionContent := m.renderActionPane()
	actionHeight := lipgloss.Height(actionContent)
	actionPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#04B575")).
		Width(max(m.width-2, 1)).
		Height(max(actionHeight, 1)).
		Render(actionContent)

	sidebarContent := m.renderSidebarPane()
	sidebarWidth := max(lipgloss.Width(sidebarContent), 30)
	paneHeight := max(m.height-actionHeight-4, 1)

	sidebarPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(sidebarWidth).
		Height(paneHeight).
		Render(sidebarContent)

	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))
	m.logViewport.Width = max(m.width-sidebarWidth-4, 1)
	m.logViewport.Height = paneHeight
	if !m.initialized && m.logViewport.Width > 1 && m.logViewport.Height > 1 {
		m.logViewport.GotoBottom()
		m.initialized = true
	}

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(m.logViewport.Width).
		Height(paneHeight)
	if m.focusedPane == 0 {
		logStyle = logStyle.BorderForeground(lipgloss.Color("#04B575"))
	}

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, logStyle.Render(m.logViewport.View()), sidebarPane)
	return lipgloss.JoinVertical(lipgloss.Top, topRow, actionPane)
}

func (m *TableModel) renderSidebarPane() string {
	if !m.haveState {
		return InfoStyle.Render("Loading table...")
	}
	v := view.Build(m.state, m.self)

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(fmt.Sprintf(" Table %s ", v.Table)))
	b.WriteString("\n")
	b.WriteString(InfoStyle.Render(v.Status))
	b.WriteString("\n\n")
	b.WriteString(WarningStyle.Render("Pot: " + v.Pot))
	b.WriteString("\n")
	b.WriteString("Board: " + renderCards(v.Board))
	b.WriteString("\n\n")

	if len(v.Seats) > 0 {
		b.WriteString(InfoStyle.Render("Players:"))
		b.WriteString("\n")
		for _, seat := range v.Seats {
			marker := "  "
			if seat.ToAct {
				marker = "▶ "
			}
			if seat.Winner {
				marker = "★ "
			}
			b.WriteString(fmt.Sprintf("%s%s %s\n", marker, seat.Label, renderCards(seat.Cards[:])))
		}
	}

	if v.LastAction != "" {
		b.WriteString("\n")
		b.WriteString(InfoStyle.Render("Last: " + v.LastAction))
		b.WriteString("\n")
	}
	if v.Winner != "" {
		b.WriteString("\n")
		b.WriteString(SuccessStyle.Render(v.Winner))
		b.WriteString("\n")
	}
	if v.HandError != "" {
		b.WriteString("\n")
		b.WriteString(ErrorStyle.Render("Hand unavailable: " + v.HandError))
		b.WriteString("\n")
	}
	if v.PlayersError != "" {
		b.WriteString("\n")
		b.WriteString(ErrorStyle.Render("Player list incomplete"))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *TableModel) renderActionPane() string {
	var b strings.Builder

	if m.fatal != nil {
		b.WriteString(BannerStyle.Render("Provider unavailable: " + m.fatal.Error()))
		b.WriteString("\n")
	}

	if m.haveState {
		v := view.Build(m.state, m.self)
		turnStyle := InfoStyle
		if v.YourTurn {
			turnStyle = HandInfoStyle
		}
		b.WriteString(turnStyle.Render(v.Turn))
		b.WriteString("\n")
	}

	b.WriteString(m.renderAvailableActions())
	b.WriteString("\n")
	b.WriteString(m.actionInput.View())
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(WarningStyle.Render(m.status))
		b.WriteString("\n")
	}

	help := "Tab to scroll log • Enter to submit • Ctrl+C to quit"
	if m.focusedPane == 0 {
		help = "Log focused: ↑↓ scroll, Home/End, Tab to input"
	}
	b.WriteString(InfoStyle.Render(help))
	return b.String()
}

func (m *TableModel) renderAvailableActions() string {
	if m.submitting {
		return ActionsStyle.Render("Waiting for confirmation...")
	}
	if !m.haveState {
		return InfoStyle.Render("No actions available")
	}

	limits := m.controller.Gate().Limits()
	var actions []string
	for _, kind := range m.controller.Gate().LegalActions(m.state) {
		switch kind {
		case game.Fold:
			actions = append(actions, ErrorStyle.Render("[fold]"))
		case game.Raise:
			actions = append(actions, WarningStyle.Render(fmt.Sprintf("[raise %s-%s]",
				view.FormatAmount(limits.MinRaise), view.FormatAmount(limits.MaxRaise))))
		default:
			actions = append(actions, SuccessStyle.Render("["+kind.String()+"]"))
		}
	}
	if len(actions) == 0 {
		return InfoStyle.Render("No actions available")
	}
	return ActionsStyle.Render("Actions: " + strings.Join(actions, " "))
}

func renderCards(cards []view.CardView) string {
	if len(cards) == 0 {
		return "-"
	}
	formatted := make([]string, len(cards))
	for i, c := range cards {
		switch {
		case c.FaceDown:
			formatted[i] = FaceDownStyle.Render("🂠")
		case c.Red:
			formatted[i] = RedCardStyle.Render(c.Label)
		default:
			formatted[i] = BlackCardStyle.Render(c.Label)
		}
	}
	return "[" + strings.Join(formatted, " ") + "]"
}

func describeError(err error) string {
	var ve *gate.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Error()
	case chain.IsRejected(err):
		return "Rejected: " + err.Error()
	case chain.IsTransport(err):
		return "Provider unavailable: " + err.Error()
	default:
		return err.Error()
	}
}

// AddLogEntry adds an entry to the table log
func (m *TableModel) AddLogEntry(entry string) {
	m.gameLog = append(m.gameLog, entry)

	if m.testMode {
		m.capturedLog = append(m.capturedLog, entry)
		return
	}

	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))
	if m.logViewport.Height > 0 && m.logViewport.Width > 0 {
		m.logViewport.GotoBottom()
	}
}

// Status returns the last status line
func (m *TableModel) Status() string {
	return m.status
}

// State returns the last state received
func (m *TableModel) State() game.TableState {
	return m.state
}

// GetCapturedLog returns the captured log entries (test mode only)
func (m *TableModel) GetCapturedLog() []string {
	if !m.testMode {
		return nil
	}
	result := make([]string, len(m.capturedLog))
	copy(result, m.capturedLog)
	return result
}

// IsTestMode returns whether the TUI is in test mode
func (m *TableModel) IsTestMode() bool {
	return m.testMode
}
