package tui

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tatianab/eva-escape/internal/engine"
	"github.com/tatianab/eva-escape/internal/environment"
	"github.com/tatianab/eva-escape/internal/models"
)

const intro = "You wake up on the sofa. The front door is shut and E.V.A.'s voice fills the apartment. " +
	"Talk her into letting you go, or find another way out. Type /look to look around."

type sessionState int

const (
	stateName sessionState = iota
	statePlaying
	stateEnded
	stateError
)

// Options wires the TUI to an engine.
type Options struct {
	Engine     *engine.Engine
	PlayerName string
	SaveDir    string
	// Resume continues a saved session instead of starting a new one.
	Resume       *models.Session
	NewApartment func() *environment.Apartment
	Logger       *slog.Logger
}

type line struct {
	role   models.Role
	text   string
	failed bool
}

type model struct {
	opts      Options
	state     sessionState
	sink      *engine.ChannelSink
	game      *engine.Game
	apartment *environment.Apartment
	status    *models.Session
	summary   *models.Summary
	thinking  bool
	lines     []line
	textInput textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	err       error
	width     int
	height    int
	startCmd  tea.Cmd
}

type eventMsg engine.Event

type turnDoneMsg struct {
	err error
}

type interactDoneMsg struct {
	err error
}

type closedMsg struct {
	quit bool
}

func newModel(opts Options) model {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.NewApartment == nil {
		opts.NewApartment = func() *environment.Apartment { return environment.NewApartment(nil) }
	}

	ti := textinput.New()
	ti.Placeholder = "What's your name?"
	ti.Focus()
	ti.CharLimit = 280
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = thinkingStyle

	m := model{
		opts:      opts,
		state:     stateName,
		sink:      engine.NewChannelSink(256),
		textInput: ti,
		spinner:   sp,
		viewport:  viewport.New(80, 20),
	}

	switch {
	case opts.Resume != nil:
		m.startCmd = m.resume(opts.Resume)
	case opts.PlayerName != "":
		m.startCmd = m.start(opts.PlayerName)
	}
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForEvent(), m.startCmd)
}

// start opens a new session. It mutates m, so it is only called on the
// model Update is about to return.
func (m *model) start(playerName string) tea.Cmd {
	m.game = m.opts.Engine.NewGame(playerName, m.sink)
	m.opts.PlayerName = playerName
	m.begin()
	game := m.game
	return func() tea.Msg {
		game.Narrate(intro)
		return nil
	}
}

func (m *model) resume(s *models.Session) tea.Cmd {
	game, err := m.opts.Engine.ResumeGame(s, m.sink)
	if err != nil {
		m.state = stateError
		m.err = err
		return nil
	}
	m.game = game
	m.opts.PlayerName = s.PlayerName
	m.begin()
	for _, t := range s.Transcript {
		m.lines = append(m.lines, line{role: t.Role, text: t.Text})
	}
	m.refresh()
	return nil
}

func (m *model) begin() {
	m.apartment = m.opts.NewApartment()
	m.status = m.game.Snapshot()
	m.summary = nil
	m.lines = nil
	m.thinking = false
	m.state = statePlaying
	m.textInput.Placeholder = "Say something to E.V.A., or /look, /examine <object>"
	m.textInput.Reset()
	m.opts.Logger.Debug("key hidden", slog.String("session_id", m.status.ID), slog.String("location", m.apartment.KeyLocation()))
}

func (m model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-m.sink.C)
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = logWidth(msg.Width)
		m.viewport.Height = max(msg.Height-8, 5)
		m.refresh()
		return m, nil

	case eventMsg:
		m.handleEvent(engine.Event(msg))
		return m, m.waitForEvent()

	case turnDoneMsg:
		m.thinking = false
		var oerr *engine.OracleError
		if msg.err != nil && !errors.As(msg.err, &oerr) && !errors.Is(msg.err, engine.ErrSessionOver) {
			m.appendLine(line{role: models.RoleSystem, text: msg.err.Error(), failed: true})
		}
		m.autosave()
		return m, nil

	case interactDoneMsg:
		if msg.err != nil {
			m.appendLine(line{role: models.RoleSystem, text: msg.err.Error(), failed: true})
		}
		m.autosave()
		return m, nil

	case closedMsg:
		if msg.quit {
			return m, tea.Quit
		}
		cmd := m.start(m.opts.PlayerName)
		return m, cmd

	case spinner.TickMsg:
		if !m.thinking {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, m.closeGame(true)

	case tea.KeyEnter:
		input := strings.TrimSpace(m.textInput.Value())
		switch m.state {
		case stateName:
			if input == "" {
				input = "Player"
			}
			cmd := m.start(input)
			return m, cmd

		case stateEnded:
			return m, m.closeGame(false)

		case statePlaying:
			if input == "" || (m.thinking && !strings.HasPrefix(input, "/")) {
				return m, nil
			}
			m.textInput.Reset()
			return m.handleInput(input)
		}
		return m, nil
	}

	if m.state == stateName || m.state == statePlaying {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) handleInput(input string) (tea.Model, tea.Cmd) {
	command, arg, _ := strings.Cut(input, " ")
	switch command {
	case "/quit":
		return m, m.closeGame(true)
	case "/restart":
		return m, m.closeGame(false)
	case "/look":
		return m, m.narrate(m.apartment.Look())
	case "/examine":
		if strings.TrimSpace(arg) == "" {
			m.appendLine(line{role: models.RoleSystem, text: "Examine what?", failed: true})
			return m, nil
		}
		return m, m.interact(arg)
	}

	m.thinking = true
	game := m.game
	turn := func() tea.Msg {
		_, err := game.ProcessTurn(context.Background(), input)
		return turnDoneMsg{err: err}
	}
	return m, tea.Batch(turn, m.spinner.Tick)
}

func (m *model) handleEvent(e engine.Event) {
	if m.game == nil || e.SessionID != m.game.ID() {
		return
	}
	switch e.Kind {
	case engine.EventMessage:
		m.appendLine(line{role: e.Role, text: e.Text})
	case engine.EventError:
		m.appendLine(line{role: e.Role, text: e.Text, failed: true})
	case engine.EventStatus:
		m.status = e.Session
	case engine.EventEnded:
		m.status = e.Session
		m.summary = e.Summary
		m.state = stateEnded
		m.thinking = false
		m.autosave()
	}
}

func (m model) narrate(text string) tea.Cmd {
	game := m.game
	return func() tea.Msg {
		game.Narrate(text)
		return nil
	}
}

func (m model) interact(object string) tea.Cmd {
	game, apartment := m.game, m.apartment
	return func() tea.Msg {
		_, err := apartment.Interact(context.Background(), game, object)
		return interactDoneMsg{err: err}
	}
}

func (m model) closeGame(quit bool) tea.Cmd {
	game, logger := m.game, m.opts.Logger
	if game == nil {
		if quit {
			return tea.Quit
		}
		return nil
	}
	return func() tea.Msg {
		if err := game.Close(context.Background()); err != nil {
			logger.Error("failed to save transcript", slog.Any("error", err))
		}
		return closedMsg{quit: quit}
	}
}

func (m *model) autosave() {
	if m.game == nil || m.opts.SaveDir == "" {
		return
	}
	if err := m.game.Snapshot().Save(m.opts.SaveDir); err != nil {
		m.opts.Logger.Error("failed to save session", slog.Any("error", err))
	}
}

func (m *model) appendLine(l line) {
	m.lines = append(m.lines, l)
	m.refresh()
}

func (m *model) refresh() {
	m.viewport.SetContent(m.renderLog())
	m.viewport.GotoBottom()
}

// Run starts the game UI and blocks until the player quits.
func Run(opts Options) error {
	if opts.Engine == nil {
		return errors.New("tui: engine is required")
	}
	p := tea.NewProgram(newModel(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
