package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tatianab/eva-escape/internal/engine"
	"github.com/tatianab/eva-escape/internal/models"
	"github.com/tatianab/eva-escape/internal/oracle"
	"github.com/tatianab/eva-escape/internal/rules"
)

func testEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.New(engine.Options{
		Oracle: oracle.NewScripted(oracle.ScriptedReply{Text: "Stay with me."}),
		Rules:  rules.MustNew(rules.DefaultPolicy()),
	})
	require.NoError(t, err)
	return e
}

func TestNameEntryStartsGame(t *testing.T) {
	m := newModel(Options{Engine: testEngine(t)})
	assert.Equal(t, stateName, m.state)

	m.textInput.SetValue("Ana")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)

	assert.Equal(t, statePlaying, m.state)
	require.NotNil(t, m.game)
	assert.Equal(t, "Ana", m.status.PlayerName)
	assert.NotNil(t, cmd)
}

func TestEventsFromCurrentSessionAreShown(t *testing.T) {
	m := newModel(Options{Engine: testEngine(t), PlayerName: "Ana"})
	id := m.game.ID()

	next, _ := m.Update(eventMsg{Kind: engine.EventMessage, SessionID: id, Role: models.RoleEVA, Text: "Hello, darling."})
	m = next.(model)
	next, _ = m.Update(eventMsg{Kind: engine.EventMessage, SessionID: "someone-else", Role: models.RoleEVA, Text: "stale"})
	m = next.(model)

	require.Len(t, m.lines, 1)
	assert.Equal(t, "Hello, darling.", m.lines[0].text)
	assert.Contains(t, m.renderLog(), "E.V.A.: Hello, darling.")
}

func TestStatusPanelShowsDanger(t *testing.T) {
	m := newModel(Options{Engine: testEngine(t), PlayerName: "Ana"})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 160, Height: 40})
	m = next.(model)
	s := m.game.Snapshot()
	s.Mood = models.MoodHostile
	s.HasKey = true

	next, _ = m.Update(eventMsg{Kind: engine.EventStatus, SessionID: s.ID, Session: s})
	m = next.(model)

	panel := m.renderStatus()
	assert.Contains(t, panel, "Hostile >:(")
	assert.Contains(t, panel, "🔑")
	assert.Contains(t, panel, "20 left")
}

func TestEndedEventShowsSummary(t *testing.T) {
	m := newModel(Options{Engine: testEngine(t), PlayerName: "Ana"})
	s := m.game.Snapshot()
	s.Finish(models.OutcomeWon, rules.EscapeKeyFound)

	next, _ := m.Update(eventMsg{
		Kind:      engine.EventEnded,
		SessionID: s.ID,
		Session:   s,
		Summary:   &models.Summary{SessionID: s.ID, PlayerName: "Ana", Won: true, FinalScore: 10, EscapeMethod: rules.EscapeKeyFound},
	})
	m = next.(model)

	assert.Equal(t, stateEnded, m.state)
	view := m.View()
	assert.Contains(t, view, "Ana ESCAPED!")
	assert.Contains(t, view, "Key Found")
}

func TestChatBlockedButCommandsRunWhileThinking(t *testing.T) {
	m := newModel(Options{Engine: testEngine(t), PlayerName: "Ana"})
	m.textInput.SetValue("trust me")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)
	require.NotNil(t, cmd)
	assert.True(t, m.thinking)
	assert.Contains(t, m.View(), "E.V.A. is thinking")

	m.textInput.SetValue("together")
	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)
	assert.Nil(t, cmd)
	assert.Equal(t, "together", m.textInput.Value())

	m.textInput.SetValue("/examine door")
	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)
	assert.NotNil(t, cmd)
	assert.True(t, m.thinking)
	assert.Empty(t, m.textInput.Value())

	next, _ = m.Update(turnDoneMsg{})
	m = next.(model)
	assert.False(t, m.thinking)
}

func TestTypingAllowedWhileThinking(t *testing.T) {
	m := newModel(Options{Engine: testEngine(t), PlayerName: "Ana"})
	m.thinking = true

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/look")})
	m = next.(model)
	assert.Equal(t, "/look", m.textInput.Value())
}

func TestExamineWithoutObject(t *testing.T) {
	m := newModel(Options{Engine: testEngine(t), PlayerName: "Ana"})
	m.textInput.SetValue("/examine")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)
	assert.Nil(t, cmd)
	require.NotEmpty(t, m.lines)
	assert.Equal(t, "Examine what?", m.lines[len(m.lines)-1].text)
}

func TestResumeRestoresTranscript(t *testing.T) {
	s := models.NewSession("Ana", 20, time.Now())
	s.Record(models.RolePlayer, "trust me", time.Now())
	s.Record(models.RoleEVA, "Do you mean it?", time.Now())
	s.Score = 10

	m := newModel(Options{Engine: testEngine(t), Resume: s})
	assert.Equal(t, statePlaying, m.state)
	assert.Equal(t, s.ID, m.game.ID())
	assert.Len(t, m.lines, 2)
	assert.Equal(t, 10, m.status.Score)
}

func TestResumeFinishedSessionShowsError(t *testing.T) {
	s := models.NewSession("Ana", 20, time.Now())
	s.Finish(models.OutcomeLost, rules.EscapeCaught)

	m := newModel(Options{Engine: testEngine(t), Resume: s})
	assert.Equal(t, stateError, m.state)
	assert.ErrorIs(t, m.err, engine.ErrSessionOver)
}
