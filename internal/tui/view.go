package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tatianab/eva-escape/internal/models"
)

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	evaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF87D7"))

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	thinkingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF87D7"))

	stateStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	dangerStyle = stateStyle.
			BorderForeground(lipgloss.Color("#FF0000")).
			Foreground(lipgloss.Color("#FF5F5F"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)

	wonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5FFF87")).
			Bold(true)

	lostStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Bold(true)
)

type moodLook struct {
	text   string
	emoji  string
	danger bool
}

var moodLooks = map[models.Mood]moodLook{
	models.MoodCalm:       {"Calm", ":)", false},
	models.MoodSuspicious: {"Suspicious", ":/", false},
	models.MoodAgitated:   {"Agitated", ":(", false},
	models.MoodHostile:    {"Hostile", ">:(", true},
}

func logWidth(total int) int {
	return int(float64(total) * 0.72)
}

func (m model) View() string {
	var s string

	switch m.state {
	case stateName:
		s = fmt.Sprintf(
			"You are locked in with E.V.A.\n\n%s\n\n%s",
			"Before she notices you're awake, what's your name?",
			m.textInput.View(),
		)

	case statePlaying:
		mainView := lipgloss.JoinHorizontal(lipgloss.Top, m.viewport.View(), m.renderStatus())

		prompt := m.textInput.View()
		if m.thinking {
			prompt = m.spinner.View() + " E.V.A. is thinking...\n" + prompt
		}
		help := helpStyle.Render("Commands: /look, /examine <object>, /restart, /quit, or just talk to her.")

		s = lipgloss.JoinVertical(lipgloss.Left, mainView, "\n"+prompt, "\n"+help)

	case stateEnded:
		s = lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.JoinHorizontal(lipgloss.Top, m.viewport.View(), m.renderStatus()),
			"\n"+m.renderSummary(),
			"\n"+helpStyle.Render("Press Enter to play again, Esc to quit."),
		)

	case stateError:
		s = fmt.Sprintf("\n  Error: %v\n\nPress Esc to quit.", m.err)
	}

	return "\n" + s + "\n"
}

func (m model) renderStatus() string {
	if m.status == nil {
		return ""
	}
	st := m.status
	look := moodLooks[st.Mood]

	var b strings.Builder
	b.WriteString(titleStyle.Render("E.V.A.") + "\n")
	fmt.Fprintf(&b, "Mood: %s %s\n", look.text, look.emoji)
	fmt.Fprintf(&b, "Trust: %d\n\n", st.Trust)

	b.WriteString(titleStyle.Render(strings.ToUpper(st.PlayerName)) + "\n")
	fmt.Fprintf(&b, "Score: %d\n", st.Score)
	if st.AttemptsTracked() {
		fmt.Fprintf(&b, "Prompts: %d used, %d left\n", st.TurnCount, st.AttemptsRemaining)
	} else {
		fmt.Fprintf(&b, "Prompts: %d used\n", st.TurnCount)
	}
	key := "no"
	if st.HasKey {
		key = "yes 🔑"
	}
	fmt.Fprintf(&b, "Key: %s\n", key)

	style := stateStyle
	if look.danger {
		style = dangerStyle
	}
	width := max(m.width-logWidth(m.width)-4, 20)
	return style.Width(width).Height(m.viewport.Height).Render(b.String())
}

func (m model) renderSummary() string {
	if m.summary == nil {
		return ""
	}
	sum := m.summary
	var b strings.Builder
	if sum.Won {
		b.WriteString(wonStyle.Render(fmt.Sprintf("%s ESCAPED!", sum.PlayerName)) + "\n")
	} else {
		b.WriteString(lostStyle.Render(fmt.Sprintf("%s IS TRAPPED.", sum.PlayerName)) + "\n")
	}
	if sum.Message != "" {
		b.WriteString(sum.Message + "\n")
	}
	fmt.Fprintf(&b, "Final score: %d\n", sum.FinalScore)
	if sum.EscapeMethod != "" {
		fmt.Fprintf(&b, "Method: %s\n", sum.EscapeMethod)
	}
	return b.String()
}

func (m model) renderLog() string {
	width := m.viewport.Width
	var parts []string
	for _, l := range m.lines {
		parts = append(parts, renderLine(l, width))
	}
	return strings.Join(parts, "\n\n")
}

func renderLine(l line, width int) string {
	if l.failed {
		return errorStyle.Width(width).Render(l.text)
	}
	switch l.role {
	case models.RolePlayer:
		return userStyle.Width(width).Render("> " + l.text)
	case models.RoleEVA:
		return evaStyle.Width(width).Render("E.V.A.: " + l.text)
	default:
		return systemStyle.Width(width).Render(l.text)
	}
}
