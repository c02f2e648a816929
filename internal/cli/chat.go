package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/apresai/mimic/internal/llm"
	"github.com/apresai/mimic/internal/session"
)

// maxVisibleTurns bounds how much history the TUI redraws. The full
// history stays in the session; this is display-only.
const maxVisibleTurns = 24

// style constants
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			MarginBottom(1)

	userLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#04B575"))

	botLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555")).
			Italic(true)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))
)

// chatModel is the Bubble Tea model for the chat session.
//
// The session manager is single-threaded, and Converse runs on a tea.Cmd
// goroutine. While waiting is true that goroutine owns the manager, so the
// model renders from its own turns snapshot and only touches the manager
// from Update, after the reply lands.
type chatModel struct {
	mgr     *session.Manager
	subject string
	turns   []session.Turn
	input   []rune
	waiting bool
	width   int
	status  string
}

// replyMsg signals that the pending Converse call finished and the manager
// may be read again.
type replyMsg struct{}

func newChatModel(mgr *session.Manager) chatModel {
	return chatModel{
		mgr:     mgr,
		subject: mgr.Session().Subject(),
		turns:   mgr.Session().History(),
		width:   80,
	}
}

func (m chatModel) Init() tea.Cmd {
	return nil
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case replyMsg:
		m.waiting = false
		m.turns = m.mgr.Session().History()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyBackspace:
			if len(m.input) > 0 && !m.waiting {
				m.input = m.input[:len(m.input)-1]
			}
			return m, nil

		case tea.KeyEnter:
			if m.waiting {
				return m, nil
			}
			text := strings.TrimSpace(string(m.input))
			if text == "" {
				return m, nil
			}
			m.input = nil
			return m.submit(text)

		case tea.KeySpace:
			if !m.waiting {
				m.input = append(m.input, ' ')
			}
			return m, nil

		case tea.KeyRunes:
			if !m.waiting {
				m.input = append(m.input, msg.Runes...)
			}
			return m, nil
		}
	}
	return m, nil
}

// submit handles slash commands locally and dispatches everything else to
// the session manager.
func (m chatModel) submit(text string) (tea.Model, tea.Cmd) {
	switch text {
	case "/quit", "/exit":
		return m, tea.Quit
	case "/clear":
		m.mgr.ClearHistory()
		m.turns = nil
		m.status = "Chat cleared."
		return m, nil
	case "/help":
		m.status = "Commands: /clear drops the conversation, /quit exits."
		return m, nil
	}

	m.status = ""
	m.waiting = true
	// Show the outgoing message immediately; the snapshot is replaced from
	// the session once the reply arrives.
	m.turns = append(m.turns, session.Turn{Role: llm.RoleUser, Content: text})
	mgr := m.mgr
	return m, func() tea.Msg {
		mgr.Converse(context.Background(), text)
		return replyMsg{}
	}
}

func (m chatModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Chatting with %s", m.subject)))
	b.WriteString("\n")

	turns := m.turns
	if len(turns) > maxVisibleTurns {
		b.WriteString(dimStyle.Render(fmt.Sprintf("(%d earlier turns hidden)", len(turns)-maxVisibleTurns)))
		b.WriteString("\n")
		turns = turns[len(turns)-maxVisibleTurns:]
	}

	wrap := lipgloss.NewStyle().Width(m.width - 2)
	for _, t := range turns {
		label := userLabelStyle.Render("You: ")
		if t.Role != llm.RoleUser {
			label = botLabelStyle.Render(m.subject + ": ")
		}
		b.WriteString(wrap.Render(label + t.Content))
		b.WriteString("\n\n")
	}

	if m.status != "" {
		b.WriteString(dimStyle.Render(m.status))
		b.WriteString("\n")
	}

	if m.waiting {
		b.WriteString(dimStyle.Render(fmt.Sprintf("%s is thinking...", m.subject)))
		b.WriteString("\n")
	} else {
		b.WriteString(promptStyle.Render("> ") + string(m.input) + "█")
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("enter to send · /clear · /quit · esc to exit"))
	b.WriteString("\n")

	return b.String()
}

// runChatTUI runs the full-screen chat loop until the user exits.
func runChatTUI(mgr *session.Manager) error {
	p := tea.NewProgram(newChatModel(mgr), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
