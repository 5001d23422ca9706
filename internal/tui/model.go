package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docsrag/internal/config"
	"docsrag/internal/domain"
)

// QueryPort is the TUI-facing subset of the pipeline engine.
type QueryPort interface {
	Query(ctx context.Context, question, framework string) (domain.Answer, error)
}

type message struct {
	role      string
	framework string
	text      string
	citations []domain.Citation
}

type answerMsg struct {
	question  string
	framework string
	answer    domain.Answer
	err       error
}

// Model is the Bubble Tea model for the documentation chat.
type Model struct {
	engine     QueryPort
	frameworks []config.Framework
	selected   int
	input      textinput.Model
	viewport   viewport.Model
	messages   []message
	status     string
	busy       bool
	ready      bool
}

// New creates a new chat model over the given frameworks.
func New(engine QueryPort, frameworks []config.Framework) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the selected framework's docs"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		engine:     engine,
		frameworks: frameworks,
		input:      ti,
		viewport:   vp,
		status:     "Tab switches framework. Enter sends. Ctrl+C quits.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := chatBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1
		vh := msg.Height - reserved - ch
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width-4)
		m.viewport.Height = vh
		m.viewport.SetContent(m.renderMessages())
		return m, nil

	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = describeQueryError(msg.err)
		} else {
			m.messages = append(m.messages, message{
				role:      "assistant",
				framework: msg.framework,
				text:      msg.answer.Text,
				citations: msg.answer.Citations,
			})
			m.status = fmt.Sprintf("Answered from %s docs.", msg.framework)
		}
		m.viewport.SetContent(m.renderMessages())
		m.viewport.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "tab":
			if len(m.frameworks) > 0 {
				m.selected = (m.selected + 1) % len(m.frameworks)
				m.status = "Asking " + m.frameworks[m.selected].Label
			}
			return m, nil
		case "shift+tab":
			if len(m.frameworks) > 0 {
				m.selected = (m.selected - 1 + len(m.frameworks)) % len(m.frameworks)
				m.status = "Asking " + m.frameworks[m.selected].Label
			}
			return m, nil
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			fw := m.currentFramework()
			m.messages = append(m.messages, message{role: "user", framework: fw.Name, text: q})
			m.input.SetValue("")
			m.busy = true
			m.status = "Thinking..."
			m.viewport.SetContent(m.renderMessages())
			m.viewport.GotoBottom()
			return m, queryCmd(m.engine, q, fw.Name)
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Docs Chat")
	chat := chatBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + m.renderFrameworkBar() + "\n" + chat + "\n" + input + "\n" + status
}

func (m Model) currentFramework() config.Framework {
	if len(m.frameworks) == 0 {
		return config.Framework{}
	}
	return m.frameworks[m.selected]
}

func (m Model) renderFrameworkBar() string {
	parts := make([]string, 0, len(m.frameworks))
	for i, fw := range m.frameworks {
		label := fw.Emoji + " " + fw.Label
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
		if i == m.selected {
			style = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(fw.Color))
		}
		parts = append(parts, style.Render(label))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderMessages() string {
	if len(m.messages) == 0 {
		return "No messages yet. Ask something about the selected framework."
	}
	var b strings.Builder
	for i, msg := range m.messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch msg.role {
		case "user":
			b.WriteString(userStyle.Render("You ("+msg.framework+"):") + " " + msg.text)
		default:
			b.WriteString(assistantStyle.Render("Docs:") + " " + msg.text)
			if len(msg.citations) > 0 {
				b.WriteString("\n" + citationStyle.Render(renderCitations(msg.citations)))
			}
		}
	}
	return b.String()
}

func renderCitations(citations []domain.Citation) string {
	parts := make([]string, 0, len(citations))
	for _, c := range citations {
		parts = append(parts, fmt.Sprintf("[%s](%s)", c.Title, c.URL))
	}
	return "Sources: " + strings.Join(parts, ", ")
}

func queryCmd(engine QueryPort, question, framework string) tea.Cmd {
	return func() tea.Msg {
		answer, err := engine.Query(context.Background(), question, framework)
		return answerMsg{question: question, framework: framework, answer: answer, err: err}
	}
}

// describeQueryError keeps the not-found outcome visibly different from
// pipeline failures.
func describeQueryError(err error) string {
	if errors.Is(err, domain.ErrNotFound) {
		return "No relevant documentation found. Try rephrasing or another framework."
	}
	var stageErr *domain.StageError
	if errors.As(err, &stageErr) {
		switch stageErr.Stage {
		case domain.StageEmbed:
			return "Error embedding your question: " + stageErr.Err.Error()
		case domain.StageSearch:
			return "Error searching the index: " + stageErr.Err.Error()
		case domain.StageGenerate:
			return "Error generating the answer: " + stageErr.Err.Error()
		}
	}
	return "Error: " + err.Error()
}

var (
	chatBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	citationStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
