package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"productrag/internal/service"
)

// entry is one rendered block of the transcript.
type entry struct {
	speaker string
	text    string
}

// replyMsg carries the session's reply for a submitted line.
type replyMsg struct {
	reply service.Reply
	err   error
}

// Model is the Bubble Tea model for the chat interface.
type Model struct {
	session    *service.Session
	ctx        context.Context
	cancel     context.CancelFunc
	input      textinput.Model
	viewport   viewport.Model
	transcript []entry
	status     string
	busy       bool
	ready      bool
	quitting   bool
	farewell   string
}

// New creates a chat model for session. The session is started immediately.
func New(ctx context.Context, session *service.Session) Model {
	ctx, cancel := context.WithCancel(ctx)
	session.Start()
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about a product and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		session:  session,
		ctx:      ctx,
		cancel:   cancel,
		input:    ti,
		viewport: vp,
		status:   "Type help for commands, exit to quit.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and reply events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, input box, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		m.refresh()
		return m, nil
	case replyMsg:
		return m.handleReply(msg)
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			if m.busy {
				// the in-flight turn reports the interrupt
				m.cancel()
				m.status = "Cancelling..."
				return m, nil
			}
			return m.quit(m.session.Interrupt().Text)
		}
		if m.busy {
			return m, nil
		}
		if msg.Type == tea.KeyEnter {
			line := strings.TrimSpace(m.input.Value())
			if line == "" {
				return m, nil
			}
			m.input.SetValue("")
			return m.submit(line)
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit(line string) (tea.Model, tea.Cmd) {
	m.busy = true
	m.status = "Searching..."
	m.pending(line)
	session, ctx := m.session, m.ctx
	return m, func() tea.Msg {
		reply, err := session.Handle(ctx, line)
		return replyMsg{reply: reply, err: err}
	}
}

// pending shows a submitted query right away unless it is a session command.
func (m *Model) pending(line string) {
	switch strings.ToLower(line) {
	case "help", "exit":
		return
	case "clear":
		if m.session.Mode() == service.ModeMultiTurn {
			return
		}
	}
	m.transcript = append(m.transcript, entry{speaker: "You", text: line})
	m.refresh()
}

func (m Model) handleReply(msg replyMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	if errors.Is(msg.err, service.ErrInterrupted) {
		return m.quit(msg.reply.Text)
	}
	if msg.err != nil {
		m.status = "Error: " + msg.err.Error()
		return m, nil
	}
	if m.ctx.Err() != nil {
		return m.quit(m.session.Interrupt().Text)
	}
	m.status = "Type help for commands, exit to quit."
	switch msg.reply.Kind {
	case service.ReplyAnswer:
		m.transcript = append(m.transcript, entry{speaker: "Assistant", text: msg.reply.Text})
	case service.ReplyHelp:
		m.transcript = append(m.transcript, entry{speaker: "Help", text: msg.reply.Text})
	case service.ReplyCleared:
		m.transcript = nil
		m.status = "Conversation cleared."
	case service.ReplyFarewell:
		return m.quit(msg.reply.Text)
	}
	m.refresh()
	return m, nil
}

func (m Model) quit(farewell string) (tea.Model, tea.Cmd) {
	m.cancel()
	m.quitting = true
	m.farewell = farewell
	return m, tea.Quit
}

// View renders the transcript, input box and status line.
func (m Model) View() string {
	if m.quitting {
		return m.farewell + "\n"
	}
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Product Search Chat")
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	if len(m.transcript) == 0 {
		return "No messages yet."
	}
	width := max(10, m.viewport.Width-4)
	blocks := make([]string, len(m.transcript))
	for i, e := range m.transcript {
		style := assistantStyle
		if e.speaker == "You" {
			style = userStyle
		}
		blocks[i] = style.Render(e.speaker+":") + "\n" + lipgloss.NewStyle().Width(width).Render(e.text)
	}
	return strings.Join(blocks, "\n\n")
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)
