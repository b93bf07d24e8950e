// Package console is the interactive operator console: a scrolling view of
// the server's operator log above a command prompt.
package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ectows/ectows/internal/client"
	"github.com/ectows/ectows/internal/tui"
	"github.com/ectows/ectows/pkg/protocol"
)

const maxLines = 5000

// SendFunc submits a command line to the server.
type SendFunc func(line string) error

// EnvelopeMsg carries one message received from the server.
type EnvelopeMsg struct {
	Env client.Envelope
}

// DisconnectedMsg reports that the connection ended.
type DisconnectedMsg struct {
	Err error
}

type sendErrMsg struct{ err error }

var (
	keyQuit     = key.NewBinding(key.WithKeys("ctrl+c", "esc"))
	keySubmit   = key.NewBinding(key.WithKeys("enter"))
	keyPrev     = key.NewBinding(key.WithKeys("up"))
	keyNext     = key.NewBinding(key.WithKeys("down"))
	keyScroll   = key.NewBinding(key.WithKeys("pgup", "pgdown"))
	keyFollow   = key.NewBinding(key.WithKeys("ctrl+g"))
	keyClearLog = key.NewBinding(key.WithKeys("ctrl+l"))
)

// Model is the console TUI model.
type Model struct {
	addr string
	send SendFunc

	input      textinput.Model
	viewport   viewport.Model
	lines      []string
	autoScroll bool

	history []string
	histIdx int

	connected bool
	welcome   string
	width     int
	height    int
}

// NewModel creates a console for a connection to addr.
func NewModel(addr string, send SendFunc) Model {
	in := textinput.New()
	in.Prompt = "> "
	in.Placeholder = "command (try help!)"
	in.CharLimit = 1024
	in.Width = 78
	in.Focus()

	return Model{
		addr:       addr,
		send:       send,
		input:      in,
		viewport:   viewport.New(80, 20),
		autoScroll: true,
		connected:  true,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-3, 3)
		m.input.Width = max(msg.Width-4, 10)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keyQuit):
			return m, tea.Quit
		case key.Matches(msg, keySubmit):
			return m.submit()
		case key.Matches(msg, keyPrev):
			m.recall(-1)
			return m, nil
		case key.Matches(msg, keyNext):
			m.recall(1)
			return m, nil
		case key.Matches(msg, keyScroll):
			m.autoScroll = false
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case key.Matches(msg, keyFollow):
			m.autoScroll = true
			m.viewport.GotoBottom()
			return m, nil
		case key.Matches(msg, keyClearLog):
			m.lines = nil
			m.refresh()
			return m, nil
		}

	case EnvelopeMsg:
		text := client.Render(msg.Env)
		if msg.Env.Target == protocol.TargetWelcome {
			m.welcome = strings.TrimSpace(text)
		}
		m.appendText(text)
		return m, nil

	case DisconnectedMsg:
		m.connected = false
		if msg.Err != nil {
			m.appendLine(tui.ErrorStyle.Render("disconnected: " + msg.Err.Error()))
		} else {
			m.appendLine(tui.ErrorStyle.Render("disconnected"))
		}
		return m, nil

	case sendErrMsg:
		m.appendLine(tui.ErrorStyle.Render("send failed: " + msg.err.Error()))
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	m.input.Reset()
	if line == "" {
		return m, nil
	}
	if len(m.history) == 0 || m.history[len(m.history)-1] != line {
		m.history = append(m.history, line)
	}
	m.histIdx = len(m.history)
	m.appendLine(tui.Dimmed.Render("> " + line))
	if !m.connected {
		m.appendLine(tui.ErrorStyle.Render("not connected"))
		return m, nil
	}

	send := m.send
	return m, func() tea.Msg {
		if err := send(line); err != nil {
			return sendErrMsg{err: err}
		}
		return nil
	}
}

func (m *Model) recall(delta int) {
	if len(m.history) == 0 {
		return
	}
	m.histIdx = min(max(m.histIdx+delta, 0), len(m.history))
	if m.histIdx == len(m.history) {
		m.input.SetValue("")
		return
	}
	m.input.SetValue(m.history[m.histIdx])
	m.input.CursorEnd()
}

// appendText adds server output, one styled line per text line.
func (m *Model) appendText(text string) {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return
	}
	for _, line := range strings.Split(text, "\n") {
		m.appendLine(tui.LineStyle(line).Render(line))
	}
}

func (m *Model) appendLine(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > maxLines {
		m.lines = m.lines[len(m.lines)-maxLines:]
	}
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	if m.autoScroll {
		m.viewport.GotoBottom()
	}
}

// Lines returns the rendered log lines.
func (m Model) Lines() []string { return m.lines }

// Connected reports whether the server connection is still up.
func (m Model) Connected() bool { return m.connected }

func (m Model) View() string {
	header := fmt.Sprintf("%s %s %s %s",
		tui.Title.Render("ectows"),
		tui.StatusDot(m.connected),
		m.addr,
		tui.StatusText(m.connected))
	if m.welcome != "" {
		header += "  " + tui.Dimmed.Render(m.welcome)
	}
	help := tui.Help.Render("enter send • ↑/↓ history • pgup/pgdn scroll • ctrl+g follow • ctrl+l clear • esc quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		m.input.View(),
		help,
	)
}
