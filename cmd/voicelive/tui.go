package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	voiceclient "github.com/lkrilov/voicelive/core"
	"github.com/muesli/reflow/wordwrap"
)

type (
	activityMsg   struct{ state voiceclient.ActivityState }
	transcriptMsg struct{ entries []voiceclient.TranscriptEntry }
	errorMsg      struct{ err error }
	navigateMsg   struct{ page string }
)

var (
	userStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	modelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	systemStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	interimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("7")).Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	borderStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
)

type model struct {
	client   *voiceclient.Client
	viewport viewport.Model
	spinner  spinner.Model

	activity   voiceclient.ActivityState
	transcript []voiceclient.TranscriptEntry
	lastErr    error
	page       string

	width  int
	height int
	ready  bool
}

func newModel(client *voiceclient.Client) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle
	return model{client: client, spinner: s}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "c":
			m.client.ClearTranscript()
		case "r":
			m.lastErr = nil
			return m, m.reconnect()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		viewportHeight := m.height - 5
		if viewportHeight < 3 {
			viewportHeight = 3
		}
		if !m.ready {
			m.viewport = viewport.New(m.width-4, viewportHeight)
			m.ready = true
		} else {
			m.viewport.Width = m.width - 4
			m.viewport.Height = viewportHeight
		}
		m.viewport.SetContent(m.renderTranscript())

	case activityMsg:
		m.activity = msg.state

	case transcriptMsg:
		m.transcript = msg.entries
		wasAtBottom := m.viewport.AtBottom()
		m.viewport.SetContent(m.renderTranscript())
		if wasAtBottom {
			m.viewport.GotoBottom()
		}

	case errorMsg:
		m.lastErr = msg.err

	case navigateMsg:
		m.page = msg.page

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if !m.ready {
		return "starting..."
	}

	var b strings.Builder
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(borderStyle.Render(m.viewport.View()))
	b.WriteString("\n")
	if m.lastErr != nil {
		b.WriteString(errorStyle.Render(wordwrap.String(m.lastErr.Error(), m.width-2)))
		b.WriteString("\n")
	}
	b.WriteString(systemStyle.Render("q quit · c clear · r reconnect"))
	return b.String()
}

func (m model) reconnect() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		client.Disconnect()
		if err := client.Connect(context.Background()); err != nil {
			return errorMsg{err: err}
		}
		return nil
	}
}

func (m model) statusLine() string {
	parts := []string{}

	if m.activity.IsConnected {
		parts = append(parts, statusStyle.Render("connected"))
	} else {
		parts = append(parts, m.spinner.View()+statusStyle.Render("connecting"))
	}

	if m.activity.IsSpeaking {
		parts = append(parts, modelStyle.Render("speaking"))
	} else if m.activity.IsListening {
		parts = append(parts, userStyle.Render("listening "+volumeMeter(m.activity.Volume)))
	}

	if m.page != "" {
		parts = append(parts, systemStyle.Render("page: "+m.page))
	}

	return strings.Join(parts, "  ")
}

// volumeMeter renders the advisory input level as a small bar.
func volumeMeter(level float64) string {
	const width = 10
	filled := int(level * width)
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

func (m model) renderTranscript() string {
	if len(m.transcript) == 0 {
		return systemStyle.Render("Say something...")
	}

	width := m.viewport.Width
	if width < 10 {
		width = 10
	}

	var b strings.Builder
	for _, entry := range m.transcript {
		var label string
		style := interimStyle
		switch entry.Role {
		case voiceclient.RoleUser:
			label = userStyle.Render("you")
		case voiceclient.RoleModel:
			label = modelStyle.Render("assistant")
		default:
			label = systemStyle.Render("system")
		}

		text := entry.Text
		if entry.IsFinal == nil || *entry.IsFinal {
			style = lipgloss.NewStyle()
		}
		if text == "" {
			text = "..."
		}

		b.WriteString(fmt.Sprintf("%s %s\n", label, style.Render(wordwrap.String(text, width-10))))
	}
	return b.String()
}
