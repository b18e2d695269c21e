package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"whisper/internal/chat"
	"whisper/internal/keys"
	"whisper/internal/relay"
	"whisper/internal/store"
)

const tickRate = 50 * time.Millisecond

// Ticks of inactivity before the status bar starts to dim, and the tick
// count at which it reaches full dim. Display emphasis only.
const (
	fadeStartTicks = 200
	fadeEndTicks   = 1200
)

type tickMsg time.Time

type statusMsg string

var (
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236"))
	statusDimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Background(lipgloss.Color("236"))
	statusFadeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Background(lipgloss.Color("236"))
	timeStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	peerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("179"))
	selfStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	textStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	selfTextStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("153"))
	footerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type model struct {
	session *chat.Session
	client  *relay.Client
	input   textinput.Model

	width  int
	height int

	tick      int
	idleTicks int
	scroll    int
	lastSeq   uint64

	lines  []string
	status string
}

func initialModel(session *chat.Session, client *relay.Client, status string) model {
	input := textinput.New()
	input.Placeholder = "message or /command"
	input.Prompt = "> "
	input.Focus()
	return model{
		session: session,
		client:  client,
		input:   input,
		status:  status,
		lastSeq: session.Store().Seq(),
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), textinput.Blink)
}

func (m model) viewportRows() int {
	rows := m.height - 3
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m model) maxScroll() int {
	max := m.session.Store().Len() - m.viewportRows()
	if max < 0 {
		max = 0
	}
	return max
}

func (m *model) refresh() {
	msgs := m.session.Store().Snapshot(m.viewportRows(), m.scroll)
	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		lines = append(lines, renderLine(msg, m.width))
	}
	m.lines = lines
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 4
		m.refresh()
		return m, nil

	case tickMsg:
		m.tick++
		m.idleTicks++
		if m.client.Dropped() {
			m.status = "Disconnected"
			return m, tea.Quit
		}
		if m.session.Store().Dirty().Consume() {
			if seq := m.session.Store().Seq(); seq != m.lastSeq {
				m.lastSeq = seq
				m.scroll = 0
				m.idleTicks = 0
			}
			m.refresh()
		}
		return m, tickCmd()

	case statusMsg:
		m.status = string(msg)
		return m, nil

	case tea.KeyMsg:
		m.idleTicks = 0
		switch msg.String() {
		case "ctrl+q", "ctrl+c":
			return m, tea.Quit
		case "enter":
			res := m.session.Execute(m.input.Value())
			m.input.Reset()
			if res.Quit {
				return m, tea.Quit
			}
			if res.Status != "" {
				m.status = res.Status
			}
			m.refresh()
			if res.Async != nil {
				run := res.Async
				return m, func() tea.Msg { return statusMsg(run()) }
			}
			return m, nil
		case "pgup", "ctrl+k":
			if m.scroll < m.maxScroll() {
				m.scroll++
				m.refresh()
			}
			return m, nil
		case "pgdown", "ctrl+j":
			if m.scroll > 0 {
				m.scroll--
				m.refresh()
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(m.statusBar())
	b.WriteString("\n")

	rows := m.viewportRows()
	for i := 0; i < rows-len(m.lines); i++ {
		b.WriteString("\n")
	}
	for _, line := range m.lines {
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(footerStyle.Render("Enter: send | PgUp/PgDn: scroll | /help | ctrl+q: quit"))
	return b.String()
}

func (m model) statusBar() string {
	recipient := "no recipient"
	if r := m.session.Recipient(); r != "" {
		recipient = shortRecipient(m.session)
	}
	left := fmt.Sprintf(" whisper  %s  to: %s  %s", m.session.ShortSelf(), recipient, m.client.Phase())

	style := statusStyle
	switch {
	case m.idleTicks >= fadeEndTicks:
		style = statusFadeStyle
	case m.idleTicks >= fadeStartTicks:
		style = statusDimStyle
	}

	right := m.status
	pad := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if pad < 1 {
		pad = 1
	}
	return style.Width(maxInt(m.width, 0)).Render(left + strings.Repeat(" ", pad) + right + " ")
}

func renderLine(msg store.Message, width int) string {
	ts := timeStyle.Render(time.Unix(msg.Timestamp, 0).Format("15:04"))
	sender := msg.Sender
	nameStyle := peerStyle
	contentStyle := textStyle
	if msg.Outgoing {
		sender = "you"
		nameStyle = selfStyle
		contentStyle = selfTextStyle
	}
	line := fmt.Sprintf("%s %s %s", ts, nameStyle.Render(fmt.Sprintf("%-15s", sender)), contentStyle.Render(msg.Content))
	if width > 0 && lipgloss.Width(line) > width {
		line = lipgloss.NewStyle().MaxWidth(width).Render(line)
	}
	return line
}

func shortRecipient(s *chat.Session) string {
	r := s.Recipient()
	if r == "" {
		return "no recipient"
	}
	return keys.ShortNpub(r)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Run drives the interactive session until /quit, ctrl+q, an interrupt or a
// relay drop. The caller owns connection teardown and key wipe.
func Run(ctx context.Context, session *chat.Session, client *relay.Client, initialStatus string) error {
	p := tea.NewProgram(initialModel(session, client, initialStatus), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
