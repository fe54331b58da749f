// Package tui is parley's interactive terminal chat.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/papercomputeco/parley/pkg/session"
	"github.com/papercomputeco/parley/pkg/speech"
	"github.com/papercomputeco/parley/pkg/turn"
)

const (
	defaultWidth  = 80
	defaultHeight = 24

	// Rows taken by the status line and the input.
	chromeHeight = 3

	msgEmptyInput = "メッセージを入力してください。"
	msgBusy       = "前のメッセージを処理中です。"
)

var (
	userStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	assistStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("36")).Bold(true)
	fallbackStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// Submitter runs one turn. turn.Orchestrator implements it.
type Submitter interface {
	Submit(ctx context.Context, sess *session.Session, text string) (turn.Outcome, error)
}

// Config configures a Model.
type Config struct {
	// Style is a glamour standard style name. Empty detects the terminal
	// background.
	Style string
}

type entry struct {
	user     bool
	text     string
	fallback bool
}

type replyMsg struct {
	out turn.Outcome
	err error
}

// Model is the bubbletea model for a chat session.
type Model struct {
	ctx    context.Context
	orch   Submitter
	sess   *session.Session
	config Config

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	entries []entry
	status  string
	failed  bool
	busy    bool
	width   int
	height  int
}

// New creates a Model bound to sess.
func New(ctx context.Context, orch Submitter, sess *session.Session, config Config) *Model {
	input := textinput.New()
	input.Placeholder = "メッセージを入力してください (Esc で終了)"
	input.Prompt = "> "
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		ctx:      ctx,
		orch:     orch,
		sess:     sess,
		config:   config,
		input:    input,
		viewport: viewport.New(defaultWidth, defaultHeight-chromeHeight),
		spinner:  sp,
	}
	m.resize(defaultWidth, defaultHeight)
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m, m.send()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case replyMsg:
		m.receive(msg)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	var status string
	switch {
	case m.busy:
		status = m.spinner.View() + " " + statusStyle.Render("考え中...")
	case m.failed:
		status = errorStyle.Render(m.status)
	default:
		status = statusStyle.Render(m.status)
	}

	return m.viewport.View() + "\n" + ansi.Truncate(status, m.width, "…") + "\n" + m.input.View()
}

// Busy reports whether a turn is in flight.
func (m *Model) Busy() bool {
	return m.busy
}

// send submits the input. Submissions while a turn is in flight are ignored.
func (m *Model) send() tea.Cmd {
	if m.busy {
		return nil
	}

	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		m.setStatus(msgEmptyInput, true)
		return nil
	}

	m.busy = true
	m.setStatus("", false)
	m.entries = append(m.entries, entry{user: true, text: strings.TrimSpace(text)})
	m.input.Reset()
	m.refresh()

	return tea.Batch(m.spinner.Tick, m.submit(text))
}

func (m *Model) submit(text string) tea.Cmd {
	ctx, orch, sess := m.ctx, m.orch, m.sess
	return func() tea.Msg {
		out, err := orch.Submit(ctx, sess, text)
		return replyMsg{out: out, err: err}
	}
}

func (m *Model) receive(msg replyMsg) {
	m.busy = false

	if msg.err != nil {
		// The user entry never reached the session.
		m.entries = m.entries[:len(m.entries)-1]
		if errors.Is(msg.err, session.ErrBusy) {
			m.setStatus(msgBusy, true)
		} else {
			m.setStatus(msg.err.Error(), true)
		}
		m.refresh()
		return
	}

	out := msg.out
	m.entries = append(m.entries, entry{text: out.Reply, fallback: out.Fallback})

	switch {
	case out.SpeechErr != nil:
		m.setStatus(fmt.Sprintf("%s %v", speech.FailureNotice, out.SpeechErr), true)
	case out.Speech != nil && out.Speech.Path != "":
		m.setStatus("audio: "+out.Speech.Path, false)
	case out.Partial:
		m.setStatus("応答が途中で途切れました。", true)
	}

	m.refresh()
}

func (m *Model) setStatus(s string, failed bool) {
	m.status = s
	m.failed = failed
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.viewport.Width = width
	m.viewport.Height = max(height-chromeHeight, 1)
	m.input.Width = max(width-len(m.input.Prompt)-1, 1)

	opts := []glamour.TermRendererOption{glamour.WithWordWrap(max(width-4, 20))}
	if m.config.Style != "" {
		opts = append(opts, glamour.WithStandardStyle(m.config.Style))
	} else {
		opts = append(opts, glamour.WithAutoStyle())
	}
	if r, err := glamour.NewTermRenderer(opts...); err == nil {
		m.renderer = r
	}

	m.refresh()
}

func (m *Model) refresh() {
	var b strings.Builder
	for _, e := range m.entries {
		switch {
		case e.user:
			b.WriteString(userStyle.Render("あなた") + "\n")
			b.WriteString(e.text + "\n\n")
		case e.fallback:
			b.WriteString(assistStyle.Render("parley") + "\n")
			b.WriteString(fallbackStyle.Render(e.text) + "\n\n")
		default:
			b.WriteString(assistStyle.Render("parley") + "\n")
			b.WriteString(m.markdown(e.text) + "\n")
		}
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m *Model) markdown(text string) string {
	if m.renderer == nil {
		return text + "\n"
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text + "\n"
	}
	return out
}
