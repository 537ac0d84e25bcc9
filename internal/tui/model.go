// Package tui renders the assistant conversation in the terminal: a chat
// log, a text prompt, and a confirmation card with the commit countdown.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/korelabs/kore/internal/assistant"
	"github.com/korelabs/kore/internal/voice"
)

// replyMsg carries the assistant's answer back into the update loop.
type replyMsg struct {
	message assistant.Message
}

// utteranceErrMsg is a failed exchange; the conversation continues.
type utteranceErrMsg struct {
	err error
}

// controllerEventMsg wraps confirmation-controller events.
type controllerEventMsg struct {
	event assistant.Event
}

// voiceResultMsg carries a finalized transcript into the update loop.
type voiceResultMsg struct {
	text string
}

// voiceErrMsg is a recognition failure; the transcript is dropped.
type voiceErrMsg struct {
	err error
}

// line is one rendered row of the chat log.
type line struct {
	text    string
	isErr   bool
	fromUsr bool
}

// Model is the chat interface state.
type Model struct {
	session *assistant.Session
	capture *voice.Capture
	ctx     context.Context

	input    textinput.Model
	view     viewport.Model
	spin     spinner.Model
	styles   styles
	lines    []line
	pending  *assistant.Event
	width    int
	height   int
	waiting  bool
	ready    bool
	quitting bool
}

// ModelOption configures the chat model.
type ModelOption func(*Model)

// WithCapture enables push-to-talk through the given capture adapter.
func WithCapture(c *voice.Capture) ModelOption {
	return func(m *Model) { m.capture = c }
}

// NewModel builds the chat model around a live session.
func NewModel(ctx context.Context, session *assistant.Session, opts ...ModelOption) Model {
	input := textinput.New()
	input.Placeholder = "spent 50 on pizza / cât am cheltuit luna asta?"
	input.Focus()
	input.CharLimit = 500

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	m := Model{
		session: session,
		ctx:     ctx,
		input:   input,
		spin:    spin,
		styles:  defaultStyles(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles key presses, assistant replies and countdown events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.view = viewport.New(msg.Width, msg.Height-5)
			m.ready = true
		} else {
			m.view.Width = msg.Width
			m.view.Height = msg.Height - 5
		}
		m.refreshView()
		return m, nil

	case replyMsg:
		m.waiting = false
		m.appendMessage(msg.message)
		return m, nil

	case utteranceErrMsg:
		m.waiting = false
		m.lines = append(m.lines, line{text: msg.err.Error(), isErr: true})
		m.refreshView()
		return m, nil

	case controllerEventMsg:
		return m.handleControllerEvent(msg.event)

	case voiceResultMsg:
		text := strings.TrimSpace(msg.text)
		if text == "" || m.waiting {
			return m, nil
		}
		m.waiting = true
		m.lines = append(m.lines, line{text: text, fromUsr: true})
		m.refreshView()
		return m, tea.Batch(m.spin.Tick, m.submit(text))

	case voiceErrMsg:
		m.lines = append(m.lines, line{text: msg.err.Error(), isErr: true})
		m.refreshView()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		if m.waiting {
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit

	case tea.KeyEsc:
		if m.pending != nil {
			m.session.Controller().Cancel()
			return m, nil
		}
		m.quitting = true
		return m, tea.Quit

	case tea.KeyCtrlV:
		return m.toggleListening()

	case tea.KeyEnter:
		if m.pending != nil {
			// Enter during the countdown confirms immediately.
			_ = m.session.Controller().Confirm()
			return m, nil
		}
		text := strings.TrimSpace(m.input.Value())
		if text == "" || m.waiting {
			return m, nil
		}
		m.input.Reset()
		m.waiting = true
		m.lines = append(m.lines, line{text: text, fromUsr: true})
		m.refreshView()
		return m, tea.Batch(m.spin.Tick, m.submit(text))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// toggleListening starts or stops voice capture.
func (m Model) toggleListening() (tea.Model, tea.Cmd) {
	if m.capture == nil {
		m.lines = append(m.lines, line{text: "Voice input is not supported in this environment.", isErr: true})
		m.refreshView()
		return m, nil
	}
	if m.capture.State() == voice.StateListening {
		m.capture.StopListening()
		return m, nil
	}
	if err := m.capture.StartListening(m.ctx); err != nil {
		m.lines = append(m.lines, line{text: err.Error(), isErr: true})
		m.refreshView()
	}
	return m, nil
}

// submit runs one exchange off the update loop.
func (m Model) submit(text string) tea.Cmd {
	session := m.session
	ctx := m.ctx
	return func() tea.Msg {
		reply, err := session.HandleUtterance(ctx, text)
		if err != nil {
			return utteranceErrMsg{err: err}
		}
		return replyMsg{message: reply}
	}
}

func (m Model) handleControllerEvent(ev assistant.Event) (tea.Model, tea.Cmd) {
	switch ev.Kind {
	case assistant.EventTick:
		m.pending = &ev

	case assistant.EventCommitted:
		m.pending = nil
		m.lines = append(m.lines, line{
			text: fmt.Sprintf("Saved: %s %s (%s)",
				formatAmount(ev.Transaction.Amount), ev.Transaction.Category, ev.Transaction.Date),
		})
		m.refreshView()

	case assistant.EventCanceled:
		m.pending = nil
		m.lines = append(m.lines, line{text: "Canceled."})
		m.refreshView()

	case assistant.EventFailed:
		m.pending = nil
		m.lines = append(m.lines, line{text: "Could not save the transaction.", isErr: true})
		m.refreshView()
	}
	return m, nil
}

func (m *Model) appendMessage(msg assistant.Message) {
	m.lines = append(m.lines, line{text: msg.Text, fromUsr: msg.Sender == assistant.SenderUser})
	m.refreshView()
}

func (m *Model) refreshView() {
	if !m.ready {
		return
	}
	var b strings.Builder
	for _, l := range m.lines {
		switch {
		case l.isErr:
			b.WriteString(m.styles.errText.Render("! " + l.text))
		case l.fromUsr:
			b.WriteString(m.styles.user.Render("you ") + l.text)
		default:
			b.WriteString(m.styles.assistant.Render("kore ") + l.text)
		}
		b.WriteString("\n")
	}
	m.view.SetContent(b.String())
	m.view.GotoBottom()
}

// View renders the chat log, the confirmation card when one is pending,
// and the prompt.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(m.view.View())
	b.WriteString("\n")

	switch {
	case m.pending != nil:
		b.WriteString(m.renderPendingCard())
		b.WriteString("\n")
	case m.waiting:
		b.WriteString(m.spin.View() + " thinking...\n")
	case m.capture != nil && m.capture.State() == voice.StateListening:
		b.WriteString(m.styles.countdown.Render("● listening") +
			m.styles.hint.Render("  ctrl+v: stop") + "\n")
	}

	b.WriteString(m.styles.input.Width(m.width).Render(m.input.View()))
	return b.String()
}

func (m Model) renderPendingCard() string {
	txn := m.pending.Transaction
	body := fmt.Sprintf("%s\n%s  %s  %s\n%s",
		m.styles.cardTitle.Render("Confirm transaction"),
		formatAmount(txn.Amount), txn.Category, txn.Date,
		m.styles.countdown.Render(fmt.Sprintf("saving in %ds", m.pending.Remaining))+
			m.styles.hint.Render("  enter: save now · esc: cancel"))
	return m.styles.card.Render(body)
}

func formatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// Pending reports whether a confirmation card is showing; test hook for
// driving the update loop.
func (m Model) Pending() bool { return m.pending != nil }

// Lines returns the rendered chat rows.
func (m Model) Lines() []string {
	out := make([]string, len(m.lines))
	for i, l := range m.lines {
		out[i] = l.text
	}
	return out
}
