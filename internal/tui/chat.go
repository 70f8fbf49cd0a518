// Package tui is the terminal view layer: a room list screen and a chat room
// screen rendering the session snapshot. Every screen is a bubbletea model;
// the app model in app.go switches between them.
package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"sociogo/client/internal/models"
	"sociogo/client/internal/session"
)

// snapshotMsg carries one session snapshot into the update loop.
type snapshotMsg session.Snapshot

// waitForSnapshot blocks on the session's coalescing updates channel and
// resolves to the newest snapshot. The chat model re-issues it after every
// delivery.
func waitForSnapshot(updates <-chan session.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return nil
		}
		return snapshotMsg(snap)
	}
}

// chatModel renders one open chat room: history plus live messages in a
// viewport, a text input for sending, and the status line with connection
// state, loading spinner and new-message indicator.
type chatModel struct {
	sess   *session.Session
	viewer session.Viewer
	title  string

	viewport  viewport.Model
	textinput textinput.Model
	spinner   spinner.Model
	styles    styles

	snap    session.Snapshot
	sendErr error

	width  int
	height int
	ready  bool
}

func newChatModel(sess *session.Session, viewer session.Viewer, title string) chatModel {
	ti := textinput.New()
	ti.Placeholder = "Message"
	ti.CharLimit = 1000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return chatModel{
		sess:      sess,
		viewer:    viewer,
		title:     title,
		textinput: ti,
		spinner:   sp,
		styles:    defaultStyles(),
	}
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(waitForSnapshot(m.sess.Updates()), m.spinner.Tick)
}

// chromeHeight is the number of lines around the viewport: title, status and
// input.
const chromeHeight = 3

func (m chatModel) Update(msg tea.Msg) (chatModel, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-chromeHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - chromeHeight
		}
		m.viewport.SetContent(m.renderMessages())
		if m.snap.AtBottom {
			m.viewport.GotoBottom()
		}

	case snapshotMsg:
		m = m.applySnapshot(session.Snapshot(msg))
		cmds = append(cmds, waitForSnapshot(m.sess.Updates()))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEnter:
			m.sendErr = m.sess.Send(m.textinput.Value())
			if m.sendErr == nil {
				m.textinput.Reset()
			}
		case tea.KeyEnd:
			m.sess.ScrollToBottom()
			m.viewport.GotoBottom()
			m.reportScroll()
		case tea.KeyUp, tea.KeyDown, tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			cmds = append(cmds, cmd)
			m.reportScroll()
		default:
			var cmd tea.Cmd
			m.textinput, cmd = m.textinput.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
		m.reportScroll()
	}

	return m, tea.Batch(cmds...)
}

// applySnapshot folds one session snapshot into the view. When older
// messages were prepended, the viewport offset shifts by the same number of
// lines so the content under the cursor stays put.
func (m chatModel) applySnapshot(snap session.Snapshot) chatModel {
	m.snap = snap
	if !m.ready {
		return m
	}

	m.viewport.SetContent(m.renderMessages())
	switch {
	case snap.Prepended > 0:
		m.viewport.SetYOffset(m.viewport.YOffset + snap.Prepended)
	case snap.AtBottom:
		m.viewport.GotoBottom()
	}
	return m
}

// reportScroll feeds the viewport position back into the session, which owns
// the at-bottom anchor and the top-edge pagination trigger.
func (m *chatModel) reportScroll() {
	max := m.viewport.TotalLineCount() - m.viewport.Height
	if max < 0 {
		max = 0
	}
	m.sess.SetScrollPos(m.viewport.YOffset, max)
}

// renderMessages produces one line per message, so line offsets and message
// offsets stay interchangeable for the prepend adjustment.
func (m chatModel) renderMessages() string {
	var b strings.Builder
	for i, msg := range m.snap.Messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.renderMessage(msg))
	}
	return b.String()
}

func (m chatModel) renderMessage(msg models.Message) string {
	sender := m.styles.Sender
	name := msg.SenderRealName
	if msg.SenderID == m.viewer.MemberID {
		sender = m.styles.OwnSender
		name = "you"
	}
	ts := m.styles.Dim.Render(msg.CreatedAt.Local().Format("15:04"))
	return fmt.Sprintf("%s %s %s", ts, sender.Render(name+":"), msg.Content)
}

func (m chatModel) View() string {
	if !m.ready {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(m.styles.Title.Render(m.title))
	b.WriteString(m.styles.Dim.Render("  [" + m.snap.Conn.String() + "]"))
	b.WriteByte('\n')
	b.WriteString(m.viewport.View())
	b.WriteByte('\n')
	b.WriteString(m.statusLine())
	b.WriteByte('\n')
	b.WriteString(m.textinput.View())
	return b.String()
}

func (m chatModel) statusLine() string {
	switch {
	case m.snap.Conn == session.ConnError:
		return m.styles.Error.Render("connection lost: " + m.snap.ConnErr)
	case m.sendErr != nil:
		return m.styles.Error.Render(sendErrText(m.sendErr))
	case m.snap.LoadFailed:
		return m.styles.Error.Render("could not load older messages (scroll up to retry)")
	case m.snap.LoadingOlder:
		return m.spinner.View() + m.styles.Dim.Render(" loading older messages")
	case m.snap.NewMessage:
		return m.styles.Indicator.Render("new message ↓ (End to jump)")
	case !m.snap.HasMore:
		return m.styles.Dim.Render("beginning of conversation")
	default:
		return ""
	}
}

func sendErrText(err error) string {
	switch {
	case errors.Is(err, session.ErrEmptyBody):
		return "cannot send an empty message"
	case errors.Is(err, session.ErrNotConnected):
		return "not connected"
	case errors.Is(err, session.ErrIdentityIncomplete):
		return "sign in before sending"
	default:
		return "send failed: " + err.Error()
	}
}
