package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"sociogo/client/internal/api"
	"sociogo/client/internal/session"
)

type screen int

const (
	screenRooms screen = iota
	screenChat
)

// App is the top-level bubbletea model: the room list screen and, once a
// room is opened, the chat screen on top of the shared session.
type App struct {
	sess   *session.Session
	screen screen
	rooms  roomListModel
	chat   chatModel

	lastSize tea.WindowSizeMsg
}

// NewApp wires the screens to a shared API client and chat session.
func NewApp(client *api.Client, sess *session.Session, viewer session.Viewer) App {
	return App{
		sess:  sess,
		rooms: newRoomListModel(client, viewer),
	}
}

func (a App) Init() tea.Cmd {
	return a.rooms.Init()
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.lastSize = msg

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			a.sess.Stop()
			return a, tea.Quit
		case tea.KeyEsc:
			if a.screen == screenChat {
				a.sess.Close()
				a.screen = screenRooms
				return a, nil
			}
			a.sess.Stop()
			return a, tea.Quit
		}

	case openRoomMsg:
		a.chat = newChatModel(a.sess, a.rooms.viewer, a.rooms.roomTitle(msg.room))
		a.screen = screenChat
		a.sess.Open(msg.room.ChatRoomID)

		cmds := []tea.Cmd{a.chat.Init()}
		if a.lastSize.Width > 0 {
			var cmd tea.Cmd
			a.chat, cmd = a.chat.Update(a.lastSize)
			cmds = append(cmds, cmd)
		}
		return a, tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	switch a.screen {
	case screenRooms:
		a.rooms, cmd = a.rooms.Update(msg)
	case screenChat:
		a.chat, cmd = a.chat.Update(msg)
	}
	return a, cmd
}

func (a App) View() string {
	switch a.screen {
	case screenChat:
		return a.chat.View()
	default:
		return a.rooms.View()
	}
}
