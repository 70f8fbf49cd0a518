package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"sociogo/client/internal/api"
	"sociogo/client/internal/config"
	"sociogo/client/internal/models"
	"sociogo/client/internal/session"
)

type roomsMsg struct {
	page *models.RoomPage
	err  error
}

// openRoomMsg is emitted when the viewer picks a room; the app model switches
// to the chat screen.
type openRoomMsg struct {
	room models.ChatRoom
}

// roomListModel is the paginated room list. Moving the cursor near the end
// of the loaded list fetches the next page, so scrolling is seamless.
type roomListModel struct {
	client *api.Client
	viewer session.Viewer
	styles styles

	rooms   []models.ChatRoom
	ids     map[int64]struct{}
	cursor  int
	page    int
	hasMore bool
	loading bool
	err     error

	height int
}

func newRoomListModel(client *api.Client, viewer session.Viewer) roomListModel {
	return roomListModel{
		client: client,
		viewer: viewer,
		styles: defaultStyles(),
		ids:    make(map[int64]struct{}),
		// Init issues the page-0 fetch, so the model starts loading;
		// otherwise a key press before the first page lands would pass the
		// fetch-ahead guard and double-count the page.
		loading: true,
		hasMore: true,
	}
}

func (m roomListModel) Init() tea.Cmd {
	return m.fetchPage(0)
}

func (m roomListModel) fetchPage(page int) tea.Cmd {
	return func() tea.Msg {
		p, err := m.client.ChatRooms(context.Background(), page, config.RoomPageSize)
		return roomsMsg{page: p, err: err}
	}
}

func (m roomListModel) Update(msg tea.Msg) (roomListModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height

	case roomsMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		for _, r := range msg.page.Content {
			if _, dup := m.ids[r.ChatRoomID]; dup {
				continue
			}
			m.ids[r.ChatRoomID] = struct{}{}
			m.rooms = append(m.rooms, r)
		}
		m.page++
		m.hasMore = !msg.page.Last && len(msg.page.Content) > 0

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyUp:
			if m.cursor > 0 {
				m.cursor--
			}
		case tea.KeyDown:
			if m.cursor < len(m.rooms)-1 {
				m.cursor++
			}
			return m, m.maybeFetchMore()
		case tea.KeyEnter:
			if m.cursor < len(m.rooms) {
				room := m.rooms[m.cursor]
				return m, func() tea.Msg { return openRoomMsg{room: room} }
			}
		}
		if msg.String() == "r" {
			// Refetch from the start.
			m.rooms = nil
			m.ids = make(map[int64]struct{})
			m.cursor = 0
			m.page = 0
			m.hasMore = true
			m.loading = true
			return m, m.fetchPage(0)
		}
	}

	return m, nil
}

// maybeFetchMore loads the next page once the cursor is within a page of the
// end of the loaded list.
func (m *roomListModel) maybeFetchMore() tea.Cmd {
	if m.loading || !m.hasMore {
		return nil
	}
	if len(m.rooms)-m.cursor > config.RoomPageSize/2 {
		return nil
	}
	m.loading = true
	return m.fetchPage(m.page)
}

// roomTitle is the display name for a room from the viewer's side: the other
// participant's real name.
func (m roomListModel) roomTitle(room models.ChatRoom) string {
	if opp, ok := room.Opponent(m.viewer.MemberID); ok {
		return fmt.Sprintf("%s (@%s)", opp.RealName, opp.Username)
	}
	return fmt.Sprintf("room %d", room.ChatRoomID)
}

func (m roomListModel) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Chats"))
	b.WriteByte('\n')

	if m.err != nil {
		b.WriteString(m.styles.Error.Render("could not load rooms: " + m.err.Error()))
		b.WriteString(m.styles.Dim.Render("  (r to retry)"))
		return b.String()
	}
	if len(m.rooms) == 0 && !m.loading {
		b.WriteString(m.styles.Dim.Render("no conversations yet"))
		return b.String()
	}

	for i, room := range m.rooms {
		line := m.roomTitle(room)
		if room.LastChat != "" {
			line += m.styles.Dim.Render("  " + truncate(room.LastChat, 40))
		}
		if i == m.cursor {
			line = m.styles.Selected.Render("> ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	if m.loading {
		b.WriteString(m.styles.Dim.Render("loading..."))
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
