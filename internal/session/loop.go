package session

import (
	"context"
	"log"
	"sort"
	"strings"

	"sociogo/client/internal/config"
	"sociogo/client/internal/models"
)

// state is the reducer's whole world. Only the loop goroutine touches it.
type state struct {
	// gen is bumped on every Open and Close; async completions carry the
	// generation they were started under and are ignored when it no longer
	// matches, so a fetch resolving after close mutates nothing.
	gen uint64

	open   bool
	roomID int64

	messages []models.Message
	ids      map[int64]struct{}

	cursor       *int64
	hasMore      bool
	loadingOlder bool
	loadFailed   bool

	conn      LiveConn
	connState ConnState
	connErr   string

	atBottom   bool
	newMessage bool
	prepended  int
}

// Commands posted by the public API.
type (
	cmdOpen           struct{ roomID int64 }
	cmdClose          struct{}
	cmdLoadOlder      struct{}
	cmdScrollToBottom struct{}
	cmdSnapshot       struct{ reply chan Snapshot }
	cmdScroll         struct{ offset, max int }
	cmdSend           struct {
		body  string
		reply chan error
	}
)

// Completions posted by the fetch and dial goroutines.
type (
	evHistory struct {
		gen     uint64
		initial bool
		page    *models.MessagePage
		err     error
	}
	evLive struct {
		gen uint64
		msg models.Message
	}
	evConnected struct {
		gen  uint64
		conn LiveConn
	}
	evConnErr struct {
		gen uint64
		err error
	}
)

func (s *Session) loop() {
	s.st = state{
		ids:       make(map[int64]struct{}),
		connState: Disconnected,
		atBottom:  true,
	}

	for {
		select {
		case e := <-s.events:
			if s.reduce(e) {
				s.publish()
			}
		case <-s.quit:
			if s.st.conn != nil {
				s.st.conn.Close()
			}
			return
		}
	}
}

// reduce applies one event and reports whether a new snapshot should be
// published.
func (s *Session) reduce(e any) bool {
	// Prepended describes the most recent mutation; read-only commands must
	// not clear it.
	switch e.(type) {
	case cmdSnapshot, cmdSend:
	default:
		s.st.prepended = 0
	}

	switch e := e.(type) {
	case cmdOpen:
		s.handleOpen(e.roomID)
	case cmdClose:
		s.handleClose()
	case cmdLoadOlder:
		s.startLoadOlder()
	case cmdSend:
		e.reply <- s.handleSend(e.body)
		return false
	case cmdScroll:
		s.handleScroll(e.offset, e.max)
	case cmdScrollToBottom:
		s.st.atBottom = true
		s.st.newMessage = false
	case cmdSnapshot:
		e.reply <- s.snapshot()
		return false

	case evHistory:
		if e.gen != s.st.gen || !s.st.open {
			return false
		}
		s.applyHistory(e)
	case evLive:
		if e.gen != s.st.gen || !s.st.open || e.msg.ChatRoomID != s.st.roomID {
			return false
		}
		if added := s.insert([]models.Message{e.msg}); added > 0 && !s.st.atBottom {
			s.st.newMessage = true
		}
	case evConnected:
		if e.gen != s.st.gen || !s.st.open {
			// The room this dial belonged to is gone; release the
			// connection instead of leaking it.
			e.conn.Close()
			return false
		}
		s.handleConnected(e.conn)
	case evConnErr:
		if e.gen != s.st.gen || !s.st.open {
			return false
		}
		s.st.conn = nil
		s.st.connState = ConnError
		s.st.connErr = e.err.Error()
	}

	return true
}

func (s *Session) handleOpen(roomID int64) {
	if s.st.conn != nil {
		s.st.conn.Close()
	}

	s.st = state{
		gen:       s.st.gen + 1,
		open:      true,
		roomID:    roomID,
		ids:       make(map[int64]struct{}),
		hasMore:   true,
		connState: Connecting,
		atBottom:  true,
	}

	gen := s.st.gen
	go s.fetchHistory(gen, roomID, nil, true)
	go s.connect(gen)
}

func (s *Session) handleClose() {
	if s.st.conn != nil {
		s.st.conn.Close()
	}
	s.st = state{
		gen:       s.st.gen + 1,
		ids:       make(map[int64]struct{}),
		connState: Disconnected,
		atBottom:  true,
	}
}

func (s *Session) handleConnected(conn LiveConn) {
	s.st.conn = conn
	s.st.connState = Connected

	gen := s.st.gen
	err := conn.Subscribe(roomTopic(s.st.roomID), func(body []byte) {
		m, err := models.DecodeMessage(body)
		if err != nil {
			// One malformed payload must not take the session down.
			log.Printf("session: dropping malformed live payload: %v", err)
			return
		}
		s.post(evLive{gen: gen, msg: m})
	})
	if err != nil {
		conn.Close()
		s.st.conn = nil
		s.st.connState = ConnError
		s.st.connErr = err.Error()
	}
}

func (s *Session) handleSend(body string) error {
	switch {
	case s.st.connState != Connected || s.st.conn == nil:
		return ErrNotConnected
	case strings.TrimSpace(body) == "":
		return ErrEmptyBody
	case !s.viewer.Complete():
		return ErrIdentityIncomplete
	}

	return s.st.conn.Publish(sendDestination, models.OutgoingMessage{
		ChatRoomID:     s.st.roomID,
		SenderID:       s.viewer.MemberID,
		SenderRealName: s.viewer.RealName,
		SenderUsername: s.viewer.Username,
		Content:        body,
	})
}

func (s *Session) handleScroll(offset, max int) {
	atBottom := max-offset <= config.BottomThreshold
	s.st.atBottom = atBottom
	if atBottom {
		s.st.newMessage = false
	}
	if offset <= config.TopThreshold {
		s.startLoadOlder()
	}
}

// startLoadOlder issues a backward fetch unless one is in flight, the last
// page has been seen, or no cursor exists yet. Concurrent triggers while a
// fetch is pending are no-ops, so at most one backward fetch runs at a time.
func (s *Session) startLoadOlder() {
	if !s.st.open || s.st.loadingOlder || !s.st.hasMore || s.st.cursor == nil {
		return
	}
	s.st.loadingOlder = true
	s.st.loadFailed = false
	go s.fetchHistory(s.st.gen, s.st.roomID, s.st.cursor, false)
}

func (s *Session) applyHistory(e evHistory) {
	s.st.loadingOlder = false

	if e.err != nil {
		// Already-loaded messages stay intact; the user may retry.
		s.st.loadFailed = true
		return
	}

	if e.initial {
		s.st.messages = nil
		s.st.ids = make(map[int64]struct{})
	}

	added := s.insert(e.page.Content)
	if !e.initial {
		s.st.prepended = added
	}

	if oldest, ok := e.page.OldestID(); ok {
		s.st.cursor = &oldest
	}
	if e.page.Last || len(e.page.Content) == 0 {
		s.st.hasMore = false
	}
	s.st.loadFailed = false
}

// insert unions a batch into the message set under the dedup invariant and
// restores render order with a full stable re-sort. Room message counts are
// bounded by page size per operation, so the re-sort stays cheap; an
// incremental merge would be a drop-in replacement if that ever changes.
func (s *Session) insert(batch []models.Message) int {
	added := 0
	for _, m := range batch {
		if _, dup := s.st.ids[m.ChatID]; dup {
			continue
		}
		s.st.ids[m.ChatID] = struct{}{}
		s.st.messages = append(s.st.messages, m)
		added++
	}
	if added > 0 {
		sort.SliceStable(s.st.messages, func(i, j int) bool {
			return s.st.messages[i].Before(s.st.messages[j])
		})
	}
	return added
}

func (s *Session) fetchHistory(gen uint64, roomID int64, before *int64, initial bool) {
	page, err := s.history.Messages(context.Background(), roomID, before)
	s.post(evHistory{gen: gen, initial: initial, page: page, err: err})
}

func (s *Session) connect(gen uint64) {
	conn, err := s.dial(context.Background(), func(err error) {
		s.post(evConnErr{gen: gen, err: err})
	})
	if err != nil {
		s.post(evConnErr{gen: gen, err: err})
		return
	}
	s.post(evConnected{gen: gen, conn: conn})
}

func (s *Session) snapshot() Snapshot {
	msgs := make([]models.Message, len(s.st.messages))
	copy(msgs, s.st.messages)

	return Snapshot{
		RoomID:       s.st.roomID,
		Messages:     msgs,
		Conn:         s.st.connState,
		ConnErr:      s.st.connErr,
		HasMore:      s.st.hasMore,
		LoadingOlder: s.st.loadingOlder,
		LoadFailed:   s.st.loadFailed,
		AtBottom:     s.st.atBottom,
		NewMessage:   s.st.newMessage,
		Prepended:    s.st.prepended,
	}
}

// publish replaces whatever snapshot the consumer has not read yet; the
// updates channel always holds the newest state. Prepended counts from
// overwritten snapshots accumulate into the new one, so the consumer's
// scroll compensation survives coalescing.
func (s *Session) publish() {
	snap := s.snapshot()
	for {
		select {
		case s.updates <- snap:
			return
		default:
		}
		select {
		case old := <-s.updates:
			snap.Prepended += old.Prepended
		default:
		}
	}
}
