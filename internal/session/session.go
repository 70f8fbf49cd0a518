// Package session owns the lifecycle of one open chat room: the initial
// history load, the live connection, merging historical and live messages
// into a single deduplicated time-ordered view, backward pagination, and the
// scroll/new-message bookkeeping the view layer needs.
//
// All state lives on a single goroutine fed by one event channel; public
// methods post commands into it. Two arrivals are therefore always applied
// as two sequential insertions and the dedup/ordering invariants cannot be
// broken by interleaving.
package session

import (
	"context"
	"errors"
	"fmt"

	"sociogo/client/internal/models"
)

// Send precondition failures. These are rejected synchronously, before any
// network call is attempted.
var (
	ErrNotConnected       = errors.New("session: live connection is not established")
	ErrEmptyBody          = errors.New("session: message body is empty")
	ErrIdentityIncomplete = errors.New("session: viewer identity is incomplete")
)

// History fetches backward pages of room history. before is the current
// pagination cursor; nil means the newest page.
type History interface {
	Messages(ctx context.Context, roomID int64, before *int64) (*models.MessagePage, error)
}

// LiveConn is an established bridge connection, scoped to this session.
type LiveConn interface {
	Subscribe(destination string, h func(body []byte)) error
	Publish(destination string, payload any) error
	Close()
}

// DialFunc opens a live connection. onError fires at most once, on the first
// transport failure after a successful dial.
type DialFunc func(ctx context.Context, onError func(error)) (LiveConn, error)

// Viewer is the read-only identity of the current user, injected at
// construction so the session never reaches into ambient global state.
type Viewer struct {
	MemberID int64
	Username string
	RealName string
}

// Complete reports whether the identity carries everything an outgoing
// message needs.
func (v Viewer) Complete() bool {
	return v.MemberID != 0 && v.Username != "" && v.RealName != ""
}

// ConnState is the live connection lifecycle state.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
	// ConnError is terminal for the session: the transport failed and no
	// reconnect is attempted. Re-opening the room starts over.
	ConnError
)

func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case ConnError:
		return "error"
	default:
		return fmt.Sprintf("ConnState(%d)", int(s))
	}
}

// Snapshot is an immutable view of the session published after every
// reduction.
type Snapshot struct {
	RoomID   int64
	Messages []models.Message // render order: ascending (CreatedAt, ChatID)

	Conn    ConnState
	ConnErr string // diagnostic reason when Conn == ConnError

	// HasMore is false once a history page reported last=true (or came back
	// empty); further LoadOlder calls are no-ops.
	HasMore      bool
	LoadingOlder bool
	LoadFailed   bool // the most recent history fetch failed

	AtBottom   bool
	NewMessage bool // a live message arrived while scrolled away from bottom

	// Prepended is how many older messages the last reduction inserted; the
	// view uses it to preserve the relative scroll offset instead of
	// jumping.
	Prepended int
}

const sendDestination = "/app/chat.send"

func roomTopic(roomID int64) string {
	return fmt.Sprintf("/topic/chat-room/%d", roomID)
}

// Session is the chat room actor. Create with New, drive with the public
// methods, consume state via Updates or Snapshot, and Stop when done.
type Session struct {
	history History
	dial    DialFunc
	viewer  Viewer

	events  chan any
	quit    chan struct{}
	updates chan Snapshot

	st state
}

// New builds a session and starts its reducer goroutine.
func New(history History, dial DialFunc, viewer Viewer) *Session {
	s := &Session{
		history: history,
		dial:    dial,
		viewer:  viewer,
		events:  make(chan any, 32),
		quit:    make(chan struct{}),
		updates: make(chan Snapshot, 1),
	}
	go s.loop()
	return s
}

// Updates delivers the latest snapshot after each reduction. The channel is
// coalescing: when the consumer lags, intermediate snapshots are dropped and
// only the newest is kept.
func (s *Session) Updates() <-chan Snapshot {
	return s.updates
}

// Snapshot returns the current state synchronously. After Stop it returns
// the zero snapshot.
func (s *Session) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	select {
	case s.events <- cmdSnapshot{reply: reply}:
	case <-s.quit:
		return Snapshot{}
	}
	// Stop can win the loop's select with the command still buffered; never
	// block on a reply that will not come.
	select {
	case snap := <-reply:
		return snap
	case <-s.quit:
		select {
		case snap := <-reply:
			return snap
		default:
			return Snapshot{}
		}
	}
}

// Open resets the session to the given room: clears the message set, issues
// the first history fetch and connects the live bridge. Re-opening while a
// previous room's connection is alive closes it first, so at most one
// subscription exists at any time.
func (s *Session) Open(roomID int64) {
	s.post(cmdOpen{roomID: roomID})
}

// Close releases the live connection and invalidates any in-flight fetch.
// Idempotent; must be called when navigating away from the room.
func (s *Session) Close() {
	s.post(cmdClose{})
}

// LoadOlder requests the next backward history page. It is a no-op while a
// fetch is already in flight, after the last page has been seen, or before
// the first page established a cursor.
func (s *Session) LoadOlder() {
	s.post(cmdLoadOlder{})
}

// Send publishes one outgoing message to the room. It never inserts locally:
// the message shows up when it round-trips through the room subscription.
// Preconditions are checked synchronously; on violation the returned error
// is one of ErrNotConnected, ErrEmptyBody, ErrIdentityIncomplete and no
// network call is made.
func (s *Session) Send(body string) error {
	reply := make(chan error, 1)
	select {
	case s.events <- cmdSend{body: body, reply: reply}:
	case <-s.quit:
		return ErrNotConnected
	}
	select {
	case err := <-reply:
		return err
	case <-s.quit:
		select {
		case err := <-reply:
			return err
		default:
			return ErrNotConnected
		}
	}
}

// SetScrollPos reports the view's scroll position: offset is the current
// scroll offset, max the largest reachable one. It maintains the at-bottom
// anchor and triggers LoadOlder when the view reaches the top edge.
func (s *Session) SetScrollPos(offset, max int) {
	s.post(cmdScroll{offset: offset, max: max})
}

// ScrollToBottom pins the anchor to the newest message and clears the
// new-message indicator.
func (s *Session) ScrollToBottom() {
	s.post(cmdScrollToBottom{})
}

// Stop terminates the reducer goroutine, closing the live connection if one
// is open. The session is unusable afterwards.
func (s *Session) Stop() {
	select {
	case <-s.quit:
	default:
		close(s.quit)
	}
}

func (s *Session) post(e any) {
	select {
	case s.events <- e:
	case <-s.quit:
	}
}
