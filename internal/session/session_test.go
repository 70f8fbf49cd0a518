package session_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sociogo/client/internal/models"
	"sociogo/client/internal/session"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
	// settle is how long negative assertions wait for nothing to happen.
	settle = 50 * time.Millisecond
)

var viewer = session.Viewer{MemberID: 7, Username: "viewer", RealName: "Viewer Kim"}

func messageIDs(snap session.Snapshot) []int64 {
	ids := make([]int64, 0, len(snap.Messages))
	for _, m := range snap.Messages {
		ids = append(ids, m.ChatID)
	}
	return ids
}

func waitConnected(t *testing.T, s *session.Session) {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.Snapshot().Conn == session.Connected
	}, waitFor, tick, "session never reached Connected")
}

func waitMessages(t *testing.T, s *session.Session, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(s.Snapshot().Messages) == n
	}, waitFor, tick, "session never held %d messages", n)
}

// TestScenario_HistoryThenLiveMerge walks the canonical flow: open a room,
// receive an unsorted history page, then a live message, then a duplicate.
func TestScenario_HistoryThenLiveMerge(t *testing.T) {
	// Arrange
	history := staticHistory(page(false, msg(5, 100), msg(3, 90)))
	live := newMockLive()
	s := session.New(history, dialerFor(live), viewer)
	defer s.Stop()

	// Act - open room 42 as viewer 7
	s.Open(42)
	waitConnected(t, s)
	waitMessages(t, s, 2)

	// Assert - history page is re-sorted into render order
	assert.Equal(t, []int64{3, 5}, messageIDs(s.Snapshot()))

	// Act - live message arrives
	live.deliver("/topic/chat-room/42", msg(6, 110))
	waitMessages(t, s, 3)
	assert.Equal(t, []int64{3, 5, 6}, messageIDs(s.Snapshot()))

	// Act - duplicate of an already-held message arrives
	live.deliver("/topic/chat-room/42", msg(5, 100))
	time.Sleep(settle)

	// Assert - set is unchanged, each identifier held exactly once
	snap := s.Snapshot()
	assert.Equal(t, []int64{3, 5, 6}, messageIDs(snap))
	assert.Len(t, snap.Messages, 3)
}

// TestDedup_AcrossHistoryPages verifies the dedup invariant when a backward
// page overlaps messages already held.
func TestDedup_AcrossHistoryPages(t *testing.T) {
	// Arrange - page 0 holds {5,4}; the older page re-delivers 4 alongside 3
	history := &mockHistory{respond: func(_ int64, before *int64) (*models.MessagePage, error) {
		if before == nil {
			return page(false, msg(5, 100), msg(4, 95)), nil
		}
		return page(true, msg(4, 95), msg(3, 90)), nil
	}}
	live := newMockLive()
	s := session.New(history, dialerFor(live), viewer)
	defer s.Stop()

	s.Open(42)
	waitMessages(t, s, 2)

	// Act
	s.LoadOlder()
	waitMessages(t, s, 3)

	// Assert
	snap := s.Snapshot()
	assert.Equal(t, []int64{3, 4, 5}, messageIDs(snap))
	assert.False(t, snap.HasMore, "last page must terminate pagination")
	assert.Equal(t, 1, snap.Prepended, "only the one new message counts as prepended")
}

// TestOrderInvariant_ArrivalOrderIrrelevant inserts messages in scrambled
// arrival order and expects render order by (timestamp, id).
func TestOrderInvariant_ArrivalOrderIrrelevant(t *testing.T) {
	history := staticHistory(page(false, msg(20, 300), msg(8, 120)))
	live := newMockLive()
	s := session.New(history, dialerFor(live), viewer)
	defer s.Stop()

	s.Open(42)
	waitConnected(t, s)
	waitMessages(t, s, 2)

	// Live arrivals out of timestamp order, including a timestamp tie.
	live.deliver("/topic/chat-room/42", msg(15, 200))
	live.deliver("/topic/chat-room/42", msg(2, 120))
	waitMessages(t, s, 4)

	assert.Equal(t, []int64{2, 8, 15, 20}, messageIDs(s.Snapshot()),
		"ties on timestamp break by ascending id")
}

// TestLoadOlder_SingleFlight issues LoadOlder twice while the first fetch is
// held in flight; exactly one backward request must reach the service.
func TestLoadOlder_SingleFlight(t *testing.T) {
	// Arrange
	gate := make(chan struct{})
	history := &mockHistory{
		gate: gate,
		respond: func(_ int64, before *int64) (*models.MessagePage, error) {
			if before == nil {
				return page(false, msg(5, 100)), nil
			}
			return page(true, msg(3, 90)), nil
		},
	}
	live := newMockLive()
	s := session.New(history, dialerFor(live), viewer)
	defer s.Stop()

	s.Open(42)
	waitMessages(t, s, 1)

	// Act - second call lands while the first is still blocked on the gate
	s.LoadOlder()
	require.Eventually(t, func() bool {
		return s.Snapshot().LoadingOlder
	}, waitFor, tick)
	s.LoadOlder()
	time.Sleep(settle)
	close(gate)
	waitMessages(t, s, 2)

	// Assert
	assert.Len(t, history.olderCalls(), 1, "concurrent LoadOlder must be a no-op")
}

// TestPagination_Termination stops fetching once a page reports last=true.
func TestPagination_Termination(t *testing.T) {
	history := &mockHistory{respond: func(_ int64, before *int64) (*models.MessagePage, error) {
		if before == nil {
			return page(false, msg(5, 100)), nil
		}
		return page(true, msg(3, 90)), nil
	}}
	live := newMockLive()
	s := session.New(history, dialerFor(live), viewer)
	defer s.Stop()

	s.Open(42)
	waitMessages(t, s, 1)
	s.LoadOlder()
	waitMessages(t, s, 2)

	// Act - both the explicit call and the scroll-edge trigger must no-op
	s.LoadOlder()
	s.SetScrollPos(0, 1000)
	time.Sleep(settle)

	// Assert
	assert.Len(t, history.olderCalls(), 1, "no fetch after last=true was observed")
	assert.False(t, s.Snapshot().HasMore)
}

// TestPagination_EmptyPageTerminates treats a zero-message page like a last
// page.
func TestPagination_EmptyPageTerminates(t *testing.T) {
	history := &mockHistory{respond: func(_ int64, before *int64) (*models.MessagePage, error) {
		if before == nil {
			return page(false, msg(5, 100)), nil
		}
		return page(false), nil
	}}
	live := newMockLive()
	s := session.New(history, dialerFor(live), viewer)
	defer s.Stop()

	s.Open(42)
	waitMessages(t, s, 1)
	s.LoadOlder()

	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return !snap.LoadingOlder && !snap.HasMore
	}, waitFor, tick)
	s.LoadOlder()
	time.Sleep(settle)

	assert.Len(t, history.olderCalls(), 1)
}

// TestSend_Preconditions rejects sends synchronously without touching the
// bridge.
func TestSend_Preconditions(t *testing.T) {
	history := staticHistory(page(true, msg(5, 100)))
	live := newMockLive()
	s := session.New(history, dialerFor(live), viewer)
	defer s.Stop()

	// Not connected yet: nothing was opened.
	err := s.Send("hi")
	assert.ErrorIs(t, err, session.ErrNotConnected)

	s.Open(42)
	waitConnected(t, s)

	// Empty and whitespace-only bodies.
	assert.ErrorIs(t, s.Send(""), session.ErrEmptyBody)
	assert.ErrorIs(t, s.Send("   "), session.ErrEmptyBody)
	assert.Zero(t, live.publishCount(), "rejected sends must not publish")

	// A valid send publishes exactly one outgoing payload.
	require.NoError(t, s.Send("hi"))
	require.Equal(t, 1, live.publishCount())
	live.mu.Lock()
	call := live.published[0]
	live.mu.Unlock()
	assert.Equal(t, "/app/chat.send", call.destination)
	out, ok := call.payload.(models.OutgoingMessage)
	require.True(t, ok)
	assert.Equal(t, int64(42), out.ChatRoomID)
	assert.Equal(t, viewer.MemberID, out.SenderID)
	assert.Equal(t, "hi", out.Content)

	// The sent message is not inserted optimistically.
	time.Sleep(settle)
	assert.Len(t, s.Snapshot().Messages, 1)
}

// TestSend_IdentityIncomplete gates on the viewer identity being fully
// known.
func TestSend_IdentityIncomplete(t *testing.T) {
	history := staticHistory(page(true))
	live := newMockLive()
	s := session.New(history, dialerFor(live), session.Viewer{MemberID: 7})
	defer s.Stop()

	s.Open(42)
	waitConnected(t, s)

	assert.ErrorIs(t, s.Send("hi"), session.ErrIdentityIncomplete)
	assert.Zero(t, live.publishCount())
}

// TestNewMessageIndicator raises the flag only when scrolled away from the
// bottom, and clears it on scroll-to-bottom.
func TestNewMessageIndicator(t *testing.T) {
	history := staticHistory(page(false, msg(5, 100)))
	live := newMockLive()
	s := session.New(history, dialerFor(live), viewer)
	defer s.Stop()

	s.Open(42)
	waitConnected(t, s)
	waitMessages(t, s, 1)

	// At bottom: arrivals do not raise the flag.
	live.deliver("/topic/chat-room/42", msg(6, 110))
	waitMessages(t, s, 2)
	assert.False(t, s.Snapshot().NewMessage)

	// Scrolled away (mid-list, not near either edge).
	s.SetScrollPos(500, 1000)
	require.Eventually(t, func() bool {
		return !s.Snapshot().AtBottom
	}, waitFor, tick)

	live.deliver("/topic/chat-room/42", msg(7, 120))
	require.Eventually(t, func() bool {
		return s.Snapshot().NewMessage
	}, waitFor, tick, "arrival while away from bottom must raise the indicator")

	// Act - viewer jumps to the newest message
	s.ScrollToBottom()
	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return snap.AtBottom && !snap.NewMessage
	}, waitFor, tick)
}

// TestScrollEdge_TriggersLoadOlder drives backward pagination from the
// scroll position alone.
func TestScrollEdge_TriggersLoadOlder(t *testing.T) {
	history := &mockHistory{respond: func(_ int64, before *int64) (*models.MessagePage, error) {
		if before == nil {
			return page(false, msg(5, 100), msg(3, 90)), nil
		}
		return page(true, msg(1, 80)), nil
	}}
	live := newMockLive()
	s := session.New(history, dialerFor(live), viewer)
	defer s.Stop()

	s.Open(42)
	waitMessages(t, s, 2)

	// Act - view reaches the top edge
	s.SetScrollPos(0, 1000)
	waitMessages(t, s, 3)

	// Assert - the fetch used the oldest held id as cursor
	older := history.olderCalls()
	require.Len(t, older, 1)
	assert.Equal(t, int64(3), *older[0].before)
	assert.Equal(t, []int64{1, 3, 5}, messageIDs(s.Snapshot()))
}

// TestClose_IgnoresLateFetch guards every async completion against the
// currently open room: a fetch resolving after Close must mutate nothing.
func TestClose_IgnoresLateFetch(t *testing.T) {
	// Arrange - hold the backward fetch in flight across a Close
	gate := make(chan struct{})
	history := &mockHistory{
		gate: gate,
		respond: func(_ int64, before *int64) (*models.MessagePage, error) {
			if before == nil {
				return page(false, msg(5, 100)), nil
			}
			return page(true, msg(3, 90)), nil
		},
	}
	live := newMockLive()
	s := session.New(history, dialerFor(live), viewer)
	defer s.Stop()

	s.Open(42)
	waitConnected(t, s)
	waitMessages(t, s, 1)
	s.LoadOlder()
	require.Eventually(t, func() bool {
		return s.Snapshot().LoadingOlder
	}, waitFor, tick)

	// Act
	s.Close()
	close(gate)
	time.Sleep(settle)

	// Assert - the stale page never landed and the connection was released
	snap := s.Snapshot()
	assert.Empty(t, snap.Messages)
	assert.Equal(t, session.Disconnected, snap.Conn)
	assert.True(t, live.isClosed())

	// Close is idempotent.
	s.Close()
	assert.True(t, live.isClosed())
}

// TestReopen_ClosesPreviousConnection guarantees at most one live
// subscription per session.
func TestReopen_ClosesPreviousConnection(t *testing.T) {
	history := staticHistory(page(true, msg(5, 100)))
	live1 := newMockLive()
	live2 := newMockLive()
	s := session.New(history, dialerFor(live1, live2), viewer)
	defer s.Stop()

	s.Open(42)
	waitConnected(t, s)
	require.True(t, live1.subscribedTo("/topic/chat-room/42"))

	// Act - open another room while the first connection is alive
	s.Open(43)
	require.Eventually(t, func() bool {
		return live1.isClosed()
	}, waitFor, tick, "previous connection must be closed first")
	require.Eventually(t, func() bool {
		return live2.subscribedTo("/topic/chat-room/43")
	}, waitFor, tick)
	assert.False(t, live2.subscribedTo("/topic/chat-room/42"))
}

// TestMalformedLivePayload_Dropped keeps the session alive past a bad
// payload.
func TestMalformedLivePayload_Dropped(t *testing.T) {
	history := staticHistory(page(true, msg(5, 100)))
	live := newMockLive()
	s := session.New(history, dialerFor(live), viewer)
	defer s.Stop()

	s.Open(42)
	waitConnected(t, s)
	waitMessages(t, s, 1)

	// Act - garbage, then a message with no identifiers, then a valid one
	live.deliverRaw("/topic/chat-room/42", []byte("{not json"))
	live.deliverRaw("/topic/chat-room/42", []byte(`{"content":"no ids"}`))
	live.deliver("/topic/chat-room/42", msg(6, 110))

	// Assert
	waitMessages(t, s, 2)
	assert.Equal(t, []int64{5, 6}, messageIDs(s.Snapshot()))
}

// TestHistoryFailure_KeepsLoadedMessages degrades without corrupting state.
func TestHistoryFailure_KeepsLoadedMessages(t *testing.T) {
	fetchErr := errors.New("boom")
	failOlder := &mockHistory{respond: func(_ int64, before *int64) (*models.MessagePage, error) {
		if before == nil {
			return page(false, msg(5, 100)), nil
		}
		return nil, fetchErr
	}}
	live := newMockLive()
	s := session.New(failOlder, dialerFor(live), viewer)
	defer s.Stop()

	s.Open(42)
	waitMessages(t, s, 1)

	// Act
	s.LoadOlder()
	require.Eventually(t, func() bool {
		return s.Snapshot().LoadFailed
	}, waitFor, tick)

	// Assert - loaded page intact, and the operation may be retried
	snap := s.Snapshot()
	assert.Equal(t, []int64{5}, messageIDs(snap))
	assert.False(t, snap.LoadingOlder)
	assert.True(t, snap.HasMore)

	s.LoadOlder()
	require.Eventually(t, func() bool {
		return len(failOlder.olderCalls()) == 2
	}, waitFor, tick, "retry after failure must issue a new fetch")
}

// TestDialFailure_SurfacesError moves the state machine to its terminal
// error state and disables send; no reconnect is attempted.
func TestDialFailure_SurfacesError(t *testing.T) {
	history := staticHistory(page(true, msg(5, 100)))
	s := session.New(history, failingDialer(errors.New("handshake refused")), viewer)
	defer s.Stop()

	s.Open(42)

	require.Eventually(t, func() bool {
		return s.Snapshot().Conn == session.ConnError
	}, waitFor, tick)
	snap := s.Snapshot()
	assert.Contains(t, snap.ConnErr, "handshake refused")
	assert.ErrorIs(t, s.Send("hi"), session.ErrNotConnected)

	// History still loaded: the session is degraded, not dead.
	waitMessages(t, s, 1)
}

// TestUpdates_PrependSurvivesCoalescing lets a live arrival overwrite an
// unconsumed snapshot that carried a prepend count; the count must carry
// over so the consumer's scroll compensation is not lost.
func TestUpdates_PrependSurvivesCoalescing(t *testing.T) {
	history := &mockHistory{respond: func(_ int64, before *int64) (*models.MessagePage, error) {
		if before == nil {
			return page(false, msg(5, 100)), nil
		}
		return page(true, msg(3, 90)), nil
	}}
	live := newMockLive()
	s := session.New(history, dialerFor(live), viewer)
	defer s.Stop()

	s.Open(42)
	waitConnected(t, s)
	waitMessages(t, s, 1)

	// Leave the published snapshots unread from here on.
	drainUpdates(s)

	s.LoadOlder()
	waitMessages(t, s, 2)
	live.deliver("/topic/chat-room/42", msg(6, 110))
	waitMessages(t, s, 3)

	select {
	case snap := <-s.Updates():
		assert.Len(t, snap.Messages, 3)
		assert.Equal(t, 1, snap.Prepended,
			"prepend count must survive being overwritten by later snapshots")
	case <-time.After(waitFor):
		t.Fatal("no snapshot published")
	}
}

func drainUpdates(s *session.Session) {
	for {
		select {
		case <-s.Updates():
		default:
			return
		}
	}
}

// TestStop_UnblocksPendingCalls races the synchronous calls against Stop:
// a command the loop never dequeues must not leave its caller blocked on
// the reply.
func TestStop_UnblocksPendingCalls(t *testing.T) {
	for i := 0; i < 50; i++ {
		history := staticHistory(page(true, msg(5, 100)))
		live := newMockLive()
		s := session.New(history, dialerFor(live), viewer)
		s.Open(42)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for j := 0; j < 20; j++ {
				s.Snapshot()
				_ = s.Send("hi")
			}
		}()

		s.Stop()

		select {
		case <-done:
		case <-time.After(waitFor):
			t.Fatal("Snapshot or Send hung after Stop")
		}
	}
}

// TestTransportError_MidSession handles a drop after Connected.
func TestTransportError_MidSession(t *testing.T) {
	history := staticHistory(page(true, msg(5, 100)))
	live := newMockLive()
	s := session.New(history, dialerFor(live), viewer)
	defer s.Stop()

	s.Open(42)
	waitConnected(t, s)

	// Act
	live.fireError(errors.New("peer reset"))

	require.Eventually(t, func() bool {
		return s.Snapshot().Conn == session.ConnError
	}, waitFor, tick)
	assert.ErrorIs(t, s.Send("hi"), session.ErrNotConnected)
}
