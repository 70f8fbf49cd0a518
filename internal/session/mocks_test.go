package session_test

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"sociogo/client/internal/models"
	"sociogo/client/internal/session"
)

// mockHistory is a scripted History. respond builds the reply for each call;
// gate (when set) blocks backward-page fetches until released, which lets
// tests hold a fetch in flight.
type mockHistory struct {
	mu      sync.Mutex
	calls   []historyCall
	respond func(roomID int64, before *int64) (*models.MessagePage, error)
	gate    chan struct{}
}

type historyCall struct {
	roomID int64
	before *int64
}

func (h *mockHistory) Messages(_ context.Context, roomID int64, before *int64) (*models.MessagePage, error) {
	h.mu.Lock()
	h.calls = append(h.calls, historyCall{roomID: roomID, before: before})
	respond := h.respond
	gate := h.gate
	h.mu.Unlock()

	if gate != nil && before != nil {
		<-gate
	}
	return respond(roomID, before)
}

func (h *mockHistory) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

// olderCalls returns the backward-page fetches only (cursor present).
func (h *mockHistory) olderCalls() []historyCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []historyCall
	for _, c := range h.calls {
		if c.before != nil {
			out = append(out, c)
		}
	}
	return out
}

// mockLive is a scriptable LiveConn. Tests deliver inbound payloads through
// the registered subscription handlers and inspect what was published.
type mockLive struct {
	mu        sync.Mutex
	subs      map[string]func([]byte)
	published []publishCall
	closed    bool
	onError   func(error)
}

type publishCall struct {
	destination string
	payload     any
}

func newMockLive() *mockLive {
	return &mockLive{subs: make(map[string]func([]byte))}
}

func (l *mockLive) Subscribe(destination string, h func(body []byte)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs[destination] = h
	return nil
}

func (l *mockLive) Publish(destination string, payload any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.published = append(l.published, publishCall{destination: destination, payload: payload})
	return nil
}

func (l *mockLive) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}

func (l *mockLive) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *mockLive) publishCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.published)
}

func (l *mockLive) subscribedTo(destination string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.subs[destination]
	return ok
}

// deliver pushes one payload through the handler registered for the
// destination, as the bridge would on a message frame.
func (l *mockLive) deliver(destination string, payload any) {
	l.mu.Lock()
	h, ok := l.subs[destination]
	l.mu.Unlock()
	if !ok {
		return
	}
	body, _ := json.Marshal(payload)
	h(body)
}

// deliverRaw pushes raw bytes, for malformed-payload tests.
func (l *mockLive) deliverRaw(destination string, body []byte) {
	l.mu.Lock()
	h, ok := l.subs[destination]
	l.mu.Unlock()
	if ok {
		h(body)
	}
}

// fireError invokes the transport error callback handed over at dial time.
func (l *mockLive) fireError(err error) {
	l.mu.Lock()
	cb := l.onError
	l.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

// dialerFor returns a DialFunc that hands out the given connections in
// order, remembering each one's error callback.
func dialerFor(conns ...*mockLive) session.DialFunc {
	var mu sync.Mutex
	next := 0
	return func(_ context.Context, onError func(error)) (session.LiveConn, error) {
		mu.Lock()
		defer mu.Unlock()
		l := conns[next]
		if next < len(conns)-1 {
			next++
		}
		l.mu.Lock()
		l.onError = onError
		l.mu.Unlock()
		return l, nil
	}
}

func failingDialer(err error) session.DialFunc {
	return func(_ context.Context, _ func(error)) (session.LiveConn, error) {
		return nil, err
	}
}

func unixMilli(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// msg builds a test message for room 42 unless overridden.
func msg(id int64, ts int64) models.Message {
	return models.Message{
		ChatID:         id,
		ChatRoomID:     42,
		SenderID:       9,
		SenderUsername: "counterpart",
		SenderRealName: "Counter Part",
		Content:        "hello",
		CreatedAt:      unixMilli(ts),
	}
}

func page(last bool, msgs ...models.Message) *models.MessagePage {
	return &models.MessagePage{Content: msgs, Last: last}
}

// staticHistory always answers with the same page.
func staticHistory(p *models.MessagePage) *mockHistory {
	return &mockHistory{respond: func(int64, *int64) (*models.MessagePage, error) {
		return p, nil
	}}
}
