// Package bridge implements the client side of the backend's live message
// bridge: a publish/subscribe protocol framed as JSON over a single
// websocket. Subscriptions are per-destination; the server pushes one
// "message" frame per delivery.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"sociogo/client/internal/config"
)

const (
	frameSubscribe   = "subscribe"
	frameUnsubscribe = "unsubscribe"
	frameSend        = "send"
	frameMessage     = "message"
	frameError       = "error"
)

// frame is one unit of the bridge protocol in either direction.
type frame struct {
	Type        string          `json:"type"`
	ID          string          `json:"id,omitempty"`
	Destination string          `json:"destination,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
	Message     string          `json:"message,omitempty"`
}

// Handler consumes the body of one delivered message frame.
type Handler func(body []byte)

// Conn is a live bridge connection. All methods are safe for concurrent use.
// A Conn does not reconnect; once the transport fails the error callback
// fires and the connection is dead.
type Conn struct {
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}

	mu          sync.Mutex
	closed      bool
	subscribers map[string]subscription

	onError func(error)
}

type subscription struct {
	id      string
	handler Handler
}

// Dialer dials bridge connections for a fixed endpoint.
type Dialer struct {
	URL string
}

// Dial opens a connection and starts its pumps. onError is invoked at most
// once, on the first transport-level failure; it is never invoked after
// Close.
func (d Dialer) Dial(ctx context.Context, onError func(error)) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, d.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("bridge: dial %s: %w", d.URL, err)
	}

	c := &Conn{
		ws:          ws,
		send:        make(chan []byte, config.BridgeSendQueueSize),
		done:        make(chan struct{}),
		subscribers: make(map[string]subscription),
		onError:     onError,
	}

	go c.writePump()
	go c.readPump()

	return c, nil
}

// Subscribe registers a handler for a destination and tells the server to
// start delivering it. One handler per destination; subscribing again
// replaces the previous handler without a second server-side subscription.
func (c *Conn) Subscribe(destination string, h Handler) error {
	c.mu.Lock()
	prev, existed := c.subscribers[destination]
	id := prev.id
	if !existed {
		id = uuid.New().String()
	}
	c.subscribers[destination] = subscription{id: id, handler: h}
	c.mu.Unlock()

	if existed {
		return nil
	}
	return c.enqueue(frame{Type: frameSubscribe, ID: id, Destination: destination})
}

// Unsubscribe stops delivery for a destination.
func (c *Conn) Unsubscribe(destination string) error {
	c.mu.Lock()
	sub, ok := c.subscribers[destination]
	delete(c.subscribers, destination)
	c.mu.Unlock()

	if !ok {
		return nil
	}
	return c.enqueue(frame{Type: frameUnsubscribe, ID: sub.id, Destination: destination})
}

// Publish sends one payload to a destination. The server fans it out to all
// current subscribers of the matching topic, including this client.
func (c *Conn) Publish(destination string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.enqueue(frame{Type: frameSend, Destination: destination, Body: body})
}

// Close tears the connection down. Idempotent.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.onError = nil
	close(c.done)
	c.mu.Unlock()

	deadline := time.Now().Add(time.Second)
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client closing"), deadline)
	_ = c.ws.Close()
}

// Done is closed once the connection is finished, whatever the cause.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) enqueue(f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return fmt.Errorf("bridge: connection closed")
	}
}

// fail reports the first transport error and tears the connection down.
func (c *Conn) fail(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	cb := c.onError
	c.onError = nil
	close(c.done)
	c.mu.Unlock()

	_ = c.ws.Close()
	if cb != nil {
		cb(err)
	}
}

func (c *Conn) handlerFor(destination string) (Handler, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sub, ok := c.subscribers[destination]
	return sub.handler, ok
}

func (c *Conn) readPump() {
	c.ws.SetReadLimit(config.BridgeMaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(config.BridgePongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(config.BridgePongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.fail(fmt.Errorf("bridge: read: %w", err))
			} else {
				c.fail(fmt.Errorf("bridge: connection closed by server"))
			}
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			// One bad frame must not kill the stream.
			log.Printf("bridge: dropping malformed frame: %v", err)
			continue
		}

		switch f.Type {
		case frameMessage:
			h, ok := c.handlerFor(f.Destination)
			if !ok {
				log.Printf("bridge: message for unknown destination %q", f.Destination)
				continue
			}
			h(f.Body)
		case frameError:
			c.fail(fmt.Errorf("bridge: server error: %s", f.Message))
			return
		default:
			log.Printf("bridge: ignoring frame type %q", f.Type)
		}
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(config.BridgePingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(config.BridgeWriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.fail(fmt.Errorf("bridge: write: %w", err))
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(config.BridgeWriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.fail(fmt.Errorf("bridge: ping: %w", err))
				return
			}
		case <-c.done:
			return
		}
	}
}
