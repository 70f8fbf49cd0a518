package models

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrMalformedMessage is returned by DecodeMessage when a payload cannot be
// used as a chat message. Callers are expected to drop the single payload
// and keep consuming.
var ErrMalformedMessage = errors.New("models: malformed chat message payload")

// Message represents one chat message as delivered by the backend, either in
// a history page or over the live connection.
type Message struct {
	// ChatID is the message identifier, unique within a room.
	ChatID int64 `json:"chat_id"`
	// ChatRoomID is the identifier of the room the message belongs to.
	ChatRoomID int64 `json:"chat_room_id"`
	// SenderID is the member ID of the author.
	SenderID int64 `json:"sender_id"`
	// SenderRealName and SenderUsername are display data carried on the wire
	// so the client never has to join against a member lookup.
	SenderRealName string `json:"sender_real_name"`
	SenderUsername string `json:"sender_username"`
	// Content is the message body.
	Content string `json:"content"`
	// CreatedAt is the server-side creation timestamp and the primary
	// ordering key.
	CreatedAt time.Time `json:"created_at"`
}

// Before reports whether m sorts ahead of other in render order.
// The ordering key is (CreatedAt, ChatID); ties on the timestamp break by
// ascending message ID so the order is total and stable.
func (m Message) Before(other Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.ChatID < other.ChatID
}

// DecodeMessage parses a raw live payload into a Message. A payload that is
// not valid JSON or is missing its identifiers is rejected with
// ErrMalformedMessage rather than being half-trusted downstream.
func DecodeMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, errors.Join(ErrMalformedMessage, err)
	}
	if m.ChatID == 0 || m.ChatRoomID == 0 {
		return Message{}, ErrMalformedMessage
	}
	return m, nil
}

// MessagePage is one backward page of room history.
type MessagePage struct {
	Content []Message `json:"content"`
	// Last reports that no older history exists beyond this page.
	Last bool `json:"last"`
}

// OldestID returns the smallest message ID in the page, used as the cursor
// for the next backward fetch. The second return is false for an empty page.
func (p MessagePage) OldestID() (int64, bool) {
	if len(p.Content) == 0 {
		return 0, false
	}
	oldest := p.Content[0]
	for _, m := range p.Content[1:] {
		if m.Before(oldest) {
			oldest = m
		}
	}
	return oldest.ChatID, true
}

// OutgoingMessage is the payload published to the bridge's send destination.
// The backend fans it out to every subscriber of the room topic, including
// the sender.
type OutgoingMessage struct {
	ChatRoomID     int64  `json:"chat_room_id"`
	SenderID       int64  `json:"sender_id"`
	SenderRealName string `json:"sender_real_name"`
	SenderUsername string `json:"sender_username"`
	Content        string `json:"content"`
}
