package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"sociogo/client/internal/models"
)

// ChatRooms fetches one page of the viewer's room list.
func (c *Client) ChatRooms(ctx context.Context, page, size int) (*models.RoomPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	var out models.RoomPage
	if err := c.get(ctx, "/api/v1/chat-rooms", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateChatRoom opens (or returns the existing) 1:1 room with the given
// member.
func (c *Client) CreateChatRoom(ctx context.Context, memberID int64) (*models.ChatRoom, error) {
	data, err := c.do(ctx, http.MethodPost, "/api/v1/chat-rooms", nil, map[string]int64{"member_id": memberID})
	if err != nil {
		return nil, err
	}
	var out models.ChatRoom
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Messages fetches one backward page of room history. before is the oldest
// already-held message ID; nil requests the newest page. The returned slice
// is not guaranteed to be in render order.
func (c *Client) Messages(ctx context.Context, roomID int64, before *int64) (*models.MessagePage, error) {
	q := url.Values{}
	if before != nil {
		q.Set("last_chat_id", strconv.FormatInt(*before, 10))
	}

	var out models.MessagePage
	path := fmt.Sprintf("/api/v1/chat-rooms/%d/messages", roomID)
	if err := c.get(ctx, path, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
