package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"sociogo/client/internal/models"
)

// Member fetches one member's full profile.
func (c *Client) Member(ctx context.Context, memberID int64) (*models.MemberDetail, error) {
	var out models.MemberDetail
	if err := c.get(ctx, fmt.Sprintf("/api/v1/members/%d", memberID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MemberPosts fetches one page of a member's posts.
func (c *Client) MemberPosts(ctx context.Context, memberID int64, page, size int) (*models.PostPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	var out models.PostPage
	if err := c.get(ctx, fmt.Sprintf("/api/v1/members/%d/posts", memberID), q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchMembers finds members by username prefix.
func (c *Client) SearchMembers(ctx context.Context, username string) (*models.MemberPage, error) {
	q := url.Values{}
	q.Set("username", username)

	var out models.MemberPage
	if err := c.get(ctx, "/api/v1/members", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
