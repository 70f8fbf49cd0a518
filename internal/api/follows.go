package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"sociogo/client/internal/models"
)

// FollowMember requests (or directly creates, for public profiles) a follow
// edge toward the given member.
func (c *Client) FollowMember(ctx context.Context, memberID int64) error {
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/follows/members/%d", memberID), nil, nil)
	return err
}

// UnfollowMember removes the viewer's follow edge toward the given member.
func (c *Client) UnfollowMember(ctx context.Context, memberID int64) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/follows/members/%d", memberID), nil, nil)
	return err
}

// FollowToward looks up the state of the viewer's follow edge toward one
// member. Used to resolve FOLLOW_REQUEST notifications to an actionable
// follow ID.
func (c *Client) FollowToward(ctx context.Context, followingID int64) (*models.Follow, error) {
	q := url.Values{}
	q.Set("following-id", strconv.FormatInt(followingID, 10))

	var out models.Follow
	if err := c.get(ctx, "/api/v1/follows/one", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AcceptFollow accepts a pending follow request and marks the originating
// notification handled.
func (c *Client) AcceptFollow(ctx context.Context, followID, notificationID int64) error {
	q := url.Values{}
	q.Set("notification-id", strconv.FormatInt(notificationID, 10))
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/follows/%d/accept?%s", followID, q.Encode()), nil, nil)
	return err
}

// RejectFollow declines a pending follow request.
func (c *Client) RejectFollow(ctx context.Context, followID, notificationID int64) error {
	q := url.Values{}
	q.Set("notification-id", strconv.FormatInt(notificationID, 10))
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/follows/%d/reject?%s", followID, q.Encode()), nil, nil)
	return err
}

// Followers lists one page of members following the given member.
func (c *Client) Followers(ctx context.Context, memberID int64, page, size int) (*models.MemberPage, error) {
	return c.followPage(ctx, memberID, "followers", page, size)
}

// Followings lists one page of members the given member follows.
func (c *Client) Followings(ctx context.Context, memberID int64, page, size int) (*models.MemberPage, error) {
	return c.followPage(ctx, memberID, "followings", page, size)
}

func (c *Client) followPage(ctx context.Context, memberID int64, kind string, page, size int) (*models.MemberPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	var out models.MemberPage
	path := fmt.Sprintf("/api/v1/follows/members/%d/%s", memberID, kind)
	if err := c.get(ctx, path, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
