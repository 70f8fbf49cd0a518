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

// Feed fetches one page of the viewer's home feed.
func (c *Client) Feed(ctx context.Context, page, size int) (*models.PostPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	var out models.PostPage
	if err := c.get(ctx, "/api/v1/posts", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Post fetches a single post with its comments.
func (c *Client) Post(ctx context.Context, postID int64) (*models.Post, error) {
	var out models.Post
	if err := c.get(ctx, fmt.Sprintf("/api/v1/posts/%d", postID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePostRequest creates a post shell. ImagesLength tells the backend how
// many presigned upload URLs to mint; uploading the bytes to those URLs is
// outside this client's scope.
type CreatePostRequest struct {
	Title        string `json:"title"`
	Content      string `json:"content"`
	ImagesLength int    `json:"images-length"`
}

// CreatePostResponse carries the new post ID and the presigned image URLs.
type CreatePostResponse struct {
	PostID int64              `json:"post_id"`
	Images []models.PostImage `json:"images"`
}

// CreatePost creates a new post.
func (c *Client) CreatePost(ctx context.Context, req CreatePostRequest) (*CreatePostResponse, error) {
	data, err := c.do(ctx, http.MethodPost, "/api/v1/posts", nil, req)
	if err != nil {
		return nil, err
	}
	var out CreatePostResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LikePost toggles the viewer's like on a post.
func (c *Client) LikePost(ctx context.Context, postID int64) error {
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/likes", postID), nil, nil)
	return err
}

// CommentOnPost adds a comment to a post.
func (c *Client) CommentOnPost(ctx context.Context, postID int64, content string) (*models.Comment, error) {
	data, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/comments", postID), nil, map[string]string{"content": content})
	if err != nil {
		return nil, err
	}
	var out models.Comment
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
