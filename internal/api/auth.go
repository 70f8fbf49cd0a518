package api

import (
	"context"
	"encoding/json"
	"net/http"

	"sociogo/client/internal/models"
)

// LoginRequest is the credential payload for /api/v1/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the viewer identity the backend returns on success. The
// session itself rides on a cookie set by the same response.
type LoginResponse struct {
	MemberID        int64   `json:"member_id"`
	Username        string  `json:"username"`
	RealName        string  `json:"real_name"`
	ProfileImageURL *string `json:"profile_image_url"`
}

// JoinRequest is the signup payload for /api/v1/members/join.
type JoinRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	RealName string `json:"real_name"`
	Email    string `json:"email"`
}

// Login authenticates and returns the viewer identity.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	data, err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", nil, req)
	if err != nil {
		return nil, err
	}
	var out LoginResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout invalidates the server-side session. The local identity file is the
// caller's to clear.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/v1/auth/logout", nil, nil)
	return err
}

// Join registers a new member.
func (c *Client) Join(ctx context.Context, req JoinRequest) (*models.Member, error) {
	data, err := c.do(ctx, http.MethodPost, "/api/v1/members/join", nil, req)
	if err != nil {
		return nil, err
	}
	var out models.Member
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestEmailCode asks the backend to mail a verification code during
// signup.
func (c *Client) RequestEmailCode(ctx context.Context, email string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/v1/auth/email/code", nil, map[string]string{"email": email})
	return err
}

// VerifyEmailCode confirms the mailed code.
func (c *Client) VerifyEmailCode(ctx context.Context, email, code string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/v1/auth/email/code/verify", nil, map[string]string{
		"email": email,
		"code":  code,
	})
	return err
}
