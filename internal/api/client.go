// Package api is the REST client for the SocioGo backend. Every endpoint
// returns its payload inside a {"data": ...} envelope; methods unwrap it and
// decode into the shared model types.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"
)

// APIError is a non-2xx response from the backend, carrying the
// backend-provided message when one was present in the body.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: unexpected status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// Client talks to the backend REST API. The session is cookie-based, so the
// underlying http.Client carries a cookie jar; Login must succeed before any
// authenticated call.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient builds a client for the given base URL, e.g.
// "http://localhost:8080".
func NewClient(baseURL string, timeout time.Duration) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
	}
}

// envelope is the backend's uniform response body.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// do performs one request. in (when non-nil) is JSON-encoded as the body;
// the returned bytes are the raw "data" member of the response envelope.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in any) (json.RawMessage, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var env envelope
	// Some endpoints answer with an empty body on success; tolerate that.
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &env); err != nil && resp.StatusCode < 400 {
			return nil, fmt.Errorf("api: decoding response for %s %s: %w", method, path, err)
		}
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{Status: resp.StatusCode, Message: env.Message}
	}

	return env.Data, nil
}

// get unwraps a GET response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	data, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
