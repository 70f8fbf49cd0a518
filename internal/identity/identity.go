// Package identity persists the viewer's identity between runs, the way the
// web client keeps its auth store in local storage. The file lives under the
// config dir with owner-only permissions.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const fileName = "identity.json"

// Identity is everything the client knows about the signed-in viewer.
type Identity struct {
	MemberID        int64   `json:"member_id"`
	Username        string  `json:"username"`
	RealName        string  `json:"real_name"`
	ProfileImageURL *string `json:"profile_image_url,omitempty"`
	// Token is the backend-issued access token, kept so its claims can be
	// inspected locally. Requests authenticate via the session cookie, not
	// this token.
	Token string `json:"token,omitempty"`
}

// Complete reports whether the identity is sufficient to author messages.
func (id Identity) Complete() bool {
	return id.MemberID != 0 && id.Username != "" && id.RealName != ""
}

// Store reads and writes the identity file under Dir.
type Store struct {
	Dir string
}

// ErrNotLoggedIn is returned by Load when no identity file exists.
var ErrNotLoggedIn = errors.New("identity: not logged in")

// Load reads the persisted identity.
func (s Store) Load() (*Identity, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir, fileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotLoggedIn
		}
		return nil, err
	}

	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, fmt.Errorf("identity: corrupt identity file: %w", err)
	}
	return &id, nil
}

// Save persists the identity with owner-only permissions.
func (s Store) Save(id *Identity) error {
	if err := os.MkdirAll(s.Dir, 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.Dir, fileName), data, 0600)
}

// Clear removes the identity file. Missing files are not an error, so Clear
// is safe to call on logout regardless of state.
func (s Store) Clear() error {
	err := os.Remove(filepath.Join(s.Dir, fileName))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// TokenExpiry extracts the expiry claim from the stored access token without
// verifying its signature; the client has no verification key and only uses
// the claim to warn before the session lapses. Returns the zero time when no
// token is held or it carries no expiry.
func (id Identity) TokenExpiry() (time.Time, error) {
	if id.Token == "" {
		return time.Time{}, nil
	}

	var claims jwt.RegisteredClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(id.Token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("identity: parsing token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}
