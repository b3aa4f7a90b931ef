// Package session keeps the per-browser admin flag. A Session travels with
// the request context; the record itself lives in Redis.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// Session is what the gate reads on every admin request.
type Session struct {
	Token    string `json:"-"`
	LoggedIn bool   `json:"logged_in"`
	Username string `json:"username,omitempty"`
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.LoggedIn
}

type ctxKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the request session or nil when the middleware did not
// run.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}

// NewToken generates an unguessable cookie value.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
