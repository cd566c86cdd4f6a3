// Package auth resolves the caller identity of callable operations from a
// bearer token. Issuing tokens is the identity provider's job; this package
// only verifies them.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var (
	ErrMissingToken = errors.New("auth: missing bearer token")
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Identity is the authenticated caller. A zero Identity means anonymous.
type Identity struct {
	UID string
}

func (i Identity) Authenticated() bool { return i.UID != "" }

type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// BearerToken extracts the token from an Authorization header, falling back
// to the token query parameter used by websocket clients.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("token")
}

// FromRequest verifies the request's bearer token. A request without a token
// yields ErrMissingToken.
func FromRequest(r *http.Request, v Verifier) (Identity, error) {
	token := BearerToken(r)
	if token == "" {
		return Identity{}, ErrMissingToken
	}
	return v.Verify(r.Context(), token)
}
