// Package share issues public, time-boxed links for following a ride.
package share

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/example/ride-notify/internal/auth"
	"github.com/example/ride-notify/internal/models"
	"github.com/example/ride-notify/internal/observability"
	"github.com/example/ride-notify/internal/storage"
)

const (
	LinkTTL    = 6 * time.Hour
	tokenBytes = 32
)

var (
	ErrUnauthenticated = errors.New("share: login required")
	ErrInvalidRide     = errors.New("share: ride id required")
	ErrLinkNotFound    = errors.New("share: link not found or expired")
)

type Issuer struct {
	Links   storage.ShareLinkStore
	BaseURL string
	Now     func() time.Time
	Random  io.Reader // crypto/rand when nil
	Logger  *slog.Logger
}

// Issue creates a share link for rideID on behalf of the caller and returns
// its token.
func (i *Issuer) Issue(ctx context.Context, rideID string, caller auth.Identity) (string, error) {
	if !caller.Authenticated() {
		return "", ErrUnauthenticated
	}
	rideID = strings.TrimSpace(rideID)
	if rideID == "" {
		return "", ErrInvalidRide
	}
	token, err := i.newToken()
	if err != nil {
		return "", fmt.Errorf("generate share token: %w", err)
	}
	now := i.now()
	link := models.ShareLink{
		Token:       token,
		RideID:      rideID,
		PassengerID: caller.UID,
		URL:         i.URL(token),
		Options:     models.DefaultShareOptions(),
		Active:      true,
		CreatedAt:   now,
		ExpiresAt:   now.Add(LinkTTL),
	}
	if err := i.Links.CreateShareLink(ctx, link); err != nil {
		return "", fmt.Errorf("store share link: %w", err)
	}
	observability.ShareLinksIssued.Inc()
	if i.Logger != nil {
		i.Logger.InfoContext(ctx, "share link issued", "ride_id", rideID, "passenger_id", caller.UID)
	}
	return token, nil
}

// Resolve returns the link behind token while it is active and unexpired.
func (i *Issuer) Resolve(ctx context.Context, token string) (models.ShareLink, error) {
	l, err := i.Links.GetShareLink(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		return models.ShareLink{}, ErrLinkNotFound
	}
	if err != nil {
		return models.ShareLink{}, err
	}
	if !l.Live(i.now()) {
		return models.ShareLink{}, ErrLinkNotFound
	}
	return l, nil
}

func (i *Issuer) URL(token string) string {
	return strings.TrimRight(i.BaseURL, "/") + "/share/" + token
}

func (i *Issuer) newToken() (string, error) {
	r := i.Random
	if r == nil {
		r = rand.Reader
	}
	b := make([]byte, tokenBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (i *Issuer) now() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now()
}
