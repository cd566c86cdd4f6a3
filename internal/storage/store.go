// Package storage persists notifications, ride summaries and share links.
//
// Every backend commits a notification batch atomically: after
// CommitNotifications returns, either all records of the batch are visible or
// none are. Records are keyed by notification ID and only inserted when the
// ID is absent: a redelivered event neither duplicates a record nor resets
// its read flag or expiry.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/example/ride-notify/internal/models"
)

var ErrNotFound = errors.New("storage: not found")

type NotificationWriter interface {
	CommitNotifications(ctx context.Context, batch []models.Notification) error
}

type RideWriter interface {
	// MergeLastMessage sets the ride's lastMessage and updatedAt, leaving
	// every other field untouched.
	MergeLastMessage(ctx context.Context, rideID string, msg models.LastMessage, updatedAt time.Time) error
}

type ShareLinkStore interface {
	CreateShareLink(ctx context.Context, link models.ShareLink) error
	GetShareLink(ctx context.Context, token string) (models.ShareLink, error)
}

type DriverLocationStore interface {
	Upsert(ctx context.Context, d models.DriverLocation) error
	OnlineDrivers(ctx context.Context, lo, hi string, limit int) ([]string, error)
}

// Store is everything the notifier needs from a backend.
type Store interface {
	NotificationWriter
	RideWriter
	ShareLinkStore
	Close() error
}
