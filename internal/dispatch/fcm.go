package dispatch

import (
	"context"
	"fmt"
	"time"

	"firebase.google.com/go/v4/messaging"

	"github.com/example/ride-notify/internal/models"
)

// Messenger is the part of the FCM client the sink uses.
type Messenger interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMSink sends to the per-user topic each client subscribes to on login.
type FCMSink struct {
	Client      Messenger
	TopicPrefix string
	Now         func() time.Time
}

func NewFCMSink(client Messenger) *FCMSink {
	return &FCMSink{Client: client, TopicPrefix: "user_", Now: time.Now}
}

func (f *FCMSink) Deliver(ctx context.Context, userID string, p models.Push) error {
	msg := &messaging.Message{
		Topic: f.TopicPrefix + userID,
		Notification: &messaging.Notification{
			Title: p.Title,
			Body:  p.Body,
		},
		Data: p.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}
	if !p.ExpiresAt.IsZero() {
		now := time.Now()
		if f.Now != nil {
			now = f.Now()
		}
		ttl := p.ExpiresAt.Sub(now)
		if ttl <= 0 {
			return nil // nothing worth showing any more
		}
		msg.Android.TTL = &ttl
		msg.APNS = &messaging.APNSConfig{
			Headers: map[string]string{"apns-expiration": fmt.Sprintf("%d", p.ExpiresAt.Unix())},
		}
	}
	if _, err := f.Client.Send(ctx, msg); err != nil {
		return fmt.Errorf("fcm send to %s: %w", userID, err)
	}
	return nil
}
