// Package chat keeps a short summary of the latest chat message on its ride
// so list views can render without reading the message collection.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/ride-notify/internal/events"
	"github.com/example/ride-notify/internal/models"
	"github.com/example/ride-notify/internal/notify"
	"github.com/example/ride-notify/internal/observability"
	"github.com/example/ride-notify/internal/storage"
)

const MaxSummaryRunes = 160

type Mirror struct {
	Rides  storage.RideWriter
	Now    func() time.Time
	Logger *slog.Logger
}

func (m *Mirror) OnMessageCreated(ctx context.Context, ev events.Event) error {
	now := m.now()
	msg := *ev.Message
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = now
	}
	summary := models.LastMessage{
		Content:   notify.Truncate(msg.Content, MaxSummaryRunes),
		SenderID:  msg.SenderID,
		Timestamp: ts,
	}
	if err := m.Rides.MergeLastMessage(ctx, ev.RideID, summary, now); err != nil {
		return fmt.Errorf("mirror message onto ride %s: %w", ev.RideID, err)
	}
	observability.ChatMirrors.Inc()
	if m.Logger != nil {
		m.Logger.DebugContext(ctx, "chat mirrored", "ride_id", ev.RideID, "sender_id", msg.SenderID)
	}
	return nil
}

func (m *Mirror) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}
