package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/ride-notify/internal/models"
)

// DedupSink suppresses a second push for the same notification ID, which
// happens when the change feed redelivers an event. A Redis failure lets the
// push through.
type DedupSink struct {
	Next   Sink
	Client redis.Cmdable
	TTL    time.Duration
	Logger *slog.Logger
}

func (d *DedupSink) Deliver(ctx context.Context, userID string, p models.Push) error {
	if p.NotificationID == "" {
		return d.Next.Deliver(ctx, userID, p)
	}
	key := "push:sent:" + p.NotificationID
	first, err := d.Client.SetNX(ctx, key, userID, d.TTL).Result()
	if err != nil {
		if d.Logger != nil {
			d.Logger.WarnContext(ctx, "push dedup unavailable", "notification_id", p.NotificationID, "error", err)
		}
		return d.Next.Deliver(ctx, userID, p)
	}
	if !first {
		return nil
	}
	if err := d.Next.Deliver(ctx, userID, p); err != nil {
		// let a redelivery try again
		_ = d.Client.Del(ctx, key).Err()
		return err
	}
	return nil
}
