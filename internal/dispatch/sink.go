// Package dispatch delivers push payloads to users. Delivery is best effort:
// callers log failures and move on.
package dispatch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/ride-notify/internal/models"
	"github.com/example/ride-notify/internal/observability"
)

var ErrNoSession = errors.New("dispatch: no live session")

type Sink interface {
	Deliver(ctx context.Context, userID string, p models.Push) error
}

// LogSink only records the push. It is the sink used when no transport is
// configured.
type LogSink struct {
	Logger *slog.Logger
}

func (l LogSink) Deliver(ctx context.Context, userID string, p models.Push) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "push", "user_id", userID, "title", p.Title, "notification_id", p.NotificationID)
	return nil
}

// Fallback tries each sink in order and stops at the first success, e.g. a
// live websocket first and FCM when the user is not connected.
type Fallback struct {
	Sinks []Named
}

type Named struct {
	Name string
	Sink Sink
}

func (f Fallback) Deliver(ctx context.Context, userID string, p models.Push) error {
	var errs []error
	for _, s := range f.Sinks {
		err := s.Sink.Deliver(ctx, userID, p)
		if err == nil {
			observability.Deliveries.WithLabelValues(s.Name, "ok").Inc()
			return nil
		}
		if errors.Is(err, ErrNoSession) {
			observability.Deliveries.WithLabelValues(s.Name, "skipped").Inc()
		} else {
			observability.Deliveries.WithLabelValues(s.Name, "error").Inc()
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
