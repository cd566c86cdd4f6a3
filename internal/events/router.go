package events

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/ride-notify/internal/observability"
)

type RideHandler interface {
	OnRideCreated(ctx context.Context, ev Event) error
	OnRideUpdated(ctx context.Context, ev Event) error
}

type MessageHandler interface {
	OnMessageCreated(ctx context.Context, ev Event) error
}

type Router struct {
	Rides    RideHandler
	Messages MessageHandler
	Logger   *slog.Logger
}

// Handle runs the handler for ev. Handler errors are returned so the event
// source can redeliver.
func (r *Router) Handle(ctx context.Context, ev Event) error {
	if err := ev.Normalize(); err != nil {
		observability.EventsConsumed.WithLabelValues(string(ev.Type), "invalid").Inc()
		return err
	}

	var err error
	switch ev.Type {
	case RideCreated:
		err = r.Rides.OnRideCreated(ctx, ev)
	case RideUpdated:
		err = r.Rides.OnRideUpdated(ctx, ev)
	case MessageCreated:
		err = r.Messages.OnMessageCreated(ctx, ev)
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
		r.logger().ErrorContext(ctx, "event handler failed", "event_id", ev.ID, "type", ev.Type, "ride_id", ev.RideID, "error", err)
	}
	observability.EventsConsumed.WithLabelValues(string(ev.Type), outcome).Inc()
	return err
}

// Retryable reports whether redelivering the event could succeed.
func Retryable(err error) bool {
	return err != nil && !errors.Is(err, ErrMalformedEvent)
}

func (r *Router) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}
