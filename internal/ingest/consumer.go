// Package ingest moves change-feed events between Kafka and the handlers.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/ride-notify/internal/events"
	"github.com/example/ride-notify/internal/observability"
)

type Handler interface {
	Handle(ctx context.Context, ev events.Event) error
}

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads the ride change feed with at-least-once semantics: an offset
// is committed only after its event was handled, or found to be malformed.
// A handler failure is retried with capped exponential backoff; the partition
// waits meanwhile so per-ride ordering holds.
type Consumer struct {
	Reader     MessageReader
	Handler    Handler
	Logger     *slog.Logger
	Backoff    time.Duration
	MaxBackoff time.Duration
}

func NewConsumer(brokers []string, topic, group string, h Handler, logger *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  group,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{Reader: r, Handler: h, Logger: logger, Backoff: time.Second, MaxBackoff: 30 * time.Second}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	backoff := c.initialBackoff()
	for {
		m, err := c.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.Logger.WarnContext(ctx, "kafka fetch failed", "error", err, "backoff", backoff)
			if !sleep(ctx, backoff) {
				return nil
			}
			backoff = c.next(backoff)
			continue
		}
		backoff = c.initialBackoff()

		if !c.process(ctx, m) {
			return nil
		}
		if err := c.Reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// the event will be redelivered; handlers are idempotent
			c.Logger.WarnContext(ctx, "kafka commit failed", "offset", m.Offset, "partition", m.Partition, "error", err)
		}
	}
}

// process handles one message, retrying until it succeeds or is found
// malformed. It returns false if ctx ended first.
func (c *Consumer) process(ctx context.Context, m kafka.Message) bool {
	ev, err := events.Decode(m.Value)
	if err != nil {
		observability.EventsConsumed.WithLabelValues("unknown", "invalid").Inc()
		c.Logger.ErrorContext(ctx, "dropping malformed event", "offset", m.Offset, "partition", m.Partition, "error", err)
		return true
	}

	delay := c.initialBackoff()
	for {
		err := c.Handler.Handle(ctx, ev)
		if err == nil || !events.Retryable(err) {
			return true
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return false
		}
		c.Logger.WarnContext(ctx, "retrying event", "event_id", ev.ID, "ride_id", ev.RideID, "backoff", delay, "error", err)
		if !sleep(ctx, delay) {
			return false
		}
		delay = c.next(delay)
	}
}

func (c *Consumer) Close() error { return c.Reader.Close() }

func (c *Consumer) initialBackoff() time.Duration {
	if c.Backoff <= 0 {
		return time.Second
	}
	return c.Backoff
}

func (c *Consumer) next(d time.Duration) time.Duration {
	d *= 2
	if c.MaxBackoff > 0 && d > c.MaxBackoff {
		d = c.MaxBackoff
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
