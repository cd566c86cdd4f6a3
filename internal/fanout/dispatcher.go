// Package fanout turns ride change-feed events into notification batches.
//
// One invocation handles one event: it selects recipients, composes their
// notifications, commits them as a single atomic batch and then pushes to
// each recipient on a best-effort basis. A failed commit is returned so the
// event source can redeliver; nothing is pushed for a batch that did not
// commit.
package fanout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/ride-notify/internal/events"
	"github.com/example/ride-notify/internal/models"
	"github.com/example/ride-notify/internal/notify"
	"github.com/example/ride-notify/internal/observability"
	"github.com/example/ride-notify/internal/storage"
)

var ErrBatchCommit = errors.New("fanout: notification batch commit failed")

const deliveryParallelism = 8

type Selector interface {
	Candidates(ctx context.Context, geohash string, limit int) ([]string, error)
}

type Sink interface {
	Deliver(ctx context.Context, userID string, p models.Push) error
}

type Dispatcher struct {
	Selector Selector
	Store    storage.NotificationWriter
	Sink     Sink // optional
	Composer notify.Composer
	Limit    int
	Logger   *slog.Logger
}

// OnRideCreated offers a new ride to online drivers near its origin.
func (d *Dispatcher) OnRideCreated(ctx context.Context, ev events.Event) error {
	if ev.After == nil {
		return fmt.Errorf("%w: %s without ride snapshot", events.ErrMalformedEvent, events.RideCreated)
	}
	ride := *ev.After
	log := d.logger().With("ride_id", ride.ID, "event_id", ev.ID)

	if ride.Origin.GeohashPrefix == "" {
		log.WarnContext(ctx, "ride has no origin geohash, scanning with empty prefix")
	}
	candidates, err := d.Selector.Candidates(ctx, ride.Origin.GeohashPrefix, d.Limit)
	if err != nil {
		return fmt.Errorf("select candidates for ride %s: %w", ride.ID, err)
	}
	observability.OfferCandidates.Observe(float64(len(candidates)))
	if len(candidates) == 0 {
		log.InfoContext(ctx, "no online drivers near ride")
		return nil
	}

	batch := make([]models.Notification, 0, len(candidates))
	for _, driverID := range candidates {
		batch = append(batch, d.Composer.Compose(ev.ID, ride, models.RoleDriver, models.CategoryNewRideOffer, driverID))
	}
	if err := d.commit(ctx, ride.ID, batch); err != nil {
		return err
	}
	log.InfoContext(ctx, "ride offered", "drivers", len(batch))
	d.deliver(ctx, log, batch)
	return nil
}

// OnRideUpdated tells the passenger, and the assigned driver if any, that the
// ride's status changed. Updates that leave the status alone are ignored.
func (d *Dispatcher) OnRideUpdated(ctx context.Context, ev events.Event) error {
	if ev.After == nil {
		return fmt.Errorf("%w: %s without ride snapshot", events.ErrMalformedEvent, events.RideUpdated)
	}
	after := *ev.After
	before := models.Ride{ID: after.ID}
	if ev.Before != nil {
		before = *ev.Before
	}
	log := d.logger().With("ride_id", after.ID, "event_id", ev.ID)

	category, changed := notify.Transition(before.Status, after.Status)
	if !changed {
		return nil
	}
	if !notify.ValidTransition(before.Status, after.Status) {
		log.WarnContext(ctx, "unexpected ride transition", "from", before.Status, "to", after.Status)
	}
	if !after.Consistent() {
		log.WarnContext(ctx, "driver assignment does not match status", "status", after.Status, "driver_id", after.DriverID)
	}

	batch := make([]models.Notification, 0, 2)
	if after.PassengerID != "" {
		batch = append(batch, d.Composer.Compose(ev.ID, after, models.RolePassenger, category, after.PassengerID))
	} else {
		log.WarnContext(ctx, "ride has no passenger, skipping passenger notification")
	}
	if after.HasDriver() {
		batch = append(batch, d.Composer.Compose(ev.ID, after, models.RoleDriver, models.CategorySystem, after.DriverID))
	}
	if len(batch) == 0 {
		return nil
	}

	if err := d.commit(ctx, after.ID, batch); err != nil {
		return err
	}
	log.InfoContext(ctx, "ride status notified", "status", after.Status, "category", category, "recipients", len(batch))
	d.deliver(ctx, log, batch)
	return nil
}

func (d *Dispatcher) commit(ctx context.Context, rideID string, batch []models.Notification) error {
	start := time.Now()
	err := d.Store.CommitNotifications(ctx, batch)
	observability.BatchCommitLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.BatchCommitFailures.Inc()
		return fmt.Errorf("%w: ride %s: %w", ErrBatchCommit, rideID, err)
	}
	for _, n := range batch {
		observability.NotificationsWritten.WithLabelValues(string(n.Role), string(n.Category)).Inc()
	}
	return nil
}

// deliver pushes every committed notification. Failures are logged only.
func (d *Dispatcher) deliver(ctx context.Context, log *slog.Logger, batch []models.Notification) {
	if d.Sink == nil {
		return
	}
	var g errgroup.Group
	g.SetLimit(deliveryParallelism)
	for _, n := range batch {
		n := n
		g.Go(func() error {
			if err := d.Sink.Deliver(ctx, n.RecipientID, notify.PushFor(n)); err != nil {
				log.WarnContext(ctx, "push delivery failed", "recipient_id", n.RecipientID, "category", n.Category, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}
