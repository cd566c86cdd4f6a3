// Package events defines the change-feed envelope and routes events to the
// handlers that react to them. Every handler must tolerate seeing the same
// event more than once.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/ride-notify/internal/models"
)

var ErrMalformedEvent = errors.New("events: malformed event")

type Type string

const (
	RideCreated    Type = "ride.created"
	RideUpdated    Type = "ride.updated"
	MessageCreated Type = "message.created"
)

type Event struct {
	ID         string              `json:"id"`
	Type       Type                `json:"type"`
	RideID     string              `json:"rideId"`
	Before     *models.Ride        `json:"before,omitempty"`
	After      *models.Ride        `json:"after,omitempty"`
	Message    *models.ChatMessage `json:"message,omitempty"`
	OccurredAt time.Time           `json:"occurredAt"`
}

// Decode parses and normalizes a change-feed payload.
func Decode(b []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(b, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if err := ev.Normalize(); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// Normalize fills identifiers from whichever snapshot carries them and
// rejects events no handler could act on. Missing optional fields, such as
// an origin geohash, are left empty for the handlers to default.
func (ev *Event) Normalize() error {
	ev.ID = strings.TrimSpace(ev.ID)
	if ev.RideID == "" {
		switch {
		case ev.After != nil && ev.After.ID != "":
			ev.RideID = ev.After.ID
		case ev.Message != nil && ev.Message.RideID != "":
			ev.RideID = ev.Message.RideID
		}
	}
	if ev.RideID == "" {
		return fmt.Errorf("%w: no ride id", ErrMalformedEvent)
	}

	switch ev.Type {
	case RideCreated, RideUpdated:
		if ev.After == nil {
			return fmt.Errorf("%w: %s without ride snapshot", ErrMalformedEvent, ev.Type)
		}
		ev.After.ID = ev.RideID
		if ev.Type == RideUpdated && ev.Before == nil {
			// Without a prior snapshot the change cannot be ruled out.
			ev.Before = &models.Ride{ID: ev.RideID}
		}
		if ev.Before != nil {
			ev.Before.ID = ev.RideID
		}
	case MessageCreated:
		if ev.Message == nil {
			return fmt.Errorf("%w: message event without message", ErrMalformedEvent)
		}
		ev.Message.RideID = ev.RideID
	default:
		return fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, ev.Type)
	}
	return nil
}
