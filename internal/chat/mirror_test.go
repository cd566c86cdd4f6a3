package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ride-notify/internal/events"
	"github.com/example/ride-notify/internal/models"
	"github.com/example/ride-notify/internal/storage"
)

var fixedNow = time.Date(2026, 7, 4, 10, 0, 0, 0, time.UTC)

func messageEvent(msg models.ChatMessage) events.Event {
	return events.Event{Type: events.MessageCreated, RideID: msg.RideID, Message: &msg}
}

func TestOnMessageCreated_TruncatesAndMerges(t *testing.T) {
	store := storage.NewMemoryStore()
	store.SaveRide(models.Ride{ID: "r1", PassengerID: "p1", Status: models.StatusInProgress})
	m := &Mirror{Rides: store, Now: func() time.Time { return fixedNow }}
	sent := fixedNow.Add(-time.Minute)

	err := m.OnMessageCreated(context.Background(), messageEvent(models.ChatMessage{
		RideID: "r1", Content: strings.Repeat("x", 200), SenderID: "u1", Timestamp: sent,
	}))
	require.NoError(t, err)

	r, ok := store.Ride("r1")
	require.True(t, ok)
	require.NotNil(t, r.LastMessage)
	assert.Equal(t, 160, utf8.RuneCountInString(r.LastMessage.Content))
	assert.Equal(t, "u1", r.LastMessage.SenderID)
	assert.Equal(t, sent, r.LastMessage.Timestamp)
	assert.Equal(t, fixedNow, r.UpdatedAt)
	assert.Equal(t, "p1", r.PassengerID)
	assert.Equal(t, models.StatusInProgress, r.Status)
}

func TestOnMessageCreated_MissingTimestampUsesNow(t *testing.T) {
	store := storage.NewMemoryStore()
	m := &Mirror{Rides: store, Now: func() time.Time { return fixedNow }}

	require.NoError(t, m.OnMessageCreated(context.Background(), messageEvent(models.ChatMessage{RideID: "r2", Content: "on my way", SenderID: "d1"})))
	r, _ := store.Ride("r2")
	require.NotNil(t, r.LastMessage)
	assert.Equal(t, fixedNow, r.LastMessage.Timestamp)
	assert.Equal(t, "on my way", r.LastMessage.Content)
}

type failingRides struct{}

func (failingRides) MergeLastMessage(context.Context, string, models.LastMessage, time.Time) error {
	return errors.New("deadline exceeded")
}

func TestOnMessageCreated_PropagatesWriteError(t *testing.T) {
	m := &Mirror{Rides: failingRides{}}
	err := m.OnMessageCreated(context.Background(), messageEvent(models.ChatMessage{RideID: "r1", Content: "hi"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "r1")
}
