package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ride-notify/internal/models"
)

func batchOf(n int) []models.Notification {
	now := time.Now()
	out := make([]models.Notification, n)
	for i := range out {
		out[i] = models.Notification{
			ID:          string(rune('a' + i)),
			RecipientID: "d1",
			RideID:      "r1",
			Category:    models.CategoryNewRideOffer,
			CreatedAt:   now,
			ExpiresAt:   now.Add(time.Minute),
		}
	}
	return out
}

func TestMemoryStore_CommitIsAllOrNothing(t *testing.T) {
	m := NewMemoryStore()
	m.CommitFault = func(staged int) error {
		if staged == 4 {
			return errors.New("disk full")
		}
		return nil
	}
	err := m.CommitNotifications(context.Background(), batchOf(5))
	require.Error(t, err)
	assert.Empty(t, m.Notifications())

	m.CommitFault = nil
	require.NoError(t, m.CommitNotifications(context.Background(), batchOf(5)))
	assert.Len(t, m.Notifications(), 5)
}

func TestMemoryStore_RecommitKeepsExistingRecords(t *testing.T) {
	m := NewMemoryStore()
	first := batchOf(3)
	require.NoError(t, m.CommitNotifications(context.Background(), first))
	require.NoError(t, m.MarkRead("d1", "a"))

	again := batchOf(3)
	for i := range again {
		again[i].ExpiresAt = again[i].ExpiresAt.Add(time.Hour)
	}
	require.NoError(t, m.CommitNotifications(context.Background(), again))

	all := m.Notifications()
	require.Len(t, all, 3)
	byID := map[string]models.Notification{}
	for _, n := range all {
		byID[n.ID] = n
	}
	assert.True(t, byID["a"].Read)
	assert.False(t, byID["b"].Read)
	for _, n := range first {
		assert.True(t, n.ExpiresAt.Equal(byID[n.ID].ExpiresAt), "expiry of %s changed", n.ID)
	}
}

func TestMemoryStore_MarkReadUnknown(t *testing.T) {
	m := NewMemoryStore()
	require.NoError(t, m.CommitNotifications(context.Background(), batchOf(1)))
	assert.ErrorIs(t, m.MarkRead("d1", "zz"), ErrNotFound)
	assert.ErrorIs(t, m.MarkRead("p9", "a"), ErrNotFound)
}

func TestMemoryStore_InboxHidesExpired(t *testing.T) {
	m := NewMemoryStore()
	now := time.Now()
	require.NoError(t, m.CommitNotifications(context.Background(), []models.Notification{
		{ID: "old", RecipientID: "p1", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)},
		{ID: "new", RecipientID: "p1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
		{ID: "other", RecipientID: "p2", CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
	}))
	inbox := m.Inbox("p1", now)
	require.Len(t, inbox, 1)
	assert.Equal(t, "new", inbox[0].ID)
}

func TestMemoryStore_MergeLastMessageKeepsOtherFields(t *testing.T) {
	m := NewMemoryStore()
	m.SaveRide(models.Ride{ID: "r1", PassengerID: "p1", Status: models.StatusInProgress, Fare: 12})
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, m.MergeLastMessage(context.Background(), "r1", models.LastMessage{Content: "hi", SenderID: "u1", Timestamp: at}, at))

	r, ok := m.Ride("r1")
	require.True(t, ok)
	assert.Equal(t, "p1", r.PassengerID)
	assert.Equal(t, models.StatusInProgress, r.Status)
	assert.Equal(t, 12.0, r.Fare)
	require.NotNil(t, r.LastMessage)
	assert.Equal(t, "hi", r.LastMessage.Content)
	assert.Equal(t, at, r.UpdatedAt)
}

func TestMemoryStore_ShareLinks(t *testing.T) {
	m := NewMemoryStore()
	_, err := m.GetShareLink(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.CreateShareLink(context.Background(), models.ShareLink{Token: "t1", RideID: "r1", Active: true}))
	l, err := m.GetShareLink(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "r1", l.RideID)
}
