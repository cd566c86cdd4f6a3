package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ride-notify/internal/models"
)

func TestLastMessageDoc_CarriesSenderAlias(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	doc := lastMessageDoc(models.LastMessage{Content: "on my way", SenderID: "u1", Timestamp: at}, at)

	last, ok := doc["lastMessage"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "u1", last["remetente"])
	assert.Equal(t, "u1", last["senderId"])
	assert.Equal(t, "on my way", last["content"])
	assert.Equal(t, at, doc["updatedAt"])
	assert.Len(t, doc, 2)
}

func TestToFirestoreNotification_ViewedOnlyForPassengers(t *testing.T) {
	p := toFirestoreNotification(models.Notification{ID: "n1", Role: models.RolePassenger})
	require.NotNil(t, p.Viewed)
	assert.False(t, *p.Viewed)

	d := toFirestoreNotification(models.Notification{ID: "n2", Role: models.RoleDriver})
	assert.Nil(t, d.Viewed)
}
