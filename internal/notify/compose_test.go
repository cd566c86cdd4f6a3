package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ride-notify/internal/models"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func testRide() models.Ride {
	return models.Ride{
		ID:          "r1",
		Origin:      models.Place{Address: "Av. Paulista 1000", GeohashPrefix: "6gyf4bf"},
		Destination: models.Place{Address: "Rua Augusta 500", GeohashPrefix: "6gyf4c0"},
		Fare:        23.5,
		DistanceKm:  4.2,
		ETAMinutes:  12,
		Status:      models.StatusRequested,
		PassengerID: "p1",
	}
}

func TestCompose_OfferExpiresInThreeMinutes(t *testing.T) {
	c := NewComposer(func() time.Time { return fixedNow })
	n := c.Compose("ev1", testRide(), models.RoleDriver, models.CategoryNewRideOffer, "d1")

	assert.Equal(t, "d1", n.RecipientID)
	assert.Equal(t, "r1", n.RideID)
	assert.Equal(t, models.RoleDriver, n.Role)
	assert.False(t, n.Read)
	assert.Equal(t, fixedNow, n.CreatedAt)
	assert.Equal(t, 3*time.Minute, n.ExpiresAt.Sub(n.CreatedAt))
	assert.Equal(t, "Av. Paulista 1000 → Rua Augusta 500", n.Body)
}

func TestCompose_LifecycleExpiresInADay(t *testing.T) {
	ride := testRide()
	ride.Status = models.StatusMatched
	n := NewComposer(func() time.Time { return fixedNow }).Compose("ev1", ride, models.RolePassenger, models.CategoryDriverMatched, "p1")

	assert.Equal(t, 24*time.Hour, n.ExpiresAt.Sub(n.CreatedAt))
	assert.Equal(t, "Driver found", n.Title)
	assert.Equal(t, "Status: matched", n.Body)
	assert.Equal(t, map[string]any{"rideId": "r1", "status": "matched"}, n.Payload)
}

func TestCompose_PayloadOmitsGeohash(t *testing.T) {
	n := NewComposer(nil).Compose("", testRide(), models.RoleDriver, models.CategoryNewRideOffer, "d1")
	for k, v := range n.Payload {
		if s, ok := v.(string); ok {
			assert.NotContains(t, s, "6gyf", k)
		}
	}
	assert.Equal(t, 23.5, n.Payload["fare"])
	assert.Equal(t, "Av. Paulista 1000", n.Payload["origin"])
}

func TestCompose_DriverTitleIsGeneric(t *testing.T) {
	ride := testRide()
	ride.Status = models.StatusInProgress
	n := NewComposer(nil).Compose("ev", ride, models.RoleDriver, models.CategorySystem, "d1")
	assert.Equal(t, "Ride update", n.Title)
}

func TestCompose_TruncatesBody(t *testing.T) {
	ride := testRide()
	ride.Origin.Address = strings.Repeat("á", 300)
	n := NewComposer(nil).Compose("ev", ride, models.RoleDriver, models.CategoryNewRideOffer, "d1")
	assert.Equal(t, MaxBodyRunes, len([]rune(n.Body)))
}

func TestNotificationID_StableForSameEvent(t *testing.T) {
	a := NotificationID("ev1", "r1", "d1", models.CategoryNewRideOffer)
	b := NotificationID("ev1", "r1", "d1", models.CategoryNewRideOffer)
	c := NotificationID("ev1", "r1", "d2", models.CategoryNewRideOffer)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, NotificationID("", "r1", "d1", models.CategorySystem), NotificationID("", "r1", "d1", models.CategorySystem))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héllo", Truncate("héllo wörld", 5))
	assert.Equal(t, "short", Truncate("short", 160))
	assert.Equal(t, "", Truncate("abc", 0))
}

func TestPushFor_OfferUsesShortText(t *testing.T) {
	n := NewComposer(nil).Compose("ev", testRide(), models.RoleDriver, models.CategoryNewRideOffer, "d1")
	p := PushFor(n)
	require.Equal(t, "New ride", p.Title)
	assert.Equal(t, "Tap to view", p.Body)
	assert.Equal(t, "r1", p.Data["rideId"])
	assert.Equal(t, "23.50", p.Data["fare"])
	assert.Equal(t, n.ID, p.NotificationID)
}
