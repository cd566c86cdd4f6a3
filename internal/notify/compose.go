// Package notify turns ride lifecycle changes into notification records.
package notify

import (
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/example/ride-notify/internal/models"
)

const (
	// Offers race against matching; a stale offer must not resurface.
	OfferTTL     = 3 * time.Minute
	LifecycleTTL = 24 * time.Hour

	MaxTitleRunes = 80
	MaxBodyRunes  = 240
)

var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("ride-notify/notifications"))

// TTLFor returns how long a notification of category c stays visible.
func TTLFor(c models.Category) time.Duration {
	if c == models.CategoryNewRideOffer {
		return OfferTTL
	}
	return LifecycleTTL
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// NotificationID derives a stable ID when the triggering event is known, so a
// redelivered event maps onto the records it already wrote. Without an event
// ID a random ID is used.
func NotificationID(eventID, rideID, recipientID string, c models.Category) string {
	if eventID == "" {
		return uuid.NewString()
	}
	key := rideID + "\x00" + eventID + "\x00" + recipientID + "\x00" + string(c)
	return uuid.NewSHA1(idNamespace, []byte(key)).String()
}

type Composer struct {
	Now func() time.Time
}

func NewComposer(now func() time.Time) Composer {
	if now == nil {
		now = time.Now
	}
	return Composer{Now: now}
}

// Compose builds the notification for one recipient of a ride event.
func (c Composer) Compose(eventID string, ride models.Ride, role models.Role, category models.Category, recipientID string) models.Notification {
	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}
	title, body := text(ride, role, category)
	return models.Notification{
		ID:          NotificationID(eventID, ride.ID, recipientID, category),
		RecipientID: recipientID,
		Role:        role,
		RideID:      ride.ID,
		Category:    category,
		Title:       Truncate(title, MaxTitleRunes),
		Body:        Truncate(body, MaxBodyRunes),
		Payload:     payload(ride, category),
		CreatedAt:   now,
		ExpiresAt:   now.Add(TTLFor(category)),
	}
}

// PushFor is the short device payload for a stored notification.
func PushFor(n models.Notification) models.Push {
	p := models.Push{
		NotificationID: n.ID,
		Title:          n.Title,
		Body:           n.Body,
		ExpiresAt:      n.ExpiresAt,
		Data: map[string]string{
			"notificationId": n.ID,
			"rideId":         n.RideID,
			"category":       string(n.Category),
		},
	}
	if n.Category == models.CategoryNewRideOffer {
		p.Title, p.Body = "New ride", "Tap to view"
		if f, ok := n.Payload["fare"].(float64); ok {
			p.Data["fare"] = FormatFare(f)
		}
	}
	return p
}

var passengerTitles = map[models.Category]string{
	models.CategoryDriverMatched: "Driver found",
	models.CategoryDriverEnRoute: "Your driver is on the way",
	models.CategoryDriverArrived: "Your driver has arrived",
	models.CategoryRideStarted:   "Your ride has started",
	models.CategoryRideCompleted: "Ride completed",
	models.CategoryRideCancelled: "Ride cancelled",
}

func text(ride models.Ride, role models.Role, category models.Category) (string, string) {
	if category == models.CategoryNewRideOffer {
		return "New ride available", fmt.Sprintf("%s → %s", orUnknown(ride.Origin.Address), orUnknown(ride.Destination.Address))
	}
	body := "Status: " + string(ride.Status)
	if role == models.RoleDriver {
		return "Ride update", body
	}
	if t, ok := passengerTitles[category]; ok {
		return t, body
	}
	return "Update on your ride", body
}

// payload echoes only what the recipient needs; geohashes stay internal.
func payload(ride models.Ride, category models.Category) map[string]any {
	if category == models.CategoryNewRideOffer {
		return map[string]any{
			"rideId":      ride.ID,
			"origin":      ride.Origin.Address,
			"destination": ride.Destination.Address,
			"fare":        ride.Fare,
			"distanceKm":  ride.DistanceKm,
			"etaMinutes":  ride.ETAMinutes,
		}
	}
	return map[string]any{
		"rideId": ride.ID,
		"status": string(ride.Status),
	}
}

func orUnknown(addr string) string {
	if addr == "" {
		return "unknown address"
	}
	return addr
}

// FormatFare renders a fare for push data maps, which only carry strings.
func FormatFare(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) }
