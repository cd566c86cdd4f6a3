package models

import "time"

type Role string

const (
	RoleDriver    Role = "driver"
	RolePassenger Role = "passenger"
)

type Category string

const (
	CategoryNewRideOffer  Category = "new_ride_offer"
	CategoryDriverMatched Category = "driver_matched"
	CategoryDriverEnRoute Category = "driver_en_route"
	CategoryDriverArrived Category = "driver_arrived"
	CategoryRideStarted   Category = "ride_started"
	CategoryRideCompleted Category = "ride_completed"
	CategoryRideCancelled Category = "ride_cancelled"
	CategorySystem        Category = "system"
)

type Notification struct {
	ID          string         `json:"id"`
	RecipientID string         `json:"recipientId"`
	Role        Role           `json:"role"`
	RideID      string         `json:"rideId"`
	Category    Category       `json:"category"`
	Title       string         `json:"title"`
	Body        string         `json:"body"`
	Payload     map[string]any `json:"payload,omitempty"`
	Read        bool           `json:"read"`
	Viewed      bool           `json:"viewed"` // passenger inbox only
	CreatedAt   time.Time      `json:"createdAt"`
	ExpiresAt   time.Time      `json:"expiresAt"`
}

func (n Notification) Expired(now time.Time) bool { return !now.Before(n.ExpiresAt) }

// Push is what the delivery sink hands to a user's device.
type Push struct {
	NotificationID string            `json:"notificationId,omitempty"`
	Title          string            `json:"title"`
	Body           string            `json:"body"`
	Data           map[string]string `json:"data,omitempty"`
	ExpiresAt      time.Time         `json:"expiresAt,omitempty"`
}
