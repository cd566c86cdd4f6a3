package models

import "time"

type RideStatus string

const (
	StatusRequested            RideStatus = "requested"
	StatusMatched              RideStatus = "matched"
	StatusDriverEnRoute        RideStatus = "driver_en_route"
	StatusDriverArrived        RideStatus = "driver_arrived"
	StatusInProgress           RideStatus = "in_progress"
	StatusCompleted            RideStatus = "completed"
	StatusCancelledByPassenger RideStatus = "cancelled_by_passenger"
	StatusCancelledByDriver    RideStatus = "cancelled_by_driver"
)

// Terminal reports whether no further lifecycle transition is expected.
func (s RideStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelledByPassenger, StatusCancelledByDriver:
		return true
	}
	return false
}

// Assigned reports whether a ride in this status must carry a driver.
func (s RideStatus) Assigned() bool {
	switch s {
	case StatusMatched, StatusDriverEnRoute, StatusDriverArrived, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

type Place struct {
	Address       string `json:"address" firestore:"address"`
	GeohashPrefix string `json:"geohashPrefix,omitempty" firestore:"geohashPrefix,omitempty"`
}

type LastMessage struct {
	Content   string    `json:"content" firestore:"content"`
	SenderID  string    `json:"senderId" firestore:"senderId"`
	Timestamp time.Time `json:"timestamp" firestore:"timestamp"`
}

type Ride struct {
	ID          string       `json:"id" firestore:"-"`
	Origin      Place        `json:"origin" firestore:"origin"`
	Destination Place        `json:"destination" firestore:"destination"`
	Fare        float64      `json:"fare" firestore:"fare"`
	DistanceKm  float64      `json:"distanceKm" firestore:"distanceKm"`
	ETAMinutes  float64      `json:"etaMinutes" firestore:"etaMinutes"`
	Status      RideStatus   `json:"status" firestore:"status"`
	PassengerID string       `json:"passengerId" firestore:"passengerId"`
	DriverID    string       `json:"driverId,omitempty" firestore:"driverId,omitempty"`
	LastMessage *LastMessage `json:"lastMessage,omitempty" firestore:"lastMessage,omitempty"`
	CreatedAt   time.Time    `json:"createdAt" firestore:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt" firestore:"updatedAt"`
}

func (r Ride) HasDriver() bool { return r.DriverID != "" }

// Consistent checks that a driver is present exactly when the status requires one.
func (r Ride) Consistent() bool { return r.HasDriver() == r.Status.Assigned() }

type ChatMessage struct {
	ID        string    `json:"id"`
	RideID    string    `json:"rideId"`
	Content   string    `json:"content"`
	SenderID  string    `json:"senderId"`
	Timestamp time.Time `json:"timestamp"`
}
