package models

import "time"

type DriverStatus string

const (
	DriverOnline  DriverStatus = "online"
	DriverOffline DriverStatus = "offline"
	DriverBusy    DriverStatus = "busy"
)

// DriverLocation is written by the driver's own client; the notifier only reads it.
type DriverLocation struct {
	DriverID  string       `json:"driverId"`
	Status    DriverStatus `json:"status"`
	Geohash   string       `json:"geohash"`
	UpdatedAt time.Time    `json:"updatedAt"`
}
