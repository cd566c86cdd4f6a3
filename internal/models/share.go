package models

import "time"

type ShareOptions struct {
	ShareLocation    bool `json:"shareLocation" firestore:"shareLocation"`
	ShareDriver      bool `json:"shareDriver" firestore:"shareDriver"`
	ShareRoute       bool `json:"shareRoute" firestore:"shareRoute"`
	NotifyMilestones bool `json:"notifyMilestones" firestore:"notifyMilestones"`
}

func DefaultShareOptions() ShareOptions {
	return ShareOptions{ShareLocation: true, ShareDriver: true, ShareRoute: true, NotifyMilestones: true}
}

type ShareLink struct {
	Token       string       `json:"token" firestore:"-"`
	RideID      string       `json:"rideId" firestore:"rideId"`
	PassengerID string       `json:"passengerId" firestore:"passengerId"`
	URL         string       `json:"url" firestore:"url"`
	Options     ShareOptions `json:"options" firestore:"options"`
	Active      bool         `json:"active" firestore:"active"`
	CreatedAt   time.Time    `json:"createdAt" firestore:"createdAt"`
	ExpiresAt   time.Time    `json:"expiresAt" firestore:"expiresAt"`
}

// Live reports whether the link may still be opened.
func (l ShareLink) Live(now time.Time) bool { return l.Active && now.Before(l.ExpiresAt) }
