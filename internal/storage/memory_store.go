package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/ride-notify/internal/models"
)

type MemoryStore struct {
	mu            sync.RWMutex
	notifications map[string]models.Notification
	rides         map[string]models.Ride
	links         map[string]models.ShareLink

	// CommitFault, when set, is consulted before each write of a batch is
	// staged; an error aborts the whole batch.
	CommitFault func(staged int) error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		notifications: make(map[string]models.Notification),
		rides:         make(map[string]models.Ride),
		links:         make(map[string]models.ShareLink),
	}
}

func (m *MemoryStore) CommitNotifications(_ context.Context, batch []models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	staged := make([]models.Notification, 0, len(batch))
	for i, n := range batch {
		if m.CommitFault != nil {
			if err := m.CommitFault(i); err != nil {
				return err
			}
		}
		staged = append(staged, n)
	}
	for _, n := range staged {
		if _, ok := m.notifications[n.ID]; ok {
			continue
		}
		m.notifications[n.ID] = n
	}
	return nil
}

// MarkRead flags a recipient's notification as read, as the client apps do.
func (m *MemoryStore) MarkRead(recipientID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok || n.RecipientID != recipientID {
		return ErrNotFound
	}
	n.Read = true
	m.notifications[id] = n
	return nil
}

func (m *MemoryStore) MergeLastMessage(_ context.Context, rideID string, msg models.LastMessage, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.rides[rideID]
	r.ID = rideID
	r.LastMessage = &msg
	r.UpdatedAt = updatedAt
	m.rides[rideID] = r
	return nil
}

func (m *MemoryStore) CreateShareLink(_ context.Context, link models.ShareLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[link.Token] = link
	return nil
}

func (m *MemoryStore) GetShareLink(_ context.Context, token string) (models.ShareLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.links[token]
	if !ok {
		return models.ShareLink{}, ErrNotFound
	}
	return l, nil
}

// SaveRide seeds a ride record.
func (m *MemoryStore) SaveRide(r models.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[r.ID] = r
}

func (m *MemoryStore) Ride(id string) (models.Ride, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rides[id]
	return r, ok
}

// Inbox lists a recipient's unexpired notifications, newest first.
func (m *MemoryStore) Inbox(recipientID string, now time.Time) []models.Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Notification
	for _, n := range m.notifications {
		if n.RecipientID == recipientID && !n.Expired(now) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *MemoryStore) Notifications() []models.Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Notification, 0, len(m.notifications))
	for _, n := range m.notifications {
		out = append(out, n)
	}
	return out
}

func (m *MemoryStore) ShareLinks() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.links)
}

func (m *MemoryStore) Close() error { return nil }
