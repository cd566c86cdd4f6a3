package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/example/ride-notify/internal/models"
)

const (
	ridesCollection                  = "rides"
	driversCollection                = "drivers"
	driverNotificationsCollection    = "driver_notifications"
	passengerNotificationsCollection = "passenger_notifications"
	shareLinksCollection             = "share_links"
)

// FirestoreStore keeps the document layout the mobile clients read:
// notifications are split per recipient role and drivers carry their
// position under location.geohash.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

type firestoreNotification struct {
	RecipientID string         `firestore:"recipientId"`
	RideID      string         `firestore:"rideId"`
	Category    string         `firestore:"category"`
	Title       string         `firestore:"title"`
	Body        string         `firestore:"body"`
	Payload     map[string]any `firestore:"payload,omitempty"`
	Read        bool           `firestore:"read"`
	Viewed      *bool          `firestore:"viewed,omitempty"`
	CreatedAt   time.Time      `firestore:"createdAt"`
	ExpiresAt   time.Time      `firestore:"expiresAt"`
}

func toFirestoreNotification(n models.Notification) firestoreNotification {
	doc := firestoreNotification{
		RecipientID: n.RecipientID,
		RideID:      n.RideID,
		Category:    string(n.Category),
		Title:       n.Title,
		Body:        n.Body,
		Payload:     n.Payload,
		Read:        n.Read,
		CreatedAt:   n.CreatedAt,
		ExpiresAt:   n.ExpiresAt,
	}
	if n.Role == models.RolePassenger {
		viewed := n.Viewed
		doc.Viewed = &viewed
	}
	return doc
}

func (f *FirestoreStore) notificationsFor(role models.Role) *firestore.CollectionRef {
	if role == models.RolePassenger {
		return f.client.Collection(passengerNotificationsCollection)
	}
	return f.client.Collection(driverNotificationsCollection)
}

// CommitNotifications writes the batch in a single transaction. Documents
// that already exist are left as they are. The transaction is attempted
// once; retrying is left to the event source.
func (f *FirestoreStore) CommitNotifications(ctx context.Context, batch []models.Notification) error {
	if len(batch) == 0 {
		return nil
	}
	refs := make([]*firestore.DocumentRef, len(batch))
	for i, n := range batch {
		refs[i] = f.notificationsFor(n.Role).Doc(n.ID)
	}
	return f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snaps, err := tx.GetAll(refs)
		if err != nil {
			return fmt.Errorf("read existing notifications: %w", err)
		}
		for i, n := range batch {
			if snaps[i].Exists() {
				continue
			}
			if err := tx.Create(refs[i], toFirestoreNotification(n)); err != nil {
				return fmt.Errorf("stage %s: %w", n.ID, err)
			}
		}
		return nil
	}, firestore.MaxAttempts(1))
}

func (f *FirestoreStore) MergeLastMessage(ctx context.Context, rideID string, msg models.LastMessage, updatedAt time.Time) error {
	_, err := f.client.Collection(ridesCollection).Doc(rideID).Set(ctx, lastMessageDoc(msg, updatedAt), firestore.MergeAll)
	return err
}

// lastMessageDoc is the merge payload for a ride. The sender is written under
// both senderId and remetente; the installed mobile clients read remetente.
func lastMessageDoc(msg models.LastMessage, updatedAt time.Time) map[string]interface{} {
	return map[string]interface{}{
		"lastMessage": map[string]interface{}{
			"content":   msg.Content,
			"senderId":  msg.SenderID,
			"remetente": msg.SenderID,
			"timestamp": msg.Timestamp,
		},
		"updatedAt": updatedAt,
	}
}

func (f *FirestoreStore) CreateShareLink(ctx context.Context, l models.ShareLink) error {
	_, err := f.client.Collection(shareLinksCollection).Doc(l.Token).Create(ctx, l)
	return err
}

func (f *FirestoreStore) GetShareLink(ctx context.Context, token string) (models.ShareLink, error) {
	snap, err := f.client.Collection(shareLinksCollection).Doc(token).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return models.ShareLink{}, ErrNotFound
	}
	if err != nil {
		return models.ShareLink{}, err
	}
	var l models.ShareLink
	if err := snap.DataTo(&l); err != nil {
		return models.ShareLink{}, fmt.Errorf("decode share link: %w", err)
	}
	l.Token = snap.Ref.ID
	return l, nil
}

func (f *FirestoreStore) Upsert(ctx context.Context, d models.DriverLocation) error {
	updated := d.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := f.client.Collection(driversCollection).Doc(d.DriverID).Set(ctx, map[string]interface{}{
		"status":    string(d.Status),
		"location":  map[string]interface{}{"geohash": d.Geohash},
		"updatedAt": updated,
	}, firestore.MergeAll)
	return err
}

func (f *FirestoreStore) OnlineDrivers(ctx context.Context, lo, hi string, limit int) ([]string, error) {
	iter := f.client.Collection(driversCollection).
		Where("status", "==", string(models.DriverOnline)).
		Where("location.geohash", ">=", lo).
		Where("location.geohash", "<", hi).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var ids []string
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, snap.Ref.ID)
	}
	return ids, nil
}

func (f *FirestoreStore) Close() error { return f.client.Close() }
