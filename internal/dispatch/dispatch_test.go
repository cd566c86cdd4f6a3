package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ride-notify/internal/models"
)

type recordingSink struct {
	err   error
	users []string
}

func (r *recordingSink) Deliver(_ context.Context, userID string, _ models.Push) error {
	r.users = append(r.users, userID)
	return r.err
}

func TestFallback_StopsAtFirstSuccess(t *testing.T) {
	ws := &recordingSink{err: ErrNoSession}
	fcm := &recordingSink{}
	last := &recordingSink{}
	f := Fallback{Sinks: []Named{{"ws", ws}, {"fcm", fcm}, {"log", last}}}

	require.NoError(t, f.Deliver(context.Background(), "u1", models.Push{Title: "t"}))
	assert.Equal(t, []string{"u1"}, ws.users)
	assert.Equal(t, []string{"u1"}, fcm.users)
	assert.Empty(t, last.users)
}

func TestFallback_JoinsErrorsWhenAllFail(t *testing.T) {
	f := Fallback{Sinks: []Named{
		{"ws", &recordingSink{err: ErrNoSession}},
		{"fcm", &recordingSink{err: errors.New("quota")}},
	}}
	err := f.Deliver(context.Background(), "u1", models.Push{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Contains(t, err.Error(), "quota")
}

type fakeMessenger struct {
	sent []*messaging.Message
	err  error
}

func (f *fakeMessenger) Send(_ context.Context, m *messaging.Message) (string, error) {
	f.sent = append(f.sent, m)
	return "projects/p/messages/1", f.err
}

func TestFCMSink_SendsToUserTopicWithTTL(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	m := &fakeMessenger{}
	s := NewFCMSink(m)
	s.Now = func() time.Time { return now }

	err := s.Deliver(context.Background(), "d1", models.Push{
		Title: "New ride", Body: "Tap to view",
		Data:      map[string]string{"rideId": "r1"},
		ExpiresAt: now.Add(3 * time.Minute),
	})
	require.NoError(t, err)
	require.Len(t, m.sent, 1)
	msg := m.sent[0]
	assert.Equal(t, "user_d1", msg.Topic)
	assert.Equal(t, "New ride", msg.Notification.Title)
	assert.Equal(t, "r1", msg.Data["rideId"])
	require.NotNil(t, msg.Android.TTL)
	assert.Equal(t, 3*time.Minute, *msg.Android.TTL)
}

func TestFCMSink_SkipsExpiredPush(t *testing.T) {
	m := &fakeMessenger{}
	s := NewFCMSink(m)
	require.NoError(t, s.Deliver(context.Background(), "d1", models.Push{ExpiresAt: time.Now().Add(-time.Second)}))
	assert.Empty(t, m.sent)
}

func TestFCMSink_WrapsSendError(t *testing.T) {
	s := NewFCMSink(&fakeMessenger{err: errors.New("unavailable")})
	err := s.Deliver(context.Background(), "d1", models.Push{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "d1")
}

func TestWebhookSink(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	require.NoError(t, NewWebhookSink(srv.URL).Deliver(context.Background(), "p1", models.Push{Title: "Driver found"}))
	assert.Equal(t, "p1", got["user_id"])

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad.Close()
	assert.Error(t, NewWebhookSink(bad.URL).Deliver(context.Background(), "p1", models.Push{}))
}

func TestWSRegistry_DeliversToConnectedUser(t *testing.T) {
	reg := NewWSRegistry()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		reg.Add("u1", conn)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return reg.Connected("u1") }, time.Second, 10*time.Millisecond)
	require.NoError(t, reg.Deliver(context.Background(), "u1", models.Push{Title: "Ride update"}))

	var p models.Push
	require.NoError(t, conn.ReadJSON(&p))
	assert.Equal(t, "Ride update", p.Title)

	assert.ErrorIs(t, reg.Deliver(context.Background(), "nobody", models.Push{}), ErrNoSession)
}
