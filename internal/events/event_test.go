package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ride-notify/internal/models"
)

func TestDecode_RideCreated(t *testing.T) {
	ev, err := Decode([]byte(`{"id":"e1","type":"ride.created","after":{"id":"r1","status":"requested","passengerId":"p1","origin":{"address":"A","geohashPrefix":"u4pru"}}}`))
	require.NoError(t, err)
	assert.Equal(t, "r1", ev.RideID)
	assert.Equal(t, "u4pru", ev.After.Origin.GeohashPrefix)
}

func TestDecode_MissingGeohashIsNotFatal(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"ride.created","rideId":"r1","after":{"status":"requested"}}`))
	require.NoError(t, err)
	assert.Equal(t, "", ev.After.Origin.GeohashPrefix)
	assert.Equal(t, "r1", ev.After.ID)
}

func TestDecode_UpdateWithoutBeforeDefaults(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"ride.updated","rideId":"r1","after":{"status":"matched"}}`))
	require.NoError(t, err)
	require.NotNil(t, ev.Before)
	assert.Equal(t, models.RideStatus(""), ev.Before.Status)
}

func TestDecode_MessageTakesRideIDFromMessage(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"message.created","message":{"rideId":"r9","content":"hi","senderId":"u1"}}`))
	require.NoError(t, err)
	assert.Equal(t, "r9", ev.RideID)
}

func TestDecode_Rejects(t *testing.T) {
	cases := map[string]string{
		"not json":        `{`,
		"unknown type":    `{"type":"ride.deleted","rideId":"r1"}`,
		"no ride id":      `{"type":"ride.created","after":{}}`,
		"no snapshot":     `{"type":"ride.updated","rideId":"r1"}`,
		"message missing": `{"type":"message.created","rideId":"r1"}`,
	}
	for name, raw := range cases {
		_, err := Decode([]byte(raw))
		assert.ErrorIs(t, err, ErrMalformedEvent, name)
		assert.False(t, Retryable(err), name)
	}
}

type recorder struct {
	calls []string
	err   error
}

func (r *recorder) OnRideCreated(context.Context, Event) error {
	r.calls = append(r.calls, "created")
	return r.err
}

func (r *recorder) OnRideUpdated(context.Context, Event) error {
	r.calls = append(r.calls, "updated")
	return r.err
}

func (r *recorder) OnMessageCreated(context.Context, Event) error {
	r.calls = append(r.calls, "message")
	return r.err
}

func TestRouter_Dispatches(t *testing.T) {
	rec := &recorder{}
	r := &Router{Rides: rec, Messages: rec}
	ctx := context.Background()

	require.NoError(t, r.Handle(ctx, Event{Type: RideCreated, RideID: "r1", After: &models.Ride{}}))
	require.NoError(t, r.Handle(ctx, Event{Type: RideUpdated, RideID: "r1", After: &models.Ride{}}))
	require.NoError(t, r.Handle(ctx, Event{Type: MessageCreated, RideID: "r1", Message: &models.ChatMessage{}}))
	assert.Equal(t, []string{"created", "updated", "message"}, rec.calls)
}

func TestRouter_SurfacesHandlerErrors(t *testing.T) {
	rec := &recorder{err: errors.New("commit failed")}
	r := &Router{Rides: rec, Messages: rec}
	err := r.Handle(context.Background(), Event{Type: RideCreated, RideID: "r1", After: &models.Ride{}})
	require.Error(t, err)
	assert.True(t, Retryable(err))
}
