package geo

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ride-notify/internal/models"
)

const testDriverKey = "drivers:online"

func newRedisIndex(t *testing.T) (*RedisIndex, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisIndex(client, testDriverKey), mr
}

func seedRedis(t *testing.T, idx *RedisIndex, drivers ...models.DriverLocation) {
	t.Helper()
	for _, d := range drivers {
		require.NoError(t, idx.Upsert(context.Background(), d))
	}
}

func TestRedisIndex_OnlineDriversInPrefixOnly(t *testing.T) {
	idx, mr := newRedisIndex(t)
	seedRedis(t, idx,
		models.DriverLocation{DriverID: "near1", Status: models.DriverOnline, Geohash: "u4pruydqq"},
		models.DriverLocation{DriverID: "near2", Status: models.DriverOnline, Geohash: "u4pru0000"},
		models.DriverLocation{DriverID: "exact", Status: models.DriverOnline, Geohash: "u4pru"},
		models.DriverLocation{DriverID: "offline", Status: models.DriverOffline, Geohash: "u4pruydqq"},
		models.DriverLocation{DriverID: "busy", Status: models.DriverBusy, Geohash: "u4pruaaaa"},
		models.DriverLocation{DriverID: "far", Status: models.DriverOnline, Geohash: "u4prvaaaa"},
		models.DriverLocation{DriverID: "below", Status: models.DriverOnline, Geohash: "u4prt9999"},
	)

	members, err := mr.ZMembers(testDriverKey)
	require.NoError(t, err)
	assert.Contains(t, members, "u4pruydqq|near1")
	assert.NotContains(t, members, "u4pruydqq|offline")
	assert.NotContains(t, members, "u4pruaaaa|busy")

	got, err := NewSelector(idx, DefaultPrecision, DefaultLimit).Candidates(context.Background(), "u4pruydqqvj", 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"near1", "near2", "exact"}, got)
}

func TestRedisIndex_EmptyPrefixScansEverything(t *testing.T) {
	idx, _ := newRedisIndex(t)
	seedRedis(t, idx,
		models.DriverLocation{DriverID: "a", Status: models.DriverOnline, Geohash: "9q8yy"},
		models.DriverLocation{DriverID: "b", Status: models.DriverOnline, Geohash: "u4pru"},
		models.DriverLocation{DriverID: "c", Status: models.DriverOffline, Geohash: "u4pru"},
	)
	got, err := NewSelector(idx, 5, 50).Candidates(context.Background(), "", 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, got)
}

func TestRedisIndex_ScanIsOrderedAndLimited(t *testing.T) {
	idx, _ := newRedisIndex(t)
	seedRedis(t, idx,
		models.DriverLocation{DriverID: "z", Status: models.DriverOnline, Geohash: "u4pru1"},
		models.DriverLocation{DriverID: "y", Status: models.DriverOnline, Geohash: "u4pru2"},
		models.DriverLocation{DriverID: "x", Status: models.DriverOnline, Geohash: "u4pru3"},
	)
	lo, hi := PrefixRange("u4pru")
	got, err := idx.OnlineDrivers(context.Background(), lo, hi, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "y"}, got)
}

func TestRedisIndex_UpsertMovesDriver(t *testing.T) {
	idx, mr := newRedisIndex(t)
	ctx := context.Background()
	seedRedis(t, idx, models.DriverLocation{DriverID: "d1", Status: models.DriverOnline, Geohash: "u4pruaaaa"})
	seedRedis(t, idx, models.DriverLocation{DriverID: "d1", Status: models.DriverOnline, Geohash: "gcpuvbbbb"})

	members, err := mr.ZMembers(testDriverKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"gcpuvbbbb|d1"}, members)
	assert.Equal(t, "gcpuvbbbb", mr.HGet("driver:loc:d1", "geohash"))

	lo, hi := PrefixRange("u4pru")
	got, err := idx.OnlineDrivers(ctx, lo, hi, 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	seedRedis(t, idx, models.DriverLocation{DriverID: "d1", Status: models.DriverBusy, Geohash: "gcpuvbbbb"})
	lo, hi = PrefixRange("gcpuv")
	got, err = idx.OnlineDrivers(ctx, lo, hi, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, "busy", mr.HGet("driver:loc:d1", "status"))
}
