package geo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/ride-notify/internal/models"
)

// RedisIndex keeps online drivers in a sorted set whose members are
// "<geohash>|<driverID>" with equal scores, so ZRANGEBYLEX performs the
// prefix range scan. Offline and busy drivers are not members.
type RedisIndex struct {
	client *redis.Client
	key    string
}

func NewRedisIndex(client *redis.Client, key string) *RedisIndex {
	return &RedisIndex{client: client, key: key}
}

func (r *RedisIndex) Upsert(ctx context.Context, d models.DriverLocation) error {
	prev, err := r.client.HGet(ctx, locKey(d.DriverID), "geohash").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("read previous location: %w", err)
	}
	updated := d.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if prev != "" {
			p.ZRem(ctx, r.key, member(prev, d.DriverID))
		}
		if d.Status == models.DriverOnline {
			p.ZAdd(ctx, r.key, redis.Z{Score: 0, Member: member(d.Geohash, d.DriverID)})
		}
		p.HSet(ctx, locKey(d.DriverID), map[string]interface{}{
			"geohash": d.Geohash,
			"status":  string(d.Status),
			"updated": updated.Format(time.RFC3339),
		})
		return nil
	})
	return err
}

func (r *RedisIndex) OnlineDrivers(ctx context.Context, lo, hi string, limit int) ([]string, error) {
	members, err := r.client.ZRangeByLex(ctx, r.key, &redis.ZRangeBy{
		Min:   "[" + lo,
		Max:   "(" + hi,
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(members))
	for _, m := range members {
		if _, id, ok := strings.Cut(m, "|"); ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func member(geohash, driverID string) string { return geohash + "|" + driverID }

func locKey(id string) string { return "driver:loc:" + id }
