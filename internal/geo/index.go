package geo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/ride-notify/internal/models"
)

// Index is an in-memory DriverIndex for local runs and tests.
type Index struct {
	mu      sync.RWMutex
	drivers map[string]models.DriverLocation
}

func NewIndex() *Index {
	return &Index{drivers: make(map[string]models.DriverLocation)}
}

func (g *Index) Upsert(_ context.Context, d models.DriverLocation) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = time.Now()
	}
	g.drivers[d.DriverID] = d
	return nil
}

// OnlineDrivers mimics an ordered index scan: matches are visited in
// (geohash, driver ID) order and the scan stops at limit.
func (g *Index) OnlineDrivers(_ context.Context, lo, hi string, limit int) ([]string, error) {
	g.mu.RLock()
	matches := make([]models.DriverLocation, 0, len(g.drivers))
	for _, d := range g.drivers {
		if d.Status != models.DriverOnline {
			continue
		}
		if d.Geohash < lo || d.Geohash >= hi {
			continue
		}
		matches = append(matches, d)
	}
	g.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Geohash != matches[j].Geohash {
			return matches[i].Geohash < matches[j].Geohash
		}
		return matches[i].DriverID < matches[j].DriverID
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]string, 0, len(matches))
	for _, d := range matches {
		out = append(out, d.DriverID)
	}
	return out, nil
}
