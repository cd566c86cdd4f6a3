// Package geo selects candidate drivers for a ride by geohash prefix.
//
// Drivers sharing a geohash prefix with the ride's origin are close to it at
// the precision the prefix length encodes. The selector turns the prefix into
// a lexicographic range and asks a DriverIndex for online drivers inside it.
// Results come back in scan order; they are not sorted by true distance.
package geo

import (
	"context"
	"fmt"
)

const (
	DefaultPrecision = 5
	DefaultLimit     = 50

	// rangeEnd sorts after every character a geohash can contain.
	rangeEnd = "\uf8ff"
)

// DriverIndex answers range scans over the geohashes of online drivers.
type DriverIndex interface {
	OnlineDrivers(ctx context.Context, lo, hi string, limit int) ([]string, error)
}

// TruncatePrefix cuts a geohash down to precision characters.
func TruncatePrefix(geohash string, precision int) string {
	if precision <= 0 || len(geohash) <= precision {
		return geohash
	}
	return geohash[:precision]
}

// PrefixRange returns the half-open range [lo, hi) covering every geohash that
// starts with prefix. An empty prefix covers everything.
func PrefixRange(prefix string) (lo, hi string) {
	return prefix, prefix + rangeEnd
}

type Selector struct {
	Index     DriverIndex
	Precision int
	Limit     int
}

func NewSelector(index DriverIndex, precision, limit int) *Selector {
	return &Selector{Index: index, Precision: precision, Limit: limit}
}

// Candidates returns at most limit online driver IDs near the given origin
// geohash. A non-positive limit falls back to the selector's default.
func (s *Selector) Candidates(ctx context.Context, geohash string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = s.Limit
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	precision := s.Precision
	if precision <= 0 {
		precision = DefaultPrecision
	}

	lo, hi := PrefixRange(TruncatePrefix(geohash, precision))
	ids, err := s.Index.OnlineDrivers(ctx, lo, hi, limit)
	if err != nil {
		return nil, fmt.Errorf("query online drivers: %w", err)
	}

	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
