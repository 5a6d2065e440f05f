// Package flightcache implements a bounded LRU memoising
// (airport, day) -> flight list lookups against the schedule store. It
// exists because the sampler re-queries the same (airport, day) pair
// many times across a Monte Carlo run, and the store read dominates
// wall-clock time without it.
package flightcache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ecohealth/airflow/internal/store"
)

// DefaultCapacity sits in the middle of the 20,000-30,000 entry range
// called out for recurrent-leg expansion.
const DefaultCapacity = 25000

type key struct {
	airport string
	day     int64 // Unix seconds at UTC midnight of the day, see dayIndex
}

func dayIndex(day time.Time) int64 {
	return day.UTC().Truncate(24 * time.Hour).Unix()
}

// Cache memoises ScheduleStore.FlightsDeparting by (airport, day). The
// underlying hashicorp/golang-lru/v2 cache is internally mutex-guarded,
// so a Cache may be shared across worker goroutines.
type Cache struct {
	store    store.ScheduleStore
	inner    *lru.Cache[key, []store.LightFlight]
}

// New wraps store behind an LRU of the given capacity. A capacity of 0
// uses DefaultCapacity.
func New(backing store.ScheduleStore, capacity int) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	inner, err := lru.New[key, []store.LightFlight](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{store: backing, inner: inner}, nil
}

// FlightsDeparting returns the cached flight list for (airport, day),
// populating the cache on a miss. The returned slice is shared with the
// cache entry and must be treated as read-only by callers.
func (c *Cache) FlightsDeparting(ctx context.Context, airport string, day time.Time) ([]store.LightFlight, error) {
	k := key{airport: airport, day: dayIndex(day)}
	if flights, ok := c.inner.Get(k); ok {
		return flights, nil
	}

	flights, err := c.store.FlightsDeparting(ctx, airport, day)
	if err != nil {
		return nil, err
	}
	c.inner.Add(k, flights)
	return flights, nil
}

// Len reports the current number of cached (airport, day) entries.
func (c *Cache) Len() int {
	return c.inner.Len()
}
