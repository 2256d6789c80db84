// Package cache decorates a store with an in-memory cache of holiday reads.
//
// Every balance request loads the active holidays of one month; they only
// change through the admin endpoints, which go through this decorator and
// flush the cache.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/warp/carebalance/generic"
	"github.com/warp/carebalance/store"
)

// DefaultTTL applies when NewHolidayCache is given a non-positive ttl.
const DefaultTTL = 10 * time.Minute

// HolidayCache caches ActiveHolidays and passes everything else through.
type HolidayCache struct {
	store.Store
	cache *gocache.Cache
}

var _ store.Store = (*HolidayCache)(nil)

func NewHolidayCache(next store.Store, ttl time.Duration) *HolidayCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &HolidayCache{
		Store: next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// ActiveHolidays serves from the cache when the range was read before.
func (c *HolidayCache) ActiveHolidays(ctx context.Context, from, to generic.TimePoint) ([]generic.Holiday, error) {
	key := from.String() + "/" + to.String()
	if cached, found := c.cache.Get(key); found {
		return clone(cached.([]generic.Holiday)), nil
	}

	holidays, err := c.Store.ActiveHolidays(ctx, from, to)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, clone(holidays))
	return holidays, nil
}

func (c *HolidayCache) SaveHoliday(ctx context.Context, h generic.Holiday) (generic.Holiday, error) {
	defer c.cache.Flush()
	return c.Store.SaveHoliday(ctx, h)
}

func (c *HolidayCache) DeleteHoliday(ctx context.Context, id string) error {
	defer c.cache.Flush()
	return c.Store.DeleteHoliday(ctx, id)
}

func (c *HolidayCache) Reset(ctx context.Context) error {
	defer c.cache.Flush()
	return c.Store.Reset(ctx)
}

// Len reports the number of cached ranges.
func (c *HolidayCache) Len() int {
	return c.cache.ItemCount()
}

func clone(holidays []generic.Holiday) []generic.Holiday {
	if holidays == nil {
		return nil
	}
	return append([]generic.Holiday(nil), holidays...)
}
