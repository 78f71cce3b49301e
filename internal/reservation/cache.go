package reservation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// AvailabilityCache stores availability answers for a short time.
// Entries are keyed by a per-hotel version so a committed write makes every
// older entry of that hotel unreachable at once.
type AvailabilityCache interface {
	// Lookup returns the cached items on a hit. On a miss it returns the key
	// under which a freshly computed answer should be stored.
	Lookup(ctx context.Context, q AvailabilityQuery) (items []Availability, key string, hit bool, err error)
	Store(ctx context.Context, key string, items []Availability) error
	Invalidate(ctx context.Context, hotelID string) error
}

type RedisAvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAvailabilityCache(client *redis.Client, ttl time.Duration) *RedisAvailabilityCache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &RedisAvailabilityCache{client: client, ttl: ttl}
}

func versionKey(hotelID string) string {
	return fmt.Sprintf("availability:%s:version", hotelID)
}

type cachedAvailability struct {
	RoomTypeID  string `json:"room_type_id"`
	Capacity    int    `json:"capacity"`
	BookedCount int    `json:"booked_count"`
}

func (c *RedisAvailabilityCache) Lookup(ctx context.Context, q AvailabilityQuery) ([]Availability, string, bool, error) {
	version, err := c.client.Get(ctx, versionKey(q.HotelID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, "", false, fmt.Errorf("read availability version failed: %w", err)
	}

	roomType := q.RoomTypeID
	if roomType == "" {
		roomType = "*"
	}
	key := fmt.Sprintf("availability:%s:v%d:%s:%s:%s",
		q.HotelID, version, roomType,
		strconv.FormatInt(q.Start.UnixNano(), 10), strconv.FormatInt(q.End.UnixNano(), 10))

	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, key, false, nil
	}
	if err != nil {
		return nil, "", false, fmt.Errorf("read availability entry failed: %w", err)
	}

	var cached []cachedAvailability
	if err := json.Unmarshal(raw, &cached); err != nil {
		// Treat a corrupt entry as a miss; Store overwrites it.
		return nil, key, false, nil
	}

	items := make([]Availability, len(cached))
	for i, e := range cached {
		items[i] = Availability{
			RoomTypeID:  e.RoomTypeID,
			Capacity:    e.Capacity,
			BookedCount: e.BookedCount,
			Free:        max(e.Capacity-e.BookedCount, 0),
		}
	}
	return items, key, true, nil
}

func (c *RedisAvailabilityCache) Store(ctx context.Context, key string, items []Availability) error {
	cached := make([]cachedAvailability, len(items))
	for i, a := range items {
		cached[i] = cachedAvailability{RoomTypeID: a.RoomTypeID, Capacity: a.Capacity, BookedCount: a.BookedCount}
	}

	raw, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshal availability failed: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("write availability entry failed: %w", err)
	}
	return nil
}

func (c *RedisAvailabilityCache) Invalidate(ctx context.Context, hotelID string) error {
	if err := c.client.Incr(ctx, versionKey(hotelID)).Err(); err != nil {
		return fmt.Errorf("bump availability version failed: %w", err)
	}
	return nil
}
