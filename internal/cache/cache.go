// Package cache holds the optional Redis-backed pieces of the delivery sweep:
// a lock that keeps two sweeps from running at once, and a record of each
// delivered message keyed by bottle id.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sweepLockKey  = "bottled:sweep_lock"
	sentKeyPrefix = "bottled:sent_bottle:"

	// sentTTL bounds how long delivery metadata is kept.
	sentTTL = 30 * 24 * time.Hour
)

// ErrLockHeld is returned by AcquireSweepLock when another sweep holds it.
var ErrLockHeld = errors.New("cache: sweep lock held")

// releaseScript deletes the lock only if it still carries our token, so a
// sweep that outlived its TTL cannot release a lock a newer sweep now holds.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Connect opens a client and verifies it with PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache: connect to redis %s: %w", addr, err)
	}
	return rdb, nil
}

// Cache wraps any redis.Cmdable (client, cluster, or pipeline).
type Cache struct {
	rdb redis.Cmdable
}

// New wraps an already connected client. Use Connect to build one from
// config.
func New(rdb redis.Cmdable) *Cache {
	return &Cache{rdb: rdb}
}

// Ping reports whether Redis is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// AcquireSweepLock takes the sweep lock for ttl. The returned release func
// must be called when the sweep finishes; it is safe to call after the TTL
// has passed.
func (c *Cache) AcquireSweepLock(ctx context.Context, ttl time.Duration) (release func(context.Context) error, err error) {
	token := uuid.NewString()
	ok, err := c.rdb.SetNX(ctx, sweepLockKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("cache: acquire sweep lock: %w", err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, c.rdb, []string{sweepLockKey}, token).Err(); err != nil {
			return fmt.Errorf("cache: release sweep lock: %w", err)
		}
		return nil
	}, nil
}

// SentRecord is the metadata stored for each delivered bottle.
type SentRecord struct {
	BottleID  uuid.UUID
	Recipient string
	Provider  string
	MessageID string
	SentAt    time.Time
}

// RecordSent stores r as a hash under the bottle id.
func (c *Cache) RecordSent(ctx context.Context, r SentRecord) error {
	key := sentKeyPrefix + r.BottleID.String()
	values := map[string]interface{}{
		"bottle_id":  r.BottleID.String(),
		"recipient":  r.Recipient,
		"provider":   r.Provider,
		"message_id": r.MessageID,
		"sent_at":    r.SentAt.Format(time.RFC3339Nano),
	}

	if err := c.rdb.HSet(ctx, key, values).Err(); err != nil {
		return fmt.Errorf("cache: record sent %s: %w", r.BottleID, err)
	}
	if err := c.rdb.Expire(ctx, key, sentTTL).Err(); err != nil {
		return fmt.Errorf("cache: expire sent %s: %w", r.BottleID, err)
	}
	return nil
}

// Sent returns the stored metadata for a bottle. ok is false when there is
// none.
func (c *Cache) Sent(ctx context.Context, bottleID uuid.UUID) (rec SentRecord, ok bool, err error) {
	m, err := c.rdb.HGetAll(ctx, sentKeyPrefix+bottleID.String()).Result()
	if err != nil {
		return SentRecord{}, false, fmt.Errorf("cache: get sent %s: %w", bottleID, err)
	}
	if len(m) == 0 {
		return SentRecord{}, false, nil
	}
	at, _ := time.Parse(time.RFC3339Nano, m["sent_at"])
	return SentRecord{
		BottleID:  bottleID,
		Recipient: m["recipient"],
		Provider:  m["provider"],
		MessageID: m["message_id"],
		SentAt:    at,
	}, true, nil
}
