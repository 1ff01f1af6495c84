package notify

import (
	"context"
	"errors"
	"strconv"
	"time"

	"leaseflow/internal/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// UnreadCounter caches per-user unread counts. The store stays authoritative; a
// miss or a cache failure only costs a count query.
//
// Get returns the user's generation alongside a miss. Callers count after Get
// and hand the generation back to Set; Invalidate bumps the generation, so a
// count read before a concurrent commit is dropped instead of cached.
type UnreadCounter interface {
	Get(ctx context.Context, userID uuid.UUID) (n int64, gen Generation, ok bool)
	Set(ctx context.Context, userID uuid.UUID, n int64, gen Generation)
	Invalidate(ctx context.Context, userIDs ...uuid.UUID)
}

// Generation guards a cache fill. NoFill means the fill must be skipped.
type Generation int64

const NoFill Generation = -1

// NopCounter never caches.
type NopCounter struct{}

func (NopCounter) Get(context.Context, uuid.UUID) (int64, Generation, bool) { return 0, NoFill, false }
func (NopCounter) Set(context.Context, uuid.UUID, int64, Generation)        {}
func (NopCounter) Invalidate(context.Context, ...uuid.UUID)                 {}

type RedisCounter struct {
	client *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

func NewRedisCounter(client *redis.Client, ttl time.Duration, log logger.Logger) *RedisCounter {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCounter{client: client, ttl: ttl, log: log}
}

// generationTTL outlives any in-flight fill by a wide margin.
const generationTTL = 24 * time.Hour

func unreadKey(userID uuid.UUID) string {
	return "leaseflow:unread:" + userID.String()
}

func generationKey(userID uuid.UUID) string {
	return "leaseflow:unread:gen:" + userID.String()
}

// fillScript writes the count only while the generation is unchanged.
var fillScript = redis.NewScript(`
local gen = redis.call("GET", KEYS[2]) or "0"
if gen ~= ARGV[2] then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
return 1
`)

func (c *RedisCounter) Get(ctx context.Context, userID uuid.UUID) (int64, Generation, bool) {
	vals, err := c.client.MGet(ctx, unreadKey(userID), generationKey(userID)).Result()
	if err != nil {
		c.log.Warn("redis get failed", map[string]interface{}{"error": err.Error(), "user_id": userID.String()})
		return 0, NoFill, false
	}
	var gen Generation
	if s, ok := vals[1].(string); ok {
		g, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, NoFill, false
		}
		gen = Generation(g)
	}
	s, ok := vals[0].(string)
	if !ok {
		return 0, gen, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, gen, false
	}
	return n, gen, true
}

func (c *RedisCounter) Set(ctx context.Context, userID uuid.UUID, n int64, gen Generation) {
	if gen == NoFill {
		return
	}
	keys := []string{unreadKey(userID), generationKey(userID)}
	err := fillScript.Run(ctx, c.client, keys, n, int64(gen), c.ttl.Milliseconds()).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.log.Warn("redis set failed", map[string]interface{}{"error": err.Error(), "user_id": userID.String()})
	}
}

func (c *RedisCounter) Invalidate(ctx context.Context, userIDs ...uuid.UUID) {
	if len(userIDs) == 0 {
		return
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range userIDs {
			pipe.Incr(ctx, generationKey(id))
			pipe.Expire(ctx, generationKey(id), generationTTL)
			pipe.Del(ctx, unreadKey(id))
		}
		return nil
	})
	if err != nil {
		c.log.Warn("redis invalidate failed", map[string]interface{}{"error": err.Error(), "users": len(userIDs)})
	}
}

// NewRedisClient connects and pings, like the cache setup it is used by.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
