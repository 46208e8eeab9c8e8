package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rento/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript is the fixed window step, atomic per key:
// create with PX on first hit, refuse without incrementing once the limit is
// reached, INCR otherwise. Returns {count, pttl_ms, allowed}.
var fixedWindowScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
local window = tonumber(ARGV[2])
if not current then
  redis.call('SET', KEYS[1], 1, 'PX', window)
  return {1, window, 1}
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('SET', KEYS[1], 1, 'PX', window)
  return {1, window, 1}
end
current = tonumber(current)
if current >= tonumber(ARGV[1]) then
  return {current, ttl, 0}
end
current = redis.call('INCR', KEYS[1])
return {current, ttl, 1}
`)

// RedisWindowStore keeps fixed window counters in Redis so every instance of
// the API shares the same quota. Expiry is left to Redis (PX), no sweep needed.
type RedisWindowStore struct {
	rdb    redis.Scripter
	prefix string
	now    func() time.Time
}

type RedisWindowOption func(*RedisWindowStore)

func WithWindowPrefix(prefix string) RedisWindowOption {
	return func(s *RedisWindowStore) { s.prefix = strings.Trim(prefix, ":") }
}

func WithWindowClock(now func() time.Time) RedisWindowOption {
	return func(s *RedisWindowStore) { s.now = now }
}

func NewRedisWindowStore(rdb redis.Scripter, opts ...RedisWindowOption) *RedisWindowStore {
	s := &RedisWindowStore{
		rdb:    rdb,
		prefix: "ratelimit:window",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisWindowStore) key(storeName string, key domain.Key) string {
	return s.prefix + ":" + storeName + ":" + string(key)
}

// Hit implements domain.WindowStore.
func (s *RedisWindowStore) Hit(ctx context.Context, key domain.Key, cfg domain.Config) (domain.Result, error) {
	windowMs := cfg.Window.Milliseconds()
	if windowMs <= 0 {
		windowMs = 1
	}

	now := s.now()
	raw, err := fixedWindowScript.Run(ctx, s.rdb, []string{s.key(cfg.StoreName, key)}, cfg.MaxRequests, windowMs).Int64Slice()
	if err != nil {
		return domain.Result{}, fmt.Errorf("redis window hit: %w", err)
	}
	if len(raw) != 3 {
		return domain.Result{}, fmt.Errorf("redis window hit: unexpected reply %v", raw)
	}

	count, ttl, allowed := int(raw[0]), time.Duration(raw[1])*time.Millisecond, raw[2] == 1
	res := domain.Result{Allowed: allowed, ResetAt: now.Add(ttl)}
	if allowed {
		res.Remaining = max(cfg.MaxRequests-count, 0)
	}
	return res, nil
}
