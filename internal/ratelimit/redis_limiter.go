package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrWithExpireScript атомарный инкремент счетчика окна с выставлением TTL на
// первом обращении. Протухшие окна вычищает сам redis по TTL.
var incrWithExpireScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisLimiter распределенный лимитер с фиксированными окнами на redis. Счетчик
// ключуется (accountID, гранулярность, начало окна), инкремент и TTL атомарны
// за счет lua-скрипта.
type RedisLimiter struct {
	client redis.UniversalClient
	limits Limits
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(client redis.UniversalClient, limits Limits, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "credits:rate_limit"
	}
	return &RedisLimiter{
		client: client,
		limits: limits,
		prefix: prefix,
		now:    time.Now,
	}
}

func (r *RedisLimiter) CheckAndIncrement(ctx context.Context, accountID int64) error {
	for _, g := range granularities() {
		limit := r.limits.limitFor(g)
		if limit <= 0 {
			continue
		}
		if err := r.checkWindow(ctx, accountID, g, limit); err != nil {
			return err
		}
	}
	return nil
}

func (r *RedisLimiter) checkWindow(ctx context.Context, accountID int64, g Granularity, limit int64) error {
	window := g.Window()
	windowStart := r.now().Truncate(window)
	key := fmt.Sprintf("%s:%d:%s:%d", r.prefix, accountID, g, windowStart.Unix())

	rawResult, err := incrWithExpireScript.Run(ctx, r.client, []string{key}, window.Milliseconds()).Result()
	if err != nil {
		return fmt.Errorf("rate limit redis call: %s", err.Error())
	}

	values, ok := rawResult.([]interface{})
	if !ok || len(values) != 2 { //nolint:mnd
		return fmt.Errorf("unexpected redis limiter response shape: %T", rawResult)
	}
	count, countOk := values[0].(int64)
	ttlMs, ttlOk := values[1].(int64)
	if !countOk || !ttlOk {
		return fmt.Errorf("unexpected redis limiter response types: %T, %T", values[0], values[1])
	}

	if count > limit {
		return &ExceededError{
			Granularity: g,
			RetryAfter:  time.Duration(ttlMs) * time.Millisecond,
		}
	}
	return nil
}
