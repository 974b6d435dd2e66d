package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrResendRateLimited    = errors.New("resend rate limited")
	ErrResendLimiterBackend = errors.New("resend limiter unavailable")
)

// takeTokenLua refills and takes one token from a bucket stored as a hash.
// KEYS[1] = bucket key
// ARGV[1] = capacity
// ARGV[2] = refill interval (ms)
// ARGV[3] = now (unix ms)
// ARGV[4] = key ttl (ms)
//
// Returns {allowed (0|1), remaining tokens, retry after ms}.
var takeTokenLua = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local interval = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil or ts == nil then
  tokens = capacity
  ts = now
end

local elapsed = now - ts
if elapsed < 0 then
  elapsed = 0
end
local refill = math.floor(elapsed / interval)
if refill > 0 then
  tokens = math.min(capacity, tokens + refill)
  ts = ts + refill * interval
end
if tokens >= capacity then
  ts = now
end

local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'ts', ts)
redis.call('PEXPIRE', KEYS[1], ttl)

local retry = 0
if allowed == 0 then
  retry = interval - (now - ts)
end
return {allowed, tokens, retry}
`)

// ResendConfig sizes the bucket. A zero Capacity disables the limiter.
type ResendConfig struct {
	Capacity       int
	RefillInterval time.Duration
	PerIP          bool
	Prefix         string
}

// ResendLimiter meters verification code resends.
type ResendLimiter struct {
	redis  redis.UniversalClient
	config ResendConfig
	now    func() time.Time
}

func NewResendLimiter(redisClient redis.UniversalClient, cfg ResendConfig) *ResendLimiter {
	if redisClient == nil || cfg.Capacity <= 0 || cfg.RefillInterval <= 0 {
		return nil
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "arl"
	}
	return &ResendLimiter{
		redis:  redisClient,
		config: cfg,
		now:    time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (l *ResendLimiter) WithClock(now func() time.Time) *ResendLimiter {
	if l != nil && now != nil {
		l.now = now
	}
	return l
}

// Allow takes one token from the user bucket and, when PerIP is set and ip
// is known, one from the IP bucket. The returned duration is a retry hint
// when the request is denied.
func (l *ResendLimiter) Allow(ctx context.Context, userID, ip string) (time.Duration, error) {
	if l == nil {
		return 0, nil
	}
	if retry, err := l.take(ctx, l.userKey(userID)); err != nil {
		return retry, err
	}
	if l.config.PerIP && ip != "" {
		if retry, err := l.take(ctx, l.ipKey(ip)); err != nil {
			return retry, err
		}
	}
	return 0, nil
}

func (l *ResendLimiter) take(ctx context.Context, key string) (time.Duration, error) {
	interval := l.config.RefillInterval.Milliseconds()
	// keep the hash long enough to refill a full bucket
	ttl := interval * int64(l.config.Capacity+1)

	res, err := takeTokenLua.Run(ctx, l.redis,
		[]string{key},
		l.config.Capacity,
		interval,
		l.now().UnixMilli(),
		ttl,
	).Int64Slice()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrResendLimiterBackend, err)
	}
	if len(res) != 3 {
		return 0, fmt.Errorf("%w: unexpected script result", ErrResendLimiterBackend)
	}
	if res[0] == 1 {
		return 0, nil
	}
	return time.Duration(res[2]) * time.Millisecond, ErrResendRateLimited
}

func (l *ResendLimiter) userKey(userID string) string {
	return l.config.Prefix + ":u:" + userID
}

func (l *ResendLimiter) ipKey(ip string) string {
	return l.config.Prefix + ":ip:" + ip
}
