package limiters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrLoginRateLimited    = errors.New("login rate limited")
	ErrLoginLimiterBackend = errors.New("login limiter unavailable")
)

// LoginConfig bounds failed credential attempts inside a fixed window.
type LoginConfig struct {
	MaxAttempts int
	Window      time.Duration
	PerIP       bool
	Prefix      string
}

// LoginLimiter counts failed logins per email and per client IP.
type LoginLimiter struct {
	redis  redis.UniversalClient
	config LoginConfig
}

func NewLoginLimiter(redisClient redis.UniversalClient, cfg LoginConfig) *LoginLimiter {
	if redisClient == nil || cfg.MaxAttempts <= 0 || cfg.Window <= 0 {
		return nil
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "all"
	}
	return &LoginLimiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Check reports ErrLoginRateLimited once the window budget is spent. It
// does not count the attempt.
func (l *LoginLimiter) Check(ctx context.Context, email, ip string) error {
	if l == nil {
		return nil
	}
	if err := l.checkCounter(ctx, l.emailKey(email)); err != nil {
		return err
	}
	if l.config.PerIP && ip != "" {
		return l.checkCounter(ctx, l.ipKey(ip))
	}
	return nil
}

// RecordFailure counts one failed attempt.
func (l *LoginLimiter) RecordFailure(ctx context.Context, email, ip string) error {
	if l == nil {
		return nil
	}
	if _, err := l.incrementWithTTL(ctx, l.emailKey(email)); err != nil {
		return err
	}
	if l.config.PerIP && ip != "" {
		if _, err := l.incrementWithTTL(ctx, l.ipKey(ip)); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears the email counter after a successful login. The IP counter
// is left to expire so one good account cannot launder a spraying IP.
func (l *LoginLimiter) Reset(ctx context.Context, email string) error {
	if l == nil {
		return nil
	}
	if err := l.redis.Del(ctx, l.emailKey(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLoginLimiterBackend, err)
	}
	return nil
}

func (l *LoginLimiter) checkCounter(ctx context.Context, key string) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrLoginLimiterBackend, err)
	}
	if count >= int64(l.config.MaxAttempts) {
		return ErrLoginRateLimited
	}
	return nil
}

func (l *LoginLimiter) incrementWithTTL(ctx context.Context, key string) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLoginLimiterBackend, err)
	}

	// fixed window: TTL is set on the first hit only
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrLoginLimiterBackend, err)
		}
	}
	return count, nil
}

func (l *LoginLimiter) emailKey(email string) string {
	return l.config.Prefix + ":e:" + strings.ToLower(strings.TrimSpace(email))
}

func (l *LoginLimiter) ipKey(ip string) string {
	return l.config.Prefix + ":ip:" + ip
}
