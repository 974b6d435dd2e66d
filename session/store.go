package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrSessionNotFound is returned for unknown, expired or destroyed sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionCorrupt is returned when a stored record cannot be decoded.
	ErrSessionCorrupt = errors.New("session corrupt")
	// ErrRedisUnavailable wraps every Redis transport failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

const minSlidingTTL = time.Second

const deleteSessionScript = `
local existed = redis.call("DEL", KEYS[1])
if KEYS[2] ~= "" then
  redis.call("SREM", KEYS[2], ARGV[1])
end
return existed
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// Config controls key namespace and lifetimes.
type Config struct {
	Prefix string
	// IdleTTL is renewed on every Get when Sliding is set.
	IdleTTL time.Duration
	// AbsoluteTTL caps a session's total lifetime from creation.
	AbsoluteTTL time.Duration
	Sliding     bool
}

// Store is a Redis-backed visitor session store.
type Store struct {
	redis  redis.UniversalClient
	config Config
	now    func() time.Time
}

// NewStore creates a [Store]. Zero lifetimes fall back to a 30 minute idle
// window and a 24 hour absolute cap.
func NewStore(redisClient redis.UniversalClient, cfg Config) *Store {
	if cfg.Prefix == "" {
		cfg.Prefix = "avs"
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	if cfg.AbsoluteTTL <= 0 {
		cfg.AbsoluteTTL = 24 * time.Hour
	}
	if cfg.IdleTTL > cfg.AbsoluteTTL {
		cfg.IdleTTL = cfg.AbsoluteTTL
	}
	return &Store{
		redis:  redisClient,
		config: cfg,
		now:    time.Now,
	}
}

// WithClock replaces the wall clock. Intended for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Store) key(sessionID string) string {
	return s.config.Prefix + ":" + sessionID
}

func (s *Store) userKey(userID string) string {
	if userID == "" {
		return ""
	}
	return s.config.Prefix + "u:" + userID
}

// Create persists a new empty session and returns it.
func (s *Store) Create(ctx context.Context) (*Session, error) {
	now := s.now()
	sess := &Session{
		SchemaVersion: CurrentSchemaVersion,
		ID:            uuid.NewString(),
		CreatedAt:     now.Unix(),
		ExpiresAt:     now.Add(s.config.AbsoluteTTL).Unix(),
	}
	if err := s.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get loads a session and, when sliding, renews its idle TTL.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}
	key := s.key(sessionID)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}
	sess.ID = sessionID

	remaining := time.Unix(sess.ExpiresAt, 0).Sub(s.now())
	if remaining <= 0 {
		if err := s.deleteSessionAndIndex(ctx, sessionID, sess.UserID); err != nil {
			return nil, err
		}
		return nil, ErrSessionNotFound
	}

	if s.config.Sliding {
		if err := s.redis.Expire(ctx, key, s.nextTTL(remaining)).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return sess, nil
}

// Save writes the session back with a fresh idle TTL and keeps the per-user
// index current.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return ErrSessionNotFound
	}

	remaining := time.Unix(sess.ExpiresAt, 0).Sub(s.now())
	if remaining <= 0 {
		return ErrSessionNotFound
	}

	sess.SchemaVersion = CurrentSchemaVersion
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	ttl := s.nextTTL(remaining)
	key := s.key(sess.ID)
	userKey := s.userKey(sess.UserID)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, ttl)
		if userKey != "" {
			pipe.SAdd(ctx, userKey, sess.ID)
			pipe.Expire(ctx, userKey, s.config.AbsoluteTTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Rotate moves sess to a fresh ID, saves it and removes the record under
// the old ID. sess.ID is updated in place.
func (s *Store) Rotate(ctx context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return ErrSessionNotFound
	}
	oldID := sess.ID
	sess.ID = uuid.NewString()
	if err := s.Save(ctx, sess); err != nil {
		sess.ID = oldID
		return err
	}
	return s.Destroy(ctx, oldID)
}

// Destroy removes a session. Destroying a missing session is not an error.
func (s *Store) Destroy(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	key := s.key(sessionID)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var userID string
	if sess, err := Decode(data); err == nil {
		userID = sess.UserID
	}
	return s.deleteSessionAndIndex(ctx, sessionID, userID)
}

// DestroyAllForUser removes every indexed session of userID and returns how
// many existed. A session saved concurrently with this call may survive; it
// still expires on its own TTL.
func (s *Store) DestroyAllForUser(ctx context.Context, userID string) (int, error) {
	userKey := s.userKey(userID)
	if userKey == "" {
		return 0, nil
	}

	ids, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.key(id))
	}

	var deleted *redis.IntCmd
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, keys...)
		pipe.Del(ctx, userKey)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(deleted.Val()), nil
}

// ActiveSessionCount returns the number of indexed sessions for userID.
// Entries whose record already expired are counted until the index itself
// expires or is cleaned by DestroyAllForUser.
func (s *Store) ActiveSessionCount(ctx context.Context, userID string) (int, error) {
	userKey := s.userKey(userID)
	if userKey == "" {
		return 0, nil
	}
	count, err := s.redis.SCard(ctx, userKey).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(count), nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func (s *Store) nextTTL(remainingAbsolute time.Duration) time.Duration {
	ttl := s.config.IdleTTL
	if ttl > remainingAbsolute {
		ttl = remainingAbsolute
	}
	if ttl < minSlidingTTL {
		ttl = minSlidingTTL
	}
	return ttl
}

func (s *Store) deleteSessionAndIndex(ctx context.Context, sessionID, userID string) error {
	keys := []string{s.key(sessionID), s.userKey(userID)}
	if err := deleteSessionLua.Run(ctx, s.redis, keys, sessionID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
