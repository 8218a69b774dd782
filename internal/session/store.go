package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrSessionNotFound is returned when a team has no stored session.
var ErrSessionNotFound = fmt.Errorf("team session not found")

// Store is the load/save contract the service mutates sessions through.
// Save is assumed atomic at the storage layer; the core never retries.
type Store interface {
	Load(ctx context.Context, teamID uuid.UUID) (*TeamSession, error)
	Save(ctx context.Context, sess *TeamSession) error
	Delete(ctx context.Context, teamID uuid.UUID) error
	// Lock serializes mutations for one team. Different teams never share
	// mutable state, so cross-team evaluation needs no coordination.
	Lock(ctx context.Context, teamID uuid.UUID) (func() error, error)
}

const defaultSessionTTL = 24 * time.Hour

// RedisStore keeps hot team-session state in Redis with a per-team SetNX
// lock for vote-tally serialization.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a session store. ttl <= 0 selects the default.
func NewRedisStore(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &RedisStore{redis: client, ttl: ttl, logger: logger}
}

func sessionKey(teamID uuid.UUID) string {
	return fmt.Sprintf("team:session:%s", teamID.String())
}

// Load retrieves a team's session.
func (s *RedisStore) Load(ctx context.Context, teamID uuid.UUID) (*TeamSession, error) {
	data, err := s.redis.Get(ctx, sessionKey(teamID)).Bytes()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess TeamSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

// Save persists a team's session. Failures are surfaced unmodified; retry
// policy belongs to the caller.
func (s *RedisStore) Save(ctx context.Context, sess *TeamSession) error {
	sess.UpdatedAt = time.Now()
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.redis.Set(ctx, sessionKey(sess.TeamID), data, s.ttl).Err()
}

// Delete tears a session down when the game ends or the team is removed.
func (s *RedisStore) Delete(ctx context.Context, teamID uuid.UUID) error {
	return s.redis.Del(ctx, sessionKey(teamID)).Err()
}

// Lock acquires the per-team mutation lock. Returns the unlock function.
// The lock expires after 30s as a liveness backstop.
func (s *RedisStore) Lock(ctx context.Context, teamID uuid.UUID) (func() error, error) {
	key := fmt.Sprintf("team:lock:%s", teamID.String())
	lockValue := uuid.New().String()

	acquired, err := s.redis.SetNX(ctx, key, lockValue, 30*time.Second).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("lock already held")
	}

	unlock := func() error {
		// Lua script ensures we only delete our own lock
		script := `
			if redis.call("get", KEYS[1]) == ARGV[1] then
				return redis.call("del", KEYS[1])
			else
				return 0
			end
		`
		return s.redis.Eval(ctx, script, []string{key}, lockValue).Err()
	}

	return unlock, nil
}
