package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "policylens:session:"

// RedisRepo implements Repo on Redis. Each session is a JSON string whose
// expiry is reset on every save.
type RedisRepo struct {
	Client *redis.Client
	TTL    time.Duration
	Now    func() time.Time
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

func (r *RedisRepo) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

// Create stores a new session. It fails if the id is already taken.
func (r *RedisRepo) Create(ctx context.Context, s Session) error {
	payload, err := marshalState(s)
	if err != nil {
		return err
	}
	ok, err := r.Client.SetNX(ctx, redisKey(s.ID), payload, r.TTL).Result()
	if err != nil {
		return fmt.Errorf("redis create session: %w", err)
	}
	if !ok {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	return nil
}

// Get returns a session by ID.
func (r *RedisRepo) Get(ctx context.Context, id string) (Session, error) {
	payload, err := r.Client.Get(ctx, redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("redis get session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(payload, &s); err != nil {
		return Session{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return s, nil
}

// Save overwrites an existing session and refreshes its expiry.
func (r *RedisRepo) Save(ctx context.Context, s Session) error {
	s.UpdatedAt = r.now()
	payload, err := marshalState(s)
	if err != nil {
		return err
	}
	ok, err := r.Client.SetXX(ctx, redisKey(s.ID), payload, r.TTL).Result()
	if err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Delete removes a session.
func (r *RedisRepo) Delete(ctx context.Context, id string) error {
	if err := r.Client.Del(ctx, redisKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}
