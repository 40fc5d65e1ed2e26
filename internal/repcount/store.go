package repcount

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateStore persists tracker state between frames. Unknown trackers load as
// the zero State.
type StateStore interface {
	Load(ctx context.Context, key string) (State, error)
	Save(ctx context.Context, key string, s State) error
	Reset(ctx context.Context, key string) error
}

type MemoryStore struct {
	mu     sync.Mutex
	states map[string]State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

func (m *MemoryStore) Load(_ context.Context, key string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[key], nil
}

func (m *MemoryStore) Save(_ context.Context, key string, s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[key] = s
	return nil
}

func (m *MemoryStore) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, key)
	return nil
}

// RedisStore keeps each tracker in a hash that expires after ttl of inactivity.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func trackerKey(key string) string {
	return fmt.Sprintf("reps:%s", key)
}

func (r *RedisStore) Load(ctx context.Context, key string) (State, error) {
	fields, err := r.client.HGetAll(ctx, trackerKey(key)).Result()
	if errors.Is(err, redis.Nil) || (err == nil && len(fields) == 0) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("failed to load tracker: %w", err)
	}
	reps, err := strconv.Atoi(fields["reps"])
	if err != nil {
		return State{}, fmt.Errorf("corrupt tracker %s: %w", key, err)
	}
	return State{Reps: reps, Stage: fields["stage"]}, nil
}

func (r *RedisStore) Save(ctx context.Context, key string, s State) error {
	k := trackerKey(key)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k, "reps", s.Reps, "stage", s.Stage)
		if r.ttl > 0 {
			pipe.Expire(ctx, k, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save tracker: %w", err)
	}
	return nil
}

func (r *RedisStore) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, trackerKey(key)).Err()
}
