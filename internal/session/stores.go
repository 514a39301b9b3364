package session

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]time.Time
	now      func() time.Time
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryStore) Save(_ context.Context, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[token] = m.now().Add(ttl)
	return nil
}

func (m *MemoryStore) Exists(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.sessions[token]
	if !ok {
		return false, nil
	}
	if !m.now().Before(exp) {
		delete(m.sessions, token)
		return false, nil
	}
	return true, nil
}

func (m *MemoryStore) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

const redisKeyPrefix = "printdrop:session:"

// RedisStore keeps sessions as expiring Redis keys, so every API instance
// sharing the Redis sees the same logins.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Save(ctx context.Context, token string, ttl time.Duration) error {
	return r.client.Set(ctx, redisKeyPrefix+token, "1", ttl).Err()
}

func (r *RedisStore) Exists(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, redisKeyPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *RedisStore) Delete(ctx context.Context, token string) error {
	return r.client.Del(ctx, redisKeyPrefix+token).Err()
}
