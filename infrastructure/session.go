package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"shiftmatch/domain"
)

const sessionKeyPrefix = "session:"

// RedisSessionStore keeps admin sessions in Redis so every API replica sees the same logins.
type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}
	return client, nil
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func (s *RedisSessionStore) Put(ctx context.Context, sess domain.Session, ttl time.Duration) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKeyPrefix+sess.ID, raw, ttl).Err()
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.NotFound("session")
	}
	if err != nil {
		return nil, err
	}
	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, sessionKeyPrefix+id).Err()
}

// MemorySessionStore is the single-process fallback used when REDIS_ADDR is empty.
// Entries are evicted after maxTTL; the auth service checks ExpiresAt itself.
type MemorySessionStore struct {
	cache *expirable.LRU[string, domain.Session]
}

func NewMemorySessionStore(size int, maxTTL time.Duration) *MemorySessionStore {
	return &MemorySessionStore{cache: expirable.NewLRU[string, domain.Session](size, nil, maxTTL)}
}

func (s *MemorySessionStore) Put(_ context.Context, sess domain.Session, _ time.Duration) error {
	s.cache.Add(sess.ID, sess)
	return nil
}

func (s *MemorySessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	sess, ok := s.cache.Get(id)
	if !ok {
		return nil, domain.NotFound("session")
	}
	return &sess, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.cache.Remove(id)
	return nil
}
