package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrEnrollmentLocked is returned when a concurrent payment holds the
// per-enrollment lock past the wait budget
var ErrEnrollmentLocked = errors.New("enrollment is locked by a concurrent payment")

// RedisCache provides caching and distributed locking using Redis
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache client
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	log.Println("Redis connection established")
	return &RedisCache{client: client}, nil
}

// Set stores a value in cache with expiration
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, expiration).Err()
}

// Get retrieves a value from cache
func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// Delete removes a key from cache
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client for advanced operations
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

const (
	enrollmentLockTTL      = 10 * time.Second
	enrollmentLockWait     = 3 * time.Second
	enrollmentLockInterval = 50 * time.Millisecond
)

// EnrollmentLock is a held per-enrollment mutex. Release it with Unlock.
type EnrollmentLock struct {
	cache *RedisCache
	key   string
	token string
}

// LockEnrollment serializes payment mutations per enrollment so that two
// simultaneous submissions cannot both read a stale remaining balance.
// Polls with SetNX until acquired or the wait budget runs out.
func (c *RedisCache) LockEnrollment(ctx context.Context, enrollmentID uint) (*EnrollmentLock, error) {
	key := fmt.Sprintf("enrollment_lock:%d", enrollmentID)
	token := uuid.New().String()

	deadline := time.Now().Add(enrollmentLockWait)
	for {
		ok, err := c.client.SetNX(ctx, key, token, enrollmentLockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire enrollment lock: %w", err)
		}
		if ok {
			return &EnrollmentLock{cache: c, key: key, token: token}, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("enrollment %d: %w", enrollmentID, ErrEnrollmentLocked)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(enrollmentLockInterval):
		}
	}
}

// Unlock releases the lock if we still own it. The TTL covers the crash case.
func (l *EnrollmentLock) Unlock(ctx context.Context) {
	val, err := l.cache.client.Get(ctx, l.key).Result()
	if err != nil {
		return
	}
	if val == l.token {
		if err := l.cache.client.Del(ctx, l.key).Err(); err != nil {
			log.Printf("Failed to release enrollment lock %s: %v", l.key, err)
		}
	}
}
