package locker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker is a set-if-absent lock store with expiring keys. Lock ownership
// decides whether a sync target may be submitted; a held lock means the
// same target is already in flight and the new request is skipped.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
	Held(ctx context.Context, key string) (bool, error)
}

// AccountLockKey covers a whole account sync (server discovery plus all
// libraries fanned out under it).
func AccountLockKey(accountID uuid.UUID) string {
	return fmt.Sprintf("plexify:lock:account:%s", accountID)
}

// LibraryLockKey covers one library section on one server.
func LibraryLockKey(accountID uuid.UUID, machineID string, sectionID string) string {
	return fmt.Sprintf("plexify:lock:library:%s:%s:%s", accountID, machineID, sectionID)
}

// ResourceCacheKey holds one account's cached plex.tv resource listing.
func ResourceCacheKey(accountID uuid.UUID) string {
	return fmt.Sprintf("plexify:cache:resources:%s", accountID)
}

type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(redisAddr string) *RedisLocker {
	return &RedisLocker{client: redis.NewClient(&redis.Options{Addr: redisAddr})}
}

// Acquire attempts SET key NX with the given TTL. Returns true when the
// lock was taken, false when someone else holds it.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	return ok, nil
}

func (l *RedisLocker) Release(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", key, err)
	}
	return nil
}

func (l *RedisLocker) Held(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("check lock %s: %w", key, err)
	}
	return n > 0, nil
}

// CacheGet reads a short-lived cache entry, returning "" on a miss. Used
// for the plex.tv resource discovery cache so repeated resolutions within
// the TTL do not refetch the resource list.
func (l *RedisLocker) CacheGet(ctx context.Context, key string) (string, error) {
	val, err := l.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("cache get %s: %w", key, err)
	}
	return val, nil
}

func (l *RedisLocker) CacheSet(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := l.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (l *RedisLocker) Close() error {
	return l.client.Close()
}
