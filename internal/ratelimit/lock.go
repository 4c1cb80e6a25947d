package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// Locker is an advisory mutual exclusion lock. Sync jobs use it to guarantee
// a single in-flight run per (owner, pms_type). With redis configured the
// lock spans all instances; without it the lock only covers this process.
type Locker struct {
	client *redis.Client
	script *redis.Script

	mu    sync.Mutex
	local map[string]localLock
	now   func() time.Time
}

type localLock struct {
	token     string
	expiresAt time.Time
}

func NewLocker(client *redis.Client) *Locker {
	l := &Locker{
		local: make(map[string]localLock),
		now:   time.Now,
	}
	if client != nil {
		l.client = client
		l.script = redis.NewScript(lockReleaseScript)
	}
	return l
}

// TryLock attempts to acquire key for ttl. It returns the release token and
// whether the lock was acquired.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if key == "" {
		return "", false, errors.New("lock key is empty")
	}
	if ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	if l.client == nil {
		return token, l.tryLockLocal(key, token, ttl), nil
	}

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Release drops the lock only when token still owns it.
func (l *Locker) Release(ctx context.Context, key, token string) error {
	if key == "" || token == "" {
		return nil
	}
	if l.client == nil {
		l.releaseLocal(key, token)
		return nil
	}
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}

func (l *Locker) tryLockLocal(key, token string, ttl time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if held, ok := l.local[key]; ok && now.Before(held.expiresAt) {
		return false
	}
	l.local[key] = localLock{token: token, expiresAt: now.Add(ttl)}
	return true
}

func (l *Locker) releaseLocal(key, token string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if held, ok := l.local[key]; ok && held.token == token {
		delete(l.local, key)
	}
}
