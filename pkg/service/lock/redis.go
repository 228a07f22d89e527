package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"

	"github.com/deadline-guardian/guardian/pkg/domain/interfaces"
)

// DefaultRedisKey names the shared lock key
const DefaultRedisKey = "guardian:notification-run"

// releaseScript deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lock shared by every instance pointing at the same Redis server. The
// key expires after ttl so a crashed holder cannot block runs forever.
type Redis struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration

	mu    sync.Mutex
	token string
}

var _ interfaces.RunLock = &Redis{}

func NewRedis(client redis.UniversalClient, key string, ttl time.Duration) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	return &Redis{client: client, key: key, ttl: ttl}
}

func (l *Redis) TryLock(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return false, goerr.Wrap(err, "failed to acquire redis lock", goerr.V("key", l.key))
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

func (l *Redis) Unlock(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.token == "" {
		return nil
	}
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		return goerr.Wrap(err, "failed to release redis lock", goerr.V("key", l.key))
	}
	l.token = ""
	return nil
}
