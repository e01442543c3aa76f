// Package presence keeps a per-user online marker in Redis. The marker holds
// the id of the connection that set it, so a stale connection going away
// never clears the marker of its replacement.
package presence

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "luccachat:presence:"
	DefaultTTL = 90 * time.Second
)

func key(userID string) string { return keyPrefix + userID }

var (
	refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

	offlineScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
)

// Tracker is the Redis-backed presence store.
type Tracker struct {
	rdb *redis.Client
	ttl time.Duration
}

type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func New(opts Options) *Tracker {
	rdb := redis.NewClient(&redis.Options{Addr: opts.Addr, Password: opts.Password, DB: opts.DB})
	return NewWithClient(rdb, opts.TTL)
}

func NewWithClient(rdb *redis.Client, ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{rdb: rdb, ttl: ttl}
}

func (t *Tracker) Ping(ctx context.Context) error {
	return errors.Wrap(t.rdb.Ping(ctx).Err(), "ping redis")
}

func (t *Tracker) Close() error { return t.rdb.Close() }

// Online marks userID as reachable through connID, replacing any marker a
// previous connection left behind.
func (t *Tracker) Online(ctx context.Context, userID, connID string) error {
	return errors.Wrapf(t.rdb.Set(ctx, key(userID), connID, t.ttl).Err(), "online %s", userID)
}

// Refresh extends the marker if connID still owns it.
func (t *Tracker) Refresh(ctx context.Context, userID, connID string) error {
	err := refreshScript.Run(ctx, t.rdb, []string{key(userID)}, connID, t.ttl.Milliseconds()).Err()
	return errors.Wrapf(err, "refresh %s", userID)
}

// Offline clears the marker if connID still owns it.
func (t *Tracker) Offline(ctx context.Context, userID, connID string) error {
	err := offlineScript.Run(ctx, t.rdb, []string{key(userID)}, connID).Err()
	return errors.Wrapf(err, "offline %s", userID)
}

func (t *Tracker) IsOnline(ctx context.Context, userID string) (bool, error) {
	n, err := t.rdb.Exists(ctx, key(userID)).Result()
	if err != nil {
		return false, errors.Wrapf(err, "lookup %s", userID)
	}
	return n == 1, nil
}

// Nop is used when no Redis address is configured.
type Nop struct{}

func (Nop) Online(context.Context, string, string) error  { return nil }
func (Nop) Refresh(context.Context, string, string) error { return nil }
func (Nop) Offline(context.Context, string, string) error { return nil }
func (Nop) IsOnline(context.Context, string) (bool, error) { return false, nil }
