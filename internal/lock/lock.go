// Package lock serializes mapping migrations across replicas with a Redis lease.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/rueidis"

	"github.com/kailas-cloud/esbridge/internal/domain"
)

// Defaults applied by New when the config leaves them zero.
const (
	DefaultKey   = "esbridge:migration"
	DefaultTTL   = 5 * time.Minute
	retryBackoff = 200 * time.Millisecond
)

// releaseScript deletes the key only while it still holds our token.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0`

// Config holds connection and lease parameters.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	Key      string
	// TTL bounds how long a crashed holder blocks others.
	TTL time.Duration
	// Wait is how long Acquire retries before giving up. Zero tries once.
	Wait time.Duration
}

// Locker hands out the migration lease.
type Locker struct {
	client rueidis.Client
	key    string
	ttl    time.Duration
	wait   time.Duration
	token  func() string
}

// New connects to Redis via rueidis.
func New(cfg Config) (*Locker, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return newLocker(client, cfg), nil
}

func newLocker(client rueidis.Client, cfg Config) *Locker {
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Locker{
		client: client,
		key:    cfg.Key,
		ttl:    cfg.TTL,
		wait:   cfg.Wait,
		token:  uuid.NewString,
	}
}

// Lease is a held lock.
type Lease struct {
	l     *Locker
	token string
}

// Acquire takes the lease, retrying until Wait elapses. It returns
// domain.ErrMigrationLocked when another holder keeps it.
func (l *Locker) Acquire(ctx context.Context) (*Lease, error) {
	token := l.token()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.tryAcquire(ctx, token)
		if err != nil {
			return nil, err
		}
		if ok {
			return &Lease{l: l, token: token}, nil
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: key %s is held", domain.ErrMigrationLocked, l.key)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryBackoff):
		}
	}
}

func (l *Locker) tryAcquire(ctx context.Context, token string) (bool, error) {
	cmd := l.client.B().Set().Key(l.key).Value(token).Nx().Px(l.ttl).Build()
	err := l.client.Do(ctx, cmd).Error()
	switch {
	case err == nil:
		return true, nil
	case rueidis.IsRedisNil(err):
		return false, nil
	default:
		return false, fmt.Errorf("acquire lock: %w", err)
	}
}

// Release gives the lease back. Releasing a lease that already expired and was
// taken by someone else leaves the new holder untouched.
func (s *Lease) Release(ctx context.Context) error {
	cmd := s.l.client.B().Eval().Script(releaseScript).Numkeys(1).Key(s.l.key).Arg(s.token).Build()
	if err := s.l.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (l *Locker) Ping(ctx context.Context) error {
	cmd := l.client.B().Ping().Build()
	if err := l.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (l *Locker) Close() {
	l.client.Close()
}

// Lock is Acquire returning the release as a function.
func (l *Locker) Lock(ctx context.Context) (func(context.Context) error, error) {
	lease, err := l.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return lease.Release, nil
}
