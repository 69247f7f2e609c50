// Package locks serializes state changes per asset.
package locks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"Gin_postgres_redis_equipment_tool/lifecycle"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// Locker grants exclusive access to a key until release is called.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// ErrBusy is returned when the key stays locked past the wait time.
var ErrBusy = lifecycle.Businessf("record is being changed by another request, try again")

func AssetKey(id string) string { return "equipment:" + id }

// Redis locks through redislock so several service instances agree.
type Redis struct {
	client *redislock.Client
	ttl    time.Duration
	wait   time.Duration
}

func NewRedis(rdb *redis.Client, ttl, wait time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &Redis{client: redislock.New(rdb), ttl: ttl, wait: wait}
}

func (l *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	wctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()
	lock, err := l.client.Obtain(wctx, "lock:"+key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(25 * time.Millisecond),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrBusy
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}
	return func() { _ = lock.Release(context.WithoutCancel(ctx)) }, nil
}

// Local is an in-process keyed mutex for single-node runs and tests.
// A key's slot lives only while someone holds or waits for it.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocal() *Local { return &Local{slots: map[string]*slot{}} }

func (l *Local) join(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *Local) leave(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

func (l *Local) Acquire(ctx context.Context, key string) (func(), error) {
	s := l.join(key)
	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				l.leave(key, s)
			})
		}, nil
	case <-ctx.Done():
		l.leave(key, s)
		return nil, ErrBusy
	}
}
