/*
 * Copyright (c) 2018 XLAB d.o.o
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package authority

import (
	"context"
	"sync"
	"time"

	"github.com/fentec-project/fuzzyfe/config"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// ErrKeyQuota is returned when issuing more functional keys to a
// requester would exceed its quota for the current window.
var ErrKeyQuota = errors.New("functional key quota exceeded")

// Limiter bounds the number of functional keys issued to every
// requester within a time window. Each key discloses the similarity of
// one stored hash to a client hash, so the quota bounds what a compute
// server can learn per window.
type Limiter interface {
	// Reserve records n more keys for requester. It returns ErrKeyQuota,
	// and records nothing, if the total within the window would exceed
	// the quota.
	Reserve(ctx context.Context, requester string, n int) error
}

type usage struct {
	issued  int
	expires time.Time
}

// MemoryLimiter counts issued keys in memory. Counters are dropped once
// their window is over.
type MemoryLimiter struct {
	quota  int
	window time.Duration
	now    func() time.Time

	mu    sync.Mutex
	usage map[string]*usage
}

// NewMemoryLimiter returns a limiter allowing at most quota keys per
// requester within every window.
func NewMemoryLimiter(quota int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		quota:  quota,
		window: window,
		now:    time.Now,
		usage:  make(map[string]*usage),
	}
}

// Reserve implements Limiter. The window of a requester starts with its
// first reservation.
func (l *MemoryLimiter) Reserve(_ context.Context, requester string, n int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for r, u := range l.usage {
		if !now.Before(u.expires) {
			delete(l.usage, r)
		}
	}

	u, ok := l.usage[requester]
	if !ok {
		u = &usage{expires: now.Add(l.window)}
	}
	if u.issued+n > l.quota {
		return errors.Wrapf(ErrKeyQuota, "%s: %d issued, %d requested, quota %d", requester, u.issued, n, l.quota)
	}
	u.issued += n
	l.usage[requester] = u
	return nil
}

// Requesters returns the number of requesters with a running window.
func (l *MemoryLimiter) Requesters() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.usage)
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Prefix is prepended to the requester to form the counter key.
	Prefix string
	// Window is the lifetime of a counter, counted from its creation.
	Window time.Duration
}

// RedisLimiter counts issued keys in Redis, so that several authority
// replicas share the quotas.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	window time.Duration
	quota  int
}

// NewRedisLimiter connects to Redis and returns a limiter allowing at
// most quota keys per requester within every window.
func NewRedisLimiter(cfg RedisConfig, quota int) (*RedisLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "redis ping")
	}

	return &RedisLimiter{
		client: client,
		prefix: cfg.Prefix,
		window: cfg.Window,
		quota:  quota,
	}, nil
}

// Reserve implements Limiter. The counter expires one window after the
// first reservation that created it.
func (l *RedisLimiter) Reserve(ctx context.Context, requester string, n int) error {
	key := l.prefix + requester

	pipe := l.client.TxPipeline()
	incr := pipe.IncrBy(ctx, key, int64(n))
	pipe.ExpireNX(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "reserve keys")
	}

	if total := incr.Val(); total > int64(l.quota) {
		if err := l.client.DecrBy(ctx, key, int64(n)).Err(); err != nil {
			return errors.Wrap(err, "release keys")
		}
		return errors.Wrapf(ErrKeyQuota, "%s: %d issued, %d requested, quota %d", requester, total-int64(n), n, l.quota)
	}
	return nil
}

// Close closes the Redis connection.
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}

// NewLimiter returns the limiter configured by conf: a RedisLimiter
// when a Redis address is set, a MemoryLimiter otherwise.
func NewLimiter(conf config.Authority) (Limiter, error) {
	if conf.Redis.Addr == "" {
		return NewMemoryLimiter(conf.KeyQuota, conf.QuotaWindow.Duration), nil
	}
	l, err := NewRedisLimiter(RedisConfig{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
		Prefix:   conf.Redis.Prefix,
		Window:   conf.QuotaWindow.Duration,
	}, conf.KeyQuota)
	if err != nil {
		return nil, err
	}
	return l, nil
}
