// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// # Publish Locking
//
// A publish attempt is request-scoped work, but two moderators clicking
// approve on the same chapter would interleave their worker pools against
// the same destination keys. A short-lived Redis lock serializes attempts
// per chapter; different chapters never contend.

// lockTTL bounds how long an abandoned attempt can block the chapter.
// Relocation is idempotent, so an expired lock is safely re-acquirable.
const lockTTL = 10 * time.Minute

// Locker serializes publish attempts per chapter.
type Locker interface {
	// Acquire takes the chapter lock. Returns false when already held.
	Acquire(context context.Context, chapterID string) (bool, error)
	// Release frees the chapter lock. Best-effort; the TTL is the backstop.
	Release(context context.Context, chapterID string)
}

// redisLocker implements [Locker] with SET NX + TTL.
type redisLocker struct {
	client *redis.Client
}

// NewRedisLocker constructs a [Locker] over a Redis client.
func NewRedisLocker(client *redis.Client) Locker {
	return &redisLocker{client: client}
}

func lockKey(chapterID string) string {
	return "publish:lock:" + chapterID
}

// detach strips cancellation so a deferred [Locker.Release] still reaches
// Redis after the caller's context is aborted. Values (request ID, logger)
// are kept.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

// Acquire takes the lock with SET NX.
func (locker *redisLocker) Acquire(context context.Context, chapterID string) (bool, error) {
	acquired, err := locker.client.SetNX(context, lockKey(chapterID), "1", lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis: failed to acquire publish lock: %w", err)
	}
	return acquired, nil
}

// Release deletes the lock key. Errors are ignored; the TTL expires the
// lock regardless.
func (locker *redisLocker) Release(context context.Context, chapterID string) {
	_ = locker.client.Del(context, lockKey(chapterID)).Err()
}
