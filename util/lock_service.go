// api/util/lock_service.go

package util

import (
	"context"
	"time"

	"github.com/lumenhr/aegis/api/db"
)

// LockService hands out short-lived distributed locks for multi-step
// mutations that must not interleave across API replicas.
type LockService struct{}

func NewLockService() *LockService {
	return &LockService{}
}

// Acquire attempts to take the named lock. Returns false without error when
// another holder already has it.
func (l *LockService) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	return db.LockResource(ctx, name, ttl)
}

// Release frees the named lock. The TTL still bounds the hold time if the
// caller dies before releasing.
func (l *LockService) Release(ctx context.Context, name string) error {
	return db.UnlockResource(ctx, name)
}
