package port

import (
	"context"
	"time"
)

type NotificationGate interface {
	// Acquire claims key for ttl, returns false if it is already held
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release frees key before its ttl runs out
	Release(ctx context.Context, key string) error
}
