// Package lock serializes mutations of one event id.
package lock

import (
	"context"
	"errors"
)

// ErrNotHeld is returned by a release when the lock expired or was taken over.
var ErrNotHeld = errors.New("lock not held")

// Release gives a lock back. It is safe to call more than once.
type Release func(ctx context.Context) error

// Locker hands out exclusive locks keyed by string. Lock blocks until the
// lock is acquired or ctx is done.
type Locker interface {
	Lock(ctx context.Context, key string) (Release, error)
}
