package core

import (
	"context"
	"time"
)

// ErrLockNotObtained is returned when a lock is still held elsewhere after waiting.
var ErrLockNotObtained = NewInvalidStateError("another operation on this resource is in progress")

// Locker serializes work on a named resource, possibly across processes.
type Locker interface {
	// Lock blocks until the lock on key is held, ctx is done, or the wait times out.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// LockWait bounds how long Locker implementations wait for a held lock.
var LockWait = 10 * time.Second
