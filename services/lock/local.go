package locksvc

import (
	"context"
	"sync"

	"github.com/trezcool/academia/core"
)

// localLocker serializes work inside one process.
type localLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

var _ core.Locker = (*localLocker)(nil)

func NewLocalLocker() core.Locker {
	return &localLocker{locks: make(map[string]chan struct{})}
}

func (l *localLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[key] = ch
	}
	return ch
}

func (l *localLocker) Lock(ctx context.Context, key string) (func(), error) {
	ch := l.slot(key)

	waitCtx, cancel := context.WithTimeout(ctx, core.LockWait)
	defer cancel()

	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, core.ErrLockNotObtained
	}
}
