package locksvc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/academia/core"
)

func TestLocalLocker_Serializes(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		running int
		maxSeen int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "class:c1:s1")
			if err != nil {
				t.Errorf("Lock() error = %v", err)
				return
			}
			defer unlock()

			mu.Lock()
			running++
			if running > maxSeen {
				maxSeen = running
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("max concurrent holders = %d; want 1", maxSeen)
	}
}

func TestLocalLocker_KeysAreIndependent(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	unlockA, err := locker.Lock(ctx, "a")
	if err != nil {
		t.Fatalf("Lock(a) error = %v", err)
	}
	defer unlockA()

	unlockB, err := locker.Lock(ctx, "b")
	if err != nil {
		t.Fatalf("Lock(b) error = %v", err)
	}
	unlockB()
	unlockB() // releasing twice is a no-op
}

func TestLocalLocker_Wait(t *testing.T) {
	oldWait := core.LockWait
	core.LockWait = 20 * time.Millisecond
	defer func() { core.LockWait = oldWait }()

	locker := NewLocalLocker()
	unlock, err := locker.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	defer unlock()

	if _, err = locker.Lock(context.Background(), "k"); !errors.Is(err, core.ErrLockNotObtained) {
		t.Errorf("Lock() error = %v; want %v", err, core.ErrLockNotObtained)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err = locker.Lock(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Errorf("Lock() error = %v; want %v", err, context.Canceled)
	}
}
