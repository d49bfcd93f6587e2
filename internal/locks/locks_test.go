package locks

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLocalLockerSerializesSameKey(t *testing.T) {
	locker := NewLocalLocker(0)
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "seller-1")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Fatalf("expected at most one holder, saw %d", maxInside)
	}
	if locker.Len() != 0 {
		t.Fatalf("expected no tracked keys after release, got %d", locker.Len())
	}
}

func TestLocalLockerDifferentKeysDoNotBlock(t *testing.T) {
	locker := NewLocalLocker(0)
	unlockA, err := locker.Lock(context.Background(), "seller-a")
	if err != nil {
		t.Fatalf("lock a: %v", err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	unlockB, err := locker.Lock(ctx, "seller-b")
	if err != nil {
		t.Fatalf("lock b should not wait on a: %v", err)
	}
	unlockB()
}

func TestLocalLockerTimesOut(t *testing.T) {
	locker := NewLocalLocker(0)
	unlock, err := locker.Lock(context.Background(), "seller-1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, "seller-1"); !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}

	unlock()
	unlock() // second release is a no-op

	if locker.Len() != 0 {
		t.Fatalf("expected released lock to be forgotten, got %d keys", locker.Len())
	}
}

func TestLocalLockerHonoursConfiguredWait(t *testing.T) {
	locker := NewLocalLocker(30 * time.Millisecond)
	unlock, err := locker.Lock(context.Background(), "seller-1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer unlock()

	done := make(chan error, 1)
	go func() {
		_, err := locker.Lock(context.Background(), "seller-1")
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, ErrLockTimeout) {
			t.Fatalf("expected ErrLockTimeout, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second Lock ignored the configured wait")
	}
	if locker.Len() != 1 {
		t.Fatalf("expected only the held key to be tracked, got %d", locker.Len())
	}
}

func TestLocalLockerCallerCancelIsNotTimeout(t *testing.T) {
	locker := NewLocalLocker(time.Minute)
	unlock, err := locker.Lock(context.Background(), "seller-1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := locker.Lock(ctx, "seller-1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("TRENDYCART_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("Skipping test: TRENDYCART_TEST_REDIS_ADDR not set")
	}

	cfg := DefaultRedisConfig()
	cfg.Addr = addr
	cfg.Wait = 100 * time.Millisecond
	cfg.KeyPrefix = "trendycart:test:lock:" + time.Now().Format("150405.000") + ":"

	locker, err := NewRedisLocker(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("new redis locker: %v", err)
	}
	defer locker.Close()

	ctx := context.Background()
	unlock, err := locker.Lock(ctx, "seller-1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	if _, err := locker.Lock(ctx, "seller-1"); !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout while held, got %v", err)
	}

	unlock()
	again, err := locker.Lock(ctx, "seller-1")
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	again()
}
