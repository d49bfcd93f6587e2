/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package locks serializes live session transitions per seller, either inside
// one process or across instances through Redis.
package locks

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultWait bounds how long Lock blocks when no wait is configured.
const DefaultWait = 3 * time.Second

// ErrLockTimeout indicates the lock could not be acquired before the wait expired.
var ErrLockTimeout = errors.New("lock wait timed out")

// Locker acquires an exclusive lock on key. The returned function releases it
// and is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// LocalLocker is an in-process keyed mutex.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*localEntry
	wait  time.Duration
}

type localEntry struct {
	ch   chan struct{} // holds a token while the lock is taken
	refs int
}

// NewLocalLocker creates an in-process locker. Lock gives up after wait;
// a non-positive wait leaves the bound to the caller's context.
func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{locks: make(map[string]*localEntry), wait: wait}
}

// Lock blocks until key is free, the wait expires or ctx is done.
func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	if l.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &localEntry{ch: make(chan struct{}, 1)}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, entry, false)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrLockTimeout
		}
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, entry, true) })
	}, nil
}

func (l *LocalLocker) release(key string, entry *localEntry, held bool) {
	if held {
		<-entry.ch
	}
	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}

// Len returns the number of keys currently tracked.
func (l *LocalLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
