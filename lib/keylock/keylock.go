// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package keylock

import (
	"context"
	"sync"
)

// Mutex is a mutual exclusion lock whose Lock can be abandoned. The
// zero value is not usable; obtain one from a Registry.
type Mutex struct {
	slot chan struct{}
}

func newMutex() *Mutex {
	return &Mutex{slot: make(chan struct{}, 1)}
}

// Lock blocks until the mutex is held or ctx is done. On ctx expiry
// the mutex is not held and ctx.Err() is returned.
func (m *Mutex) Lock(ctx context.Context) error {
	select {
	case m.slot <- struct{}{}:
		return nil
	default:
	}
	select {
	case m.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryLock acquires the mutex only if it is free.
func (m *Mutex) TryLock() bool {
	select {
	case m.slot <- struct{}{}:
		return true
	default:
		return false
	}
}

// Unlock releases the mutex. Unlocking a mutex that is not held
// panics, as with sync.Mutex.
func (m *Mutex) Unlock() {
	select {
	case <-m.slot:
	default:
		panic("keylock: unlock of unlocked mutex")
	}
}

// Registry maps keys to mutexes. Safe for concurrent use; the zero
// value is ready.
type Registry[K comparable] struct {
	mutexes sync.Map // K -> *Mutex
}

// Get returns the mutex for key, creating it if needed. Every call
// with an equal key returns the same *Mutex.
func (r *Registry[K]) Get(key K) *Mutex {
	if existing, ok := r.mutexes.Load(key); ok {
		return existing.(*Mutex)
	}
	actual, _ := r.mutexes.LoadOrStore(key, newMutex())
	return actual.(*Mutex)
}

// Lock acquires the mutex for key and returns its unlock function.
func (r *Registry[K]) Lock(ctx context.Context, key K) (func(), error) {
	mutex := r.Get(key)
	if err := mutex.Lock(ctx); err != nil {
		return nil, err
	}
	return mutex.Unlock, nil
}

// TryLock acquires the mutex for key if it is free. The returned
// function is nil when ok is false.
func (r *Registry[K]) TryLock(key K) (unlock func(), ok bool) {
	mutex := r.Get(key)
	if !mutex.TryLock() {
		return nil, false
	}
	return mutex.Unlock, true
}
