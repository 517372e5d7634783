// Package lock provides port.Locker implementations: an in-process keyed
// mutex for single-instance deployments and a Redis lease for clusters.
package lock

import (
	"context"
	"sync"

	"github.com/bibbank/fund/internal/domain/port"
)

var (
	_ port.Locker = (*MutexLocker)(nil)
	_ port.Locker = (*RedisLocker)(nil)
)

// MutexLocker serializes writers inside one process. Each key gets its own
// channel-backed mutex so a waiter can give up when its context ends.
type MutexLocker struct {
	mapMu sync.Mutex
	locks map[string]chan struct{}
}

// NewMutexLocker creates an empty locker.
func NewMutexLocker() *MutexLocker {
	return &MutexLocker{locks: make(map[string]chan struct{})}
}

func (l *MutexLocker) slot(key string) chan struct{} {
	l.mapMu.Lock()
	defer l.mapMu.Unlock()

	if _, exists := l.locks[key]; !exists {
		l.locks[key] = make(chan struct{}, 1)
	}
	return l.locks[key]
}

// Lock blocks until key is free or ctx is done.
func (l *MutexLocker) Lock(ctx context.Context, key string) (func(), error) {
	slot := l.slot(key)
	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() {
		once.Do(func() { <-slot })
	}, nil
}
