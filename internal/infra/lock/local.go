// Package lock provides the per-transaction mutual exclusion used by the
// action dispatcher.
package lock

import (
	"context"
	"strings"
	"sync"

	"anchorcore/pkg/domain"
)

// Local serialises callers per key within one process. Entries are reference
// counted and dropped once no caller holds or waits for the key.
type Local struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	ch   chan struct{}
	refs int
}

var _ domain.Locker = (*Local)(nil)

// NewLocal returns an empty keyed mutex.
func NewLocal() *Local {
	return &Local{locks: make(map[string]*entry)}
}

// WithLock runs fn while holding key. Waiting honours ctx cancellation.
func (l *Local) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if fn == nil {
		return ErrNilFunc
	}
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}

	e := l.acquire(key)
	defer l.release(key, e)

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-e.ch }()

	return fn(ctx)
}

func (l *Local) acquire(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	return e
}

func (l *Local) release(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

// held reports how many keys are currently tracked.
func (l *Local) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
