// Package keylock provides logical locks keyed by entity identifiers.
//
// Lifecycle operations must hold the locks for every entity they touch (the
// residence and the resident's user) before issuing their first write. The
// locks are advisory: stores do not check them, the orchestrator does.
//
// Contention fails fast with sentinel.ErrLocked rather than blocking; these
// are administrative actions, not a hot path, and the caller can retry.
package keylock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"domio/pkg/platform/sentinel"
	pkgstrings "domio/pkg/platform/strings"
)

// Locker acquires logical locks for a set of keys.
//
// TryLock either acquires every key or none. On success it returns a release
// function that must be called exactly once; on contention it returns
// sentinel.ErrLocked (possibly wrapped).
type Locker interface {
	TryLock(ctx context.Context, keys ...string) (release func(), err error)
}

// InMemoryLocker serializes operations within a single process.
type InMemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewInMemoryLocker constructs an empty in-memory locker.
func NewInMemoryLocker() *InMemoryLocker {
	return &InMemoryLocker{held: make(map[string]struct{})}
}

// TryLock acquires all keys or none. Keys are deduplicated and sorted so two
// operations locking the same set always observe the same order.
func (l *InMemoryLocker) TryLock(_ context.Context, keys ...string) (func(), error) {
	keys = normalize(keys)
	if len(keys) == 0 {
		return func() {}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, key := range keys {
		if _, taken := l.held[key]; taken {
			return nil, fmt.Errorf("key %q: %w", key, sentinel.ErrLocked)
		}
	}
	for _, key := range keys {
		l.held[key] = struct{}{}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			for _, key := range keys {
				delete(l.held, key)
			}
		})
	}, nil
}

// normalize dedupes, lowercases, and sorts lock keys. Identifiers render as
// lowercase UUID text, so keys built from differently-cased input still
// collide on the same lock.
func normalize(keys []string) []string {
	out := pkgstrings.DedupeAndTrimLower(keys)
	sort.Strings(out)
	return out
}
