package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryDelay is the poll interval for the cross-process file lock
const lockRetryDelay = 100 * time.Millisecond

// Locker serializes work on a repository key. Two concurrent requests for
// the same repository must never interleave clone/checkout/traverse, or
// they race on the working copy. The in-process mutex table covers
// goroutines of one instance; a file lock in the workspace root covers
// other instances sharing the same volume.
//
// Mutex entries are created lazily under a meta-lock and never removed;
// the table grows with the number of distinct repositories seen by the
// process, which is an acceptable leak for process lifetime.
type Locker struct {
	root    string
	mu      sync.Mutex
	mutexes map[string]*sync.Mutex
}

// NewLocker creates a Locker whose file locks live in the given directory
func NewLocker(root string) *Locker {
	return &Locker{
		root:    root,
		mutexes: make(map[string]*sync.Mutex),
	}
}

// Acquire takes the critical section for a repository key and returns the
// release function. The caller holds the lock across the whole
// clone-to-traversal sequence.
func (l *Locker) Acquire(ctx context.Context, key string) (func(), error) {
	m := l.mutexFor(key)
	m.Lock()

	fl := flock.New(filepath.Join(l.root, key+".lock"))
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		m.Unlock()
		return nil, fmt.Errorf("failed to acquire file lock for %s: %w", key, err)
	}
	if !locked {
		m.Unlock()
		return nil, fmt.Errorf("failed to acquire file lock for %s", key)
	}

	return func() {
		if err := fl.Unlock(); err != nil {
			slog.Warn("Failed to release file lock", "key", key, "error", err)
		}
		m.Unlock()
	}, nil
}

func (l *Locker) mutexFor(key string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.mutexes[key]
	if !ok {
		m = &sync.Mutex{}
		l.mutexes[key] = m
	}
	return m
}
