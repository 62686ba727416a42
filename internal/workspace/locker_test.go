package workspace

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_SerializesSameKey(t *testing.T) {
	t.Parallel()

	locker := NewLocker(t.TempDir())

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			release, err := locker.Acquire(context.Background(), "same-repo")
			require.NoError(t, err)
			defer release()

			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}

	wg.Wait()
	assert.Equal(t, 1, maxSeen, "critical section admitted more than one holder")
}

func TestLocker_DifferentKeysDoNotBlock(t *testing.T) {
	t.Parallel()

	locker := NewLocker(t.TempDir())

	releaseA, err := locker.Acquire(context.Background(), "repo-a")
	require.NoError(t, err)
	defer releaseA()

	done := make(chan struct{})
	go func() {
		releaseB, err := locker.Acquire(context.Background(), "repo-b")
		assert.NoError(t, err)
		if err == nil {
			releaseB()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("acquiring an unrelated key blocked behind repo-a")
	}
}

func TestLocker_ReleaseAllowsReacquire(t *testing.T) {
	t.Parallel()

	locker := NewLocker(t.TempDir())

	release, err := locker.Acquire(context.Background(), "repo")
	require.NoError(t, err)
	release()

	release, err = locker.Acquire(context.Background(), "repo")
	require.NoError(t, err)
	release()
}

func TestLocker_MutexTableIsLazy(t *testing.T) {
	t.Parallel()

	locker := NewLocker(t.TempDir())
	assert.Empty(t, locker.mutexes)

	release, err := locker.Acquire(context.Background(), "repo")
	require.NoError(t, err)
	release()

	assert.Len(t, locker.mutexes, 1)
	assert.Same(t, locker.mutexFor("repo"), locker.mutexFor("repo"))
}
