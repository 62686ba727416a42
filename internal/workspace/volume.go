package workspace

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Volume models the persistent-volume protocol the workspace root may live
// on: Reload before use so this instance observes other instances' commits,
// Commit after mutation so the clones survive instance shutdown. Plain-disk
// deployments use the no-op implementation.
type Volume interface {
	// Reload refreshes the local view of the volume
	Reload(ctx context.Context) error

	// Commit makes local changes durable for other instances
	Commit(ctx context.Context) error
}

type nopVolume struct{}

var _ Volume = (*nopVolume)(nil)

// NewNopVolume returns a Volume for workspace roots on plain local disk
func NewNopVolume() Volume {
	return &nopVolume{}
}

func (*nopVolume) Reload(context.Context) error { return nil }
func (*nopVolume) Commit(context.Context) error { return nil }

const (
	commitMaxElapsed  = 30 * time.Second
	commitMaxInterval = 5 * time.Second
)

// CommitWithRetry commits the volume, retrying transient failures with
// exponential backoff. A commit is the durability barrier for freshly
// cloned copies, so giving up early would silently lose the cache.
func CommitWithRetry(ctx context.Context, v Volume) error {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxInterval = commitMaxInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, v.Commit(ctx)
	},
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxElapsedTime(commitMaxElapsed),
	)
	if err != nil {
		return fmt.Errorf("failed to commit workspace volume: %w", err)
	}
	return nil
}
