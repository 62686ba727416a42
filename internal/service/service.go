// Package service implements the traversal use case behind the HTTP API.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/treewalk-labs/git-traverser/internal/patterns"
	"github.com/treewalk-labs/git-traverser/internal/traverse"
	"github.com/treewalk-labs/git-traverser/internal/workspace"
)

// TraversalRequest is the normalized form of an inbound structure request.
// FilePatterns is nil when the caller did not override the important set;
// a non-nil (possibly empty) slice replaces it.
type TraversalRequest struct {
	RepoURL      string
	Branch       string
	Provider     workspace.Provider
	FilePatterns []string
	Token        string
}

// TraversalService returns the directory structure of a remote repository.
type TraversalService interface {
	GetStructure(ctx context.Context, req *TraversalRequest) (*traverse.TreeNode, error)
}

// Config carries the service's pattern configuration. Nil slices use the
// built-in defaults.
type Config struct {
	IgnorePatterns    []string
	ImportantPatterns []string
}

type defaultService struct {
	cfg       Config
	locker    *workspace.Locker
	manager   *workspace.Manager
	traverser traverse.Traverser
	volume    workspace.Volume
	policy    workspace.CachePolicy
}

var _ TraversalService = (*defaultService)(nil)

// NewService creates the traversal service. The locker, manager and volume
// must share one workspace root.
func NewService(
	cfg Config,
	locker *workspace.Locker,
	manager *workspace.Manager,
	traverser traverse.Traverser,
	volume workspace.Volume,
	policy workspace.CachePolicy,
) TraversalService {
	return &defaultService{
		cfg:       cfg,
		locker:    locker,
		manager:   manager,
		traverser: traverser,
		volume:    volume,
		policy:    policy,
	}
}

// GetStructure resolves the reference, then runs clone/checkout/traverse as
// one critical section per repository key so concurrent requests for the
// same repository never observe a partial clone.
func (s *defaultService) GetStructure(ctx context.Context, req *TraversalRequest) (*traverse.TreeNode, error) {
	if req.RepoURL == "" {
		return nil, fmt.Errorf("repo_url is required")
	}

	provider, err := workspace.ResolveProvider(req.RepoURL, req.Provider)
	if err != nil {
		return nil, err
	}

	branch := req.Branch
	if branch == "" {
		branch = "main"
	}

	important := s.cfg.ImportantPatterns
	if req.FilePatterns != nil {
		important = req.FilePatterns
	}
	matcher, err := patterns.NewMatcher(s.cfg.IgnorePatterns, important)
	if err != nil {
		return nil, err
	}

	ref := &workspace.RepoRef{
		URL:      req.RepoURL,
		Provider: provider,
		Branch:   branch,
		Token:    req.Token,
	}

	key, err := workspace.RepoKey(ref.URL)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	defer release()

	startTime := time.Now()

	if err := s.volume.Reload(ctx); err != nil {
		slog.Warn("Volume reload failed", "key", key, "error", err)
	}

	wc, err := s.manager.Ensure(ctx, ref)
	if err != nil {
		return nil, err
	}

	tree, err := s.traverser.Traverse(ctx, wc.Repo, wc.Path, matcher)
	if err != nil {
		return nil, fmt.Errorf("failed to traverse repository: %w", err)
	}

	if s.policy == workspace.CachePolicyNone {
		if err := s.manager.Dispose(wc); err != nil {
			slog.Warn("Failed to dispose working copy", "key", wc.Key, "error", err)
		}
	}

	if err := workspace.CommitWithRetry(ctx, s.volume); err != nil {
		slog.Error("Volume commit failed", "key", wc.Key, "error", err)
	}

	slog.Info("Traversal completed",
		"key", wc.Key,
		"branch", wc.Branch,
		"duration", time.Since(startTime).String())

	return tree, nil
}
