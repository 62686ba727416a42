// Package git wraps the go-git operations the traversal service needs.
package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// ErrBranchNotFound indicates a checkout target that does not exist in the
// local working copy.
var ErrBranchNotFound = errors.New("branch not found")

// Client defines the interface for Git operations
type Client interface {
	// Clone clones a repository into a local directory
	Clone(ctx context.Context, cfg *CloneConfig) (*gogit.Repository, error)

	// Open opens an existing working copy in place
	Open(path string) (*gogit.Repository, error)

	// Checkout switches the working copy to the named local branch.
	// Returns ErrBranchNotFound when the branch does not exist locally.
	Checkout(repo *gogit.Repository, branch string) error

	// ListFiles returns the flat recursive file listing of the HEAD tree
	ListFiles(repo *gogit.Repository) ([]string, error)

	// FileContent returns the content of a file at HEAD
	FileContent(repo *gogit.Repository, path string) (string, error)

	// HeadBranch returns the short name of the current branch, or the
	// empty string when HEAD is detached
	HeadBranch(repo *gogit.Repository) (string, error)
}

// defaultClient implements Client using go-git
type defaultClient struct{}

var _ Client = (*defaultClient)(nil)

// NewDefaultClient creates a new defaultClient
func NewDefaultClient() Client {
	return &defaultClient{}
}

// Clone clones a repository into cfg.Directory. When a branch is pinned the
// clone is single-branch, so only the requested ref's history is fetched.
func (*defaultClient) Clone(ctx context.Context, cfg *CloneConfig) (*gogit.Repository, error) {
	cloneOptions := &gogit.CloneOptions{
		URL:   cfg.URL,
		Depth: cfg.Depth,
	}

	if cfg.Auth != nil && cfg.Auth.Username != "" {
		cloneOptions.Auth = &githttp.BasicAuth{
			Username: cfg.Auth.Username,
			Password: cfg.Auth.Password,
		}
		slog.Debug("Using Git HTTP Basic authentication", "username", cfg.Auth.Username)
	}

	if cfg.Branch != "" {
		cloneOptions.ReferenceName = plumbing.NewBranchReferenceName(cfg.Branch)
		cloneOptions.SingleBranch = true
	}

	repo, err := gogit.PlainCloneContext(ctx, cfg.Directory, false, cloneOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to clone repository: %w", err)
	}

	return repo, nil
}

// Open opens an existing working copy in place
func (*defaultClient) Open(path string) (*gogit.Repository, error) {
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", path, err)
	}
	return repo, nil
}

// Checkout switches the working copy to the named branch. A branch that
// only exists as a remote-tracking ref gets a local branch created from it,
// matching what `git switch` does after a multi-branch clone.
func (*defaultClient) Checkout(repo *gogit.Repository, branch string) error {
	workTree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	branchRef := plumbing.NewBranchReferenceName(branch)
	err = workTree.Checkout(&gogit.CheckoutOptions{Branch: branchRef})
	if err == nil {
		return nil
	}
	if !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return fmt.Errorf("failed to checkout branch %s: %w", branch, err)
	}

	remoteRef, rerr := repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if rerr != nil {
		return fmt.Errorf("%w: %s", ErrBranchNotFound, branch)
	}

	err = workTree.Checkout(&gogit.CheckoutOptions{
		Branch: branchRef,
		Hash:   remoteRef.Hash(),
		Create: true,
	})
	if err != nil {
		return fmt.Errorf("failed to checkout branch %s: %w", branch, err)
	}

	return nil
}

// ListFiles returns the flat recursive file listing of the HEAD tree, the
// same listing `git ls-tree -r --name-only HEAD` would produce.
func (*defaultClient) ListFiles(repo *gogit.Repository) ([]string, error) {
	tree, err := headTree(repo)
	if err != nil {
		return nil, err
	}

	var paths []string
	err = tree.Files().ForEach(func(f *object.File) error {
		paths = append(paths, f.Name)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tree files: %w", err)
	}

	return paths, nil
}

// FileContent returns the content of a file at HEAD
func (*defaultClient) FileContent(repo *gogit.Repository, path string) (string, error) {
	tree, err := headTree(repo)
	if err != nil {
		return "", err
	}

	file, err := tree.File(path)
	if err != nil {
		return "", fmt.Errorf("failed to get file %s: %w", path, err)
	}

	content, err := file.Contents()
	if err != nil {
		return "", fmt.Errorf("failed to read file contents: %w", err)
	}

	return content, nil
}

// HeadBranch returns the short name of the current branch
func (*defaultClient) HeadBranch(repo *gogit.Repository) (string, error) {
	ref, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD reference: %w", err)
	}

	if ref.Name().IsBranch() {
		return ref.Name().Short(), nil
	}
	return "", nil
}

// headTree resolves the tree of the current HEAD commit
func headTree(repo *gogit.Repository) (*object.Tree, error) {
	ref, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD reference: %w", err)
	}

	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit object: %w", err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	return tree, nil
}
