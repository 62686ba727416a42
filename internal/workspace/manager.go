package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/google/uuid"

	"github.com/treewalk-labs/git-traverser/internal/git"
)

// CachePolicy controls how long working copies are kept.
type CachePolicy string

const (
	// CachePolicyNone removes the working copy after each request
	CachePolicyNone CachePolicy = "none"
	// CachePolicyRetain keeps working copies indefinitely
	CachePolicyRetain CachePolicy = "retain"
	// CachePolicyRetainTTL keeps working copies and re-clones them once
	// they are older than the configured TTL
	CachePolicyRetainTTL CachePolicy = "retain-with-ttl"
)

// branchFallbacks are tried in order after the requested branch fails
var branchFallbacks = []string{"master", "main"}

// WorkingCopy is a local clone of a remote repository, keyed by the
// repository name derived from its URL.
type WorkingCopy struct {
	// Key is the derived repository name
	Key string

	// Path is the working copy directory
	Path string

	// Repo is the opened go-git repository
	Repo *gogit.Repository

	// Branch is the branch the copy ended up on; it may differ from the
	// requested branch when the branch does not exist
	Branch string
}

// ManagerConfig configures a workspace Manager.
type ManagerConfig struct {
	// Root is the directory holding all working copies
	Root string

	// Policy controls working copy retention
	Policy CachePolicy

	// TTL is the maximum working copy age under CachePolicyRetainTTL
	TTL time.Duration

	// CloneDepth limits clone history depth; zero clones full history
	CloneDepth int
}

// Manager creates and reuses working copies. Callers must hold the
// repository's critical section (Locker.Acquire) around Ensure and any use
// of the returned copy.
type Manager struct {
	cfg       ManagerConfig
	gitClient git.Client
}

// NewManager creates a workspace Manager rooted at cfg.Root
func NewManager(cfg ManagerConfig, gitClient git.Client) *Manager {
	return &Manager{cfg: cfg, gitClient: gitClient}
}

// Init ensures the workspace root directory exists
func (m *Manager) Init() error {
	if err := os.MkdirAll(m.cfg.Root, 0750); err != nil {
		return fmt.Errorf("failed to create workspace root: %w", err)
	}
	return nil
}

// Ensure returns a working copy for the reference, cloning it on first use
// and reusing the existing copy afterwards. An existing copy is switched to
// the requested branch when that branch exists locally; otherwise it stays
// on its current branch. A fresh clone tries the requested branch, then
// master, then main before giving up.
func (m *Manager) Ensure(ctx context.Context, ref *RepoRef) (*WorkingCopy, error) {
	key, err := RepoKey(ref.URL)
	if err != nil {
		return nil, err
	}
	dest := filepath.Join(m.cfg.Root, key)

	if m.cfg.Policy == CachePolicyRetainTTL && m.expired(dest) {
		slog.Info("Working copy exceeded TTL, discarding", "key", key)
		if err := os.RemoveAll(dest); err != nil {
			return nil, fmt.Errorf("failed to discard stale working copy: %w", err)
		}
	}

	if _, statErr := os.Stat(dest); statErr == nil {
		wc, err := m.reuse(key, dest, ref)
		if err == nil {
			return wc, nil
		}
		// An unopenable copy is corrupt; re-clone from scratch
		slog.Warn("Existing working copy unusable, re-cloning", "key", key, "error", err)
		if err := os.RemoveAll(dest); err != nil {
			return nil, fmt.Errorf("failed to remove corrupt working copy: %w", err)
		}
	}

	return m.clone(ctx, key, dest, ref)
}

// Dispose removes a working copy from disk. Used by the no-cache policy
// after each request.
func (m *Manager) Dispose(wc *WorkingCopy) error {
	if err := os.RemoveAll(wc.Path); err != nil {
		return fmt.Errorf("failed to remove working copy %s: %w", wc.Key, err)
	}
	return nil
}

// Clear wipes every entry under the workspace root, following the
// symlink/directory/file distinction so a symlinked entry never causes a
// traversal outside the root.
func (m *Manager) Clear() error {
	entries, err := os.ReadDir(m.cfg.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read workspace root: %w", err)
	}

	for _, entry := range entries {
		entryPath := filepath.Join(m.cfg.Root, entry.Name())
		if entry.Type()&os.ModeSymlink != 0 {
			err = os.Remove(entryPath)
		} else {
			err = os.RemoveAll(entryPath)
		}
		if err != nil {
			return fmt.Errorf("failed to remove %s: %w", entryPath, err)
		}
	}
	return nil
}

// reuse opens an existing working copy and best-effort switches branches
func (m *Manager) reuse(key, dest string, ref *RepoRef) (*WorkingCopy, error) {
	slog.Debug("Reusing existing working copy", "key", key, "path", dest)

	repo, err := m.gitClient.Open(dest)
	if err != nil {
		return nil, err
	}

	if ref.Branch != "" {
		if err := m.gitClient.Checkout(repo, ref.Branch); err != nil {
			if errors.Is(err, git.ErrBranchNotFound) {
				slog.Info("Requested branch not present locally, staying on current branch",
					"key", key, "branch", ref.Branch)
			} else {
				slog.Warn("Branch switch failed, staying on current branch",
					"key", key, "branch", ref.Branch, "error", err)
			}
		}
	}

	branch, err := m.gitClient.HeadBranch(repo)
	if err != nil {
		return nil, err
	}

	return &WorkingCopy{Key: key, Path: dest, Repo: repo, Branch: branch}, nil
}

// clone creates a fresh working copy, walking the branch fallback chain.
// Each attempt clones into a staging directory that is renamed into place
// on success, so the destination only ever holds complete clones.
func (m *Manager) clone(ctx context.Context, key, dest string, ref *RepoRef) (*WorkingCopy, error) {
	var lastErr error
	for _, branch := range fallbackChain(ref.Branch) {
		staging := filepath.Join(m.cfg.Root, ".staging-"+uuid.NewString())

		startTime := time.Now()
		slog.Info("Cloning repository", "key", key, "url", ref.URL, "branch", branch)

		repo, err := m.gitClient.Clone(ctx, &git.CloneConfig{
			URL:       ref.URL,
			Directory: staging,
			Branch:    branch,
			Depth:     m.cfg.CloneDepth,
			Auth:      ref.AuthConfig(),
		})
		if err != nil {
			lastErr = err
			slog.Warn("Clone attempt failed",
				"key", key,
				"branch", branch,
				"duration", time.Since(startTime).String(),
				"error", err)
			_ = os.RemoveAll(staging)
			continue
		}

		if err := os.Rename(staging, dest); err != nil {
			_ = os.RemoveAll(staging)
			return nil, fmt.Errorf("failed to move working copy into place: %w", err)
		}

		// Reopen at the final location; the staging handle still points at
		// the renamed path's old name.
		repo, err = m.gitClient.Open(dest)
		if err != nil {
			return nil, err
		}

		if err := m.stamp(key); err != nil {
			slog.Warn("Failed to write clone stamp", "key", key, "error", err)
		}

		headBranch, err := m.gitClient.HeadBranch(repo)
		if err != nil {
			return nil, err
		}

		slog.Info("Clone completed",
			"key", key,
			"branch", headBranch,
			"duration", time.Since(startTime).String())

		return &WorkingCopy{Key: key, Path: dest, Repo: repo, Branch: headBranch}, nil
	}

	return nil, fmt.Errorf("failed to clone %s on any of the candidate branches: %w", ref.URL, lastErr)
}

// fallbackChain returns the requested branch followed by the standard
// fallbacks, without duplicates.
func fallbackChain(requested string) []string {
	chain := make([]string, 0, len(branchFallbacks)+1)
	if requested != "" {
		chain = append(chain, requested)
	}
	for _, b := range branchFallbacks {
		if b != requested {
			chain = append(chain, b)
		}
	}
	return chain
}

// stampPath is the file whose mtime tracks a working copy's clone time
func (m *Manager) stampPath(key string) string {
	return filepath.Join(m.cfg.Root, key+".stamp")
}

func (m *Manager) stamp(key string) error {
	return os.WriteFile(m.stampPath(key), []byte(time.Now().UTC().Format(time.RFC3339)+"\n"), 0600)
}

// expired reports whether a working copy is older than the TTL. A copy
// without a stamp falls back to the directory's own mtime.
func (m *Manager) expired(dest string) bool {
	if m.cfg.TTL <= 0 {
		return false
	}

	info, err := os.Stat(m.stampPath(filepath.Base(dest)))
	if err != nil {
		info, err = os.Stat(dest)
		if err != nil {
			return false
		}
	}
	return time.Since(info.ModTime()) > m.cfg.TTL
}
