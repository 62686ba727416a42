package git

import (
	"os"
	"path/filepath"
	"testing"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// TestRepoConfig contains configuration for creating a test repository
type TestRepoConfig struct {
	// Files maps relative path to content for the initial commit
	Files map[string]string

	// DefaultBranch names the initial branch ("master" if empty)
	DefaultBranch string

	// Branches maps branch name to extra files committed on that branch
	Branches map[string]map[string]string
}

// CreateTestRepo creates a git repository under a temp directory with the
// specified files committed. The directory is removed when the test ends.
func CreateTestRepo(t *testing.T, cfg TestRepoConfig) string {
	t.Helper()

	repoDir := t.TempDir()

	initOpts := &gogit.PlainInitOptions{}
	if cfg.DefaultBranch != "" {
		initOpts.InitOptions.DefaultBranch = plumbing.NewBranchReferenceName(cfg.DefaultBranch)
	}

	repo, err := gogit.PlainInitWithOptions(repoDir, initOpts)
	if err != nil {
		t.Fatalf("Failed to init repository: %v", err)
	}

	workTree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Failed to get worktree: %v", err)
	}

	commitFiles(t, repoDir, workTree, cfg.Files, "Initial commit")

	for branch, files := range cfg.Branches {
		err := workTree.Checkout(&gogit.CheckoutOptions{
			Branch: plumbing.NewBranchReferenceName(branch),
			Create: true,
		})
		if err != nil {
			t.Fatalf("Failed to create branch %s: %v", branch, err)
		}
		commitFiles(t, repoDir, workTree, files, "Add "+branch)
	}

	// Leave the repository on its default branch
	if len(cfg.Branches) > 0 {
		defaultBranch := cfg.DefaultBranch
		if defaultBranch == "" {
			defaultBranch = "master"
		}
		err := workTree.Checkout(&gogit.CheckoutOptions{
			Branch: plumbing.NewBranchReferenceName(defaultBranch),
		})
		if err != nil {
			t.Fatalf("Failed to checkout %s: %v", defaultBranch, err)
		}
	}

	return repoDir
}

func commitFiles(t *testing.T, repoDir string, workTree *gogit.Worktree, files map[string]string, message string) {
	t.Helper()

	for filename, content := range files {
		filePath := filepath.Join(repoDir, filename)
		if dir := filepath.Dir(filePath); dir != repoDir {
			if err := os.MkdirAll(dir, 0755); err != nil {
				t.Fatalf("Failed to create directory %s: %v", dir, err)
			}
		}
		if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write file %s: %v", filename, err)
		}
		if _, err := workTree.Add(filename); err != nil {
			t.Fatalf("Failed to add file %s: %v", filename, err)
		}
	}

	_, err := workTree.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "Test Author",
			Email: "test@example.com",
		},
		AllowEmptyCommits: true,
	})
	if err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}
}
