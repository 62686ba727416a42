package service

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"

	gogit "github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treewalk-labs/git-traverser/internal/git"
	"github.com/treewalk-labs/git-traverser/internal/traverse"
	"github.com/treewalk-labs/git-traverser/internal/workspace"
)

// countingGitClient wraps a git.Client and counts clone calls
type countingGitClient struct {
	git.Client
	clones atomic.Int64
}

func (c *countingGitClient) Clone(ctx context.Context, cfg *git.CloneConfig) (*gogit.Repository, error) {
	c.clones.Add(1)
	return c.Client.Clone(ctx, cfg)
}

type serviceFixture struct {
	svc       TraversalService
	gitClient *countingGitClient
}

func newServiceFixture(t *testing.T, policy workspace.CachePolicy) *serviceFixture {
	t.Helper()

	root := t.TempDir()
	gitClient := &countingGitClient{Client: git.NewDefaultClient()}
	manager := workspace.NewManager(workspace.ManagerConfig{
		Root:   root,
		Policy: policy,
	}, gitClient)
	require.NoError(t, manager.Init())

	svc := NewService(
		Config{},
		workspace.NewLocker(root),
		manager,
		traverse.NewTraverser(gitClient),
		workspace.NewNopVolume(),
		policy,
	)

	return &serviceFixture{svc: svc, gitClient: gitClient}
}

func TestGetStructure_DefaultPatternsScenario(t *testing.T) {
	t.Parallel()

	srcDir := git.CreateTestRepo(t, git.TestRepoConfig{
		DefaultBranch: "main",
		Files: map[string]string{
			"src/app.py":        "print('hi')\n",
			"README.md":         "readme contents\n",
			"node_modules/x.js": "x\n",
			".gitignore":        "node_modules\n",
		},
	})

	f := newServiceFixture(t, workspace.CachePolicyRetain)
	tree, err := f.svc.GetStructure(context.Background(), &TraversalRequest{
		RepoURL:  srcDir,
		Branch:   "main",
		Provider: workspace.ProviderGitHub,
	})
	require.NoError(t, err)

	data, err := json.Marshal(tree)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"src": {"app.py": "file"},
		"README.md": "readme contents\n",
		".gitignore": "node_modules\n"
	}`, string(data))
}

func TestGetStructure_MissingRepoURL(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, workspace.CachePolicyRetain)
	_, err := f.svc.GetStructure(context.Background(), &TraversalRequest{})
	assert.Error(t, err)
}

func TestGetStructure_UnresolvableProvider(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, workspace.CachePolicyRetain)
	_, err := f.svc.GetStructure(context.Background(), &TraversalRequest{
		RepoURL: "https://bitbucket.org/team/proj",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, workspace.ErrUnresolvableProvider)
}

func TestGetStructure_InvalidOverridePatterns(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, workspace.CachePolicyRetain)
	_, err := f.svc.GetStructure(context.Background(), &TraversalRequest{
		RepoURL:      "https://github.com/example/proj",
		FilePatterns: []string{"[unclosed"},
	})
	assert.Error(t, err)
}

func TestGetStructure_IdempotentAndNoReclone(t *testing.T) {
	t.Parallel()

	srcDir := git.CreateTestRepo(t, git.TestRepoConfig{
		DefaultBranch: "main",
		Files: map[string]string{
			"README.md":  "readme\n",
			"src/app.go": "package main\n",
		},
	})

	f := newServiceFixture(t, workspace.CachePolicyRetain)
	req := &TraversalRequest{RepoURL: srcDir, Branch: "main", Provider: workspace.ProviderGitHub}

	first, err := f.svc.GetStructure(context.Background(), req)
	require.NoError(t, err)
	second, err := f.svc.GetStructure(context.Background(), req)
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(firstJSON), string(secondJSON))

	assert.EqualValues(t, 1, f.gitClient.clones.Load(), "second request must reuse the working copy")
}

func TestGetStructure_ConcurrentFirstRequestsCloneOnce(t *testing.T) {
	t.Parallel()

	srcDir := git.CreateTestRepo(t, git.TestRepoConfig{
		DefaultBranch: "main",
		Files:         map[string]string{"README.md": "readme\n"},
	})

	f := newServiceFixture(t, workspace.CachePolicyRetain)
	req := &TraversalRequest{RepoURL: srcDir, Branch: "main", Provider: workspace.ProviderGitHub}

	const concurrency = 4
	var wg sync.WaitGroup
	results := make([]*traverse.TreeNode, concurrency)
	errs := make([]error, concurrency)

	for i := range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = f.svc.GetStructure(context.Background(), req)
		}()
	}
	wg.Wait()

	want, err := json.Marshal(results[0])
	require.NoError(t, err)
	for i := range concurrency {
		require.NoError(t, errs[i])
		got, err := json.Marshal(results[i])
		require.NoError(t, err)
		assert.JSONEq(t, string(want), string(got))
	}

	assert.EqualValues(t, 1, f.gitClient.clones.Load(), "concurrent first requests must clone exactly once")
}

func TestGetStructure_NoCachePolicyDisposesCopy(t *testing.T) {
	t.Parallel()

	srcDir := git.CreateTestRepo(t, git.TestRepoConfig{
		DefaultBranch: "main",
		Files:         map[string]string{"README.md": "readme\n"},
	})

	f := newServiceFixture(t, workspace.CachePolicyNone)
	req := &TraversalRequest{RepoURL: srcDir, Branch: "main", Provider: workspace.ProviderGitHub}

	_, err := f.svc.GetStructure(context.Background(), req)
	require.NoError(t, err)
	_, err = f.svc.GetStructure(context.Background(), req)
	require.NoError(t, err)

	assert.EqualValues(t, 2, f.gitClient.clones.Load(), "no-cache policy re-clones on every request")
}

func TestGetStructure_OverridePatterns(t *testing.T) {
	t.Parallel()

	srcDir := git.CreateTestRepo(t, git.TestRepoConfig{
		DefaultBranch: "main",
		Files: map[string]string{
			"main.go":   "package main\n",
			"README.md": "readme\n",
		},
	})

	f := newServiceFixture(t, workspace.CachePolicyRetain)
	tree, err := f.svc.GetStructure(context.Background(), &TraversalRequest{
		RepoURL:      srcDir,
		Branch:       "main",
		Provider:     workspace.ProviderGitHub,
		FilePatterns: []string{"*.go"},
	})
	require.NoError(t, err)

	data, err := json.Marshal(tree)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"main.go": "package main\n",
		"README.md": "file"
	}`, string(data))
}
