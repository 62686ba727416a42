package git

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultClient(t *testing.T) {
	t.Parallel()

	client := NewDefaultClient()
	require.NotNil(t, client)

	_, ok := client.(*defaultClient)
	assert.True(t, ok, "NewDefaultClient() did not return *defaultClient")
}

func TestClone_InvalidURL(t *testing.T) {
	t.Parallel()

	client := NewDefaultClient()

	repo, err := client.Clone(context.Background(), &CloneConfig{
		URL:       "not-a-url",
		Directory: t.TempDir() + "/clone",
	})
	assert.Error(t, err)
	assert.Nil(t, repo)
}

func TestClone_FromLocalRepo(t *testing.T) {
	t.Parallel()

	srcDir := CreateTestRepo(t, TestRepoConfig{
		Files: map[string]string{
			"README.md":  "# hello\n",
			"src/app.go": "package main\n",
		},
	})

	client := NewDefaultClient()
	repo, err := client.Clone(context.Background(), &CloneConfig{
		URL:       srcDir,
		Directory: t.TempDir() + "/clone",
	})
	require.NoError(t, err)
	require.NotNil(t, repo)

	files, err := client.ListFiles(repo)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"README.md", "src/app.go"}, files)
}

func TestClone_PinnedBranch(t *testing.T) {
	t.Parallel()

	srcDir := CreateTestRepo(t, TestRepoConfig{
		DefaultBranch: "main",
		Files:         map[string]string{"README.md": "main branch\n"},
		Branches: map[string]map[string]string{
			"feature": {"feature.txt": "feature work\n"},
		},
	})

	client := NewDefaultClient()
	repo, err := client.Clone(context.Background(), &CloneConfig{
		URL:       srcDir,
		Directory: t.TempDir() + "/clone",
		Branch:    "feature",
	})
	require.NoError(t, err)

	branch, err := client.HeadBranch(repo)
	require.NoError(t, err)
	assert.Equal(t, "feature", branch)

	files, err := client.ListFiles(repo)
	require.NoError(t, err)
	assert.Contains(t, files, "feature.txt")
}

func TestClone_MissingBranch(t *testing.T) {
	t.Parallel()

	srcDir := CreateTestRepo(t, TestRepoConfig{
		Files: map[string]string{"README.md": "content\n"},
	})

	client := NewDefaultClient()
	_, err := client.Clone(context.Background(), &CloneConfig{
		URL:       srcDir,
		Directory: t.TempDir() + "/clone",
		Branch:    "no-such-branch",
	})
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	t.Parallel()

	srcDir := CreateTestRepo(t, TestRepoConfig{
		Files: map[string]string{"README.md": "content\n"},
	})

	client := NewDefaultClient()
	repo, err := client.Open(srcDir)
	require.NoError(t, err)
	assert.NotNil(t, repo)

	_, err = client.Open(t.TempDir())
	assert.Error(t, err)
}

func TestCheckout(t *testing.T) {
	t.Parallel()

	srcDir := CreateTestRepo(t, TestRepoConfig{
		DefaultBranch: "main",
		Files:         map[string]string{"README.md": "main\n"},
		Branches: map[string]map[string]string{
			"develop": {"dev.txt": "dev\n"},
		},
	})

	client := NewDefaultClient()
	repo, err := client.Open(srcDir)
	require.NoError(t, err)

	require.NoError(t, client.Checkout(repo, "develop"))

	branch, err := client.HeadBranch(repo)
	require.NoError(t, err)
	assert.Equal(t, "develop", branch)
}

func TestCheckout_BranchNotFound(t *testing.T) {
	t.Parallel()

	srcDir := CreateTestRepo(t, TestRepoConfig{
		Files: map[string]string{"README.md": "content\n"},
	})

	client := NewDefaultClient()
	repo, err := client.Open(srcDir)
	require.NoError(t, err)

	err = client.Checkout(repo, "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBranchNotFound)
}

func TestFileContent(t *testing.T) {
	t.Parallel()

	srcDir := CreateTestRepo(t, TestRepoConfig{
		Files: map[string]string{
			"README.md":   "# readme contents\n",
			"docs/faq.md": "faq\n",
		},
	})

	client := NewDefaultClient()
	repo, err := client.Open(srcDir)
	require.NoError(t, err)

	content, err := client.FileContent(repo, "README.md")
	require.NoError(t, err)
	assert.Equal(t, "# readme contents\n", content)

	content, err = client.FileContent(repo, "docs/faq.md")
	require.NoError(t, err)
	assert.Equal(t, "faq\n", content)

	_, err = client.FileContent(repo, "missing.txt")
	assert.Error(t, err)
}
