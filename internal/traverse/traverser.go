package traverse

import (
	"context"
	"log/slog"

	gogit "github.com/go-git/go-git/v5"

	"github.com/treewalk-labs/git-traverser/internal/git"
	"github.com/treewalk-labs/git-traverser/internal/patterns"
)

// Traverser produces the nested structure document for a working copy.
type Traverser interface {
	// Traverse walks the working copy and returns its directory structure.
	// Ignored paths are absent from the result at every level, important
	// files carry their content, and everything else is a file marker.
	Traverse(ctx context.Context, repo *gogit.Repository, workDir string, matcher patterns.Matcher) (*TreeNode, error)
}

// defaultTraverser walks the git index (HEAD tree) and falls back to the
// filesystem when the index is unavailable. The index walk is preferred: it
// is faster and never sees untracked clutter such as dependency trees.
type defaultTraverser struct {
	gitClient git.Client
}

var _ Traverser = (*defaultTraverser)(nil)

// NewTraverser creates a Traverser backed by the given git client
func NewTraverser(gitClient git.Client) Traverser {
	return &defaultTraverser{gitClient: gitClient}
}

// Traverse walks the repository tree. A listing failure is localized: the
// walk degrades to the filesystem strategy, and if that fails too the
// result is an empty structure rather than a request failure.
func (t *defaultTraverser) Traverse(ctx context.Context, repo *gogit.Repository, workDir string, matcher patterns.Matcher) (*TreeNode, error) {
	files, err := t.gitClient.ListFiles(repo)
	if err != nil {
		slog.Warn("Index listing failed, falling back to filesystem walk",
			"error", err,
			"dir", workDir)
		return walkFilesystem(ctx, workDir, matcher)
	}

	root := NewDirectory()
	for _, relPath := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		class := matcher.Classify(relPath)
		if class == patterns.ClassIgnored {
			continue
		}

		node := NewFileMarker()
		if class == patterns.ClassImportant {
			content, err := t.gitClient.FileContent(repo, relPath)
			if err != nil {
				slog.Warn("Failed to read file content", "path", relPath, "error", err)
				node = NewReadError()
			} else {
				node = NewInlinedFile(content)
			}
		}

		if err := root.Insert(relPath, node); err != nil {
			slog.Warn("Skipping unrepresentable path", "path", relPath, "error", err)
		}
	}

	return root, nil
}
