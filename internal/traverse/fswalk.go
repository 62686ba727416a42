package traverse

import (
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/treewalk-labs/git-traverser/internal/patterns"
)

// walkFilesystem is the fallback traversal strategy: it recursively lists
// directory entries on disk. Directories whose filtered result is empty are
// omitted from their parent. Unlike the index walk it sees untracked files,
// which is acceptable for a fallback since the ignore set prunes the heavy
// offenders.
func walkFilesystem(ctx context.Context, workDir string, matcher patterns.Matcher) (*TreeNode, error) {
	return walkDir(ctx, workDir, "", matcher)
}

func walkDir(ctx context.Context, absDir, relDir string, matcher patterns.Matcher) (*TreeNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		// Localized: an unreadable subtree yields an empty partial result
		slog.Warn("Failed to read directory", "dir", absDir, "error", err)
		return NewDirectory(), nil
	}

	result := NewDirectory()
	for _, entry := range entries {
		name := entry.Name()
		relPath := name
		if relDir != "" {
			relPath = path.Join(relDir, name)
		}

		if entry.IsDir() {
			if matcher.ShouldIgnore(name) {
				continue
			}
			subTree, err := walkDir(ctx, filepath.Join(absDir, name), relPath, matcher)
			if err != nil {
				return nil, err
			}
			if subTree.Len() > 0 {
				result.children[name] = subTree
			}
			continue
		}

		class := matcher.Classify(relPath)
		if class == patterns.ClassIgnored {
			continue
		}

		node := NewFileMarker()
		if class == patterns.ClassImportant {
			content, err := os.ReadFile(filepath.Join(absDir, name))
			if err != nil {
				slog.Warn("Failed to read file content", "path", relPath, "error", err)
				node = NewReadError()
			} else {
				node = NewInlinedFile(string(content))
			}
		}
		result.children[name] = node
	}

	return result, nil
}
