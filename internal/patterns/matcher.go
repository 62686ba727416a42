package patterns

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Class is the traversal classification of a file path.
type Class int

const (
	// ClassIgnored paths are absent from traversal results entirely
	ClassIgnored Class = iota
	// ClassImportant files have their content inlined
	ClassImportant
	// ClassFile files appear as a plain marker
	ClassFile
)

// Matcher classifies relative repository paths against compiled glob
// pattern sets. Matching is case-sensitive shell-glob semantics; a path
// matching any pattern in a set counts as a match (union semantics).
type Matcher interface {
	// ShouldIgnore reports whether any segment of the slash-separated
	// relative path matches an ignore pattern.
	ShouldIgnore(relPath string) bool

	// IsImportant reports whether the relative path matches the
	// important-pattern set.
	IsImportant(relPath string) bool

	// Classify resolves the traversal class of a file path. An ignore
	// match on any ancestor directory segment excludes the file outright.
	// For the file's own name, importance wins over an ignore match, so
	// entries like .gitignore survive the dot-file ignore rule.
	Classify(relPath string) Class
}

type defaultMatcher struct {
	ignore    []glob.Glob
	important []glob.Glob
}

var _ Matcher = (*defaultMatcher)(nil)

// NewMatcher compiles the given pattern sets into a Matcher. A nil slice
// falls back to the package defaults, so callers pass a per-request
// important override directly and keep ignore as nil. Invalid patterns are
// rejected here so that traversal itself never has to deal with them.
func NewMatcher(ignore, important []string) (Matcher, error) {
	if ignore == nil {
		ignore = DefaultIgnorePatterns
	}
	if important == nil {
		important = DefaultImportantPatterns
	}

	compiledIgnore, err := compilePatterns(ignore)
	if err != nil {
		return nil, fmt.Errorf("invalid ignore patterns: %w", err)
	}
	compiledImportant, err := compilePatterns(important)
	if err != nil {
		return nil, fmt.Errorf("invalid important patterns: %w", err)
	}

	return &defaultMatcher{
		ignore:    compiledIgnore,
		important: compiledImportant,
	}, nil
}

// compilePatterns compiles a list of shell-glob patterns. Each pattern is
// validated with filepath.Match first, which catches malformed character
// classes that gobwas/glob would accept.
func compilePatterns(pats []string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(pats))
	for _, p := range pats {
		if _, err := filepath.Match(p, "probe"); err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", p, err)
		}
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", p, err)
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

// ShouldIgnore checks every path segment against the ignore set, so a match
// on a directory name excludes everything beneath it.
func (m *defaultMatcher) ShouldIgnore(relPath string) bool {
	for _, segment := range strings.Split(relPath, "/") {
		if segment == "" {
			continue
		}
		for _, g := range m.ignore {
			if g.Match(segment) {
				return true
			}
		}
	}
	return false
}

// IsImportant matches the full relative path against the important set.
func (m *defaultMatcher) IsImportant(relPath string) bool {
	for _, g := range m.important {
		if g.Match(relPath) {
			return true
		}
	}
	return false
}

// Classify resolves the traversal class of a file path
func (m *defaultMatcher) Classify(relPath string) Class {
	if dir := path.Dir(relPath); dir != "." && m.ShouldIgnore(dir) {
		return ClassIgnored
	}
	if m.IsImportant(relPath) {
		return ClassImportant
	}
	if m.ShouldIgnore(relPath) {
		return ClassIgnored
	}
	return ClassFile
}
