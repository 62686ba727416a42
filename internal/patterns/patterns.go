// Package patterns classifies repository paths using glob pattern sets.
package patterns

// DefaultIgnorePatterns lists directories and files that are excluded from
// traversal results. A path is ignored when any of its segments matches any
// of these patterns.
var DefaultIgnorePatterns = []string{
	"node_modules",
	"__pycache__",
	"env",
	"venv",
	".venv",
	"virtualenv",
	"target/dependency",
	"build/dependencies",
	"dist",
	"out",
	"bundle",
	"vendor",
	"tmp",
	"temp",
	"deps",
	"pkg",
	"Pods",
	".git",
	".*",
	"*.lock",
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"Gemfile.lock",
	"Pipfile.lock",
	"poetry.lock",
	"composer.lock",
	"Cargo.lock",
	"mix.lock",
	"shard.lock",
	"Podfile.lock",
	"gradle.lockfile",
	"pubspec.lock",
	"project.assets.json",
	"packages.lock.json",
	"*.pyc",
	"*.pyo",
	"*.pyd",
	"*.so",
	"*.dll",
	"*.exe",
	"*.bin",
	"*.obj",
	"*.o",
	"*.a",
	"*.lib",
	"*.log",
	"*.cache",
	"*.bak",
	"*.swp",
	"*.swo",
	"*.tmp",
	"*.temp",
	"*.DS_Store",
	"Thumbs.db",
	"desktop.ini",
	"go.sum",
}

// DefaultImportantPatterns lists files whose content is inlined into the
// traversal result. Requests may replace this set with their own patterns.
var DefaultImportantPatterns = []string{
	"*.md",
	"README*",
	"CONTRIBUTING*",
	"CHANGELOG*",
	"go.mod",
	"go.sum",
	"package.json",
	"package-lock.json",
	"yarn.lock",
	"Gemfile",
	"Gemfile.lock",
	"requirements.txt",
	"setup.py",
	"Pipfile",
	"Pipfile.lock",
	"pom.xml",
	"build.gradle",
	"Cargo.toml",
	"Cargo.lock",
	"devbox.json",
	"Dockerfile",
	".gitignore",
	".dockerignore",
	"docker-compose.yml",
	"docker-compose.yaml",
	".env.example",
	"Makefile",
	"*.config.js",
	"tsconfig.json",
	"tslint.json",
	"eslintrc.*",
	"prettierrc.*",
}
