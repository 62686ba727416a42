package git

// AuthConfig contains HTTP basic credentials for a remote. Provider token
// conventions (GitHub token-as-username, GitLab oauth2 user) are mapped to
// this shape by the caller.
type AuthConfig struct {
	Username string
	Password string
}

// CloneConfig contains configuration for cloning a repository.
type CloneConfig struct {
	// URL is the repository URL to clone
	URL string

	// Directory is the local destination path
	Directory string

	// Branch is the specific branch to clone (optional). When set, the
	// clone is single-branch.
	Branch string

	// Depth limits history depth; zero means a full clone. Shallow clones
	// keep the transfer small for large histories, which is the reason
	// this service clones at all.
	Depth int

	// Auth carries optional HTTP basic credentials
	Auth *AuthConfig
}
