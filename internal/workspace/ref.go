// Package workspace manages the on-disk working copies the traversal
// service clones repositories into, including per-repository locking and
// the persistent-volume lifecycle.
package workspace

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/treewalk-labs/git-traverser/internal/git"
)

// Provider identifies a git hosting provider
type Provider string

const (
	// ProviderGitHub is the github.com hosting provider
	ProviderGitHub Provider = "github"
	// ProviderGitLab is the gitlab.com hosting provider
	ProviderGitLab Provider = "gitlab"
)

// ErrUnresolvableProvider indicates the repository type could not be
// detected from the URL and was not supplied explicitly.
var ErrUnresolvableProvider = errors.New(
	"unable to detect repository type, specify 'type' in the request")

// RepoRef identifies a remote repository to traverse
type RepoRef struct {
	// URL is the remote repository URL
	URL string

	// Provider is the hosting provider, resolved from the URL when not
	// supplied explicitly
	Provider Provider

	// Branch is the branch to traverse
	Branch string

	// Token is an optional per-repository access token
	Token string
}

// ResolveProvider returns the explicit provider when given, otherwise
// infers it from the URL host. An unrecognized host with no explicit
// provider is a fatal input error.
func ResolveProvider(repoURL string, explicit Provider) (Provider, error) {
	switch explicit {
	case ProviderGitHub, ProviderGitLab:
		return explicit, nil
	case "":
	default:
		return "", fmt.Errorf("unsupported repository type: %s", explicit)
	}

	host := repoURL
	if u, err := url.Parse(repoURL); err == nil && u.Host != "" {
		host = u.Host
	}

	switch {
	case strings.Contains(host, "github.com"):
		return ProviderGitHub, nil
	case strings.Contains(host, "gitlab.com"):
		return ProviderGitLab, nil
	default:
		return "", ErrUnresolvableProvider
	}
}

// RepoKey derives the stable working-copy key for a repository URL: the
// final non-empty path segment with any extension stripped, so
// "https://github.com/example/proj.git" and ".../proj" share one copy.
func RepoKey(repoURL string) (string, error) {
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", fmt.Errorf("invalid repository URL %q: %w", repoURL, err)
	}

	p := u.Path
	if p == "" {
		p = u.Opaque
	}
	base := path.Base(strings.TrimRight(p, "/"))
	base = strings.TrimSuffix(base, path.Ext(base))

	if base == "" || base == "." || base == "/" {
		return "", fmt.Errorf("cannot derive repository name from URL %q", repoURL)
	}
	return base, nil
}

// AuthConfig maps the reference's token to the provider's credential
// convention: GitHub embeds the token as the URL user, GitLab uses the
// oauth2 pseudo-user with the token as password. Both translate directly
// to HTTP basic credentials.
func (r *RepoRef) AuthConfig() *git.AuthConfig {
	if r.Token == "" {
		return nil
	}
	switch r.Provider {
	case ProviderGitLab:
		return &git.AuthConfig{Username: "oauth2", Password: r.Token}
	default:
		return &git.AuthConfig{Username: r.Token}
	}
}
